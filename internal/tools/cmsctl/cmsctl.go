// Package cmsctl implements the CMS maintenance command line.
package cmsctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/louisbranch/folio/internal/platform/logging"
	"github.com/louisbranch/folio/internal/services/cms/mail"
	server "github.com/louisbranch/folio/internal/services/cms/app"
)

// Options configures a command tree. Zero values use the process
// environment, a logging or SMTP mail transport and the wall clock.
type Options struct {
	Out    io.Writer
	ErrOut io.Writer
	// Config replaces the FOLIO_* environment when set.
	Config *server.Config
	// Transport replaces the configured mail transport when set.
	Transport mail.Transport
	Now       func() time.Time
}

type cli struct {
	opts     Options
	cfg      server.Config
	dbPath   string
	logLevel string
	logger   *zap.Logger
}

// NewRootCommand builds the cmsctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.ErrOut == nil {
		opts.ErrOut = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &cli{opts: opts}

	root := &cobra.Command{
		Use:           "cmsctl",
		Short:         "Maintenance commands for the folio CMS",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.ErrOut)
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "path to the SQLite database (default: FOLIO_DB_PATH or data/folio.db)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (default: FOLIO_LOG_LEVEL or info)")

	root.AddCommand(
		c.movePageCommand(),
		c.setURLPathsCommand(),
		c.migrateCommand(),
		c.loadFixtureCommand(),
		c.issueTokenCommand(),
		c.sendModerationNotificationCommand(),
	)
	return root
}

// Execute runs the command tree with args until ctx ends.
func Execute(ctx context.Context, opts Options, args []string) error {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.opts.Config != nil {
		c.cfg = *c.opts.Config
	} else {
		cfg, err := server.LoadConfig()
		if err != nil {
			return err
		}
		c.cfg = cfg
	}
	if c.dbPath != "" {
		c.cfg.DBPath = c.dbPath
	}
	if c.logLevel != "" {
		c.cfg.LogLevel = c.logLevel
	}
	logger, err := logging.NewDevelopment(c.cfg.LogLevel)
	if err != nil {
		return err
	}
	c.logger = logger.Named("cmsctl")
	return nil
}

// withRuntime opens the store, runs fn under the maintenance timeout and
// closes the store.
func (c *cli) withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *server.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.cfg.MaintenanceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.MaintenanceTimeout)
		defer cancel()
	}
	store, err := server.OpenStore(c.cfg.DBPath)
	if err != nil {
		return err
	}
	transport := c.opts.Transport
	if transport == nil {
		transport = server.MailTransport(c.cfg, c.logger)
	}
	rt := server.NewRuntime(c.cfg, store, transport, c.logger, nil)
	defer func() {
		if err := rt.Close(); err != nil {
			c.logger.Warn("close store", zap.Error(err))
		}
	}()
	return fn(ctx, rt)
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

var errSecretRequired = errors.New("FOLIO_JWT_SECRET is required to issue tokens")
