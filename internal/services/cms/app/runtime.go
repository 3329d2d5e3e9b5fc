// Package server composes the CMS runtime and serves its admin API.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/louisbranch/folio/internal/platform/logging"
	"github.com/louisbranch/folio/internal/platform/metrics"
	"github.com/louisbranch/folio/internal/services/cms/domain"
	"github.com/louisbranch/folio/internal/services/cms/mail"
	"github.com/louisbranch/folio/internal/services/cms/notify"
	"github.com/louisbranch/folio/internal/services/cms/signals"
	"github.com/louisbranch/folio/internal/services/cms/storage/sqlite"
)

// Runtime is the wired set of CMS services over one store.
type Runtime struct {
	Config     Config
	Store      *sqlite.Store
	Tree       *domain.Tree
	Workflows  *domain.Workflows
	Bus        *signals.Bus
	Mailer     *mail.Mailer
	Notify     notify.Deps
	Moderation *notify.ModerationNotifier
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// OpenRuntime opens the configured store, applying pending migrations, and
// wires the services on top of it.
func OpenRuntime(cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Runtime, error) {
	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return NewRuntime(cfg, store, MailTransport(cfg, logger), logger, m), nil
}

// OpenStore opens the SQLite store at path, creating its directory.
func OpenStore(path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cms sqlite store: %w", err)
	}
	return store, nil
}

// MailTransport returns SMTP delivery when a relay is configured and a
// logging transport otherwise.
func MailTransport(cfg Config, logger *zap.Logger) mail.Transport {
	if strings.TrimSpace(cfg.SMTPAddr) == "" {
		return mail.LogTransport{Logger: logger}
	}
	return mail.SMTPTransport{
		Addr:     cfg.SMTPAddr,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}
}

// NewRuntime wires the services over store. Workflow signals are delivered
// to the notifiers synchronously.
func NewRuntime(cfg Config, store *sqlite.Store, transport mail.Transport, logger *zap.Logger, m *metrics.Metrics) *Runtime {
	logger = logging.OrNop(logger)
	clock := time.Now

	mailer := mail.New(transport, cfg.DefaultFromEmail, mail.WithLogger(logger.Named("mail")))
	deps := notify.Deps{
		Accounts:   store,
		Pages:      store,
		Moderation: store,
		Mailer:     mailer,
		Templates:  notify.NewTemplates(nil),
		Settings: notify.Settings{
			SiteRootURL:       cfg.SiteRootURL,
			IncludeSuperusers: cfg.NotificationIncludeSuperusers,
			Language:          cfg.NotificationLanguage,
		},
	}
	bus := signals.New()
	notify.Connect(bus, deps, notify.Dispatcher{Metrics: m, Logger: logger.Named("notify")})

	return &Runtime{
		Config:     cfg,
		Store:      store,
		Tree:       domain.NewTree(store, clock),
		Workflows:  domain.NewWorkflows(store, store, bus, clock),
		Bus:        bus,
		Mailer:     mailer,
		Notify:     deps,
		Moderation: notify.NewModerationNotifier(deps),
		Logger:     logger,
		Metrics:    m,
	}
}

// SetURLPaths rebuilds every url path and records the count.
func (r *Runtime) SetURLPaths(ctx context.Context) (int, error) {
	saved, err := r.Tree.SetURLPaths(ctx)
	r.Metrics.URLPathsSaved(saved)
	return saved, err
}

// Close releases the store.
func (r *Runtime) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}
