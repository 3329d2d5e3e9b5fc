// Package cmd holds the startup plumbing shared by folio binaries.
package cmd

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/louisbranch/folio/internal/platform/logging"
	"github.com/louisbranch/folio/internal/platform/otel"
)

// Service names reported as the OpenTelemetry service.name resource.
const (
	ServiceServer = "folio-server"
	ServiceCmsctl = "cmsctl"
)

const defaultTelemetryFlush = 5 * time.Second

// RunOptions tunes RunWithTelemetryAndOptions.
type RunOptions struct {
	// FlushTimeout bounds the final span export after run returns.
	FlushTimeout time.Duration
	// Logger receives flush failures. Nil discards them.
	Logger *zap.Logger
}

// ParseArgs parses command-line flags into fs. A nil args slice parses as
// no arguments.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag set is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry runs fn with tracing configured for service.
func RunWithTelemetry(ctx context.Context, service string, fn func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, fn)
}

// RunWithTelemetryAndOptions runs fn with tracing configured for service and
// flushes pending spans once fn returns. The error from fn wins over a
// flush failure, which is only logged.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, fn func(context.Context) error) error {
	service = strings.TrimSpace(service)
	switch {
	case service == "":
		return errors.New("service name is required")
	case fn == nil:
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.OrNop(options.Logger)

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		flush := options.FlushTimeout
		if flush <= 0 {
			flush = defaultTelemetryFlush
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), flush)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("flush telemetry", zap.String("service", service), zap.Error(err))
		}
	}()
	return fn(ctx)
}
