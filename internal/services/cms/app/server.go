package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/louisbranch/folio/internal/platform/logging"
	"github.com/louisbranch/folio/internal/platform/metrics"
	"github.com/louisbranch/folio/internal/platform/timeouts"
	"github.com/louisbranch/folio/internal/services/cms/api/httpapi"
)

// Server hosts the admin API and owns the runtime behind it.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	runtime    *Runtime
	logger     *zap.Logger
}

// New opens the runtime described by cfg and listens on cfg.HTTPAddr.
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	if err := cfg.validateServer(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)
	m := metrics.New()

	runtime, err := OpenRuntime(cfg, logger, m)
	if err != nil {
		return nil, err
	}
	handler, err := httpapi.NewRouter(httpapi.Config{
		Pages:     runtime.Tree,
		Workflows: runtime.Workflows,
		Accounts:  runtime.Store,
		Secret:    []byte(cfg.JWTSecret),
		Logger:    logger.Named("http"),
		Metrics:   m,
		Health:    runtime.Store.Ping,
	})
	if err != nil {
		_ = runtime.Close()
		return nil, err
	}
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		runtime: runtime,
		logger:  logger,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a server until ctx ends.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	server, err := New(cfg, logger)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve blocks until ctx ends or the listener fails, then shuts down
// gracefully and releases the runtime.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	s.logger.Info("admin api listening", zap.String("addr", s.Addr()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

// Close releases server resources. It is safe to call more than once.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.runtime != nil {
		if err := s.runtime.Close(); err != nil {
			s.logger.Warn("close cms store", zap.Error(err))
		}
		s.runtime = nil
	}
}
