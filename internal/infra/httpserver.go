package infra

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
)

// HTTPServer serves the pipeline API until its context ends.
type HTTPServer struct {
	server *http.Server
	cfg    *Config
	logger Logger
}

// NewHTTPServer binds handler to cfg.Port with the configured timeouts.
// net/http's own error log is routed through logger.
func NewHTTPServer(cfg *Config, handler http.Handler, logger Logger) *HTTPServer {
	httpLogger := logger.With().Str("component", "http").Logger()
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPHeaderTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ErrorLog:          log.New(httpLogger, "", 0),
	}
	return &HTTPServer{server: srv, cfg: cfg, logger: logger}
}

// Serve listens on the configured port until ctx ends, then drains in-flight
// requests for at most cfg.ShutdownGrace.
func (s *HTTPServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *HTTPServer) serve(ctx context.Context, ln net.Listener) error {
	errs := make(chan error, 1)
	go func() { errs <- s.server.Serve(ln) }()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("api: listening")

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownGrace)
	defer cancel()
	s.logger.Info().Dur("grace", s.cfg.ShutdownGrace).Msg("api: shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
