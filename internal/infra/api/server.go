package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"custom-billing/internal/config"
	"custom-billing/internal/infra/api/apiv1"
	"custom-billing/internal/infra/metrics"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker func(ctx context.Context) error

// Server is the billing HTTP API: console and dashboard routes plus health and metrics.
type Server struct {
	cfg    config.ServerConfig
	v1     *apiv1.Server
	checks map[string]HealthChecker
	log    *zerolog.Logger
	srv    *http.Server
}

func NewServer(cfg config.ServerConfig, v1 *apiv1.Server, checks map[string]HealthChecker, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Server{cfg: cfg, v1: v1, checks: checks, log: &l}
}

// Handler builds the full middleware chain and route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	// inside the router so the matched route pattern is known
	r.Use(Metrics())
	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())
	apiv1.RegisterAPIV1(r, s.v1)

	return Chain(r,
		TraceID(),
		Recover(s.log),
		RequestLog(s.log),
		Timeout(s.cfg.RequestTimeout),
	)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.log.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("HTTP server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}
