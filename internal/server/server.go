package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/AUTOPRESS/autopress/internal/config"
	"log/slog"
)

// Server hosts the trigger and admin endpoints for the publishing pipeline.
type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger
	http   *http.Server
}

// New wires the HTTP server around the router. Trigger requests are tiny, so
// the header timeout matches the read timeout; idle keep-alive connections get
// four times that before they are reaped.
func New(cfg config.ServerConfig, logger *slog.Logger, handler http.Handler) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       4 * cfg.ReadTimeout,
		},
	}
}

// Start serves until Shutdown is called. A clean close is not an error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured grace period. A
// publishing run in progress keeps going; only the HTTP surface stops.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down", "grace", s.cfg.ShutdownTimeout)
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
