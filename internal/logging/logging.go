package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AUTOPRESS/autopress/internal/config"
	"log/slog"
)

// New builds the process logger. Every line carries the service attribute so
// pipeline logs can be filtered out of an aggregated stream.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	handler, err := newHandler(os.Stdout, cfg)
	if err != nil {
		return nil, err
	}
	return slog.New(handler).With("service", "autopress"), nil
}

func newHandler(w io.Writer, cfg config.LoggingConfig) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	}
	return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
}
