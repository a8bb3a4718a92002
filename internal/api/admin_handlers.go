package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/AUTOPRESS/autopress/internal/models"
	"log/slog"
)

// RunReader reads persisted run outcomes for the admin surface.
type RunReader interface {
	ListReports(ctx context.Context, limit int) ([]models.RunReport, error)
	ListUsage(ctx context.Context, limit int) ([]models.UsageRecord, error)
}

// AdminHandler serves run history, usage, and writer profile inspection.
type AdminHandler struct {
	runs     RunReader
	profiles []models.StyleProfile
	logger   *slog.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(runs RunReader, profiles []models.StyleProfile, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		runs:     runs,
		profiles: profiles,
		logger:   logger,
	}
}

// ListHistory handles GET /api/admin/history.
func (h *AdminHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reports, err := h.runs.ListReports(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("failed to list run reports", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []models.RunReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// ListUsage handles GET /api/admin/usage.
func (h *AdminHandler) ListUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.runs.ListUsage(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("failed to list usage records", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.UsageRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ListProfiles handles GET /api/admin/profiles.
func (h *AdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.profiles)
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0
	}
	return limit
}
