package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/AUTOPRESS/autopress/internal/auth"
	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/AUTOPRESS/autopress/internal/scheduler"
	"log/slog"
)

// RunTrigger starts a publishing run. Implemented by the scheduler.
type RunTrigger interface {
	TriggerRun(ctx context.Context, mode string, count int) (models.RunReport, error)
}

// TriggerResponse is the JSON body returned by the trigger endpoint.
type TriggerResponse struct {
	Success             bool                `json:"success"`
	RunID               string              `json:"runId,omitempty"`
	Mode                string              `json:"mode,omitempty"`
	TotalRequested      int                 `json:"totalRequested"`
	SuccessCount        int                 `json:"successCount"`
	AverageQualityScore float64             `json:"averageQualityScore"`
	Results             []models.JobSummary `json:"results"`
	Error               string              `json:"error,omitempty"`
}

// PipelineHandler exposes the run trigger endpoint.
type PipelineHandler struct {
	trigger       RunTrigger
	triggerSecret string
	logger        *slog.Logger
}

// NewPipelineHandler creates a pipeline handler.
func NewPipelineHandler(trigger RunTrigger, triggerSecret string, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{
		trigger:       trigger,
		triggerSecret: triggerSecret,
		logger:        logger,
	}
}

// TriggerPublish handles POST /api/publish/trigger. The shared-secret token
// arrives as a query parameter so external cron services can call it without
// header support. The request blocks until the run completes.
func (h *PipelineHandler) TriggerPublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !auth.ValidTriggerToken(r.URL.Query().Get("token"), h.triggerSecret) {
		h.logger.Warn("trigger rejected, bad token", "ip", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, TriggerResponse{
			Success: false,
			Error:   "invalid trigger token",
		})
		return
	}

	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, TriggerResponse{
				Success: false,
				Error:   "count must be a positive integer",
			})
			return
		}
		count = parsed
	}

	report, err := h.trigger.TriggerRun(r.Context(), scheduler.ModeManual, count)
	if err != nil {
		if errors.Is(err, scheduler.ErrRunAlreadyActive) {
			writeJSON(w, http.StatusConflict, TriggerResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		h.logger.Error("manual run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, TriggerResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, TriggerResponse{
		Success:             true,
		RunID:               report.RunID,
		Mode:                report.Mode,
		TotalRequested:      report.RequestedCount,
		SuccessCount:        report.SuccessCount,
		AverageQualityScore: report.AverageQualityScore,
		Results:             report.Jobs,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
