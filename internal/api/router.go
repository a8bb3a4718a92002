package api

import (
	"net/http"

	"github.com/AUTOPRESS/autopress/internal/auth"
	"github.com/AUTOPRESS/autopress/internal/models"
	"log/slog"
)

// SetupRoutes configures all API routes.
func SetupRoutes(
	mux *http.ServeMux,
	trigger RunTrigger,
	triggerSecret string,
	runs RunReader,
	profiles []models.StyleProfile,
	authConfig auth.Config,
	healthCheck http.HandlerFunc,
	logger *slog.Logger,
) {
	pipelineHandler := NewPipelineHandler(trigger, triggerSecret, logger)
	authHandler := NewAuthHandler(authConfig, logger)
	adminHandler := NewAdminHandler(runs, profiles, logger)

	authMiddleware := auth.Middleware(authConfig)

	// Trigger endpoint guards itself with the shared-secret token so cron
	// services can call it without a JWT.
	mux.HandleFunc("/api/publish/trigger", pipelineHandler.TriggerPublish)

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)

	// Admin routes (JWT required)
	mux.HandleFunc("/api/admin/history", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(adminHandler.ListHistory)).ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/admin/usage", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(adminHandler.ListUsage)).ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/admin/profiles", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(adminHandler.ListProfiles)).ServeHTTP(w, r)
	})

	mux.HandleFunc("/healthz", healthCheck)
}
