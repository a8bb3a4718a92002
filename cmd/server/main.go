package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AUTOPRESS/autopress/internal/api"
	"github.com/AUTOPRESS/autopress/internal/auth"
	"github.com/AUTOPRESS/autopress/internal/config"
	"github.com/AUTOPRESS/autopress/internal/database"
	"github.com/AUTOPRESS/autopress/internal/images"
	"github.com/AUTOPRESS/autopress/internal/llm"
	"github.com/AUTOPRESS/autopress/internal/logging"
	"github.com/AUTOPRESS/autopress/internal/metrics"
	"github.com/AUTOPRESS/autopress/internal/pipeline"
	"github.com/AUTOPRESS/autopress/internal/publisher"
	"github.com/AUTOPRESS/autopress/internal/research"
	"github.com/AUTOPRESS/autopress/internal/scheduler"
	"github.com/AUTOPRESS/autopress/internal/scoring"
	"github.com/AUTOPRESS/autopress/internal/server"
	"github.com/AUTOPRESS/autopress/internal/styles"
	"github.com/AUTOPRESS/autopress/internal/topics"
	"github.com/AUTOPRESS/autopress/internal/writer"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting autopress")

	// Connect to database (supports both local DATABASE_URL and Cloud SQL)
	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		logger.Error("failed to build database config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, dbCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// Run pending migrations (non-fatal so the app can start during an outage)
	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	historyRepo := database.NewPostgresHistoryRepository(db)
	runRepo := database.NewPostgresRunRepository(db)

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// LLM client, with a mock fallback for keyless local runs
	var llmClient llm.Client
	llmCfg := llm.ConfigFromEnv()
	openaiClient, err := llm.NewOpenAIClient(llmCfg, logger)
	if err != nil {
		logger.Warn("failed to initialize OpenAI client, using mock", "error", err)
		llmClient = llm.NewMockClient()
	} else {
		llmClient = openaiClient
	}

	// Research search client
	var searchClient research.SearchClient
	searchURL, searchKey := research.SearchConfigFromEnv()
	httpSearch, err := research.NewHTTPSearchClient(searchURL, searchKey)
	if err != nil {
		logger.Warn("search service not configured, research will run unverified", "error", err)
		searchClient = &research.MockSearchClient{}
	} else {
		searchClient = httpSearch
	}

	// Stock image client
	var imageClient images.Client
	imageURL, imageKey := images.ConfigFromEnv()
	httpImages, err := images.NewHTTPClient(imageURL, imageKey)
	if err != nil {
		logger.Warn("image service not configured, posts will have no images", "error", err)
		imageClient = &images.MockClient{}
	} else {
		imageClient = httpImages
	}

	// Publish target
	var target publisher.Target
	publishURL, publishKey := publisher.TargetConfigFromEnv()
	httpTarget, err := publisher.NewHTTPTarget(publishURL, publishKey)
	if err != nil {
		logger.Warn("publish target not configured, using in-memory target", "error", err)
		target = &publisher.MockTarget{}
	} else {
		target = httpTarget
	}

	// Writer style profiles
	profiles, err := styles.LoadProfiles(os.Getenv("STYLE_PROFILES_PATH"))
	if err != nil {
		logger.Error("failed to load style profiles", "error", err)
		os.Exit(1)
	}
	blendParts, err := styles.ParseBlendSpec(os.Getenv("STYLE_BLEND"), profiles)
	if err != nil {
		logger.Error("failed to parse style blend", "error", err)
		os.Exit(1)
	}
	profile, err := styles.Blend(blendParts)
	if err != nil {
		logger.Error("failed to blend style profiles", "error", err)
		os.Exit(1)
	}
	logger.Info("writer profile blended", "profile", profile.Name)

	// Pipeline stages
	dedup := topics.NewDeduplicator(historyRepo, cfg.Pipeline.DedupWindowDays, cfg.Pipeline.SimilarityThreshold)
	proposer := topics.NewGenerator(llmClient, logger)
	researcher := research.NewService(searchClient, research.DefaultRetryPolicy(), logger)
	drafter := writer.NewGenerator(llmClient, logger)
	scorer := scoring.NewScorer(scoring.DefaultWeights(), cfg.Pipeline.AcceptThreshold, cfg.Pipeline.MaxDraftAttempts)
	imageService := images.NewService(imageClient, logger)
	publishService := publisher.NewService(target, logger)

	runner := pipeline.NewRunner(
		researcher, drafter, scorer, imageService, publishService,
		dedup, historyRepo, collector, logger,
		cfg.Pipeline.MaxDraftAttempts, cfg.Pipeline.ImagesPerPost,
	)

	sched := scheduler.New(
		cfg.Pipeline, cfg.Quota,
		proposer, dedup, runner, runRepo,
		profile, collector, logger,
	)

	schedCtx, cancelSched := context.WithCancel(ctx)
	go sched.Start(schedCtx)

	// HTTP surface
	authConfig, err := auth.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load auth config", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	api.SetupRoutes(mux, sched, cfg.Pipeline.TriggerSecret, runRepo, profiles, authConfig, healthHandler(db), logger)
	mux.Handle("/metrics", collector.Handler())

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	cancelSched()
	sched.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("autopress stopped")
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context(), db); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "ok",
			"database": database.Stats(db),
		})
	}
}
