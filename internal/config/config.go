package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Pipeline PipelineConfig
	Quota    QuotaConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// PipelineConfig holds the publishing pipeline policy knobs. The acceptance
// threshold and rewrite ceiling define the quality/cost trade-off and are
// deliberately configuration, not constants inside the scorer.
type PipelineConfig struct {
	TriggerSecret       string
	DefaultPostCount    int
	MaxParallelJobs     int
	CadenceInterval     time.Duration
	RunTimeout          time.Duration
	AcceptThreshold     float64
	MaxDraftAttempts    int
	DedupWindowDays     int
	SimilarityThreshold float64
	ProposalCeiling     int // max topic-proposal rounds before a short run is accepted
	ImagesPerPost       int
}

// QuotaConfig caps per-run external API consumption by call kind.
type QuotaConfig struct {
	LLMCalls     int
	SearchCalls  int
	ImageCalls   int
	PublishCalls int
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultPostCount        = 2
	defaultMaxParallelJobs  = 3
	defaultCadence          = 4 * time.Hour
	defaultRunTimeout       = 30 * time.Minute
	defaultAcceptThreshold  = 75.0
	defaultMaxDraftAttempts = 3
	defaultDedupWindowDays  = 30
	defaultSimilarity       = 0.5
	defaultProposalCeiling  = 3
	defaultImagesPerPost    = 2

	defaultLLMQuota     = 60
	defaultSearchQuota  = 40
	defaultImageQuota   = 20
	defaultPublishQuota = 10
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Pipeline: PipelineConfig{
			TriggerSecret:       os.Getenv("TRIGGER_SECRET"),
			DefaultPostCount:    defaultPostCount,
			MaxParallelJobs:     defaultMaxParallelJobs,
			CadenceInterval:     defaultCadence,
			RunTimeout:          defaultRunTimeout,
			AcceptThreshold:     defaultAcceptThreshold,
			MaxDraftAttempts:    defaultMaxDraftAttempts,
			DedupWindowDays:     defaultDedupWindowDays,
			SimilarityThreshold: defaultSimilarity,
			ProposalCeiling:     defaultProposalCeiling,
			ImagesPerPost:       defaultImagesPerPost,
		},
		Quota: QuotaConfig{
			LLMCalls:     defaultLLMQuota,
			SearchCalls:  defaultSearchQuota,
			ImageCalls:   defaultImageQuota,
			PublishCalls: defaultPublishQuota,
		},
	}

	if cfg.Pipeline.TriggerSecret == "" {
		return Config{}, fmt.Errorf("TRIGGER_SECRET must be set")
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if err := loadPipelineEnv(&cfg.Pipeline); err != nil {
		return Config{}, err
	}

	if err := loadQuotaEnv(&cfg.Quota); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadPipelineEnv(p *PipelineConfig) error {
	if v := os.Getenv("DEFAULT_POST_COUNT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid DEFAULT_POST_COUNT: %w", err)
		}
		p.DefaultPostCount = n
	}

	if v := os.Getenv("MAX_PARALLEL_JOBS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_PARALLEL_JOBS: %w", err)
		}
		p.MaxParallelJobs = n
	}

	if v := os.Getenv("CADENCE_INTERVAL_MINUTES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid CADENCE_INTERVAL_MINUTES: %w", err)
		}
		p.CadenceInterval = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("RUN_TIMEOUT_MINUTES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid RUN_TIMEOUT_MINUTES: %w", err)
		}
		p.RunTimeout = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("QUALITY_ACCEPT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 100 {
			return fmt.Errorf("invalid QUALITY_ACCEPT_THRESHOLD: must be in (0,100]")
		}
		p.AcceptThreshold = f
	}

	if v := os.Getenv("MAX_DRAFT_ATTEMPTS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_DRAFT_ATTEMPTS: %w", err)
		}
		p.MaxDraftAttempts = n
	}

	if v := os.Getenv("DEDUP_WINDOW_DAYS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid DEDUP_WINDOW_DAYS: %w", err)
		}
		p.DedupWindowDays = n
	}

	if v := os.Getenv("DEDUP_SIMILARITY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("invalid DEDUP_SIMILARITY_THRESHOLD: must be in (0,1]")
		}
		p.SimilarityThreshold = f
	}

	if v := os.Getenv("TOPIC_PROPOSAL_CEILING"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid TOPIC_PROPOSAL_CEILING: %w", err)
		}
		p.ProposalCeiling = n
	}

	if v := os.Getenv("IMAGES_PER_POST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid IMAGES_PER_POST: must be a non-negative integer")
		}
		p.ImagesPerPost = n
	}

	return nil
}

func loadQuotaEnv(q *QuotaConfig) error {
	entries := []struct {
		env string
		dst *int
	}{
		{"QUOTA_LLM_CALLS", &q.LLMCalls},
		{"QUOTA_SEARCH_CALLS", &q.SearchCalls},
		{"QUOTA_IMAGE_CALLS", &q.ImageCalls},
		{"QUOTA_PUBLISH_CALLS", &q.PublishCalls},
	}
	for _, e := range entries {
		if v := os.Getenv(e.env); v != "" {
			n, err := parsePositiveInt(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", e.env, err)
			}
			*e.dst = n
		}
	}
	return nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
