package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Config holds database connection configuration.
type Config struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnectTimeout     time.Duration
}

// DefaultConfig returns sensible defaults for database configuration.
func DefaultConfig() Config {
	return Config{
		MaxConnections:     100,
		MaxIdleConnections: 10,
		ConnMaxLifetime:    5 * time.Minute,
		ConnectTimeout:     10 * time.Second,
	}
}

// Connect establishes a connection to the PostgreSQL database.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	// Open database connection
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// HealthCheck performs a database health check.
func HealthCheck(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Simple query to check database responsiveness
	var result int
	err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("unexpected health check result: %d", result)
	}

	return nil
}

// Stats returns connection pool statistics for the health endpoint.
func Stats(db *sql.DB) map[string]interface{} {
	stats := db.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// ConfigFromEnv reads connection settings. DATABASE_URL wins; otherwise a
// Cloud SQL unix-socket connection string is built from INSTANCE_CONNECTION_NAME
// and the DB_* variables, which is how Cloud Run mounts the instance.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.URL = dbURL
		return cfg, nil
	}

	instance := os.Getenv("INSTANCE_CONNECTION_NAME")
	if instance == "" {
		return cfg, fmt.Errorf("neither DATABASE_URL nor INSTANCE_CONNECTION_NAME is set")
	}
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if user == "" || name == "" {
		return cfg, fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	socketPath := fmt.Sprintf("/cloudsql/%s", instance)
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.URL = fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			socketPath, user, password, name)
	} else {
		// IAM authentication needs no password.
		cfg.URL = fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
			socketPath, user, name)
	}
	return cfg, nil
}
