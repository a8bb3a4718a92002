package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AUTOPRESS/autopress/internal/models"
	"github.com/lib/pq"
)

// PostgresHistoryRepository stores the append-only topic history used for
// deduplication across runs.
type PostgresHistoryRepository struct {
	db *sql.DB
}

// NewPostgresHistoryRepository creates a history repository.
func NewPostgresHistoryRepository(db *sql.DB) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{db: db}
}

// Append records a consumed topic.
func (r *PostgresHistoryRepository) Append(ctx context.Context, entry models.HistoryEntry) error {
	query := `
		INSERT INTO topic_history (id, topic_id, topic_text, keywords, status, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.TopicID,
		entry.TopicText,
		pq.Array(entry.Keywords),
		string(entry.Status),
		entry.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append topic history: %w", err)
	}
	return nil
}

// ListSince returns every history entry at or after the cutoff, newest first.
func (r *PostgresHistoryRepository) ListSince(ctx context.Context, since time.Time) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, topic_id, topic_text, keywords, status, published_at
		FROM topic_history
		WHERE published_at >= $1
		ORDER BY published_at DESC`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		var status string
		if err := rows.Scan(
			&entry.ID,
			&entry.TopicID,
			&entry.TopicText,
			pq.Array(&entry.Keywords),
			&status,
			&entry.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Status = models.JobState(status)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topic history: %w", err)
	}
	return entries, nil
}
