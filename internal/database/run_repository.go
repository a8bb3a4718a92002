package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/AUTOPRESS/autopress/internal/models"
)

// PostgresRunRepository persists run reports and usage records for the admin
// surface. Job summaries are stored as JSONB: they are read back whole, never
// queried field by field.
type PostgresRunRepository struct {
	db *sql.DB
}

// NewPostgresRunRepository creates a run repository.
func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// SaveReport stores one run report.
func (r *PostgresRunRepository) SaveReport(ctx context.Context, report models.RunReport) error {
	jobs, err := json.Marshal(report.Jobs)
	if err != nil {
		return fmt.Errorf("failed to encode job summaries: %w", err)
	}

	query := `
		INSERT INTO run_reports (run_id, mode, requested_count, success_count, average_quality_score, jobs, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO NOTHING`

	_, err = r.db.ExecContext(ctx, query,
		report.RunID,
		report.Mode,
		report.RequestedCount,
		report.SuccessCount,
		report.AverageQualityScore,
		jobs,
		report.StartedAt,
		report.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}

// ListReports returns the most recent run reports, newest first.
func (r *PostgresRunRepository) ListReports(ctx context.Context, limit int) ([]models.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, mode, requested_count, success_count, average_quality_score, jobs, started_at, finished_at
		FROM run_reports
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run reports: %w", err)
	}
	defer rows.Close()

	var reports []models.RunReport
	for rows.Next() {
		var report models.RunReport
		var jobs []byte
		if err := rows.Scan(
			&report.RunID,
			&report.Mode,
			&report.RequestedCount,
			&report.SuccessCount,
			&report.AverageQualityScore,
			&jobs,
			&report.StartedAt,
			&report.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run report: %w", err)
		}
		if err := json.Unmarshal(jobs, &report.Jobs); err != nil {
			return nil, fmt.Errorf("failed to decode job summaries: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run reports: %w", err)
	}
	return reports, nil
}

// SaveUsage stores the usage snapshot of one run.
func (r *PostgresRunRepository) SaveUsage(ctx context.Context, record models.UsageRecord) error {
	calls, err := json.Marshal(record.APICallsByKind)
	if err != nil {
		return fmt.Errorf("failed to encode api call counts: %w", err)
	}

	query := `
		INSERT INTO usage_records (run_id, api_calls, cost_estimate, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE
		SET api_calls = EXCLUDED.api_calls,
		    cost_estimate = EXCLUDED.cost_estimate,
		    recorded_at = EXCLUDED.recorded_at`

	_, err = r.db.ExecContext(ctx, query, record.RunID, calls, record.CostEstimate, record.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to save usage record: %w", err)
	}
	return nil
}

// ListUsage returns the most recent usage records, newest first.
func (r *PostgresRunRepository) ListUsage(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, api_calls, cost_estimate, recorded_at
		FROM usage_records
		ORDER BY recorded_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var record models.UsageRecord
		var calls []byte
		if err := rows.Scan(&record.RunID, &calls, &record.CostEstimate, &record.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		if err := json.Unmarshal(calls, &record.APICallsByKind); err != nil {
			return nil, fmt.Errorf("failed to decode api call counts: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage records: %w", err)
	}
	return records, nil
}
