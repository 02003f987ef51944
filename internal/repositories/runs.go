package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/soundstats/internal/models"
	"github.com/desertthunder/soundstats/internal/shared"
)

// RunRepository records ingestion runs in the ingest_runs audit table.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new ingest run with a generated ID.
func (r *RunRepository) Create(run *models.IngestRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO ingest_runs (run_id, kind, requested, ingested, skipped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Kind,
		run.Requested,
		run.Ingested,
		run.Skipped,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingest run: %w", err)
	}

	return nil
}

// List retrieves ingest runs, newest first, optionally filtered by kind.
func (r *RunRepository) List(kind string) ([]models.IngestRun, error) {
	query := `
		SELECT run_id, kind, requested, ingested, skipped, started_at, finished_at
		FROM ingest_runs
	`
	args := []any{}

	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY started_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		var (
			run        models.IngestRun
			startedAt  time.Time
			finishedAt time.Time
		)
		if err := rows.Scan(&run.ID, &run.Kind, &run.Requested, &run.Ingested, &run.Skipped, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingest run: %w", err)
		}
		run.StartedAt = startedAt
		run.FinishedAt = finishedAt
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}
