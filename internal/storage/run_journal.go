package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// RunJournal records ingestion run lifecycle rows in ingestion_runs. A row is
// opened RUNNING before any work happens and closed exactly once with a
// terminal status; a row left RUNNING with finished_at NULL marks a crashed
// run.
type RunJournal struct {
	conn *Connection
}

// Compile-time interface checks.
var (
	_ ingestion.RunJournal = (*RunJournal)(nil)
	_ ingestion.RunReader  = (*RunJournal)(nil)
)

// NewRunJournal creates the run journal over a shared connection.
func NewRunJournal(conn *Connection) *RunJournal {
	return &RunJournal{conn: conn}
}

// Open inserts a RUNNING journal row and returns its generated run id.
func (j *RunJournal) Open(ctx context.Context, datasetID string) (string, error) {
	runID := uuid.NewString()

	query := `
		INSERT INTO ingestion_runs (run_id, dataset_id, started_at, status)
		VALUES ($1, $2, NOW(), $3)
	`

	_, err := j.conn.ExecContext(ctx, query, runID, datasetID, ingestion.RunStatusRunning)
	if err != nil {
		return "", fmt.Errorf("failed to open run journal entry: %w", err)
	}

	return runID, nil
}

// Close finalizes a journal row with its terminal status, counters and
// optional error message.
func (j *RunJournal) Close(
	ctx context.Context,
	runID string,
	status ingestion.RunStatus,
	counters ingestion.RunCounters,
	errMessage string,
) error {
	query := `
		UPDATE ingestion_runs
		SET finished_at = NOW(),
		    status = $1,
		    rows_fetched = $2,
		    rows_inserted = $3,
		    rows_deleted = $4,
		    error_message = NULLIF($5, '')
		WHERE run_id = $6
	`

	result, err := j.conn.ExecContext(ctx, query,
		status, counters.RowsFetched, counters.RowsInserted, counters.RowsDeleted, errMessage, runID)
	if err != nil {
		return fmt.Errorf("failed to close run journal entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run journal entry %s not found", runID)
	}

	return nil
}

// Recent returns the latest runs, newest first.
func (j *RunJournal) Recent(ctx context.Context, limit int) ([]ingestion.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, dataset_id, started_at, finished_at, status,
		       rows_fetched, rows_inserted, rows_deleted, COALESCE(error_message, '')
		FROM ingestion_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := j.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var records []ingestion.RunRecord

	for rows.Next() {
		var (
			rec        ingestion.RunRecord
			finishedAt *time.Time
		)

		err := rows.Scan(
			&rec.RunID,
			&rec.DatasetID,
			&rec.StartedAt,
			&finishedAt,
			&rec.Status,
			&rec.RowsFetched,
			&rec.RowsInserted,
			&rec.RowsDeleted,
			&rec.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}

		rec.FinishedAt = finishedAt

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if records == nil {
		records = []ingestion.RunRecord{}
	}

	return records, nil
}
