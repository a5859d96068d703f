package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// upsertChunkSize bounds the parameters in one multi-row upsert statement.
// Seven placeholders per row keeps this comfortably under the postgres limit
// of 65535 bind parameters.
const upsertChunkSize = 1000

// ObservationStore persists flat observations in data_observations keyed by
// (series_id, observation_time). Upserts are last-write-wins: a batch that
// repeats a key keeps only its final occurrence, and re-ingestion overwrites
// the stored value.
type ObservationStore struct {
	conn *Connection
}

var _ ingestion.ObservationStore = (*ObservationStore)(nil)

// NewObservationStore creates the observation store over a shared connection.
func NewObservationStore(conn *Connection) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Upsert deduplicates the batch in memory, then writes it with
// INSERT ... ON CONFLICT DO UPDATE. Returns the number of rows written after
// deduplication.
func (s *ObservationStore) Upsert(ctx context.Context, runID string, observations []ingestion.Observation) (int, error) {
	deduped := dedupeObservations(observations)
	if len(deduped) == 0 {
		return 0, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	for start := 0; start < len(deduped); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(deduped) {
			end = len(deduped)
		}

		if err := upsertChunk(ctx, tx, runID, deduped[start:end]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit observation upsert: %w", err)
	}

	return len(deduped), nil
}

func upsertChunk(ctx context.Context, tx *sql.Tx, runID string, chunk []ingestion.Observation) error {
	const cols = 7

	placeholders := make([]string, 0, len(chunk))
	args := make([]any, 0, len(chunk)*cols)

	for i, obs := range chunk {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))

		payload, err := json.Marshal(obs.RawPayload)
		if err != nil {
			return fmt.Errorf("failed to marshal observation payload: %w", err)
		}

		args = append(args,
			obs.SeriesID,
			obs.ObservationTime,
			obs.Value,
			nullIfEmpty(obs.QualityFlag),
			string(payload),
			runID,
			time.Now().UTC(),
		)
	}

	query := `
		INSERT INTO data_observations
			(series_id, observation_time, value, quality_flag, raw_payload, ingestion_run_id, ingestion_time)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (series_id, observation_time) DO UPDATE
		SET value = EXCLUDED.value,
		    quality_flag = EXCLUDED.quality_flag,
		    raw_payload = EXCLUDED.raw_payload,
		    ingestion_run_id = EXCLUDED.ingestion_run_id,
		    ingestion_time = EXCLUDED.ingestion_time
	`

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert observations: %w", err)
	}

	return nil
}

// DeleteOlderThan prunes a dataset's observations strictly before the cutoff.
// The dataset scope comes from the series catalog: observations carry no
// dataset column of their own.
func (s *ObservationStore) DeleteOlderThan(ctx context.Context, datasetID string, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM data_observations
		WHERE series_id IN (SELECT series_id FROM meta_series WHERE dataset_id = $1)
		  AND observation_time < $2
	`

	result, err := s.conn.ExecContext(ctx, query, datasetID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired observations: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// dedupeObservations keeps the last occurrence of each (series_id,
// observation_time) key, preserving first-seen key order so batches stay
// deterministic.
func dedupeObservations(observations []ingestion.Observation) []ingestion.Observation {
	type key struct {
		seriesID string
		at       time.Time
	}

	index := make(map[key]int, len(observations))
	deduped := make([]ingestion.Observation, 0, len(observations))

	for _, obs := range observations {
		k := key{seriesID: obs.SeriesID, at: obs.ObservationTime}

		if pos, ok := index[k]; ok {
			deduped[pos] = obs

			continue
		}

		index[k] = len(deduped)
		deduped = append(deduped, obs)
	}

	return deduped
}

// nullIfEmpty maps an empty string to SQL NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}
