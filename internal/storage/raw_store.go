package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// RawStore archives upstream payloads in raw_events before any parsing
// happens. Rows are append-only: a re-run stores its payloads again under a
// new run id, and the run id ties each event back to its journal entry.
type RawStore struct {
	conn *Connection
}

var _ ingestion.RawStore = (*RawStore)(nil)

// NewRawStore creates the raw event archive over a shared connection.
func NewRawStore(conn *Connection) *RawStore {
	return &RawStore{conn: conn}
}

// StoreRows persists one raw event per upstream row inside a single
// transaction, so a failed batch leaves no partial archive.
func (s *RawStore) StoreRows(ctx context.Context, source, datasetID, runID string, rows []ingestion.Record) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"raw_events", "event_id", "source", "dataset_id", "ingestion_run_id", "series_hint", "raw_payload",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare raw event copy: %w", err)
	}

	for _, row := range rows {
		payload, err := json.Marshal(ingestion.CleanPayload(row))
		if err != nil {
			return fmt.Errorf("failed to marshal raw payload: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), source, datasetID, runID, seriesHint(row), string(payload),
		); err != nil {
			return fmt.Errorf("failed to buffer raw event: %w", err)
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush raw events: %w", err)
	}

	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close raw event copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit raw events: %w", err)
	}

	return nil
}

// StoreDocument persists one whole-document raw event (the GIE shape).
func (s *RawStore) StoreDocument(ctx context.Context, source, datasetID, runID string, doc map[string]any) error {
	if doc == nil {
		return nil
	}

	payload, err := json.Marshal(ingestion.CleanPayload(doc))
	if err != nil {
		return fmt.Errorf("failed to marshal raw document: %w", err)
	}

	query := `
		INSERT INTO raw_events (event_id, source, dataset_id, ingestion_run_id, series_hint, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.conn.ExecContext(ctx, query,
		uuid.NewString(), source, datasetID, runID, seriesHint(doc), string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert raw document: %w", err)
	}

	return nil
}

// seriesHint extracts a best-effort series label from a payload for manual
// triage queries. Absent hints store as empty.
func seriesHint(payload map[string]any) string {
	for _, key := range []string{"Data Item", "dataItem", "indicator", "publicationName"} {
		if v, ok := payload[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}

	return ""
}
