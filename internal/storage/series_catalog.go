package storage

import (
	"context"
	"fmt"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// SeriesCatalog maintains the flat canonical series registry (meta_series).
// Registration is write-once: ON CONFLICT DO NOTHING keyed by series_id, so
// attributes never drift under re-ingestion.
type SeriesCatalog struct {
	conn *Connection
}

var _ ingestion.SeriesCatalog = (*SeriesCatalog)(nil)

// NewSeriesCatalog creates the series catalog over a shared connection.
func NewSeriesCatalog(conn *Connection) *SeriesCatalog {
	return &SeriesCatalog{conn: conn}
}

// Register inserts any series the catalog has not seen before. Existing rows
// are left untouched.
func (c *SeriesCatalog) Register(ctx context.Context, series []ingestion.SeriesMeta) error {
	if len(series) == 0 {
		return nil
	}

	query := `
		INSERT INTO meta_series
			(series_id, source, dataset_id, data_item, description, unit, frequency, timezone_source, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (series_id) DO NOTHING
	`

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	for _, s := range series {
		_, err := tx.ExecContext(ctx, query,
			s.SeriesID, s.Source, s.DatasetID, s.DataItem,
			s.Description, s.Unit, s.Frequency, s.TimezoneSource, s.IsActive)
		if err != nil {
			return fmt.Errorf("failed to register series %s: %w", s.SeriesID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit series registration: %w", err)
	}

	return nil
}
