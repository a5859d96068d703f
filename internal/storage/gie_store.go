package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

const (
	gieAssetType  = "Storage"
	gieAssetLevel = "Country"
)

// GIEDailyStore persists GIE AGSI/ALSI observations in the relational model:
// meta.assets holds one row per country, meta.series one row per
// (asset, variable, source), and energy.daily the per-gas-day values. Assets
// and series are created inline the first time a value references them.
type GIEDailyStore struct {
	conn *Connection
}

var _ ingestion.GIEDailyStore = (*GIEDailyStore)(nil)

// NewGIEDailyStore creates the relational daily store over a shared
// connection.
func NewGIEDailyStore(conn *Connection) *GIEDailyStore {
	return &GIEDailyStore{conn: conn}
}

// DeleteRecentBySource removes a source's daily values from the cutoff gas
// day forward. The rolling window keeps recent revisable days replaceable
// without touching settled history.
func (s *GIEDailyStore) DeleteRecentBySource(ctx context.Context, source string, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM energy.daily d
		USING meta.series ms
		WHERE d.series_id = ms.series_id
		  AND ms.source = $1
		  AND d.value_date >= $2
	`

	result, err := s.conn.ExecContext(ctx, query, source, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recent daily values: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// InsertDaily writes one batch of daily observations in a single
// transaction, creating country assets and series on first reference.
// Null-like upstream values are stored as SQL NULL. Returns the number of
// rows written.
func (s *GIEDailyStore) InsertDaily(ctx context.Context, source string, observations []ingestion.Observation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	// Per-batch caches: a country or series is resolved at most once.
	assetIDs := make(map[string]int64)
	seriesIDs := make(map[string]int64)

	written := 0

	for _, obs := range observations {
		assetID, err := s.getOrCreateAsset(ctx, tx, assetIDs, obs.Country)
		if err != nil {
			return 0, err
		}

		seriesID, err := s.getOrCreateSeries(ctx, tx, seriesIDs, assetID, obs.Variable, source)
		if err != nil {
			return 0, err
		}

		var value any
		if !obs.ValueIsNull {
			value = obs.Value
		}

		query := `
			INSERT INTO energy.daily (series_id, value_date, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (series_id, value_date) DO UPDATE
			SET value = EXCLUDED.value
		`

		if _, err := tx.ExecContext(ctx, query, seriesID, obs.Date, value); err != nil {
			return 0, fmt.Errorf("failed to insert daily value: %w", err)
		}

		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit daily insert: %w", err)
	}

	return written, nil
}

func (s *GIEDailyStore) getOrCreateAsset(
	ctx context.Context,
	tx *sql.Tx,
	cache map[string]int64,
	country string,
) (int64, error) {
	if id, ok := cache[country]; ok {
		return id, nil
	}

	var id int64

	query := `SELECT asset_id FROM meta.assets WHERE name = $1`

	err := tx.QueryRowContext(ctx, query, country).Scan(&id)
	if err == nil {
		cache[country] = id

		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up asset %q: %w", country, err)
	}

	insert := `
		INSERT INTO meta.assets (name, asset_type, level)
		VALUES ($1, $2, $3)
		RETURNING asset_id
	`

	if err := tx.QueryRowContext(ctx, insert, country, gieAssetType, gieAssetLevel).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create asset %q: %w", country, err)
	}

	cache[country] = id

	return id, nil
}

func (s *GIEDailyStore) getOrCreateSeries(
	ctx context.Context,
	tx *sql.Tx,
	cache map[string]int64,
	assetID int64,
	variable, source string,
) (int64, error) {
	// series_unique_concat is the natural key: assetID_variable_source.
	uniqueConcat := fmt.Sprintf("%d_%s_%s", assetID, variable, source)

	if id, ok := cache[uniqueConcat]; ok {
		return id, nil
	}

	var id int64

	query := `SELECT series_id FROM meta.series WHERE series_unique_concat = $1`

	err := tx.QueryRowContext(ctx, query, uniqueConcat).Scan(&id)
	if err == nil {
		cache[uniqueConcat] = id

		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up series %q: %w", uniqueConcat, err)
	}

	insert := `
		INSERT INTO meta.series (asset_id, variable, source, series_unique_concat)
		VALUES ($1, $2, $3, $4)
		RETURNING series_id
	`

	if err := tx.QueryRowContext(ctx, insert, assetID, variable, source, uniqueConcat).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create series %q: %w", uniqueConcat, err)
	}

	cache[uniqueConcat] = id

	return id, nil
}
