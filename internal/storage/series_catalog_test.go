package storage

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

func TestSeriesCatalogRegister(t *testing.T) {
	conn, mock := newMockConnection(t)
	catalog := NewSeriesCatalog(conn)

	series := []ingestion.SeriesMeta{
		{
			SeriesID:       "NG_GAS_QUALITY_77_CV",
			Source:         "NATIONAL_GAS",
			DatasetID:      "GAS_QUALITY",
			DataItem:       "CV",
			Description:    "CV at site 77",
			Unit:           "UNKNOWN",
			Frequency:      "intraday",
			TimezoneSource: "UTC",
			IsActive:       true,
		},
		{
			SeriesID:  "NG_GAS_QUALITY_77_WOBBE",
			Source:    "NATIONAL_GAS",
			DatasetID: "GAS_QUALITY",
			DataItem:  "WOBBE",
			IsActive:  true,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO meta_series`).
		WithArgs("NG_GAS_QUALITY_77_CV", "NATIONAL_GAS", "GAS_QUALITY", "CV",
			"CV at site 77", "UNKNOWN", "intraday", "UTC", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO meta_series`).
		WithArgs("NG_GAS_QUALITY_77_WOBBE", "NATIONAL_GAS", "GAS_QUALITY", "WOBBE",
			"", "", "", "", true).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, catalog.Register(context.Background(), series))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesCatalogRegisterEmpty(t *testing.T) {
	conn, mock := newMockConnection(t)
	catalog := NewSeriesCatalog(conn)

	require.NoError(t, catalog.Register(context.Background(), nil))

	// No transaction for an empty batch.
	assert.NoError(t, mock.ExpectationsWereMet())
}
