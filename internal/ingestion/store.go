package ingestion

import (
	"context"
	"time"
)

// The domain package defines the persistence interfaces it needs; the
// internal/storage package provides the PostgreSQL implementations. This
// keeps the orchestrator testable against fakes and the adapters entirely
// free of database access.
type (
	// RunJournal records one row per orchestrator invocation.
	//
	// Open inserts the row in RUNNING state before any work happens; Close
	// performs the single terminal transition (SUCCESS or FAILED). Concurrent
	// runs on the same dataset are permitted and get independent run ids; the
	// journal makes no serialization guarantee.
	RunJournal interface {
		Open(ctx context.Context, datasetID string) (runID string, err error)
		Close(ctx context.Context, runID string, status RunStatus, counters RunCounters, errMessage string) error
	}

	// RawStore appends verbatim upstream payloads with provenance. Rows are
	// append-only and never modified by the engine.
	RawStore interface {
		// StoreRows writes one raw-event row per source row of a tabular
		// batch.
		StoreRows(ctx context.Context, source, datasetID, runID string, rows []Record) error

		// StoreDocument writes a single raw-event row holding a whole JSON
		// document (the GIE response shape).
		StoreDocument(ctx context.Context, source, datasetID, runID string, doc map[string]any) error
	}

	// FieldCatalog maintains the per-dataset discovered field catalog.
	FieldCatalog interface {
		// Discover scans all raw events for the dataset and upserts the field
		// catalog with do-nothing-on-conflict: the first catalog row wins.
		Discover(ctx context.Context, datasetID string) error
	}

	// SeriesCatalog is the flat-variant series store (meta_series).
	SeriesCatalog interface {
		// Register idempotently inserts series metadata,
		// on-conflict-do-nothing per series_id.
		Register(ctx context.Context, series []SeriesMeta) error
	}

	// ObservationStore is the flat-variant observation store
	// (data_observations).
	ObservationStore interface {
		// Upsert deduplicates the batch by (series_id, observation_time) with
		// last-write-wins, then upserts. Returns the deduplicated row count.
		Upsert(ctx context.Context, runID string, observations []Observation) (int, error)

		// DeleteOlderThan prunes observations older than cutoff for series
		// belonging to the dataset. Returns the deleted row count.
		DeleteOlderThan(ctx context.Context, datasetID string, cutoff time.Time) (int64, error)
	}

	// GIEDailyStore is the relational variant used by the GIE datasets
	// (meta.assets / meta.series / energy.daily). Series and assets are
	// created inline during insert; idempotence comes from the rolling-window
	// delete, not from an upsert.
	GIEDailyStore interface {
		// DeleteRecentBySource removes energy.daily rows for series of the
		// given source with value_date >= cutoff, so the subsequent insert
		// repopulates the same window. Returns the deleted row count.
		DeleteRecentBySource(ctx context.Context, source string, cutoff time.Time) (int64, error)

		// InsertDaily resolves (country, variable, source) to asset and
		// series rows, creating them when absent, and inserts one daily row
		// per observation. Returns the inserted row count.
		InsertDaily(ctx context.Context, source string, observations []Observation) (int, error)
	}

	// RunReader lists recent journal rows for the HTTP runs endpoint.
	RunReader interface {
		Recent(ctx context.Context, limit int) ([]RunRecord, error)
	}

	// Metrics receives the step-12 run outcome. Implementations must be
	// cheap; the orchestrator calls this on every exit path.
	Metrics interface {
		RecordRun(datasetID string, status RunStatus, duration time.Duration, counters RunCounters)
	}

	// Stores bundles every persistence dependency the orchestrator composes.
	Stores struct {
		Journal      RunJournal
		Raw          RawStore
		Fields       FieldCatalog
		Series       SeriesCatalog
		Observations ObservationStore
		GIE          GIEDailyStore
	}
)
