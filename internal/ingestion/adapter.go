package ingestion

import (
	"context"
	"time"
)

type (
	// Adapter is the contract every dataset plugin implements.
	//
	// Adapters MUST NOT: write to the database, delete records, retry
	// requests, emit metrics, or control the run lifecycle. Those concerns
	// belong to the orchestrator so that failure accounting lives in exactly
	// one place.
	//
	// Adapters ONLY: fetch, parse, normalize, define series, and name their
	// time field. They are stateless values; the registry hands out a fresh
	// instance per run.
	Adapter interface {
		// DatasetID returns the stable dataset tag this adapter serves.
		DatasetID() string

		// Fetch performs the outbound HTTP I/O and returns either a tabular
		// batch or a whole JSON document. Per-request timeout is the
		// adapter's own concern (60s); retries are not.
		Fetch(ctx context.Context, params Params) (*RawData, error)

		// Parse converts raw into an ordered list of row records. Empty
		// input yields empty output. A RawData shape this adapter never
		// produces is a programming error and returns an error.
		Parse(raw *RawData) ([]Record, error)

		// Normalize expands one record into zero, one, or many observations.
		// Non-numeric or missing values filter the observation out; they
		// never error.
		Normalize(rec Record) []Observation

		// DefineSeries returns deduplicated canonical series metadata derived
		// from the batch just normalized. GIE adapters return nil: their
		// series are created inline by the relational store during insert.
		DefineSeries(normalized []Observation) []SeriesMeta

		// TimeField names the time attribute the delete policy prunes by
		// ("observation_time" for the flat variant, "date" for GIE).
		TimeField() string

		// ValidationConfig returns the adapter's validation rules. The zero
		// value means no rules.
		ValidationConfig() ValidationConfig
	}

	// ParamValidator is implemented by adapters that can reject a parameter
	// bundle before any side effect. The orchestrator calls it before the run
	// journal entry is opened, so a configuration error leaves no trace.
	ParamValidator interface {
		ValidateParams(params Params) error
	}

	// Factory builds a fresh adapter instance for one run.
	Factory func() Adapter

	// ValidationConfig holds the optional rules the validator enforces over a
	// normalized batch.
	ValidationConfig struct {
		// RequiredFields must be present and non-null on every observation.
		RequiredFields []string

		// MinRowCount is the minimum normalized batch size. Nil disables.
		MinRowCount *int

		// DateRange bounds the adapter's time field. Nil disables.
		DateRange *DateRange
	}

	// DateRange is an inclusive time window. Nil bounds are open.
	DateRange struct {
		MinDate *time.Time
		MaxDate *time.Time
	}
)
