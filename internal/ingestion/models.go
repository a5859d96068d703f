// Package ingestion provides the registry-driven ingestion engine for
// European gas-market time series: the adapter contract, the orchestrated
// twelve-step run lifecycle, validation, retention, and the persistence
// interfaces the storage layer implements.
//
// The engine is deliberately split the same way the upstream data is:
//   - Adapters are pure translators from upstream JSON to canonical
//     observations. They perform outbound HTTP in Fetch and nothing else.
//   - The orchestrator owns retries, run bookkeeping, and failure
//     finalization. Adapters never retry and never touch the database.
package ingestion

import (
	"math"
	"time"
)

// Known dataset ids. The registry is keyed by these.
const (
	DatasetGasQuality        = "GAS_QUALITY"
	DatasetEntsog            = "ENTSOG"
	DatasetInstantaneousFlow = "INSTANTANEOUS_FLOW"
	DatasetGasPublications   = "GAS_PUBLICATIONS"
	DatasetAGSI              = "AGSI"
	DatasetALSI              = "ALSI"
)

// Canonical source tags stored on series and raw events.
const (
	SourceNationalGas = "NATIONAL_GAS"
	SourceEntsog      = "ENTSOG"
	SourceGieAGSI     = "GIE_AGSI"
	SourceGieALSI     = "GIE_ALSI"
)

// GIESources maps the GIE dataset ids to their source tags. Datasets in this
// map use the relational storage variant (meta.series / energy.daily) instead
// of the flat meta_series / data_observations tables.
var GIESources = map[string]string{
	DatasetAGSI: SourceGieAGSI,
	DatasetALSI: SourceGieALSI,
}

type (
	// Params is the heterogeneous parameter bundle passed to Run and handed
	// to the adapter's Fetch. Each adapter documents which fields it honours;
	// fields it does not know are ignored.
	Params struct {
		// FromDate / ToDate are inclusive bounds in YYYY-MM-DD.
		FromDate string
		ToDate   string

		// SiteIDs filters National Gas GAS_QUALITY sites. Empty means all.
		SiteIDs []int

		// ENTSOG filters.
		OperatorKeys  []string
		PointKeys     []string
		DirectionKeys []string
		Indicators    []string
		Limit         int

		// PublicationIDs selects GAS_PUBLICATIONS publications.
		PublicationIDs []string

		// Country filters the GIE AGSI/ALSI responses.
		Country string
	}

	// Record is one parsed upstream row. Values hold whatever the upstream
	// JSON decoded to (string, float64, json.Number, bool, nil, nested maps
	// and lists).
	Record map[string]any

	// RawData is what Fetch returns: either a rectangular batch of rows
	// (National Gas, ENTSOG) or a single whole JSON document (GIE). Exactly
	// one of the two is populated; an empty batch has Rows == nil (or empty)
	// and Doc == nil.
	RawData struct {
		Rows []Record
		Doc  map[string]any
	}

	// Observation is one normalized numeric sample. The flat variant keys by
	// (SeriesID, ObservationTime); the GIE daily variant keys by country,
	// date and variable and is resolved to a series id at insert time.
	Observation struct {
		SeriesID        string
		ObservationTime time.Time
		Value           float64
		QualityFlag     string

		// RawPayload is the originating row with NaN scrubbed to null.
		RawPayload map[string]any

		// GIE daily variant fields. Date is a date-only value; ValueIsNull
		// records an upstream null-like value that must be stored as NULL.
		Country     string
		Date        time.Time
		Variable    string
		ValueIsNull bool
	}

	// SeriesMeta is canonical series metadata for the flat catalog
	// (meta_series). Attributes are write-once: registration is
	// insert-on-conflict-do-nothing keyed by SeriesID.
	SeriesMeta struct {
		SeriesID       string
		Source         string
		DatasetID      string
		DataItem       string
		Description    string
		Unit           string
		Frequency      string
		TimezoneSource string
		IsActive       bool
	}

	// RunStatus is the lifecycle state of an ingestion run.
	RunStatus string

	// RunCounters are the row counters recorded on the run journal entry.
	RunCounters struct {
		RowsFetched  int
		RowsInserted int
		RowsDeleted  int
	}

	// RunRecord is one journal row as read back for the runs listing.
	RunRecord struct {
		RunID        string
		DatasetID    string
		StartedAt    time.Time
		FinishedAt   *time.Time
		Status       RunStatus
		RowsFetched  int
		RowsInserted int
		RowsDeleted  int
		ErrorMessage string
	}
)

const (
	// RunStatusRunning is entered when the journal row is opened, before any
	// work happens. A run left RUNNING with finished_at NULL is a crashed run.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSuccess is the terminal state of a completed run.
	RunStatusSuccess RunStatus = "SUCCESS"

	// RunStatusFailed is the terminal state of a run that errored anywhere
	// between journal open and observation upsert.
	RunStatusFailed RunStatus = "FAILED"
)

// Field looks an attribute up by its wire name, returning (value, present).
// Present is false for empty or null-like values, which is what the
// required-fields validation rule needs: a field that exists but is null
// still counts as missing.
func (o Observation) Field(name string) (any, bool) {
	switch name {
	case "series_id":
		return o.SeriesID, o.SeriesID != ""
	case "observation_time":
		return o.ObservationTime, !o.ObservationTime.IsZero()
	case "value":
		if o.ValueIsNull {
			return nil, false
		}

		return o.Value, true
	case "quality_flag":
		return o.QualityFlag, o.QualityFlag != ""
	case "country":
		return o.Country, o.Country != ""
	case "date":
		return o.Date, !o.Date.IsZero()
	case "variable":
		return o.Variable, o.Variable != ""
	}

	return nil, false
}

// TimeValue returns the named time attribute ("observation_time" or "date")
// for date-range validation. Returns false when the attribute is unset.
func (o Observation) TimeValue(name string) (time.Time, bool) {
	switch name {
	case "observation_time":
		return o.ObservationTime, !o.ObservationTime.IsZero()
	case "date":
		return o.Date, !o.Date.IsZero()
	}

	return time.Time{}, false
}

// CleanPayload returns a copy of row with float NaN values replaced by nil so
// the payload can be stored as JSONB verbatim-modulo-NaN. Nested lists and
// maps are preserved as-is; numbers are never re-encoded.
func CleanPayload(row map[string]any) map[string]any {
	if row == nil {
		return nil
	}

	out := make(map[string]any, len(row))

	for k, v := range row {
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			out[k] = nil

			continue
		}

		out[k] = v
	}

	return out
}
