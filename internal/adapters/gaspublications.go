package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// gasPublicationsURL is the National Gas gas-day publications endpoint:
// demand, supply and forecast figures keyed by publication id.
const gasPublicationsURL = "https://api.nationalgas.com/operationaldata/v1/publications/gasday"

// GasPublications is the GAS_PUBLICATIONS adapter.
type GasPublications struct {
	client *http.Client
}

// NewGasPublications creates the GAS_PUBLICATIONS adapter.
func NewGasPublications(client *http.Client) *GasPublications {
	if client == nil {
		client = newHTTPClient()
	}

	return &GasPublications{client: client}
}

// DatasetID implements ingestion.Adapter.
func (a *GasPublications) DatasetID() string { return ingestion.DatasetGasPublications }

// ValidateParams requires the date window and at least one publication id.
func (a *GasPublications) ValidateParams(params ingestion.Params) error {
	from, to, err := parseDateWindow(params.FromDate, params.ToDate)
	if err != nil {
		return err
	}

	if to.Before(from) {
		return fmt.Errorf("%w: to_date %s before from_date %s",
			ingestion.ErrConfiguration, params.ToDate, params.FromDate)
	}

	if len(params.PublicationIDs) == 0 {
		return fmt.Errorf("%w: GAS_PUBLICATIONS requires publication_ids", ingestion.ErrConfiguration)
	}

	return nil
}

// Fetch posts the window and publication ids, requesting latest values only,
// and flattens the per-publication data arrays into rows tagged with their
// publication id.
func (a *GasPublications) Fetch(ctx context.Context, params ingestion.Params) (*ingestion.RawData, error) {
	body := map[string]any{
		"fromDate":       params.FromDate,
		"toDate":         params.ToDate,
		"publicationIds": params.PublicationIDs,
		"latestValue":    "Y",
	}

	data, err := postJSON(ctx, a.client, gasPublicationsURL, body)
	if err != nil {
		return nil, err
	}

	// The response is a top-level array: one element per publication, each
	// carrying its own "publications" entry list.
	pubs, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected GAS_PUBLICATIONS response shape %T", data)
	}

	var rows []ingestion.Record

	for _, p := range pubs {
		pub, ok := p.(map[string]any)
		if !ok {
			continue
		}

		pubID := pub["publicationId"]
		pubName := pub["publicationName"]

		entries, _ := pub["publications"].([]any)
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}

			row := make(ingestion.Record, len(entry)+2)
			for k, v := range entry {
				row[k] = v
			}

			row["publicationId"] = pubID
			row["publicationName"] = pubName

			rows = append(rows, row)
		}
	}

	return &ingestion.RawData{Rows: rows}, nil
}

// Parse implements ingestion.Adapter.
func (a *GasPublications) Parse(raw *ingestion.RawData) ([]ingestion.Record, error) {
	return parseTabular(ingestion.DatasetGasPublications, raw)
}

// Normalize maps one publication data point to one observation on the
// publication's series.
func (a *GasPublications) Normalize(rec ingestion.Record) []ingestion.Observation {
	pubID := asString(rec["publicationId"])
	if pubID == "" {
		return nil
	}

	value, ok := asFloat(rec["value"])
	if !ok {
		return nil
	}

	ts, err := parseTime(asString(rec["applicableFor"]))
	if err != nil {
		return nil
	}

	return []ingestion.Observation{{
		SeriesID:        ingestion.MakeSeriesID(ingestion.DatasetGasPublications, pubID),
		ObservationTime: ts,
		Value:           value,
		QualityFlag:     asString(rec["qualityIndicator"]),
		RawPayload:      ingestion.CleanPayload(rec),
	}}
}

// DefineSeries derives one series per publication, using the upstream
// publication name as the description when the batch carries it.
func (a *GasPublications) DefineSeries(normalized []ingestion.Observation) []ingestion.SeriesMeta {
	seen := make(map[string]bool)

	var out []ingestion.SeriesMeta

	for _, obs := range normalized {
		sid := obs.SeriesID
		if sid == "" || seen[sid] {
			continue
		}

		seen[sid] = true

		parts := strings.Split(sid, "_")
		pubID := parts[len(parts)-1]

		description := fmt.Sprintf("publication %s", pubID)
		if name := asString(obs.RawPayload["publicationName"]); name != "" {
			description = name
		}

		out = append(out, ingestion.SeriesMeta{
			SeriesID:       sid,
			Source:         ingestion.SourceNationalGas,
			DatasetID:      ingestion.DatasetGasPublications,
			DataItem:       pubID,
			Description:    description,
			Unit:           "UNKNOWN",
			Frequency:      "daily",
			TimezoneSource: "UTC",
			IsActive:       true,
		})
	}

	return out
}

// TimeField implements ingestion.Adapter.
func (a *GasPublications) TimeField() string { return "observation_time" }

// ValidationConfig implements ingestion.Adapter.
func (a *GasPublications) ValidationConfig() ingestion.ValidationConfig {
	return ingestion.ValidationConfig{
		RequiredFields: []string{"series_id", "observation_time", "value"},
	}
}
