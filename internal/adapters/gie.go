package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

const (
	agsiBaseURL = "https://agsi.gie.eu/api"
	alsiBaseURL = "https://alsi.gie.eu/api"

	// gieAPIKeyHeader carries the GIE subscription key on every request.
	gieAPIKeyHeader = "x-key"
)

// gieExcludedKeys are the per-entry fields that never become variables: the
// country identity, URLs and bookkeeping timestamps.
var gieExcludedKeys = map[string]bool{
	"name":        true,
	"code":        true,
	"url":         true,
	"updatedAt":   true,
	"gasDayStart": true,
	"gasDayEnd":   true,
	"info":        true,
}

// GIE is the adapter for the GIE storage transparency APIs: AGSI (gas
// storage) and ALSI (LNG terminals) share one shape and differ only in base
// URL and dataset identity. Each country entry expands to one observation
// per non-excluded field, null-like values included.
type GIE struct {
	datasetID string
	baseURL   string
	apiKey    string
	client    *http.Client
}

// NewAGSI creates the AGSI (gas storage inventory) adapter.
func NewAGSI(client *http.Client, apiKey string) *GIE {
	return newGIE(ingestion.DatasetAGSI, agsiBaseURL, client, apiKey)
}

// NewALSI creates the ALSI (LNG terminal inventory) adapter.
func NewALSI(client *http.Client, apiKey string) *GIE {
	return newGIE(ingestion.DatasetALSI, alsiBaseURL, client, apiKey)
}

func newGIE(datasetID, baseURL string, client *http.Client, apiKey string) *GIE {
	if client == nil {
		client = newHTTPClient()
	}

	return &GIE{
		datasetID: datasetID,
		baseURL:   baseURL,
		apiKey:    apiKey,
		client:    client,
	}
}

// DatasetID implements ingestion.Adapter.
func (a *GIE) DatasetID() string { return a.datasetID }

// ValidateParams rejects a missing API key before any side effect; the GIE
// APIs refuse unauthenticated requests.
func (a *GIE) ValidateParams(_ ingestion.Params) error {
	if a.apiKey == "" {
		return fmt.Errorf("%w: %s requires a GIE API key", ingestion.ErrConfiguration, a.datasetID)
	}

	return nil
}

// Fetch pulls the country-level document for the requested window. The
// response is kept whole: GIE payloads are documents, not tables, and the
// raw store records them as such.
func (a *GIE) Fetch(ctx context.Context, params ingestion.Params) (*ingestion.RawData, error) {
	q := url.Values{}

	if params.FromDate != "" {
		q.Set("from", params.FromDate)
	}

	if params.ToDate != "" {
		q.Set("to", params.ToDate)
	}

	if params.Country != "" {
		q.Set("country", params.Country)
	}

	if params.Limit > 0 {
		q.Set("size", strconv.Itoa(params.Limit))
	}

	headers := map[string]string{gieAPIKeyHeader: a.apiKey}

	data, err := getJSON(ctx, a.client, a.baseURL, q, headers)
	if err != nil {
		return nil, err
	}

	doc, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected %s response shape %T", a.datasetID, data)
	}

	return &ingestion.RawData{Doc: doc}, nil
}

// Parse transforms the document into long-format records: one record per
// (country, gas day, variable). Null-like values survive as explicit nulls;
// non-numeric junk is dropped. A malformed gas day is fatal because the
// whole batch shares its shape.
func (a *GIE) Parse(raw *ingestion.RawData) ([]ingestion.Record, error) {
	if raw == nil || raw.Doc == nil {
		return nil, nil
	}

	entries, _ := raw.Doc["data"].([]any)

	var records []ingestion.Record

	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}

		country := asString(entry["name"])
		if country == "" {
			continue
		}

		dayRaw := asString(entry["gasDayStart"])

		day, err := time.ParseInLocation("2006-01-02", dayRaw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%s entry for %s has malformed gasDayStart %q", a.datasetID, country, dayRaw)
		}

		for key, value := range entry {
			if gieExcludedKeys[key] {
				continue
			}

			rec := ingestion.Record{
				"country":  country,
				"date":     day,
				"variable": key,
			}

			if gieNullLike(value) {
				rec["value"] = nil
			} else {
				f, ok := asFloat(value)
				if !ok {
					continue
				}

				rec["value"] = f
			}

			if status := asString(entry["status"]); key != "status" && status != "" {
				rec["quality"] = status
			}

			records = append(records, rec)
		}
	}

	return records, nil
}

// gieNullLike reports whether a GIE field value means "no data": nil, empty
// string or a lone space, all of which the APIs emit interchangeably.
func gieNullLike(v any) bool {
	if v == nil {
		return true
	}

	s, ok := v.(string)

	return ok && (s == "" || s == " ")
}

// Normalize maps one long-format record to one daily observation. The
// country, gas day and variable travel on the observation itself; the
// relational store resolves them to asset and series rows at insert time.
func (a *GIE) Normalize(rec ingestion.Record) []ingestion.Observation {
	country := asString(rec["country"])
	variable := asString(rec["variable"])

	day, ok := rec["date"].(time.Time)
	if country == "" || variable == "" || !ok {
		return nil
	}

	obs := ingestion.Observation{
		ObservationTime: day,
		QualityFlag:     asString(rec["quality"]),
		Country:         country,
		Date:            day,
		Variable:        variable,
	}

	if rec["value"] == nil {
		obs.ValueIsNull = true
	} else {
		value, ok := asFloat(rec["value"])
		if !ok {
			return nil
		}

		obs.Value = value
	}

	return []ingestion.Observation{obs}
}

// DefineSeries implements ingestion.Adapter. GIE series are created inline
// by the relational daily store, so the batch defines none up front.
func (a *GIE) DefineSeries(_ []ingestion.Observation) []ingestion.SeriesMeta { return nil }

// TimeField implements ingestion.Adapter: GIE observations are keyed by gas
// day, not an intraday timestamp.
func (a *GIE) TimeField() string { return "date" }

// ValidationConfig implements ingestion.Adapter.
func (a *GIE) ValidationConfig() ingestion.ValidationConfig {
	return ingestion.ValidationConfig{
		RequiredFields: []string{"country", "date", "variable"},
	}
}
