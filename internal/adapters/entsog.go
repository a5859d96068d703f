package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// entsogOperationalDataURL is the ENTSOG transparency platform endpoint for
// daily operational data.
const entsogOperationalDataURL = "https://transparency.entsog.eu/api/v1/operationaldatas"

// Entsog is the ENTSOG adapter. One upstream operational-data row yields at
// most one observation keyed by (indicator, point, direction).
type Entsog struct {
	client *http.Client
}

// NewEntsog creates the ENTSOG adapter. A nil client selects the shared
// 60s-timeout client.
func NewEntsog(client *http.Client) *Entsog {
	if client == nil {
		client = newHTTPClient()
	}

	return &Entsog{client: client}
}

// DatasetID implements ingestion.Adapter.
func (a *Entsog) DatasetID() string { return ingestion.DatasetEntsog }

// ValidateParams requires a date window and either indicators or a
// point/direction pair; the API returns the whole network otherwise, which
// is never what a caller meant.
func (a *Entsog) ValidateParams(params ingestion.Params) error {
	from, to, err := parseDateWindow(params.FromDate, params.ToDate)
	if err != nil {
		return err
	}

	if to.Before(from) {
		return fmt.Errorf("%w: to_date %s before from_date %s",
			ingestion.ErrConfiguration, params.ToDate, params.FromDate)
	}

	hasIndicators := len(params.Indicators) > 0
	hasPointPair := len(params.PointKeys) > 0 && len(params.DirectionKeys) > 0

	if !hasIndicators && !hasPointPair {
		return fmt.Errorf("%w: ENTSOG requires indicators or a point/direction pair", ingestion.ErrConfiguration)
	}

	return nil
}

// Fetch queries the operational-data endpoint for the window at daily
// period granularity. Key lists are comma-joined; indicators additionally
// have internal spaces stripped, matching what the platform expects.
func (a *Entsog) Fetch(ctx context.Context, params ingestion.Params) (*ingestion.RawData, error) {
	q := url.Values{}
	q.Set("periodFrom", params.FromDate)
	q.Set("periodTo", params.ToDate)
	q.Set("periodType", "day")

	if len(params.Indicators) > 0 {
		cleaned := make([]string, len(params.Indicators))
		for i, ind := range params.Indicators {
			cleaned[i] = strings.ReplaceAll(ind, " ", "")
		}

		q.Set("indicator", strings.Join(cleaned, ","))
	}

	if len(params.OperatorKeys) > 0 {
		q.Set("operatorKey", strings.Join(params.OperatorKeys, ","))
	}

	if len(params.PointKeys) > 0 {
		q.Set("pointKey", strings.Join(params.PointKeys, ","))
	}

	if len(params.DirectionKeys) > 0 {
		q.Set("directionKey", strings.Join(params.DirectionKeys, ","))
	}

	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	data, err := getJSON(ctx, a.client, entsogOperationalDataURL, q, nil)
	if err != nil {
		return nil, err
	}

	rows, err := entsogRows(data)
	if err != nil {
		return nil, err
	}

	return &ingestion.RawData{Rows: rows}, nil
}

// entsogRows extracts the row list from either response shape the platform
// emits: an envelope with an "operationaldatas" key, or a bare array.
func entsogRows(data any) ([]ingestion.Record, error) {
	var items []any

	switch v := data.(type) {
	case map[string]any:
		inner, ok := v["operationaldatas"]
		if !ok {
			return nil, fmt.Errorf("ENTSOG response missing operationaldatas key")
		}

		items, _ = inner.([]any)
	case []any:
		items = v
	default:
		return nil, fmt.Errorf("unexpected ENTSOG response shape %T", data)
	}

	rows := make([]ingestion.Record, 0, len(items))

	for _, item := range items {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, ingestion.Record(row))
		}
	}

	return rows, nil
}

// Parse implements ingestion.Adapter.
func (a *Entsog) Parse(raw *ingestion.RawData) ([]ingestion.Record, error) {
	return parseTabular(ingestion.DatasetEntsog, raw)
}

// Normalize maps one operational-data row to one observation. Rows missing
// any identity key or carrying an empty value normalize to nothing.
func (a *Entsog) Normalize(rec ingestion.Record) []ingestion.Observation {
	indicator := asString(rec["indicator"])
	pointKey := asString(rec["pointKey"])
	directionKey := asString(rec["directionKey"])

	if indicator == "" || pointKey == "" || directionKey == "" {
		return nil
	}

	value, ok := asFloat(rec["value"])
	if !ok {
		return nil
	}

	ts, err := parseTime(asString(rec["periodFrom"]))
	if err != nil {
		return nil
	}

	return []ingestion.Observation{{
		SeriesID:        ingestion.MakeSeriesID(ingestion.DatasetEntsog, indicator, pointKey, directionKey),
		ObservationTime: ts,
		Value:           value,
		QualityFlag:     asString(rec["flowStatus"]),
		RawPayload:      ingestion.CleanPayload(rec),
	}}
}

// DefineSeries reconstructs indicator, point and direction from each series
// id. The dataset id spans two underscore segments, so the indicator is
// everything between segment 2 and the trailing point/direction pair.
func (a *Entsog) DefineSeries(normalized []ingestion.Observation) []ingestion.SeriesMeta {
	seen := make(map[string]bool)

	var out []ingestion.SeriesMeta

	for _, obs := range normalized {
		sid := obs.SeriesID
		if sid == "" || seen[sid] {
			continue
		}

		seen[sid] = true

		parts := strings.Split(sid, "_")
		if len(parts) < 5 {
			continue
		}

		indicator := strings.Join(parts[2:len(parts)-2], " ")
		point := parts[len(parts)-2]
		direction := parts[len(parts)-1]

		out = append(out, ingestion.SeriesMeta{
			SeriesID:       sid,
			Source:         ingestion.SourceEntsog,
			DatasetID:      ingestion.DatasetEntsog,
			DataItem:       indicator,
			Description:    fmt.Sprintf("%s at %s (%s)", indicator, point, direction),
			Unit:           "UNKNOWN",
			Frequency:      "daily",
			TimezoneSource: "Europe/Brussels",
			IsActive:       true,
		})
	}

	return out
}

// TimeField implements ingestion.Adapter.
func (a *Entsog) TimeField() string { return "observation_time" }

// ValidationConfig implements ingestion.Adapter.
func (a *Entsog) ValidationConfig() ingestion.ValidationConfig {
	return ingestion.ValidationConfig{
		RequiredFields: []string{"series_id", "observation_time", "value"},
	}
}
