package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// instantaneousFlowURL serves the latest within-day flow snapshot for every
// National Gas site; the endpoint takes no parameters.
const instantaneousFlowURL = "https://api.nationalgas.com/operationaldata/v1/instantaneousflow/sites"

// InstantaneousFlow is the INSTANTANEOUS_FLOW adapter. The snapshot nests
// flow groups, sites and per-timestamp detail; flattening yields one row per
// (site, applicableAt) pair.
type InstantaneousFlow struct {
	client *http.Client
}

// NewInstantaneousFlow creates the INSTANTANEOUS_FLOW adapter.
func NewInstantaneousFlow(client *http.Client) *InstantaneousFlow {
	if client == nil {
		client = newHTTPClient()
	}

	return &InstantaneousFlow{client: client}
}

// DatasetID implements ingestion.Adapter.
func (a *InstantaneousFlow) DatasetID() string { return ingestion.DatasetInstantaneousFlow }

// Fetch pulls the current snapshot and flattens the nested structure.
func (a *InstantaneousFlow) Fetch(ctx context.Context, _ ingestion.Params) (*ingestion.RawData, error) {
	data, err := getJSON(ctx, a.client, instantaneousFlowURL, nil, nil)
	if err != nil {
		return nil, err
	}

	doc, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected INSTANTANEOUS_FLOW response shape %T", data)
	}

	var rows []ingestion.Record

	groups, _ := doc["instantaneousFlow"].([]any)
	for _, g := range groups {
		group, ok := g.(map[string]any)
		if !ok {
			continue
		}

		sites, _ := group["sites"].([]any)
		for _, s := range sites {
			site, ok := s.(map[string]any)
			if !ok {
				continue
			}

			siteName := site["siteName"]

			details, _ := site["siteGasDetail"].([]any)
			for _, d := range details {
				detail, ok := d.(map[string]any)
				if !ok {
					continue
				}

				row := ingestion.Record{
					"siteName":         siteName,
					"applicableAt":     detail["applicableAt"],
					"flowRate":         detail["flowRate"],
					"qualityIndicator": detail["qualityIndicator"],
					"scheduleTime":     detail["scheduleTime"],
				}

				rows = append(rows, row)
			}
		}
	}

	return &ingestion.RawData{Rows: rows}, nil
}

// Parse implements ingestion.Adapter.
func (a *InstantaneousFlow) Parse(raw *ingestion.RawData) ([]ingestion.Record, error) {
	return parseTabular(ingestion.DatasetInstantaneousFlow, raw)
}

// Normalize maps one flattened snapshot row to one flow-rate observation.
func (a *InstantaneousFlow) Normalize(rec ingestion.Record) []ingestion.Observation {
	siteName := asString(rec["siteName"])
	if siteName == "" {
		return nil
	}

	value, ok := asFloat(rec["flowRate"])
	if !ok {
		return nil
	}

	ts, err := parseTime(asString(rec["applicableAt"]))
	if err != nil {
		return nil
	}

	return []ingestion.Observation{{
		SeriesID:        ingestion.MakeSeriesID(ingestion.DatasetInstantaneousFlow, siteName, "FLOWRATE"),
		ObservationTime: ts,
		Value:           value,
		QualityFlag:     asString(rec["qualityIndicator"]),
		RawPayload:      ingestion.CleanPayload(rec),
	}}
}

// DefineSeries derives one series per distinct site in the batch.
func (a *InstantaneousFlow) DefineSeries(normalized []ingestion.Observation) []ingestion.SeriesMeta {
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

		// NG_INSTANTANEOUS_FLOW_<SITE..>_FLOWRATE: the dataset id spans two
		// segments, the site may span several.
		site := strings.Join(parts[3:len(parts)-1], " ")

		out = append(out, ingestion.SeriesMeta{
			SeriesID:       sid,
			Source:         ingestion.SourceNationalGas,
			DatasetID:      ingestion.DatasetInstantaneousFlow,
			DataItem:       "FLOWRATE",
			Description:    fmt.Sprintf("instantaneous flow rate at %s", site),
			Unit:           "UNKNOWN",
			Frequency:      "intraday",
			TimezoneSource: "Europe/London",
			IsActive:       true,
		})
	}

	return out
}

// TimeField implements ingestion.Adapter.
func (a *InstantaneousFlow) TimeField() string { return "observation_time" }

// ValidationConfig implements ingestion.Adapter.
func (a *InstantaneousFlow) ValidationConfig() ingestion.ValidationConfig {
	return ingestion.ValidationConfig{
		RequiredFields: []string{"series_id", "observation_time", "value"},
	}
}
