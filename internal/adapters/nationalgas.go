package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

// gasQualityHistoricURL is the National Gas historic gas-quality endpoint.
const gasQualityHistoricURL = "https://api.nationalgas.com/operationaldata/v1/gasquality/historicdata"

const (
	// chunkDays is the request window: the historic endpoint rate-limits
	// aggressively, so the date range is fetched in 2-day chunks.
	chunkDays = 2

	// politenessInterval spaces consecutive chunk requests.
	politenessInterval = 1500 * time.Millisecond

	// rateLimitPause is the single-shot pause after an HTTP 429.
	rateLimitPause = 15 * time.Second
)

// gasQualityKeyColumns are the identifier and time columns of a flattened
// gas-quality row; everything else numeric is a metric that becomes its own
// observation.
var gasQualityKeyColumns = map[string]bool{
	"siteId":        true,
	"areaName":      true,
	"siteName":      true,
	"publishedTime": true,
}

// NationalGas is the GAS_QUALITY adapter. One upstream site row expands to
// one observation per numeric quality metric (cv, wobbe, ...).
type NationalGas struct {
	client     *http.Client
	limiter    *rate.Limiter
	retryAfter time.Duration
}

// NewNationalGas creates the GAS_QUALITY adapter. A nil client selects the
// shared 60s-timeout client.
func NewNationalGas(client *http.Client) *NationalGas {
	if client == nil {
		client = newHTTPClient()
	}

	return &NationalGas{
		client:     client,
		limiter:    rate.NewLimiter(rate.Every(politenessInterval), 1),
		retryAfter: rateLimitPause,
	}
}

// DatasetID implements ingestion.Adapter.
func (a *NationalGas) DatasetID() string { return ingestion.DatasetGasQuality }

// ValidateParams rejects a missing or inverted date window before any side
// effect.
func (a *NationalGas) ValidateParams(params ingestion.Params) error {
	from, to, err := parseDateWindow(params.FromDate, params.ToDate)
	if err != nil {
		return err
	}

	if to.Before(from) {
		return fmt.Errorf("%w: to_date %s before from_date %s",
			ingestion.ErrConfiguration, params.ToDate, params.FromDate)
	}

	return nil
}

// Fetch pulls the window in 2-day chunks, pausing between chunks and backing
// off once on HTTP 429. Each site's siteGasQualityDetail entries are
// flattened into one row per detail point.
func (a *NationalGas) Fetch(ctx context.Context, params ingestion.Params) (*ingestion.RawData, error) {
	from, to, err := parseDateWindow(params.FromDate, params.ToDate)
	if err != nil {
		return nil, err
	}

	var rows []ingestion.Record

	for cur := from; cur.Before(to); {
		next := cur.AddDate(0, 0, chunkDays)
		if next.After(to) {
			next = to
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body := map[string]any{
			"fromDate": cur.Format("2006-01-02"),
			"toDate":   next.Format("2006-01-02"),
		}
		if len(params.SiteIDs) > 0 {
			body["siteIds"] = params.SiteIDs
		}

		chunk, err := a.fetchChunk(ctx, body)
		if err != nil {
			return nil, err
		}

		rows = append(rows, chunk...)
		cur = next
	}

	return &ingestion.RawData{Rows: rows}, nil
}

func (a *NationalGas) fetchChunk(ctx context.Context, body map[string]any) ([]ingestion.Record, error) {
	resp, err := doPost(ctx, a.client, gasQualityHistoricURL, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		_ = resp.Body.Close()

		timer := time.NewTimer(a.retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()

			return nil, ctx.Err()
		case <-timer.C:
		}

		resp, err = doPost(ctx, a.client, gasQualityHistoricURL, body)
		if err != nil {
			return nil, err
		}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: POST %s: %d", ErrUpstreamStatus, gasQualityHistoricURL, resp.StatusCode)
	}

	data, err := decodeJSON(resp.Body)
	if err != nil {
		return nil, err
	}

	sites, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected GAS_QUALITY response shape %T", data)
	}

	var rows []ingestion.Record

	for _, s := range sites {
		site, ok := s.(map[string]any)
		if !ok {
			continue
		}

		base := ingestion.Record{
			"siteId":   site["siteId"],
			"areaName": site["areaName"],
			"siteName": site["siteName"],
		}

		details, _ := site["siteGasQualityDetail"].([]any)
		for _, d := range details {
			point, ok := d.(map[string]any)
			if !ok {
				continue
			}

			row := make(ingestion.Record, len(base)+len(point))
			for k, v := range base {
				row[k] = v
			}

			for k, v := range point {
				row[k] = v
			}

			rows = append(rows, row)
		}
	}

	return rows, nil
}

// Parse implements ingestion.Adapter: the tabular batch passes through as
// row records.
func (a *NationalGas) Parse(raw *ingestion.RawData) ([]ingestion.Record, error) {
	return parseTabular(ingestion.DatasetGasQuality, raw)
}

// Normalize expands one flattened site row into one observation per numeric
// metric column. Rows without a site id or published time normalize to
// nothing.
func (a *NationalGas) Normalize(rec ingestion.Record) []ingestion.Observation {
	siteID, ok := asInt(rec["siteId"])
	if !ok {
		return nil
	}

	tsRaw := asString(rec["publishedTime"])
	if tsRaw == "" {
		return nil
	}

	ts, err := parseTime(tsRaw)
	if err != nil {
		return nil
	}

	payload := ingestion.CleanPayload(rec)

	var out []ingestion.Observation

	for col, v := range rec {
		if gasQualityKeyColumns[col] || !isNumber(v) {
			continue
		}

		value, ok := asFloat(v)
		if !ok {
			continue
		}

		out = append(out, ingestion.Observation{
			SeriesID:        ingestion.MakeSeriesID(ingestion.DatasetGasQuality, strconv.Itoa(siteID), strings.ToUpper(col)),
			ObservationTime: ts,
			Value:           value,
			RawPayload:      payload,
		})
	}

	return out
}

// DefineSeries derives the canonical metadata for every distinct series in
// the normalized batch.
func (a *NationalGas) DefineSeries(normalized []ingestion.Observation) []ingestion.SeriesMeta {
	seen := make(map[string]bool)

	var out []ingestion.SeriesMeta

	for _, obs := range normalized {
		sid := obs.SeriesID
		if sid == "" || seen[sid] {
			continue
		}

		seen[sid] = true

		parts := strings.Split(sid, "_")
		if len(parts) < 3 {
			continue
		}

		siteID := parts[len(parts)-2]
		dataItem := parts[len(parts)-1]

		out = append(out, ingestion.SeriesMeta{
			SeriesID:       sid,
			Source:         ingestion.SourceNationalGas,
			DatasetID:      ingestion.DatasetGasQuality,
			DataItem:       dataItem,
			Description:    fmt.Sprintf("%s at site %s", dataItem, siteID),
			Unit:           "UNKNOWN",
			Frequency:      "intraday",
			TimezoneSource: "UTC",
			IsActive:       true,
		})
	}

	return out
}

// TimeField implements ingestion.Adapter.
func (a *NationalGas) TimeField() string { return "observation_time" }

// ValidationConfig implements ingestion.Adapter; GAS_QUALITY declares no
// rules of its own.
func (a *NationalGas) ValidationConfig() ingestion.ValidationConfig {
	return ingestion.ValidationConfig{}
}

// parseDateWindow parses the YYYY-MM-DD from/to params shared by the
// National Gas adapters.
func parseDateWindow(fromDate, toDate string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation("2006-01-02", fromDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid from_date %q", ingestion.ErrConfiguration, fromDate)
	}

	to, err := time.ParseInLocation("2006-01-02", toDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid to_date %q", ingestion.ErrConfiguration, toDate)
	}

	return from, to, nil
}

// parseTabular is the shared Parse for rectangular adapters: a document
// payload here is a programming error.
func parseTabular(datasetID string, raw *ingestion.RawData) ([]ingestion.Record, error) {
	if raw == nil {
		return nil, nil
	}

	if raw.Doc != nil {
		return nil, fmt.Errorf("%s adapter expects a tabular batch, got a document", datasetID)
	}

	return raw.Rows, nil
}
