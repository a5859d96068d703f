package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

func TestGasPublicationsValidateParams(t *testing.T) {
	a := NewGasPublications(nil)

	valid := ingestion.Params{
		FromDate:       "2025-06-01",
		ToDate:         "2025-06-03",
		PublicationIDs: []string{"PUBOBJ1"},
	}
	if err := a.ValidateParams(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noPubs := ingestion.Params{FromDate: "2025-06-01", ToDate: "2025-06-03"}

	err := a.ValidateParams(noPubs)
	if !errors.Is(err, ingestion.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestGasPublicationsFetchFlattens(t *testing.T) {
	var requestBody map[string]any

	var requestPath string

	a := NewGasPublications(testClient(func(req *http.Request) (*http.Response, error) {
		requestPath = req.URL.Path

		if err := json.NewDecoder(req.Body).Decode(&requestBody); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}

		return jsonResponse(http.StatusOK, `[
			{
				"publicationId": "PUBOBJ1",
				"publicationName": "Demand Forecast",
				"publications": [
					{"applicableFor": "2025-06-01", "value": 180.4, "qualityIndicator": "A"},
					{"applicableFor": "2025-06-02", "value": 175.1, "qualityIndicator": "A"}
				]
			}
		]`), nil
	}))

	raw, err := a.Fetch(context.Background(), ingestion.Params{
		FromDate:       "2025-06-01",
		ToDate:         "2025-06-03",
		PublicationIDs: []string{"PUBOBJ1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if requestPath != "/operationaldata/v1/publications/gasday" {
		t.Errorf("request path = %q", requestPath)
	}

	if requestBody["latestValue"] != "Y" {
		t.Errorf("latestValue = %v, want Y", requestBody["latestValue"])
	}

	if len(raw.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(raw.Rows))
	}

	for _, row := range raw.Rows {
		if asString(row["publicationId"]) != "PUBOBJ1" {
			t.Errorf("row missing publication id: %+v", row)
		}

		if asString(row["publicationName"]) != "Demand Forecast" {
			t.Errorf("row missing publication name: %+v", row)
		}
	}
}

func TestGasPublicationsFetchRejectsObjectShape(t *testing.T) {
	a := NewGasPublications(testClient(func(_ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"publications": []}`), nil
	}))

	_, err := a.Fetch(context.Background(), ingestion.Params{
		FromDate:       "2025-06-01",
		ToDate:         "2025-06-03",
		PublicationIDs: []string{"PUBOBJ1"},
	})
	if err == nil {
		t.Fatal("object response must be rejected")
	}
}

func TestGasPublicationsNormalize(t *testing.T) {
	a := NewGasPublications(nil)

	obs := a.Normalize(ingestion.Record{
		"publicationId":   "PUBOBJ1",
		"publicationName": "Demand Forecast",
		"applicableFor":   "2025-06-01",
		"value":           json.Number("180.4"),
	})
	if len(obs) != 1 {
		t.Fatalf("got %d observations, want 1", len(obs))
	}

	if obs[0].SeriesID != "NG_GAS_PUBLICATIONS_PUBOBJ1" {
		t.Errorf("series id = %q", obs[0].SeriesID)
	}

	if obs[0].Value != 180.4 {
		t.Errorf("value = %v", obs[0].Value)
	}
}

func TestGasPublicationsNormalizeSkipsMissingPublication(t *testing.T) {
	a := NewGasPublications(nil)

	obs := a.Normalize(ingestion.Record{
		"applicableFor": "2025-06-01",
		"value":         json.Number("180.4"),
	})
	if len(obs) != 0 {
		t.Errorf("got %d observations, want 0", len(obs))
	}
}

func TestGasPublicationsDefineSeriesUsesPublicationName(t *testing.T) {
	a := NewGasPublications(nil)

	series := a.DefineSeries([]ingestion.Observation{
		{
			SeriesID:   "NG_GAS_PUBLICATIONS_PUBOBJ1",
			RawPayload: map[string]any{"publicationName": "Demand Forecast"},
		},
		{
			SeriesID:   "NG_GAS_PUBLICATIONS_PUBOBJ2",
			RawPayload: map[string]any{},
		},
	})
	if len(series) != 2 {
		t.Fatalf("got %d series, want 2", len(series))
	}

	if series[0].Description != "Demand Forecast" {
		t.Errorf("description = %q", series[0].Description)
	}

	if series[1].Description != "publication PUBOBJ2" {
		t.Errorf("fallback description = %q", series[1].Description)
	}
}
