package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/config"
)

// fakeAdapter is a configurable Adapter for engine tests. Zero-value fields
// fall back to benign defaults.
type fakeAdapter struct {
	id            string
	fetchFn       func(ctx context.Context, params Params) (*RawData, error)
	parseFn       func(raw *RawData) ([]Record, error)
	normalizeFn   func(rec Record) []Observation
	series        []SeriesMeta
	timeField     string
	rules         ValidationConfig
	paramsErr     error
	validatesArgs bool
}

func (a *fakeAdapter) DatasetID() string { return a.id }

func (a *fakeAdapter) Fetch(ctx context.Context, params Params) (*RawData, error) {
	if a.fetchFn != nil {
		return a.fetchFn(ctx, params)
	}

	return &RawData{Rows: []Record{{"value": 1.0}}}, nil
}

func (a *fakeAdapter) Parse(raw *RawData) ([]Record, error) {
	if a.parseFn != nil {
		return a.parseFn(raw)
	}

	return raw.Rows, nil
}

func (a *fakeAdapter) Normalize(rec Record) []Observation {
	if a.normalizeFn != nil {
		return a.normalizeFn(rec)
	}

	return []Observation{{
		SeriesID:        "NG_TEST_1_X",
		ObservationTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Value:           1,
	}}
}

func (a *fakeAdapter) DefineSeries(_ []Observation) []SeriesMeta { return a.series }

func (a *fakeAdapter) TimeField() string {
	if a.timeField == "" {
		return "observation_time"
	}

	return a.timeField
}

func (a *fakeAdapter) ValidationConfig() ValidationConfig { return a.rules }

func (a *fakeAdapter) ValidateParams(_ Params) error {
	if !a.validatesArgs {
		return nil
	}

	return a.paramsErr
}

// fakeStores records every store call in order so tests can assert the
// lifecycle sequence. The mutex keeps concurrent pool submissions race-free.
type fakeStores struct {
	mu    sync.Mutex
	calls []string

	openErr     error
	closeErr    error
	upsertErr   error
	registerErr error
	validateErr error

	closedStatus RunStatus
	closedErrMsg string
	counters     RunCounters
	deleted      int64
}

func (f *fakeStores) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeStores) Open(_ context.Context, _ string) (string, error) {
	f.record("journal.open")

	if f.openErr != nil {
		return "", f.openErr
	}

	return "run-1", nil
}

func (f *fakeStores) Close(_ context.Context, _ string, status RunStatus, counters RunCounters, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "journal.close")
	f.closedStatus = status
	f.closedErrMsg = errMsg
	f.counters = counters

	return f.closeErr
}

func (f *fakeStores) StoreRows(_ context.Context, _, _, _ string, _ []Record) error {
	f.record("raw.rows")

	return nil
}

func (f *fakeStores) StoreDocument(_ context.Context, _, _, _ string, _ map[string]any) error {
	f.record("raw.doc")

	return nil
}

func (f *fakeStores) Discover(_ context.Context, _ string) error {
	f.record("fields.discover")

	return nil
}

func (f *fakeStores) Register(_ context.Context, _ []SeriesMeta) error {
	f.record("series.register")

	return f.registerErr
}

func (f *fakeStores) Upsert(_ context.Context, _ string, observations []Observation) (int, error) {
	f.record("observations.upsert")

	if f.upsertErr != nil {
		return 0, f.upsertErr
	}

	return len(observations), nil
}

func (f *fakeStores) DeleteOlderThan(_ context.Context, _ string, _ time.Time) (int64, error) {
	f.record("observations.delete")

	return f.deleted, nil
}

func (f *fakeStores) DeleteRecentBySource(_ context.Context, _ string, _ time.Time) (int64, error) {
	f.record("gie.delete")

	return f.deleted, nil
}

func (f *fakeStores) InsertDaily(_ context.Context, _ string, observations []Observation) (int, error) {
	f.record("gie.insert")

	return len(observations), nil
}

func (f *fakeStores) stores() Stores {
	return Stores{
		Journal:      f,
		Raw:          f,
		Fields:       f,
		Series:       f,
		Observations: f,
		GIE:          f,
	}
}

type fakeMetrics struct {
	datasetID string
	status    RunStatus
	counters  RunCounters
	calls     int
}

func (m *fakeMetrics) RecordRun(datasetID string, status RunStatus, _ time.Duration, counters RunCounters) {
	m.calls++
	m.datasetID = datasetID
	m.status = status
	m.counters = counters
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T, adapter Adapter, stores *fakeStores, configs config.DatasetConfigs, m Metrics) *Orchestrator {
	t.Helper()

	reg := NewRegistry()
	reg.Register(adapter.DatasetID(), func() Adapter { return adapter })

	o := NewOrchestrator(reg, stores.stores(), configs,
		WithLogger(discardLogger()),
		WithMetrics(m),
	)

	// No real sleeping in tests.
	o.sleep = func(_ context.Context, _ time.Duration) error { return nil }

	return o
}

func TestRunSuccessLifecycleOrder(t *testing.T) {
	stores := &fakeStores{}
	adapter := &fakeAdapter{
		id:     DatasetGasQuality,
		series: []SeriesMeta{{SeriesID: "NG_TEST_1_X", Source: SourceNationalGas}},
	}
	metrics := &fakeMetrics{}

	o := newTestOrchestrator(t, adapter, stores, nil, metrics)

	if err := o.Run(context.Background(), DatasetGasQuality, Params{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"journal.open",
		"raw.rows",
		"fields.discover",
		"series.register",
		"observations.upsert",
		"journal.close",
	}

	if len(stores.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", stores.calls, want)
	}

	for i := range want {
		if stores.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, stores.calls[i], want[i])
		}
	}

	if stores.closedStatus != RunStatusSuccess {
		t.Errorf("closed status = %q, want SUCCESS", stores.closedStatus)
	}

	if metrics.calls != 1 || metrics.status != RunStatusSuccess {
		t.Errorf("metrics = %+v, want one SUCCESS record", metrics)
	}
}

func TestRunUnknownDatasetLeavesNoJournalEntry(t *testing.T) {
	stores := &fakeStores{}
	adapter := &fakeAdapter{id: DatasetGasQuality}

	o := newTestOrchestrator(t, adapter, stores, nil, nil)

	err := o.Run(context.Background(), "UNKNOWN", Params{})
	if !errors.Is(err, ErrUnknownDataset) {
		t.Fatalf("expected ErrUnknownDataset, got %v", err)
	}

	if len(stores.calls) != 0 {
		t.Errorf("expected no store calls, got %v", stores.calls)
	}
}

func TestRunParamValidationFailsBeforeJournalOpen(t *testing.T) {
	stores := &fakeStores{}
	adapter := &fakeAdapter{
		id:            DatasetEntsog,
		validatesArgs: true,
		paramsErr:     ErrConfiguration,
	}

	o := newTestOrchestrator(t, adapter, stores, nil, nil)

	err := o.Run(context.Background(), DatasetEntsog, Params{})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	if len(stores.calls) != 0 {
		t.Errorf("configuration error must leave no run row, got calls %v", stores.calls)
	}
}

func TestRunFetchRetriesThenFails(t *testing.T) {
	stores := &fakeStores{}
	attempts := 0
	fetchErr := errors.New("upstream down")

	adapter := &fakeAdapter{
		id: DatasetGasQuality,
		fetchFn: func(_ context.Context, _ Params) (*RawData, error) {
			attempts++

			return nil, fetchErr
		},
	}

	var backoffs []time.Duration

	o := newTestOrchestrator(t, adapter, stores, nil, nil)
	o.sleep = func(_ context.Context, d time.Duration) error {
		backoffs = append(backoffs, d)

		return nil
	}

	err := o.Run(context.Background(), DatasetGasQuality, Params{})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	if attempts != maxFetchAttempts {
		t.Errorf("attempts = %d, want %d", attempts, maxFetchAttempts)
	}

	if len(backoffs) != 2 || backoffs[0] != time.Second || backoffs[1] != 2*time.Second {
		t.Errorf("backoffs = %v, want [1s 2s]", backoffs)
	}

	if stores.closedStatus != RunStatusFailed {
		t.Errorf("closed status = %q, want FAILED", stores.closedStatus)
	}

	if stores.closedErrMsg == "" {
		t.Error("expected error message on failed run")
	}
}

func TestRunFetchRecoversWithinRetryBudget(t *testing.T) {
	stores := &fakeStores{}
	attempts := 0

	adapter := &fakeAdapter{
		id: DatasetGasQuality,
		fetchFn: func(_ context.Context, _ Params) (*RawData, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("flaky")
			}

			return &RawData{Rows: []Record{{"v": 1.0}}}, nil
		},
	}

	o := newTestOrchestrator(t, adapter, stores, nil, nil)

	if err := o.Run(context.Background(), DatasetGasQuality, Params{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stores.closedStatus != RunStatusSuccess {
		t.Errorf("closed status = %q, want SUCCESS", stores.closedStatus)
	}
}

func TestRunValidationFailureSkipsDeleteAndUpsert(t *testing.T) {
	stores := &fakeStores{}
	minRows := 10

	adapter := &fakeAdapter{
		id:    DatasetGasQuality,
		rules: ValidationConfig{MinRowCount: &minRows},
	}
	metrics := &fakeMetrics{}

	configs := config.DatasetConfigs{
		DatasetGasQuality: {
			DeleteStrategy:   config.DeleteStrategyLastNDays,
			DeleteWindowDays: 30,
		},
	}

	o := newTestOrchestrator(t, adapter, stores, configs, metrics)

	err := o.Run(context.Background(), DatasetGasQuality, Params{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	for _, call := range stores.calls {
		if call == "observations.delete" || call == "observations.upsert" {
			t.Errorf("validation failure must not reach %s", call)
		}
	}

	if stores.closedStatus != RunStatusFailed {
		t.Errorf("closed status = %q, want FAILED", stores.closedStatus)
	}

	if metrics.status != RunStatusFailed {
		t.Errorf("metrics status = %q, want FAILED", metrics.status)
	}
}

func TestRunAppliesRetentionBeforeUpsert(t *testing.T) {
	stores := &fakeStores{deleted: 7}
	adapter := &fakeAdapter{id: DatasetGasQuality}

	configs := config.DatasetConfigs{
		DatasetGasQuality: {
			DeleteStrategy:   config.DeleteStrategyLastNDays,
			DeleteWindowDays: 30,
		},
	}

	o := newTestOrchestrator(t, adapter, stores, configs, nil)

	if err := o.Run(context.Background(), DatasetGasQuality, Params{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleteIdx, upsertIdx := -1, -1

	for i, call := range stores.calls {
		switch call {
		case "observations.delete":
			deleteIdx = i
		case "observations.upsert":
			upsertIdx = i
		}
	}

	if deleteIdx == -1 || upsertIdx == -1 || deleteIdx > upsertIdx {
		t.Errorf("delete must run before upsert, calls = %v", stores.calls)
	}

	if stores.counters.RowsDeleted != 7 {
		t.Errorf("RowsDeleted = %d, want 7", stores.counters.RowsDeleted)
	}
}

func TestRunGIEUsesRelationalStore(t *testing.T) {
	stores := &fakeStores{}

	adapter := &fakeAdapter{
		id: DatasetAGSI,
		fetchFn: func(_ context.Context, _ Params) (*RawData, error) {
			return &RawData{Doc: map[string]any{"data": []any{}}}, nil
		},
		parseFn: func(_ *RawData) ([]Record, error) {
			return []Record{{"country": "Germany"}}, nil
		},
		normalizeFn: func(_ Record) []Observation {
			return []Observation{{
				Country:  "Germany",
				Date:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				Variable: "gasInStorage",
				Value:    55.5,
			}}
		},
		timeField: "date",
	}

	o := newTestOrchestrator(t, adapter, stores, nil, nil)

	if err := o.Run(context.Background(), DatasetAGSI, Params{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"journal.open",
		"raw.doc",
		"fields.discover",
		"gie.delete",
		"gie.insert",
		"journal.close",
	}

	if len(stores.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", stores.calls, want)
	}

	for i := range want {
		if stores.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, stores.calls[i], want[i])
		}
	}
}

func TestRunEmptyBatchSkipsInsertButSucceeds(t *testing.T) {
	stores := &fakeStores{}

	adapter := &fakeAdapter{
		id: DatasetGasQuality,
		fetchFn: func(_ context.Context, _ Params) (*RawData, error) {
			return &RawData{}, nil
		},
		normalizeFn: func(_ Record) []Observation { return nil },
	}

	o := newTestOrchestrator(t, adapter, stores, nil, nil)

	if err := o.Run(context.Background(), DatasetGasQuality, Params{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, call := range stores.calls {
		if call == "observations.upsert" || call == "raw.rows" {
			t.Errorf("empty batch must not reach %s", call)
		}
	}

	if stores.closedStatus != RunStatusSuccess {
		t.Errorf("closed status = %q, want SUCCESS", stores.closedStatus)
	}

	if stores.counters.RowsFetched != 0 || stores.counters.RowsInserted != 0 {
		t.Errorf("counters = %+v, want zeros", stores.counters)
	}
}

func TestRunUpsertFailureClosesRunFailed(t *testing.T) {
	stores := &fakeStores{upsertErr: errors.New("constraint violation")}
	adapter := &fakeAdapter{id: DatasetGasQuality}

	o := newTestOrchestrator(t, adapter, stores, nil, nil)

	err := o.Run(context.Background(), DatasetGasQuality, Params{})
	if err == nil {
		t.Fatal("expected error")
	}

	if stores.closedStatus != RunStatusFailed {
		t.Errorf("closed status = %q, want FAILED", stores.closedStatus)
	}

	if stores.closedErrMsg != "constraint violation" {
		t.Errorf("error message = %q", stores.closedErrMsg)
	}
}
