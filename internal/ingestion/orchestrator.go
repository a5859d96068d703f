package ingestion

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/config"
)

const (
	// maxFetchAttempts bounds the orchestrator-owned fetch retry. Backoff is
	// exponential: 1s, 2s, 4s between failures.
	maxFetchAttempts = 3

	baseBackoff = time.Second
)

// datasetSources maps each dataset id to the source tag stamped on its raw
// events. GIE datasets additionally select the relational storage variant
// via GIESources.
var datasetSources = map[string]string{
	DatasetGasQuality:        SourceNationalGas,
	DatasetEntsog:            SourceEntsog,
	DatasetInstantaneousFlow: SourceNationalGas,
	DatasetGasPublications:   SourceNationalGas,
	DatasetAGSI:              SourceGieAGSI,
	DatasetALSI:              SourceGieALSI,
}

type (
	// Orchestrator enforces the twelve-step ingestion lifecycle. The order
	// must never change; adapters cannot alter it.
	//
	//  1. Resolve adapter factory; instantiate (and pre-validate params).
	//  2. Open the run journal entry (RUNNING).
	//  3. Load dataset config.
	//  4. Fetch with retry.
	//  5. Persist raw payload, then field discovery.
	//  6. Parse.
	//  7. Normalize (flattening).
	//  8. Validate.
	//  9. Apply delete policy.
	// 10. Register canonical series.
	// 11. Upsert / insert observations.
	// 12. Close the run and emit metrics.
	//
	// Any error between steps 2 and 11 routes to the failure tail: the run is
	// closed FAILED with best-effort counters and the error is returned to
	// the caller. Steps 1 and param validation abort before the journal is
	// opened, so configuration errors leave no run row behind.
	Orchestrator struct {
		registry *Registry
		stores   Stores
		configs  config.DatasetConfigs
		metrics  Metrics
		logger   *slog.Logger

		// sleep and now are injectable for tests; production uses the real
		// clock.
		sleep func(ctx context.Context, d time.Duration) error
		now   func() time.Time
	}

	// OrchestratorOption configures optional orchestrator behavior.
	OrchestratorOption func(*Orchestrator)
)

// WithMetrics attaches a run-outcome recorder (step 12). Nil disables.
func WithMetrics(m Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger overrides the default JSON stdout logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator composes the ingestion engine from the adapter registry,
// the persistence stores, and the per-dataset configuration.
func NewOrchestrator(
	registry *Registry,
	stores Stores,
	configs config.DatasetConfigs,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		stores:   stores,
		configs:  configs,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
		sleep: sleepContext,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run executes one ingestion for a dataset. Params are dataset-specific;
// fields an adapter does not honour are ignored. An unknown dataset id or a
// parameter bundle the adapter rejects returns before any side effect.
func (o *Orchestrator) Run(ctx context.Context, datasetID string, params Params) error {
	// 1. Resolve adapter.
	factory, err := o.registry.Get(datasetID)
	if err != nil {
		return err
	}

	adapter := factory()

	if pv, ok := adapter.(ParamValidator); ok {
		if err := pv.ValidateParams(params); err != nil {
			return err
		}
	}

	// 2. Open run journal entry.
	runID, err := o.stores.Journal.Open(ctx, datasetID)
	if err != nil {
		return err
	}

	started := o.now()

	var counters RunCounters

	fail := func(cause error) error {
		if closeErr := o.stores.Journal.Close(ctx, runID, RunStatusFailed, counters, cause.Error()); closeErr != nil {
			o.logger.Error("failed to finalize run journal entry",
				slog.String("dataset_id", datasetID),
				slog.String("run_id", runID),
				slog.String("error", closeErr.Error()),
			)
		}

		o.emitMetrics(datasetID, RunStatusFailed, o.now().Sub(started), counters)

		return cause
	}

	// 3. Load dataset config. Absent config yields the zero value.
	cfg := o.configs.Get(datasetID)

	// 4. Fetch with retry.
	raw, err := o.fetchWithRetry(ctx, adapter, params)
	if err != nil {
		return fail(err)
	}

	// 5. Persist raw payload, then field discovery. Raw lands before parsing
	// so a parse bug stays diagnosable from the database alone.
	if err := o.persistRaw(ctx, datasetID, runID, raw); err != nil {
		return fail(err)
	}

	// 6. Parse.
	records, err := adapter.Parse(raw)
	if err != nil {
		return fail(err)
	}

	counters.RowsFetched = len(records)

	// 7. Normalize, flattening the per-record expansions.
	normalized := make([]Observation, 0, len(records))
	for _, rec := range records {
		normalized = append(normalized, adapter.Normalize(rec)...)
	}

	counters.RowsInserted = len(normalized)

	// 8. Validate. A violation discards the normalized batch; delete and
	// upsert never run.
	if err := Validate(normalized, adapter, cfg); err != nil {
		return fail(err)
	}

	// 9. Delete policy. Runs before the insert so the affected window is the
	// one the insert repopulates; re-ingestion stays idempotent for rolling
	// windows.
	deleted, err := o.applyDeletePolicy(ctx, datasetID, adapter, cfg)
	if err != nil {
		return fail(err)
	}

	counters.RowsDeleted = int(deleted)

	// 10. Register canonical series. GIE series are created inline during
	// insert by the relational store.
	seriesMeta := adapter.DefineSeries(normalized)

	if _, gie := GIESources[datasetID]; !gie && len(seriesMeta) > 0 {
		if err := o.stores.Series.Register(ctx, seriesMeta); err != nil {
			return fail(err)
		}
	}

	// 11. Insert observations.
	if len(normalized) > 0 {
		if source, gie := GIESources[datasetID]; gie {
			if _, err := o.stores.GIE.InsertDaily(ctx, source, normalized); err != nil {
				return fail(err)
			}
		} else {
			if _, err := o.stores.Observations.Upsert(ctx, runID, normalized); err != nil {
				return fail(err)
			}
		}
	}

	// 12. Close the run and emit metrics.
	if err := o.stores.Journal.Close(ctx, runID, RunStatusSuccess, counters, ""); err != nil {
		return fail(err)
	}

	duration := o.now().Sub(started)
	o.emitMetrics(datasetID, RunStatusSuccess, duration, counters)

	o.logger.Info("ingestion run succeeded",
		slog.String("dataset_id", datasetID),
		slog.String("run_id", runID),
		slog.Int("rows_fetched", counters.RowsFetched),
		slog.Int("rows_inserted", counters.RowsInserted),
		slog.Int("rows_deleted", counters.RowsDeleted),
		slog.Duration("duration", duration),
	)

	return nil
}

// fetchWithRetry calls the adapter's Fetch with up to maxFetchAttempts
// attempts and exponential backoff. Retry lives here, not in adapters, so
// failure accounting stays in one place.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, adapter Adapter, params Params) (*RawData, error) {
	var lastErr error

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		raw, err := adapter.Fetch(ctx, params)
		if err == nil {
			return raw, nil
		}

		lastErr = err

		o.logger.Warn("fetch attempt failed",
			slog.String("dataset_id", adapter.DatasetID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxFetchAttempts),
			slog.String("error", err.Error()),
		)

		if attempt == maxFetchAttempts {
			break
		}

		backoff := baseBackoff << (attempt - 1)
		if err := o.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// persistRaw writes the fetched payload to the raw store: row-wise for
// tabular batches, whole-document for GIE, then runs field discovery over the
// dataset's raw events. An empty tabular batch stores nothing and skips
// discovery.
func (o *Orchestrator) persistRaw(ctx context.Context, datasetID, runID string, raw *RawData) error {
	if raw == nil {
		return nil
	}

	source, ok := datasetSources[datasetID]
	if !ok {
		source = SourceNationalGas
	}

	switch {
	case len(raw.Rows) > 0:
		if err := o.stores.Raw.StoreRows(ctx, source, datasetID, runID, raw.Rows); err != nil {
			return err
		}
	case raw.Doc != nil:
		if err := o.stores.Raw.StoreDocument(ctx, source, datasetID, runID, raw.Doc); err != nil {
			return err
		}
	default:
		return nil
	}

	// Discovery runs here, before any validator rejection could abort the
	// run, so the catalog always reflects payloads that were persisted.
	return o.stores.Fields.Discover(ctx, datasetID)
}

// applyDeletePolicy prunes per the dataset config. GIE datasets override the
// generic policy with the rolling-window delete by source.
func (o *Orchestrator) applyDeletePolicy(
	ctx context.Context,
	datasetID string,
	adapter Adapter,
	cfg config.DatasetConfig,
) (int64, error) {
	if source, ok := GIESources[datasetID]; ok {
		return o.stores.GIE.DeleteRecentBySource(ctx, source, gieCutoff(cfg, o.now()))
	}

	cutoff, ok := retentionCutoff(cfg, o.now())
	if !ok {
		return 0, nil
	}

	if tf := adapter.TimeField(); tf != "observation_time" {
		o.logger.Warn("delete policy prunes data_observations by observation_time",
			slog.String("dataset_id", datasetID),
			slog.String("adapter_time_field", tf),
		)
	}

	return o.stores.Observations.DeleteOlderThan(ctx, datasetID, cutoff)
}

func (o *Orchestrator) emitMetrics(datasetID string, status RunStatus, duration time.Duration, counters RunCounters) {
	if o.metrics == nil {
		return
	}

	o.metrics.RecordRun(datasetID, status, duration, counters)
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
