package ingestion

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/config"
)

// defaultPoolWorkers bounds concurrent ingestion runs. Upstream rate limits
// make unbounded fire-and-forget a liability.
const defaultPoolWorkers = 4

// Pool executes ingestion runs as bounded fire-and-forget background tasks.
// HTTP handlers and the scheduler submit to it; a full pool queues the run in
// a goroutine that blocks on a semaphore slot rather than dropping it.
//
// Runs are not cancellable mid-flight: an abandoned caller leaves the run to
// completion or natural failure, and the journal reflects whichever
// terminates.
type Pool struct {
	orch   *Orchestrator
	sem    chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a worker pool over the orchestrator. workers <= 0 selects
// the default.
func NewPool(orch *Orchestrator, workers int) *Pool {
	if workers <= 0 {
		workers = defaultPoolWorkers
	}

	return &Pool{
		orch: orch,
		sem:  make(chan struct{}, workers),
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}
}

// Submit schedules one ingestion run in the background and returns
// immediately. Failures are logged; the run journal carries the terminal
// state for callers that need it.
func (p *Pool) Submit(datasetID string, params Params) {
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		if err := p.orch.Run(context.Background(), datasetID, params); err != nil {
			p.logger.Error("background ingestion run failed",
				slog.String("dataset_id", datasetID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Drain waits for all in-flight and queued runs to finish, up to timeout.
// Returns false if the timeout elapsed first.
func (p *Pool) Drain(timeout time.Duration) bool {
	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
