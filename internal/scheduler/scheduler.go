// Package scheduler runs the recurring ingestion jobs: an hourly GAS_QUALITY
// top-up for the current day and a daily backfill at midnight UTC covering
// the previous two days.
package scheduler

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/litshivang/gas-data-pipeline/internal/config"
	"github.com/litshivang/gas-data-pipeline/internal/ingestion"
)

const (
	hourlySpec = "0 * * * *"
	dailySpec  = "0 0 * * *"

	// dailyLookbackDays is how far the midnight backfill reaches: upstream
	// revises the previous gas day, so one day is not enough.
	dailyLookbackDays = 2
)

// defaultSiteIDs is the GAS_QUALITY site filter when INGEST_SITE_IDS is
// unset: site 77 is the St Fergus terminal the downstream models need.
var defaultSiteIDs = []int{77}

// Scheduler owns the cron runner and submits recurring jobs to the worker
// pool. Jobs are fire-and-forget: overlap protection comes from the pool's
// bounded concurrency, and every run lands in the journal either way.
type Scheduler struct {
	cron    *cron.Cron
	pool    *ingestion.Pool
	siteIDs []int
	logger  *slog.Logger
	now     func() time.Time
}

// New creates the scheduler over the worker pool. Site ids come from
// INGEST_SITE_IDS, falling back to the default set.
func New(pool *ingestion.Pool) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		pool:    pool,
		siteIDs: config.GetEnvIntSlice("INGEST_SITE_IDS", defaultSiteIDs),
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
		now: time.Now,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(hourlySpec, s.hourlyGasQuality); err != nil {
		return fmt.Errorf("failed to register hourly job: %w", err)
	}

	if _, err := s.cron.AddFunc(dailySpec, s.dailyGasQuality); err != nil {
		return fmt.Errorf("failed to register daily job: %w", err)
	}

	s.cron.Start()

	s.logger.Info("scheduler started",
		slog.String("hourly", hourlySpec),
		slog.String("daily", dailySpec),
		slog.Any("site_ids", s.siteIDs),
	)

	return nil
}

// Stop stops the cron runner. Jobs already submitted keep running in the
// pool.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// hourlyGasQuality tops up the current gas day.
func (s *Scheduler) hourlyGasQuality() {
	s.submitGasQuality(hourlyWindow(s.now()))
}

// dailyGasQuality backfills the revisable recent window at midnight UTC.
func (s *Scheduler) dailyGasQuality() {
	s.submitGasQuality(dailyWindow(s.now()))
}

// hourlyWindow is the single-day window covering now's UTC date.
func hourlyWindow(now time.Time) (string, string) {
	today := now.UTC().Format("2006-01-02")

	return today, today
}

// dailyWindow reaches dailyLookbackDays back from now's UTC date.
func dailyWindow(now time.Time) (string, string) {
	day := now.UTC()
	from := day.AddDate(0, 0, -dailyLookbackDays).Format("2006-01-02")
	to := day.Format("2006-01-02")

	return from, to
}

func (s *Scheduler) submitGasQuality(fromDate, toDate string) {
	s.logger.Info("submitting scheduled ingestion",
		slog.String("dataset_id", ingestion.DatasetGasQuality),
		slog.String("from_date", fromDate),
		slog.String("to_date", toDate),
	)

	s.pool.Submit(ingestion.DatasetGasQuality, ingestion.Params{
		FromDate: fromDate,
		ToDate:   toDate,
		SiteIDs:  s.siteIDs,
	})
}
