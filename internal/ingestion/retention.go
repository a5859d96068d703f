package ingestion

import (
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/config"
)

// defaultGIELookbackDays is the GIE rolling overwrite window applied when the
// dataset config does not override it. GIE republishes the recent window on
// every response, so the engine deletes and repopulates the same range.
const defaultGIELookbackDays = 10

// retentionCutoff computes the last_n_days cutoff for the flat variant.
// Returns false when the dataset has no retention configured (or an unknown
// strategy), in which case nothing is deleted.
func retentionCutoff(cfg config.DatasetConfig, now time.Time) (time.Time, bool) {
	if cfg.DeleteStrategy != config.DeleteStrategyLastNDays || cfg.DeleteWindowDays <= 0 {
		return time.Time{}, false
	}

	return now.UTC().AddDate(0, 0, -cfg.DeleteWindowDays), true
}

// gieCutoff computes the date-only cutoff for the GIE rolling-window delete.
// The dataset config's last_n_days window overrides the default lookback.
// Rows with value_date >= cutoff are deleted and then repopulated by the
// insert that follows.
func gieCutoff(cfg config.DatasetConfig, now time.Time) time.Time {
	days := defaultGIELookbackDays
	if cfg.DeleteStrategy == config.DeleteStrategyLastNDays && cfg.DeleteWindowDays > 0 {
		days = cfg.DeleteWindowDays
	}

	day := now.UTC().Truncate(24 * time.Hour)

	return day.AddDate(0, 0, -days)
}
