package ingestion

import (
	"errors"
	"fmt"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/config"
)

// ErrValidation is the error kind for any validator rule violation. The
// wrapped message names the rule and the offending record index; the
// orchestrator closes the run FAILED with it and re-raises.
var ErrValidation = errors.New("validation failed")

// mergeValidationRules overlays the dataset config's validator overrides on
// the adapter's declared rules. Config wins where set.
func mergeValidationRules(rules ValidationConfig, cfg config.DatasetConfig) ValidationConfig {
	if cfg.MinRowCount != nil {
		rules.MinRowCount = cfg.MinRowCount
	}

	if len(cfg.RequiredFields) > 0 {
		rules.RequiredFields = cfg.RequiredFields
	}

	minDate := parseConfigDate(cfg.MinDate)
	maxDate := parseConfigDate(cfg.MaxDate)

	if minDate != nil || maxDate != nil {
		rules.DateRange = &DateRange{MinDate: minDate, MaxDate: maxDate}
	}

	return rules
}

func parseConfigDate(s string) *time.Time {
	if s == "" {
		return nil
	}

	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return nil
	}

	return &t
}

// Validate runs the merged rule set over a normalized batch, failing fast on
// the first violation. No rules means pass. Naive timestamps never occur
// here: adapters normalize to UTC-aware times, and date-only values carry
// UTC midnight.
func Validate(normalized []Observation, adapter Adapter, cfg config.DatasetConfig) error {
	rules := mergeValidationRules(adapter.ValidationConfig(), cfg)

	if rules.MinRowCount != nil && len(normalized) < *rules.MinRowCount {
		return fmt.Errorf("%w: min_row_count=%d but got %d normalized records",
			ErrValidation, *rules.MinRowCount, len(normalized))
	}

	if len(rules.RequiredFields) > 0 {
		for i, obs := range normalized {
			for _, field := range rules.RequiredFields {
				if _, ok := obs.Field(field); !ok {
					return fmt.Errorf("%w: record %d missing required field %q",
						ErrValidation, i, field)
				}
			}
		}
	}

	if rules.DateRange != nil {
		timeField := adapter.TimeField()

		for i, obs := range normalized {
			ts, ok := obs.TimeValue(timeField)
			if !ok {
				continue
			}

			if rules.DateRange.MinDate != nil && ts.Before(*rules.DateRange.MinDate) {
				return fmt.Errorf("%w: record %d: %s %s before min_date %s",
					ErrValidation, i, timeField,
					ts.Format(time.RFC3339), rules.DateRange.MinDate.Format("2006-01-02"))
			}

			if rules.DateRange.MaxDate != nil && ts.After(*rules.DateRange.MaxDate) {
				return fmt.Errorf("%w: record %d: %s %s after max_date %s",
					ErrValidation, i, timeField,
					ts.Format(time.RFC3339), rules.DateRange.MaxDate.Format("2006-01-02"))
			}
		}
	}

	return nil
}
