package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeleteStrategyLastNDays is the only retention strategy currently understood
// by the delete policy. The strategy selector is a string on purpose so new
// strategies can be added without a schema change to the config file.
const DeleteStrategyLastNDays = "last_n_days"

// ErrDatasetConfigUnreadable is returned when the dataset config file exists
// but cannot be read or parsed.
var ErrDatasetConfigUnreadable = errors.New("dataset config file unreadable")

type (
	// DatasetConfig carries the per-dataset ingestion settings: retention
	// policy plus optional validator overrides. Datasets without an entry get
	// the zero value: no retention, no extra validation.
	DatasetConfig struct {
		// DeleteStrategy selects the retention policy ("last_n_days" or empty).
		DeleteStrategy string `yaml:"delete_strategy"`

		// DeleteWindowDays is the rolling window for last_n_days.
		DeleteWindowDays int `yaml:"delete_window_days"`

		// MinRowCount overrides the adapter's minimum normalized row count.
		MinRowCount *int `yaml:"min_row_count"`

		// RequiredFields overrides the adapter's required fields.
		RequiredFields []string `yaml:"required_fields"`

		// MinDate / MaxDate bound the adapter's time field (YYYY-MM-DD,
		// interpreted as UTC). Empty means unbounded.
		MinDate string `yaml:"min_date"`
		MaxDate string `yaml:"max_date"`
	}

	// DatasetConfigs maps dataset_id to its configuration.
	DatasetConfigs map[string]DatasetConfig
)

// LoadDatasetConfigs reads the YAML dataset configuration from path.
//
// A missing file is not an error: ingestion runs fine without any dataset
// config (every lookup yields the zero value). A present but malformed file
// is an error so a typo never silently disables retention.
func LoadDatasetConfigs(path string) (DatasetConfigs, error) {
	if path == "" {
		return DatasetConfigs{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DatasetConfigs{}, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrDatasetConfigUnreadable, err)
	}

	var configs DatasetConfigs
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatasetConfigUnreadable, err)
	}

	if configs == nil {
		configs = DatasetConfigs{}
	}

	return configs, nil
}

// Get returns the configuration for a dataset, or the zero value when the
// dataset has no entry.
func (c DatasetConfigs) Get(datasetID string) DatasetConfig {
	return c[datasetID]
}
