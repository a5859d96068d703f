package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "datasets.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	return path
}

func TestLoadDatasetConfigs(t *testing.T) {
	path := writeConfigFile(t, `
GAS_QUALITY:
  delete_strategy: last_n_days
  delete_window_days: 30
  min_row_count: 10
ENTSOG:
  required_fields:
    - series_id
    - value
  min_date: "2015-01-01"
`)

	configs, err := LoadDatasetConfigs(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gq := configs.Get("GAS_QUALITY")
	if gq.DeleteStrategy != DeleteStrategyLastNDays || gq.DeleteWindowDays != 30 {
		t.Errorf("GAS_QUALITY = %+v", gq)
	}

	if gq.MinRowCount == nil || *gq.MinRowCount != 10 {
		t.Errorf("min_row_count = %v", gq.MinRowCount)
	}

	entsog := configs.Get("ENTSOG")
	if len(entsog.RequiredFields) != 2 || entsog.MinDate != "2015-01-01" {
		t.Errorf("ENTSOG = %+v", entsog)
	}
}

func TestLoadDatasetConfigsMissingFile(t *testing.T) {
	configs, err := LoadDatasetConfigs(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}

	if len(configs) != 0 {
		t.Errorf("got %d configs, want 0", len(configs))
	}
}

func TestLoadDatasetConfigsEmptyPath(t *testing.T) {
	configs, err := LoadDatasetConfigs("")
	if err != nil {
		t.Fatalf("empty path must not error: %v", err)
	}

	if len(configs) != 0 {
		t.Errorf("got %d configs, want 0", len(configs))
	}
}

func TestLoadDatasetConfigsMalformed(t *testing.T) {
	path := writeConfigFile(t, "GAS_QUALITY: [not: a: mapping")

	_, err := LoadDatasetConfigs(path)
	if !errors.Is(err, ErrDatasetConfigUnreadable) {
		t.Fatalf("expected ErrDatasetConfigUnreadable, got %v", err)
	}
}

func TestDatasetConfigsGetUnknownDataset(t *testing.T) {
	configs := DatasetConfigs{}

	cfg := configs.Get("UNKNOWN")
	if cfg.DeleteStrategy != "" || cfg.MinRowCount != nil {
		t.Errorf("unknown dataset must yield the zero value, got %+v", cfg)
	}
}
