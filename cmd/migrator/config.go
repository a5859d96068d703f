package main

import (
	"errors"
	"fmt"

	"github.com/litshivang/gas-data-pipeline/internal/config"
	"github.com/litshivang/gas-data-pipeline/internal/storage"
)

// ErrMigrationTableEmpty is returned when MIGRATION_TABLE is set to an empty
// value.
var ErrMigrationTableEmpty = errors.New("MIGRATION_TABLE cannot be empty")

// Config holds all configuration for the migration tool. The database URL
// resolution is shared with the service: DATABASE_URL wins, POSTGRES_* is
// the fallback.
type Config struct {
	storageConfig  *storage.Config
	MigrationTable string
}

// LoadConfig loads configuration from environment variables with sensible
// defaults.
func LoadConfig() (*Config, error) {
	config := &Config{
		storageConfig:  storage.LoadConfig(),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", "schema_migrations"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.storageConfig.Validate(); err != nil {
		return err
	}

	if c.MigrationTable == "" {
		return ErrMigrationTableEmpty
	}

	return nil
}

// String returns a representation of the configuration safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DatabaseURL: %s, MigrationTable: %s}",
		c.storageConfig.MaskDatabaseURL(), c.MigrationTable)
}
