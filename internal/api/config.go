// Package api provides the HTTP surface of the ingestion service: trigger
// endpoints per dataset, the run journal listing, and the usual health and
// metrics plumbing.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/config"
)

const (
	defaultPort     = 8080
	maxPort         = 65535
	defaultHost     = "0.0.0.0"
	defaultTimeout  = 30 * time.Second
	defaultLogLevel = slog.LevelInfo

	// defaultWriteTimeout is generous because trigger endpoints respond
	// immediately but the runs listing can page through a large journal.
	defaultWriteTimeout = 60 * time.Second
)

var (
	// ErrInvalidPort indicates the port number is outside valid range (1-65535).
	ErrInvalidPort = errors.New("invalid port")

	// ErrEmptyHost indicates the server host address is empty.
	ErrEmptyHost = errors.New("host cannot be empty")

	// ErrInvalidTimeout indicates a server timeout is zero or negative.
	ErrInvalidTimeout = errors.New("server timeouts must be positive")
)

// ServerConfig holds HTTP server configuration. Pure configuration only, no
// runtime dependencies.
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
}

// LoadServerConfig loads server configuration from environment variables
// with sensible defaults.
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            config.GetEnvInt("SERVER_PORT", defaultPort),
		Host:            config.GetEnvStr("SERVER_HOST", defaultHost),
		ReadTimeout:     config.GetEnvDuration("SERVER_READ_TIMEOUT", defaultTimeout),
		WriteTimeout:    config.GetEnvDuration("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
		ShutdownTimeout: config.GetEnvDuration("SERVER_SHUTDOWN_TIMEOUT", defaultTimeout),
		LogLevel:        config.GetEnvLogLevel("LOG_LEVEL", defaultLogLevel),
	}
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > maxPort {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidPort, c.Port, maxPort)
	}

	if c.Host == "" {
		return ErrEmptyHost
	}

	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}
