package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/litshivang/gas-data-pipeline/internal/config"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// ErrDatabaseNotConfigured is returned when neither DATABASE_URL nor the
// POSTGRES_* variables yield a usable connection string.
var ErrDatabaseNotConfigured = errors.New("database connection is not configured")

// Config holds PostgreSQL connection configuration with production-ready
// defaults. DATABASE_URL wins when set; otherwise the URL is assembled from
// the individual POSTGRES_* variables.
type Config struct {
	databaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig loads PostgreSQL configuration from environment variables with
// fallback to defaults.
func LoadConfig() *Config {
	databaseURL := config.GetEnvStr("DATABASE_URL", "")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	return &Config{
		databaseURL:     databaseURL, // private: never logged unmasked
		MaxOpenConns:    config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
	}
}

// buildDatabaseURL assembles a postgres:// URL from the POSTGRES_* variables.
// Returns "" when the host is unset.
func buildDatabaseURL() string {
	host := config.GetEnvStr("POSTGRES_HOST", "")
	if host == "" {
		return ""
	}

	port := config.GetEnvInt("POSTGRES_PORT", 5432)
	db := config.GetEnvStr("POSTGRES_DB", "gasdata")
	user := config.GetEnvStr("POSTGRES_USER", "postgres")
	password := config.GetEnvStr("POSTGRES_PASSWORD", "")

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + db,
		User:   url.UserPassword(user, password),
	}

	q := url.Values{}
	q.Set("sslmode", config.GetEnvStr("POSTGRES_SSLMODE", "disable"))
	u.RawQuery = q.Encode()

	return u.String()
}

// DatabaseURL returns the unmasked connection string. Callers must never log
// it; use MaskDatabaseURL for anything user-visible.
func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

// Validate checks if the PostgreSQL configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseNotConfigured
	}

	return nil
}

// MaskDatabaseURL returns a masked databaseURL safe for logging.
func (c *Config) MaskDatabaseURL() string {
	if c.databaseURL == "" {
		return ""
	}

	schemeEnd := strings.Index(c.databaseURL, "://")
	if schemeEnd == -1 {
		return c.databaseURL
	}

	afterScheme := c.databaseURL[schemeEnd+3:]

	lastAtIndex := strings.LastIndex(afterScheme, "@")
	if lastAtIndex == -1 {
		return c.databaseURL
	}

	userInfo := afterScheme[:lastAtIndex]

	colonIndex := strings.Index(userInfo, ":")
	if colonIndex == -1 {
		return c.databaseURL
	}

	username := userInfo[:colonIndex]
	password := userInfo[colonIndex+1:]

	if password == "" {
		return c.databaseURL
	}

	scheme := c.databaseURL[:schemeEnd]
	hostAndRest := afterScheme[lastAtIndex:]

	return scheme + "://" + username + ":***" + hostAndRest
}
