// Package config loads the repository configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-content-repository/cache"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CONTENTREPO_"

// Config is the full configuration of a repository container.
type Config struct {
	Database   DatabaseConfig
	Cache      cache.Config
	Repository RepositoryConfig
	Log        LogConfig
}

// DatabaseConfig selects the SQL driver and connection.
type DatabaseConfig struct {
	// Driver is "sqlite3" (mattn/go-sqlite3) or "sqlite" (modernc.org/sqlite).
	Driver       string
	DSN          string
	MaxOpenConns int
}

// RepositoryConfig holds the tuning knobs of the repositories.
type RepositoryConfig struct {
	// PropertyBatchSize caps the version ids per property data query.
	PropertyBatchSize int
	// RoleBatchSize caps the member ids per role membership query.
	RoleBatchSize int
	// GroupCacheTTL is the sliding expiration of group-by-name lookups.
	GroupCacheTTL time.Duration
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// Default returns the default configuration: an in-memory SQLite database
// and the default cache settings.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:       "sqlite3",
			DSN:          "file::memory:?cache=shared",
			MaxOpenConns: 1,
		},
		Cache:      cache.DefaultConfig(),
		Repository: DefaultRepositoryConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultRepositoryConfig returns the repository defaults.
func DefaultRepositoryConfig() RepositoryConfig {
	return RepositoryConfig{
		PropertyBatchSize: 2000,
		RoleBatchSize:     1000,
		GroupCacheTTL:     5 * time.Minute,
	}
}

// Load reads the configuration from the environment, falling back to
// Default for unset variables, and validates it.
func Load() (Config, error) {
	d := Default()
	cfg := Config{
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", d.Database.Driver),
			DSN:          getEnv("DB_DSN", d.Database.DSN),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
		},
		Cache: d.Cache,
		Repository: RepositoryConfig{
			PropertyBatchSize: getEnvInt("PROPERTY_BATCH_SIZE", d.Repository.PropertyBatchSize),
			RoleBatchSize:     getEnvInt("ROLE_BATCH_SIZE", d.Repository.RoleBatchSize),
			GroupCacheTTL:     getEnvDuration("GROUP_CACHE_TTL", d.Repository.GroupCacheTTL),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", d.Log.Level),
			Format: getEnv("LOG_FORMAT", d.Log.Format),
		},
	}
	cfg.Cache.Capacity = getEnvInt("CACHE_CAPACITY", d.Cache.Capacity)
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", d.Cache.TTL)
	cfg.Cache.MissingRecordStorage = getEnvBool("CACHE_MISSING_RECORDS", d.Cache.MissingRecordStorage)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Repository.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return c.Cache.Validate()
}

func (c DatabaseConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("sqlite3", "sqlite")),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.MaxOpenConns, validation.Min(0)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid database configuration")
	}
	return nil
}

func (c RepositoryConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.PropertyBatchSize, validation.Required, validation.Min(1)),
		validation.Field(&c.RoleBatchSize, validation.Required, validation.Min(1)),
		validation.Field(&c.GroupCacheTTL, validation.Required, validation.Min(time.Second)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid repository configuration")
	}
	return nil
}

func (c LogConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.Format, validation.In("text", "json")),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid log configuration")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
