package cache

import (
	"time"

	"github.com/goliatone/go-content-repository/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config = cacheinfra.Config

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig = cacheinfra.EarlyRefreshConfig

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return cacheinfra.DefaultConfig()
}

// RuntimeConfig derives the configuration of a runtime cache whose entries
// live for ttl. Early refreshes are off because runtime entries are read
// with Get/Set and refreshed by sliding, not by background fetches.
func RuntimeConfig(base Config, ttl time.Duration) Config {
	cfg := base
	cfg.TTL = ttl
	cfg.EarlyRefresh = nil
	cfg.MissingRecordStorage = false
	return cfg
}

// NewCacheService constructs the default cache service implementation using the provided configuration.
func NewCacheService(cfg Config) (CacheService, error) {
	return cacheinfra.NewSturdycService(cfg)
}
