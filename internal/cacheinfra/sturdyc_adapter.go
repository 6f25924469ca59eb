package cacheinfra

import (
	"context"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/viccon/sturdyc"
)

// Config sizes one sturdyc client. The content repository runs two kinds of
// client off it: isolated entity caches and the shared runtime cache.
type Config struct {
	// Capacity is the maximum number of entries held.
	Capacity int
	// NumShards must be greater than 0.
	NumShards int
	// TTL applies to every entry the client stores.
	TTL time.Duration
	// EvictionPercentage is the share of entries dropped when full (1-100).
	EvictionPercentage int
	// EarlyRefresh is nil when background refreshes are off.
	EarlyRefresh *EarlyRefreshConfig
	// MissingRecordStorage makes GetOrFetch remember keys whose fetch found nothing.
	MissingRecordStorage bool
	// EvictionInterval of zero keeps the sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig mirrors sturdyc.WithEarlyRefreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig is the configuration used for entity caches.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: false,
	}
}

// ToSturdycOptions maps the optional settings. Capacity, shards, TTL and
// eviction percentage go straight to sturdyc.New.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks the sizing and refresh settings.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.EarlyRefresh),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache configuration")
	}
	return nil
}

// Validate rejects negative refresh durations.
func (r EarlyRefreshConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&r.MaxAsyncRefreshTime, validation.Min(r.MinAsyncRefreshTime)),
		validation.Field(&r.SyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&r.RetryBaseDelay, validation.Min(time.Duration(0))),
	)
}

// sturdycService adapts a sturdyc client to cache.CacheService.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds the client.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	return &sturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key, running fetchFn on a miss.
// Concurrent misses on one key share a single fetch.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	if fetchFn == nil {
		return nil, goerrors.New("fetch function is required", goerrors.CategoryBadInput).
			WithTextCode("NIL_FETCH_FN").
			WithMetadata(map[string]any{"key": key})
	}
	return s.client.GetOrFetch(ctx, key, fetchFn)
}

func (s *sturdycService) Get(ctx context.Context, key string) (any, bool) {
	return s.client.Get(key)
}

// Set stores value under key with a fresh TTL.
func (s *sturdycService) Set(ctx context.Context, key string, value any) {
	s.client.Set(key, value)
}

func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	return s.deleteWhere(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

// DeleteMatching removes every key the pattern matches. A nil pattern
// matches nothing.
func (s *sturdycService) DeleteMatching(ctx context.Context, pattern *regexp.Regexp) error {
	if pattern == nil {
		return nil
	}
	return s.deleteWhere(pattern.MatchString)
}

func (s *sturdycService) deleteWhere(match func(string) bool) error {
	for _, key := range s.client.ScanKeys() {
		if match(key) {
			s.client.Delete(key)
		}
	}
	return nil
}
