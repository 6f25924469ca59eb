package cache

import (
	"context"
	"errors"
	"regexp"
)

// ErrInvalidResultType is returned when a cached value is not of the type the
// caller asked for.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// KeySerializer builds a cache key from a namespace + arbitrary args.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService is the cache the repositories read through. The runtime cache
// (group lookups, pre-values) and the isolated entity caches are both
// CacheService instances.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error)
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	DeleteMatching(ctx context.Context, pattern *regexp.Regexp) error
}

// GetOrFetch is the typed form of CacheService.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}

// Get returns the typed cached value for key.
func Get[T any](ctx context.Context, service CacheService, key string) (T, bool) {
	var zero T
	v, ok := service.Get(ctx, key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// GetSliding reads key and, on a hit, stores the value again so its expiry
// starts over. On a miss fetchFn runs; a found value is stored, a value
// reported as not found is not.
func GetSliding[T any](ctx context.Context, service CacheService, key string, fetchFn func(ctx context.Context) (T, bool, error)) (T, bool, error) {
	if v, ok := Get[T](ctx, service, key); ok {
		service.Set(ctx, key, v)
		return v, true, nil
	}

	v, found, err := fetchFn(ctx)
	if err != nil || !found {
		var zero T
		return zero, false, err
	}
	service.Set(ctx, key, v)
	return v, true, nil
}
