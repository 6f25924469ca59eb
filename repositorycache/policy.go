package repositorycache

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strconv"

	"github.com/goliatone/go-content-repository/cache"
)

// Policy decides how a repository's entity reads are cached and which cache
// entries a write invalidates. Fetch and persist functions run against the
// repository's storage.
type Policy[T any] interface {
	Get(ctx context.Context, id int, fetch func(context.Context, int) (T, bool, error)) (T, bool, error)
	GetAll(ctx context.Context, ids []int, fetch func(context.Context, []int) ([]T, error)) ([]T, error)
	Exists(ctx context.Context, id int, fetch func(context.Context, int) (bool, error)) (bool, error)
	// Lookup caches a read by a secondary key such as an alias or a name.
	Lookup(ctx context.Context, method string, args []any, fetch func(context.Context) (T, bool, error)) (T, bool, error)
	Save(ctx context.Context, entity T, persist func(context.Context, T) error) error
	Delete(ctx context.Context, entity T, persist func(context.Context, T) error) error
	ClearAll(ctx context.Context) error
}

// Options configures a DefaultPolicy.
type Options[T any] struct {
	// IDOf returns the storage id of an entity.
	IDOf func(T) int
	// Clone returns an independent copy. Entities go in and out of the cache
	// as clones so callers never share the cached instance.
	Clone func(T) T
	// KeySerializer renders Lookup keys. Defaults to cache.NewDefaultKeySerializer.
	KeySerializer cache.KeySerializer
}

// DefaultPolicy caches entities one by one under "uRepo_{type}_{id}" keys.
// Writes never insert into the cache; they drop the written entity and every
// lookup entry of the type, so a rolled back transaction cannot leave its
// state behind.
type DefaultPolicy[T any] struct {
	cache      cache.CacheService
	namespace  string
	idOf       func(T) int
	clone      func(T) T
	serializer cache.KeySerializer
	idPattern  *regexp.Regexp
}

// NewDefaultPolicy builds a policy for T. The key namespace is the snake
// case name of T's underlying type.
func NewDefaultPolicy[T any](svc cache.CacheService, opts Options[T]) *DefaultPolicy[T] {
	ns := Namespace[T]()
	p := &DefaultPolicy[T]{
		cache:      svc,
		namespace:  ns,
		idOf:       opts.IDOf,
		clone:      opts.Clone,
		serializer: opts.KeySerializer,
		idPattern:  regexp.MustCompile("^" + regexp.QuoteMeta(cache.EntityPrefix(ns)) + `-?\d+$`),
	}
	if p.clone == nil {
		p.clone = func(v T) T { return v }
	}
	if p.serializer == nil {
		p.serializer = cache.NewDefaultKeySerializer()
	}
	return p
}

// Namespace is the cache namespace of T: "member" for *models.Member,
// "member_group" for *models.MemberGroup.
func Namespace[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return toSnake(t.Name())
}

func (p *DefaultPolicy[T]) Namespace() string { return p.namespace }

// Key is the cache key of the entity with the given id.
func (p *DefaultPolicy[T]) Key(id int) string {
	return cache.EntityKey(p.namespace, strconv.Itoa(id))
}

func (p *DefaultPolicy[T]) lookupNamespace(method string) string {
	return cache.EntityKeyPrefix + p.namespace + cache.KeySeparator + method
}

func (p *DefaultPolicy[T]) lookupPrefix() string {
	return cache.EntityKeyPrefix + p.namespace + cache.KeySeparator
}

func (p *DefaultPolicy[T]) Get(ctx context.Context, id int, fetch func(context.Context, int) (T, bool, error)) (T, bool, error) {
	if v, ok := cache.Get[T](ctx, p.cache, p.Key(id)); ok {
		return p.clone(v), true, nil
	}

	v, found, err := fetch(ctx, id)
	if err != nil || !found {
		var zero T
		return zero, false, err
	}
	p.cache.Set(ctx, p.Key(id), p.clone(v))
	return v, true, nil
}

// GetAll serves ids from the cache when every one of them is cached and
// otherwise fetches them together. With no ids it always fetches; the
// fetched entities are cached one by one.
func (p *DefaultPolicy[T]) GetAll(ctx context.Context, ids []int, fetch func(context.Context, []int) ([]T, error)) ([]T, error) {
	if len(ids) > 0 {
		out := make([]T, 0, len(ids))
		for _, id := range ids {
			v, ok := cache.Get[T](ctx, p.cache, p.Key(id))
			if !ok {
				out = nil
				break
			}
			out = append(out, p.clone(v))
		}
		if out != nil {
			return out, nil
		}
	}

	items, err := fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	if p.idOf != nil {
		for _, v := range items {
			p.cache.Set(ctx, p.Key(p.idOf(v)), p.clone(v))
		}
	}
	return items, nil
}

func (p *DefaultPolicy[T]) Exists(ctx context.Context, id int, fetch func(context.Context, int) (bool, error)) (bool, error) {
	if _, ok := p.cache.Get(ctx, p.Key(id)); ok {
		return true, nil
	}
	return fetch(ctx, id)
}

func (p *DefaultPolicy[T]) Lookup(ctx context.Context, method string, args []any, fetch func(context.Context) (T, bool, error)) (T, bool, error) {
	key := p.serializer.SerializeKey(p.lookupNamespace(method), args...)
	if v, ok := cache.Get[T](ctx, p.cache, key); ok {
		return p.clone(v), true, nil
	}

	v, found, err := fetch(ctx)
	if err != nil || !found {
		var zero T
		return zero, false, err
	}
	p.cache.Set(ctx, key, p.clone(v))
	return v, true, nil
}

func (p *DefaultPolicy[T]) Save(ctx context.Context, entity T, persist func(context.Context, T) error) error {
	err := persist(ctx, entity)
	return errors.Join(err, p.invalidate(ctx, entity))
}

func (p *DefaultPolicy[T]) Delete(ctx context.Context, entity T, persist func(context.Context, T) error) error {
	err := persist(ctx, entity)
	return errors.Join(err, p.invalidate(ctx, entity))
}

// ClearAll drops every entity and lookup entry of the type.
func (p *DefaultPolicy[T]) ClearAll(ctx context.Context) error {
	return errors.Join(
		p.cache.DeleteMatching(ctx, p.idPattern),
		p.cache.DeleteByPrefix(ctx, p.lookupPrefix()),
	)
}

func (p *DefaultPolicy[T]) invalidate(ctx context.Context, entity T) error {
	var errs []error
	if p.idOf != nil {
		if id := p.idOf(entity); id != 0 {
			errs = append(errs, p.cache.Delete(ctx, p.Key(id)))
		}
	}
	errs = append(errs, p.cache.DeleteByPrefix(ctx, p.lookupPrefix()))
	return errors.Join(errs...)
}

// NoCachePolicy reads and writes straight through.
type NoCachePolicy[T any] struct{}

func (NoCachePolicy[T]) Get(ctx context.Context, id int, fetch func(context.Context, int) (T, bool, error)) (T, bool, error) {
	return fetch(ctx, id)
}

func (NoCachePolicy[T]) GetAll(ctx context.Context, ids []int, fetch func(context.Context, []int) ([]T, error)) ([]T, error) {
	return fetch(ctx, ids)
}

func (NoCachePolicy[T]) Exists(ctx context.Context, id int, fetch func(context.Context, int) (bool, error)) (bool, error) {
	return fetch(ctx, id)
}

func (NoCachePolicy[T]) Lookup(ctx context.Context, method string, args []any, fetch func(context.Context) (T, bool, error)) (T, bool, error) {
	return fetch(ctx)
}

func (NoCachePolicy[T]) Save(ctx context.Context, entity T, persist func(context.Context, T) error) error {
	return persist(ctx, entity)
}

func (NoCachePolicy[T]) Delete(ctx context.Context, entity T, persist func(context.Context, T) error) error {
	return persist(ctx, entity)
}

func (NoCachePolicy[T]) ClearAll(ctx context.Context) error { return nil }
