package cacheinfra

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func testService(t *testing.T) *sturdycService {
	t.Helper()
	service, err := NewSturdycService(Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL 5m, got %v", cfg.TTL)
	}
	if cfg.EarlyRefresh == nil {
		t.Error("expected early refresh to be configured")
	}
	if cfg.MissingRecordStorage {
		t.Error("expected MissingRecordStorage to be off")
	}
}

func TestConfig_Validate(t *testing.T) {
	base := Config{Capacity: 10, NumShards: 2, TTL: time.Second, EvictionPercentage: 10}

	tests := []struct {
		name  string
		cfg   func(Config) Config
		field string
	}{
		{"zero capacity", func(c Config) Config { c.Capacity = 0; return c }, "Capacity"},
		{"zero shards", func(c Config) Config { c.NumShards = 0; return c }, "NumShards"},
		{"zero ttl", func(c Config) Config { c.TTL = 0; return c }, "TTL"},
		{"eviction over 100", func(c Config) Config { c.EvictionPercentage = 101; return c }, "EvictionPercentage"},
		{"negative refresh", func(c Config) Config {
			c.EarlyRefresh = &EarlyRefreshConfig{RetryBaseDelay: -1}
			return c
		}, "EarlyRefresh.RetryBaseDelay"},
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg(base).Validate()
			var ge *goerrors.Error
			if !errors.As(err, &ge) {
				t.Fatalf("expected *goerrors.Error, got %v", err)
			}
			if ge.Category != goerrors.CategoryValidation {
				t.Errorf("expected validation category, got %v", ge.Category)
			}
			var fields []string
			for _, fe := range ge.ValidationErrors {
				fields = append(fields, fe.Field)
			}
			if !slices.Contains(fields, tt.field) {
				t.Errorf("expected field %q in %v", tt.field, fields)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := Config{Capacity: 10, NumShards: 2, TTL: time.Second, EvictionPercentage: 10}
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options, got %d", got)
	}

	cfg = DefaultConfig()
	cfg.MissingRecordStorage = true
	cfg.EvictionInterval = time.Second
	if got := len(cfg.ToSturdycOptions()); got != 3 {
		t.Errorf("expected 3 options, got %d", got)
	}
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	service := testService(t)
	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		calls := 0
		fetch := func(ctx context.Context) (any, error) {
			calls++
			return "value", nil
		}

		for i := 0; i < 2; i++ {
			got, err := service.GetOrFetch(ctx, "k1", fetch)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != "value" {
				t.Errorf("expected value, got %v", got)
			}
		}
		if calls != 1 {
			t.Errorf("expected one fetch, got %d", calls)
		}
	})

	t.Run("fetch error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := service.GetOrFetch(ctx, "k2", func(ctx context.Context) (any, error) {
			return 0, boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		var calls atomic.Int32
		release := make(chan struct{})
		fetch := func(ctx context.Context) (any, error) {
			calls.Add(1)
			<-release
			return "shared", nil
		}

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if got, err := service.GetOrFetch(ctx, "k3", fetch); err != nil || got != "shared" {
					t.Errorf("GetOrFetch() = %v, %v", got, err)
				}
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		if n := calls.Load(); n != 1 {
			t.Errorf("expected one fetch, got %d", n)
		}
	})

	t.Run("nil fetch function", func(t *testing.T) {
		_, err := service.GetOrFetch(ctx, "bad", nil)
		if !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
			t.Errorf("expected bad input error, got %v", err)
		}
	})
}

func TestSturdycService_GetSet(t *testing.T) {
	service := testService(t)
	ctx := context.Background()

	if _, ok := service.Get(ctx, "missing"); ok {
		t.Fatal("expected miss")
	}

	service.Set(ctx, "group.Editors", 42)
	got, ok := service.Get(ctx, "group.Editors")
	if !ok || got != 42 {
		t.Errorf("expected 42, got %v (%v)", got, ok)
	}

	if err := service.Delete(ctx, "group.Editors"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := service.Get(ctx, "group.Editors"); ok {
		t.Error("expected entry to be deleted")
	}
}

func TestSturdycService_DeleteByPrefixAndPattern(t *testing.T) {
	service := testService(t)
	ctx := context.Background()

	for _, key := range []string{"uRepo_member_1", "uRepo_member_2", "uRepo_member_group_1", "UmbracoPreVal-5-1", "UmbracoPreVal-50-1"} {
		service.Set(ctx, key, key)
	}

	if err := service.DeleteByPrefix(ctx, "uRepo_member_group_"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if _, ok := service.Get(ctx, "uRepo_member_group_1"); ok {
		t.Error("expected group entry removed")
	}
	if _, ok := service.Get(ctx, "uRepo_member_1"); !ok {
		t.Error("expected member entry kept")
	}

	if err := service.DeleteMatching(ctx, regexp.MustCompile(`^UmbracoPreVal-5-`)); err != nil {
		t.Fatalf("DeleteMatching: %v", err)
	}
	if _, ok := service.Get(ctx, "UmbracoPreVal-5-1"); ok {
		t.Error("expected matching pre-value removed")
	}
	if _, ok := service.Get(ctx, "UmbracoPreVal-50-1"); !ok {
		t.Error("expected non-matching pre-value kept")
	}

	if err := service.DeleteMatching(ctx, nil); err != nil {
		t.Errorf("nil pattern should be a no-op, got %v", err)
	}
}
