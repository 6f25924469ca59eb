// Package testsupport holds the helpers shared by the package tests: an
// in-memory database with the content schema, a deterministic clock and
// fixture loading.
package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/config"
	"github.com/goliatone/go-content-repository/internal/database"
	"github.com/goliatone/go-content-repository/persistence/schema"
)

// NewTestDB opens a private in-memory SQLite database, creates the content
// schema and closes the database when the test ends. The pool holds a single
// connection, so the database lives as long as the handle.
func NewTestDB(t testing.TB) *bun.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver:       database.DriverMattn,
		DSN:          ":memory:",
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := schema.Create(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

// Clock returns a UTC clock starting at start that moves forward by step on
// every call.
func Clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start.UTC()
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

// DefaultClock starts at 2024-01-01 00:00:00 UTC and ticks one second per call.
func DefaultClock() func() time.Time {
	return Clock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
}

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file in the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// MemberSeed describes a member created by a test.
type MemberSeed struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Groups   []string `json:"groups"`
}

// LoadMemberSeeds reads member seeds from a JSON fixture.
func LoadMemberSeeds(t testing.TB, path string) []MemberSeed {
	t.Helper()

	var seeds []MemberSeed
	LoadFixtureJSON(t, path, &seeds)
	return seeds
}
