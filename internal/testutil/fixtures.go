// Package testutil holds shared test fixtures.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/runstats/internal/store"
)

// NewStore opens an in-memory SQLite store that is closed when the test ends.
func NewStore(t testing.TB) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Clock is a manually advanced clock, safe for concurrent use.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a Clock reading 1970-01-01T00:16:40Z. Override with Set.
func NewClock() *Clock {
	return &Clock{t: time.Unix(1000, 0).UTC()}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}
