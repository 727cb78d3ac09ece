package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a fetched inventory is served before refetching.
const DefaultTTL = 5 * time.Minute

// Entry is a cached inventory with the time it was fetched.
type Entry struct {
	Value     *model.Inventory
	FetchedAt time.Time
	TTL       time.Duration
}

// IsStale reports whether the entry must be refetched at the given time.
// An empty entry is always stale.
func (e Entry) IsStale(now time.Time) bool {
	if e.Value == nil {
		return true
	}
	return now.Sub(e.FetchedAt) >= e.TTL
}

// Cache serves the aggregated inventory from a Source, refetching after the
// TTL. Refreshes are not coordinated: two callers that find the entry stale
// both fetch, and whichever finishes last is kept.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Logger

	mu    sync.Mutex
	entry Entry
}

// NewCache creates a cache over src. A non-positive ttl uses DefaultTTL.
func NewCache(src Source, ttl time.Duration, log *logrus.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{source: src, ttl: ttl, now: time.Now, log: log}
}

// WithClock replaces the clock used to judge staleness.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Snapshot returns the current entry without fetching.
func (c *Cache) Snapshot() Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

// Get returns the cached inventory, fetching it when stale. When the fetch
// fails the previous inventory is served if there is one; otherwise an empty
// inventory is returned together with the error so callers can show it.
func (c *Cache) Get(ctx context.Context) (model.Inventory, error) {
	now := c.now()
	entry := c.Snapshot()
	if !entry.IsStale(now) {
		return *entry.Value, nil
	}

	records, err := c.source.Fetch(ctx)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"module":   "inventory",
			"funcName": "Cache.Get",
			"stale":    entry.Value != nil,
		}).Warn("inventory fetch failed: " + err.Error())
		if entry.Value != nil {
			return *entry.Value, nil
		}
		return model.Inventory{}, err
	}

	inv := Build(records)
	c.mu.Lock()
	c.entry = Entry{Value: &inv, FetchedAt: now, TTL: c.ttl}
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"module":  "inventory",
		"records": len(records),
		"groups":  len(inv.Groups),
	}).Debug("inventory refreshed")
	return inv, nil
}

// Invalidate drops the cached entry so the next Get fetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = Entry{}
	c.mu.Unlock()
}
