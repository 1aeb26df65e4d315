package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long a cached tenant config is served before the
// next read goes through to the store.
const DefaultTTL = 5 * time.Minute

// Cache is a read-through cache over a Fetcher.
//
// Within the TTL, Get returns the cached value with no remote call. On
// miss or expiry exactly one fetch runs per tenant (concurrent readers
// for the same tenant coalesce onto it). Entries are replaced atomically
// as a (value, timestamp) pair, so readers never observe a half-written
// entry.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// entry is one cached result. value == nil is a cached "not found".
// The pending channel coalesces concurrent fetches for one tenant.
type entry struct {
	value     *Config
	fetchedAt time.Time
	err       error

	pending chan struct{} // closed when the fetch completes; nil when settled
}

// NewCache creates a cache over the fetcher. ttl <= 0 selects DefaultTTL.
func NewCache(fetcher Fetcher, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the tenant's settings, fetching through on miss or expiry.
// A nil result with nil error means the tenant does not exist (and that
// answer is cached for the TTL as well).
func (c *Cache) Get(ctx context.Context, tenantID string) (*Config, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id cannot be empty")
	}

	c.mu.Lock()
	e, ok := c.entries[tenantID]
	if ok && e.pending == nil && e.err == nil && c.now().Sub(e.fetchedAt) < c.ttl {
		value := e.value
		c.mu.Unlock()
		return value, nil
	}
	if ok && e.pending != nil {
		// A fetch for this tenant is already in flight; wait for it.
		// Closing the channel publishes the entry's fields, so reading
		// them afterwards without the lock is safe.
		pending := e.pending
		c.mu.Unlock()

		select {
		case <-pending:
			return e.value, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Miss, expiry, or a previous failed fetch: this caller fetches.
	e = &entry{pending: make(chan struct{})}
	c.entries[tenantID] = e
	c.mu.Unlock()

	value, err := c.fetcher.FetchTenant(ctx, tenantID)

	c.mu.Lock()
	e.value = value
	e.err = err
	e.fetchedAt = c.now()
	pending := e.pending
	e.pending = nil
	if err != nil {
		// Failed fetches are not cached; the next Get retries. The
		// delete only applies if Invalidate has not already replaced
		// the entry.
		if c.entries[tenantID] == e {
			delete(c.entries, tenantID)
		}
	}
	c.mu.Unlock()
	close(pending)

	return value, err
}

// Invalidate drops the tenant's entry. Called by any write path to the
// underlying record; the next Get forces a fresh fetch.
func (c *Cache) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
}

// Len returns the number of cached entries, expired or not. Exposed for
// the metrics collector.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
