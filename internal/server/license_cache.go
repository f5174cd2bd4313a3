package server

import (
	"sync"
	"time"

	"github.com/lokapasar/lokapasar/pkg/tenantctx"
)

// gateOutcome is a cached license decision. Blocked outcomes are cached too so
// an unlicensed tenant cannot hammer the license store, but store errors are
// never cached.
type gateOutcome struct {
	allowed bool
	tenant  tenantctx.Tenant
}

type licenseCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]licenseCacheEntry
}

type licenseCacheEntry struct {
	expiresAt time.Time
	outcome   gateOutcome
}

func newLicenseCache(ttl time.Duration) *licenseCache {
	return &licenseCache{
		ttl:   ttl,
		items: make(map[string]licenseCacheEntry),
	}
}

func (c *licenseCache) Get(key string) (gateOutcome, bool) {
	if c == nil || key == "" {
		return gateOutcome{}, false
	}
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return gateOutcome{}, false
	}
	if time.Now().UTC().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return gateOutcome{}, false
	}
	return entry.outcome, true
}

func (c *licenseCache) Set(key string, outcome gateOutcome) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	c.items[key] = licenseCacheEntry{
		expiresAt: time.Now().UTC().Add(c.ttl),
		outcome:   outcome,
	}
	c.mu.Unlock()
}
