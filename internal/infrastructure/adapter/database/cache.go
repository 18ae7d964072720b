package database

import (
	"sync"
	"time"

	"github.com/regsuite/registry-core/internal/domain/entity"
	coreport "github.com/regsuite/registry-core/internal/domain/port/core"
)

// resourceCache is a small read-through cache of resources keyed by repository
// id. Each store carries its own cache; every successful write invalidates the
// mutated identity in both, so a hit can only be stale for at most the TTL
// under concurrent writers from other processes.
//
// Entries are generation-stamped: a reader snapshots the key's generation
// before going to the store and a Put only lands while that generation is
// still current. A write that invalidates the key mid-read bumps the
// generation, so the in-flight read cannot re-insert the pre-write row
type resourceCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   coreport.Clock
	entries map[string]cacheEntry
	gens    map[string]uint64
}

type cacheEntry struct {
	resource  *entity.Resource
	expiresAt time.Time
}

func newResourceCache(ttl time.Duration, clock coreport.Clock) *resourceCache {
	return &resourceCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
	}
}

// Get returns a copy of the cached resource, if present and fresh
func (c *resourceCache) Get(repoID string) (*entity.Resource, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[repoID]
	c.mu.RUnlock()
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.resource.Clone(), true
}

// Generation returns the key's current generation, to be captured before the
// store read that backs a Put
func (c *resourceCache) Generation(repoID string) uint64 {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[repoID]
}

// Put stores a copy of the resource unless the key was invalidated after gen
// was captured
func (c *resourceCache) Put(resource *entity.Resource, gen uint64) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[resource.RepoID] != gen {
		return
	}
	c.entries[resource.RepoID] = cacheEntry{
		resource:  resource.Clone(),
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Invalidate drops the entry for the identity and advances its generation so
// racing Puts from reads that started before the write are discarded
func (c *resourceCache) Invalidate(repoID string) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	delete(c.entries, repoID)
	c.gens[repoID]++
	c.mu.Unlock()
}
