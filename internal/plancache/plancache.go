// Package plancache is the fingerprint-keyed plan cache named in
// spec.md sections 4.I and 5: "shared, guarded by a single-writer lock;
// reads are lock-free or read-locked." Correctness of the engine must
// not depend on cache hits -- this is purely an optimization.
//
// Guarded with the same sync.RWMutex-over-a-map idiom the teacher's
// provider registry used for its own hot-reloadable set
// (internal/providers/registry.go in the teacher repository), backed by
// a bounded LRU so a long-running process does not accumulate an
// unbounded number of distinct fingerprints.
package plancache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/anthropics/lix/internal/model"
)

const defaultCapacity = 512

// Cache is a bounded, concurrency-safe fingerprint -> ExecutionPlan
// cache.
type Cache struct {
	mu    sync.RWMutex
	inner *lru.Cache[string, *model.ExecutionPlan]
}

// New creates a Cache with the given capacity (defaultCapacity if <= 0).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	inner, _ := lru.New[string, *model.ExecutionPlan](capacity)
	return &Cache{inner: inner}
}

// Get returns the cached plan for fingerprint, if any.
func (c *Cache) Get(fingerprint string) (*model.ExecutionPlan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Get(fingerprint)
}

// Put stores plan under its own fingerprint.
func (c *Cache) Put(plan *model.ExecutionPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(plan.Fingerprint, plan)
}

// Len reports how many plans are currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Len()
}
