package discover

import "sync"

// ancestorCache is the in-memory, advisory ancestor-exists cache shared
// across register/deregister calls on a Registry. Reads (the short-circuit
// check) vastly outnumber writes (insert after create), hence the RWMutex.
// A false positive only skips a creation attempt; the subsequent create of
// a deeper node still succeeds, so no invariant is violated.
type ancestorCache struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

func newAncestorCache() *ancestorCache {
	return &ancestorCache{set: make(map[string]struct{})}
}

func (c *ancestorCache) has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.set[path]
	return ok
}

func (c *ancestorCache) insert(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set[path] = struct{}{}
}
