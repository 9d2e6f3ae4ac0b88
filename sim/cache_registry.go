package sim

// CacheRegistry owns one CacheStore per host. It is the single source of truth shared by
// placement (KaminoPolicy) and access replay (CacheAccessSimulator); nothing else writes it.
//
// Not thread-safe. All calls are expected from the single simulation goroutine.
type CacheRegistry struct {
	capacity int
	stores   map[string]*CacheStore
	order    []string // host IDs in first-seen order
}

// NewCacheRegistry creates a registry whose stores all have the given capacity.
// A non-positive capacity selects DefaultCacheCapacity.
func NewCacheRegistry(capacity int) *CacheRegistry {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &CacheRegistry{
		capacity: capacity,
		stores:   make(map[string]*CacheStore),
	}
}

// Store returns the host's store, creating an empty one on first use.
func (r *CacheRegistry) Store(hostID string) *CacheStore {
	if cs, ok := r.stores[hostID]; ok {
		return cs
	}
	cs := NewCacheStore(r.capacity)
	r.stores[hostID] = cs
	r.order = append(r.order, hostID)
	return cs
}

// Lookup returns the host's store without creating it.
func (r *CacheRegistry) Lookup(hostID string) (*CacheStore, bool) {
	cs, ok := r.stores[hostID]
	return cs, ok
}

// HostIDs returns the known host IDs in first-seen order.
func (r *CacheRegistry) HostIDs() []string {
	return append([]string(nil), r.order...)
}

// Capacity returns the per-store capacity.
func (r *CacheRegistry) Capacity() int { return r.capacity }
