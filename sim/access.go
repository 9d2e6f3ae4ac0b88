package sim

// CacheAccessSimulator replays data accesses against the host caches populated during
// placement and keeps hit/miss totals. Counters belong to the instance; create one per
// run (or call Reset) and pass it to every caller that replays accesses.
type CacheAccessSimulator struct {
	registry *CacheRegistry
	metrics  *PlacementMetrics

	totalAccesses int64
	totalHits     int64
}

// NewCacheAccessSimulator creates a simulator over registry. A nil metrics discards metrics.
func NewCacheAccessSimulator(registry *CacheRegistry, metrics *PlacementMetrics) *CacheAccessSimulator {
	if registry == nil {
		panic("NewCacheAccessSimulator: registry must not be nil")
	}
	if metrics == nil {
		metrics = NoopPlacementMetrics()
	}
	return &CacheAccessSimulator{registry: registry, metrics: metrics}
}

// Access simulates one read of item by vmID and reports whether it hit the cache of the
// VM's host. A miss inserts the item (capacity enforced).
//
// If the VM has no resolvable host the call is a no-op returning false: no counter and
// no store is touched, so the access does not count toward HitRate.
func (s *CacheAccessSimulator) Access(resolver HostResolver, vmID int, item string) bool {
	if resolver == nil {
		s.metrics.AccessUnresolved.Inc(1)
		return false
	}
	host, ok := resolver.ResolveHost(vmID)
	if !ok || host == nil {
		s.metrics.AccessUnresolved.Inc(1)
		return false
	}

	s.totalAccesses++
	store := s.registry.Store(host.ID())
	hit := store.Contains(item)
	if hit {
		s.totalHits++
		s.metrics.CacheHit.Inc(1)
	} else {
		before := store.Evicted()
		store.Insert(item)
		s.metrics.CacheMiss.Inc(1)
		if evicted := store.Evicted() - before; evicted > 0 {
			s.metrics.Evicted.Inc(evicted)
		}
	}
	s.metrics.HitRate.Update(s.HitRate())
	return hit
}

// HitRate returns totalHits/totalAccesses, or 0.0 before any resolved access.
func (s *CacheAccessSimulator) HitRate() float64 {
	if s.totalAccesses == 0 {
		return 0.0
	}
	return float64(s.totalHits) / float64(s.totalAccesses)
}

// TotalAccesses returns the number of resolved accesses.
func (s *CacheAccessSimulator) TotalAccesses() int64 { return s.totalAccesses }

// TotalHits returns the number of resolved accesses that hit.
func (s *CacheAccessSimulator) TotalHits() int64 { return s.totalHits }

// Reset zeroes the counters. Cache contents are left alone.
func (s *CacheAccessSimulator) Reset() {
	s.totalAccesses = 0
	s.totalHits = 0
}
