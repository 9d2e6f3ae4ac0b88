// Tracks placement and cache-replay counters through a tally scope.

package sim

import (
	"github.com/uber-go/tally/v4"
)

// PlacementMetrics contains the metrics emitted by placement policies and cache replay.
type PlacementMetrics struct {
	// Placed counts VMs bound to a host.
	Placed tally.Counter
	// Rejected counts VMs for which no suitable host existed.
	Rejected tally.Counter
	// PredictedLatency is the predicted latency (ms) of the most recently chosen host.
	PredictedLatency tally.Gauge

	// CacheHit and CacheMiss count resolved data accesses.
	CacheHit  tally.Counter
	CacheMiss tally.Counter
	// AccessUnresolved counts accesses skipped because the VM had no host.
	// These never enter the hit-rate denominator.
	AccessUnresolved tally.Counter
	// HitRate is the running cache hit rate of the replay.
	HitRate tally.Gauge
	// Evicted counts items evicted by access-driven insertions.
	Evicted tally.Counter
}

// NewPlacementMetrics returns a PlacementMetrics with all metrics initialized and rooted
// below the given scope.
func NewPlacementMetrics(scope tally.Scope) *PlacementMetrics {
	placementScope := scope.SubScope("placement")
	cacheScope := scope.SubScope("cache")

	return &PlacementMetrics{
		Placed:           placementScope.Tagged(map[string]string{"result": "placed"}).Counter("decisions"),
		Rejected:         placementScope.Tagged(map[string]string{"result": "rejected"}).Counter("decisions"),
		PredictedLatency: placementScope.Gauge("predicted_latency_ms"),

		CacheHit:         cacheScope.Tagged(map[string]string{"result": "hit"}).Counter("accesses"),
		CacheMiss:        cacheScope.Tagged(map[string]string{"result": "miss"}).Counter("accesses"),
		AccessUnresolved: cacheScope.Counter("unresolved"),
		HitRate:          cacheScope.Gauge("hit_rate"),
		Evicted:          cacheScope.Counter("evicted"),
	}
}

// NoopPlacementMetrics returns metrics that discard everything.
func NoopPlacementMetrics() *PlacementMetrics {
	return NewPlacementMetrics(tally.NoopScope)
}
