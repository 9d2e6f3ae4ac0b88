package sim

import "math"

// Scoring weights. Fixed, not configuration.
const (
	CacheAffinityWeight = 0.6
	LatencyWeight       = 0.3
	LoadWeight          = 0.1
)

const (
	// coldStartEmptyAffinity and coldStartWarmAffinity apply when a VM has no known pattern.
	coldStartEmptyAffinity = 0.3
	coldStartWarmAffinity  = 0.7

	// latencyDecayMs is the e-folding scale of the latency score.
	latencyDecayMs = 10.0

	// targetUtilization is where the load score peaks.
	targetUtilization = 0.5
)

// ScoreComponents is the per-call breakdown of a placement score. Never persisted.
type ScoreComponents struct {
	CacheAffinity float64
	Latency       float64
	Load          float64
	Total         float64
}

// CachePlacementScorer combines cache affinity, predicted latency and load balance into
// one scalar. Stateless; all inputs are passed per call.
type CachePlacementScorer struct{}

// Score evaluates host for a workload requiring the given items.
func (CachePlacementScorer) Score(host Host, store *CacheStore, predictedLatencyMs float64, required []string) ScoreComponents {
	c := ScoreComponents{
		CacheAffinity: cacheAffinity(store, required),
		Latency:       latencyScore(predictedLatencyMs),
		Load:          loadScore(host),
	}
	c.Total = CacheAffinityWeight*c.CacheAffinity + LatencyWeight*c.Latency + LoadWeight*c.Load
	return c
}

// cacheAffinity is the fraction of required items already cached, in [0,1].
func cacheAffinity(store *CacheStore, required []string) float64 {
	if len(required) == 0 {
		if store.Len() == 0 {
			return coldStartEmptyAffinity
		}
		return coldStartWarmAffinity
	}
	return float64(store.Overlap(required)) / float64(len(required))
}

// latencyScore decays exponentially with predicted latency: exp(-latency/10).
func latencyScore(predictedLatencyMs float64) float64 {
	return math.Exp(-predictedLatencyMs / latencyDecayMs)
}

// loadScore peaks at 1.0 for 50% average utilization and falls linearly either side.
// Range (-0.5, 1].
func loadScore(host Host) float64 {
	avg := (host.CPUUtilization() + host.RAMUtilization() + host.BWUtilization()) / 3.0
	return 1.0 - math.Abs(avg-targetUtilization)
}
