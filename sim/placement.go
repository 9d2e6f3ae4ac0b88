package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
)

// ErrPlacementRejected is returned when no host satisfies the suitability predicate.
// Recoverable: the caller decides whether to retry later or drop the VM.
var ErrPlacementRejected = errors.New("no suitable host")

const (
	// baseLatencyMs is the predicted latency of an idle host.
	baseLatencyMs = 5.0
	// loadLatencySlopeMs is the extra predicted latency at 100% CPU utilization.
	loadLatencySlopeMs = 20.0
)

// PlacementDecision is the outcome of a successful placement.
type PlacementDecision struct {
	Host   Host                       // chosen host
	Reason string                     // human-readable explanation
	Scores map[string]float64         // host ID → total score (nil for policies without scoring)
	Detail map[string]ScoreComponents // host ID → score breakdown (nil for policies without scoring)
}

// PlacementPolicy picks a host for a VM among the given hosts, in list order.
// Returns an error wrapping ErrPlacementRejected when no host qualifies.
type PlacementPolicy interface {
	PlaceVM(vm VM, hosts []Host, suitable SuitabilityFunc) (PlacementDecision, error)
	Name() string
	// CacheAware reports whether the policy warms host caches on placement.
	CacheAware() bool
}

// PolicyDeps carries the collaborators a placement policy may need.
// Zero-valued fields are replaced with defaults by NewPlacementPolicy.
type PolicyDeps struct {
	Registry *CacheRegistry
	Metrics  *PlacementMetrics
	RNG      *PartitionedRNG
}

// KaminoPolicy places each VM on the suitable host with the highest combined cache
// affinity, latency and load score, then warms that host's cache with the VM's pattern
// and refreshes its predicted latency.
//
// Ties are broken by first occurrence in host-list order (strict >).
type KaminoPolicy struct {
	registry  *CacheRegistry
	metrics   *PlacementMetrics
	scorer    CachePlacementScorer
	generator PatternGenerator

	patterns     map[int][]string   // VM ID → access pattern, computed once, never invalidated
	latency      map[string]float64 // host ID → predicted latency (ms)
	latencyOrder []string           // host IDs in first-seen order
}

// NewKaminoPolicy creates a KaminoPolicy backed by registry. A nil metrics discards metrics.
func NewKaminoPolicy(registry *CacheRegistry, metrics *PlacementMetrics) *KaminoPolicy {
	if registry == nil {
		panic("NewKaminoPolicy: registry must not be nil")
	}
	if metrics == nil {
		metrics = NoopPlacementMetrics()
	}
	return &KaminoPolicy{
		registry:  registry,
		metrics:   metrics,
		generator: NewVMPatternGenerator(),
		patterns:  make(map[int][]string),
		latency:   make(map[string]float64),
	}
}

// Name implements PlacementPolicy.
func (k *KaminoPolicy) Name() string { return "kamino" }

// CacheAware implements PlacementPolicy.
func (k *KaminoPolicy) CacheAware() bool { return true }

// PlaceVM implements PlacementPolicy.
func (k *KaminoPolicy) PlaceVM(vm VM, hosts []Host, suitable SuitabilityFunc) (PlacementDecision, error) {
	if len(hosts) == 0 {
		return k.reject(vm, "empty host list")
	}
	for _, h := range hosts {
		k.registry.Store(h.ID())
		if _, ok := k.latency[h.ID()]; !ok {
			k.latency[h.ID()] = 0.0
			k.latencyOrder = append(k.latencyOrder, h.ID())
		}
	}
	pattern := k.Pattern(vm.ID)

	scores := make(map[string]float64, len(hosts))
	detail := make(map[string]ScoreComponents, len(hosts))
	bestScore := math.Inf(-1)
	bestIdx := -1
	for i, h := range hosts {
		if suitable != nil && !suitable(h, vm) {
			continue
		}
		c := k.scorer.Score(h, k.registry.Store(h.ID()), k.latency[h.ID()], pattern)
		scores[h.ID()] = c.Total
		detail[h.ID()] = c
		if c.Total > bestScore {
			bestScore = c.Total
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return k.reject(vm, "no host passed the suitability check")
	}

	winner := hosts[bestIdx]
	k.registry.Store(winner.ID()).BulkInsert(pattern)
	predicted := baseLatencyMs + loadLatencySlopeMs*winner.CPUUtilization()
	k.latency[winner.ID()] = predicted

	k.metrics.Placed.Inc(1)
	k.metrics.PredictedLatency.Update(predicted)
	logrus.Debugf("kamino: vm %d -> host %s (score=%.4f, affinity=%.2f, predicted latency=%.2fms)",
		vm.ID, winner.ID(), bestScore, detail[winner.ID()].CacheAffinity, predicted)

	return PlacementDecision{
		Host:   winner,
		Reason: fmt.Sprintf("kamino (score=%.3f)", bestScore),
		Scores: scores,
		Detail: detail,
	}, nil
}

func (k *KaminoPolicy) reject(vm VM, why string) (PlacementDecision, error) {
	k.metrics.Rejected.Inc(1)
	logrus.Debugf("kamino: vm %d rejected: %s", vm.ID, why)
	return PlacementDecision{}, fmt.Errorf("placing vm %d: %s: %w", vm.ID, why, ErrPlacementRejected)
}

// Pattern returns the VM's access pattern, generating and memoising it on first use.
func (k *KaminoPolicy) Pattern(vmID int) []string {
	if p, ok := k.patterns[vmID]; ok {
		return p
	}
	p := k.generator.Pattern(vmID)
	k.patterns[vmID] = p
	return p
}

// SetPattern overrides the access pattern of a VM that has not been placed yet.
// An empty pattern makes scoring fall back to the cold-start affinity heuristic.
func (k *KaminoPolicy) SetPattern(vmID int, items []string) {
	k.patterns[vmID] = append([]string(nil), items...)
}

// PrewarmHostCache inserts item into the host's cache without enforcing capacity,
// creating the store if the host has not been seen yet.
func (k *KaminoPolicy) PrewarmHostCache(hostID, item string) {
	k.registry.Store(hostID).Prewarm(item)
}

// PredictedLatency returns the host's predicted latency in ms and whether the host is known.
func (k *KaminoPolicy) PredictedLatency(hostID string) (float64, bool) {
	l, ok := k.latency[hostID]
	return l, ok
}

// AveragePredictedLatency returns the mean predicted latency over every host the policy
// has seen, or 0.0 if it has seen none.
func (k *KaminoPolicy) AveragePredictedLatency() float64 {
	if len(k.latencyOrder) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, id := range k.latencyOrder {
		sum += k.latency[id]
	}
	return sum / float64(len(k.latencyOrder))
}

// Registry returns the cache registry shared with access replay.
func (k *KaminoPolicy) Registry() *CacheRegistry { return k.registry }

// FirstFit places each VM on the first suitable host in list order.
type FirstFit struct {
	metrics *PlacementMetrics
}

// Name implements PlacementPolicy.
func (ff *FirstFit) Name() string { return "first-fit" }

// CacheAware implements PlacementPolicy.
func (ff *FirstFit) CacheAware() bool { return false }

// PlaceVM implements PlacementPolicy.
func (ff *FirstFit) PlaceVM(vm VM, hosts []Host, suitable SuitabilityFunc) (PlacementDecision, error) {
	for i, h := range hosts {
		if suitable == nil || suitable(h, vm) {
			ff.metrics.Placed.Inc(1)
			return PlacementDecision{Host: h, Reason: fmt.Sprintf("first-fit[%d]", i)}, nil
		}
	}
	ff.metrics.Rejected.Inc(1)
	return PlacementDecision{}, fmt.Errorf("placing vm %d: %w", vm.ID, ErrPlacementRejected)
}

// LeastUsed places each VM on the suitable host with the fewest allocated PEs, falling back
// to CPU utilization for hosts that do not expose allocations.
// Ties are broken by first occurrence in host-list order.
type LeastUsed struct {
	metrics *PlacementMetrics
}

// Name implements PlacementPolicy.
func (lu *LeastUsed) Name() string { return "least-used" }

// CacheAware implements PlacementPolicy.
func (lu *LeastUsed) CacheAware() bool { return false }

// PlaceVM implements PlacementPolicy.
func (lu *LeastUsed) PlaceVM(vm VM, hosts []Host, suitable SuitabilityFunc) (PlacementDecision, error) {
	bestIdx := -1
	bestLoad := math.Inf(1)
	for i, h := range hosts {
		if suitable != nil && !suitable(h, vm) {
			continue
		}
		load := h.CPUUtilization()
		if av, ok := h.(AllocationView); ok {
			load = float64(av.AllocatedPEs())
		}
		if load < bestLoad {
			bestLoad = load
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		lu.metrics.Rejected.Inc(1)
		return PlacementDecision{}, fmt.Errorf("placing vm %d: %w", vm.ID, ErrPlacementRejected)
	}
	lu.metrics.Placed.Inc(1)
	return PlacementDecision{
		Host:   hosts[bestIdx],
		Reason: fmt.Sprintf("least-used (load=%.2f)", bestLoad),
	}, nil
}

// RandomPlacement places each VM on a uniformly chosen suitable host.
type RandomPlacement struct {
	rng     *rand.Rand
	metrics *PlacementMetrics
}

// Name implements PlacementPolicy.
func (rp *RandomPlacement) Name() string { return "random" }

// CacheAware implements PlacementPolicy.
func (rp *RandomPlacement) CacheAware() bool { return false }

// PlaceVM implements PlacementPolicy.
func (rp *RandomPlacement) PlaceVM(vm VM, hosts []Host, suitable SuitabilityFunc) (PlacementDecision, error) {
	candidates := make([]int, 0, len(hosts))
	for i, h := range hosts {
		if suitable == nil || suitable(h, vm) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		rp.metrics.Rejected.Inc(1)
		return PlacementDecision{}, fmt.Errorf("placing vm %d: %w", vm.ID, ErrPlacementRejected)
	}
	idx := candidates[rp.rng.Intn(len(candidates))]
	rp.metrics.Placed.Inc(1)
	return PlacementDecision{Host: hosts[idx], Reason: fmt.Sprintf("random[%d]", idx)}, nil
}

// validPlacementPolicies maps policy names to validity. Unexported to prevent mutation.
var validPlacementPolicies = map[string]bool{
	"kamino":     true,
	"first-fit":  true,
	"least-used": true,
	"random":     true,
}

// IsValidPlacementPolicy returns true if name is a recognized placement policy.
// Empty string is valid and selects kamino.
func IsValidPlacementPolicy(name string) bool {
	return name == "" || validPlacementPolicies[name]
}

// ValidPlacementPolicyNames returns sorted valid policy names.
func ValidPlacementPolicyNames() []string {
	names := make([]string, 0, len(validPlacementPolicies))
	for name := range validPlacementPolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPlacementPolicy creates a placement policy by name. Empty string defaults to kamino.
// Panics on unrecognized names.
func NewPlacementPolicy(name string, deps PolicyDeps) PlacementPolicy {
	if !IsValidPlacementPolicy(name) {
		panic(fmt.Sprintf("unknown placement policy %q", name))
	}
	if deps.Registry == nil {
		deps.Registry = NewCacheRegistry(DefaultCacheCapacity)
	}
	if deps.Metrics == nil {
		deps.Metrics = NoopPlacementMetrics()
	}
	if deps.RNG == nil {
		deps.RNG = NewPartitionedRNG(NewSimulationKey(0))
	}
	switch name {
	case "", "kamino":
		return NewKaminoPolicy(deps.Registry, deps.Metrics)
	case "first-fit":
		return &FirstFit{metrics: deps.Metrics}
	case "least-used":
		return &LeastUsed{metrics: deps.Metrics}
	case "random":
		return &RandomPlacement{rng: deps.RNG.ForSubsystem(SubsystemPlacement), metrics: deps.Metrics}
	default:
		panic(fmt.Sprintf("unhandled placement policy %q", name))
	}
}
