// Package sim provides the cache-aware VM placement core of kamino-sim.
//
// # Reading Guide
//
// Start with these files:
//   - pattern.go: deterministic data-access patterns for VMs and tasks
//   - cache_store.go: per-host bounded item cache with insertion-order eviction
//   - placement.go: KaminoPolicy and the baseline placement policies
//   - access.go: replay of data accesses against the host caches
//
// # Architecture
//
// The sim package holds the placement kernel and knows nothing about hosts beyond the
// Host interface. Sub-packages build on it:
//   - sim/cluster/: datacenter model, scenario config, the run driver and comparisons
//   - sim/trace/: placement decision recording and summaries
//
// A CacheRegistry is the single owner of per-host caches. KaminoPolicy warms it at
// placement time and CacheAccessSimulator reads and fills it during replay; both must be
// handed the same registry.
//
// # Key Interfaces
//
//   - Host: identity plus CPU, RAM and bandwidth utilization fractions
//   - PlacementPolicy: choose a host for a VM among suitable candidates
//   - HostResolver: map a VM to the host it was placed on
//
// Metrics flow through a tally.Scope (see PlacementMetrics); logging uses logrus.
package sim
