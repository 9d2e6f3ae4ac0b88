package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

func resolverFor(assign map[int]string) HostResolver {
	return HostResolverFunc(func(vmID int) (Host, bool) {
		id, ok := assign[vmID]
		if !ok {
			return nil, false
		}
		return HostSnapshot{HostID: id}, true
	})
}

func TestCacheAccessSimulator_MissThenHit(t *testing.T) {
	// GIVEN a single host with an empty cache and a VM with a 10-item pattern
	registry := NewCacheRegistry(DefaultCacheCapacity)
	access := NewCacheAccessSimulator(registry, nil)
	resolver := resolverFor(map[int]string{0: "h0"})
	pattern := NewVMPatternGenerator().Pattern(0)
	task := NewTask(0, 10000, 2, pattern)

	// WHEN replaying the pattern twice
	for cycle := 0; cycle < 2; cycle++ {
		for _, item := range task.DataItems {
			task.RecordAccess(access.Access(resolver, 0, item))
		}
	}

	// THEN the first cycle misses everything and the second hits everything
	assert.Equal(t, 10, task.Misses)
	assert.Equal(t, 10, task.Hits)
	assert.InDelta(t, 0.51, task.IOOverhead(), 1e-9)
	assert.Equal(t, int64(20), access.TotalAccesses())
	assert.Equal(t, int64(10), access.TotalHits())
	assert.InDelta(t, 0.5, access.HitRate(), 1e-9)
}

func TestCacheAccessSimulator_UnresolvedIsNoop(t *testing.T) {
	// GIVEN a VM with no host
	registry := NewCacheRegistry(DefaultCacheCapacity)
	scope := tally.NewTestScope("", nil)
	access := NewCacheAccessSimulator(registry, NewPlacementMetrics(scope))
	resolver := resolverFor(map[int]string{})

	// WHEN it accesses an item
	hit := access.Access(resolver, 3, "x")

	// THEN nothing is counted toward the hit rate and no store is created
	assert.False(t, hit)
	assert.Equal(t, int64(0), access.TotalAccesses())
	assert.Equal(t, 0.0, access.HitRate())
	assert.Empty(t, registry.HostIDs())
	assert.Equal(t, int64(1), counterValue(scope, "cache.unresolved", nil))

	assert.False(t, access.Access(nil, 3, "x"))
	assert.Equal(t, int64(0), access.TotalAccesses())
}

func TestCacheAccessSimulator_HitRateBounds(t *testing.T) {
	registry := NewCacheRegistry(5)
	access := NewCacheAccessSimulator(registry, nil)
	resolver := resolverFor(map[int]string{0: "h0", 1: "h1"})
	items := []string{"a", "b", "c", "d", "e", "f", "g", "a", "b"}

	for i, item := range items {
		access.Access(resolver, i%2, item)
		r := access.HitRate()
		require.GreaterOrEqual(t, r, 0.0)
		require.LessOrEqual(t, r, 1.0)
		require.LessOrEqual(t, access.TotalHits(), access.TotalAccesses())
	}
}

func TestCacheAccessSimulator_MissEvictsAtCapacity(t *testing.T) {
	registry := NewCacheRegistry(2)
	scope := tally.NewTestScope("", nil)
	access := NewCacheAccessSimulator(registry, NewPlacementMetrics(scope))
	resolver := resolverFor(map[int]string{0: "h0"})

	access.Access(resolver, 0, "a")
	access.Access(resolver, 0, "b")
	access.Access(resolver, 0, "c")

	store, ok := registry.Lookup("h0")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, store.Items())
	assert.Equal(t, int64(1), counterValue(scope, "cache.evicted", nil))
	assert.Equal(t, int64(3), counterValue(scope, "cache.accesses", map[string]string{"result": "miss"}))
}

func TestCacheAccessSimulator_Reset(t *testing.T) {
	registry := NewCacheRegistry(DefaultCacheCapacity)
	access := NewCacheAccessSimulator(registry, nil)
	resolver := resolverFor(map[int]string{0: "h0"})
	access.Access(resolver, 0, "a")
	access.Access(resolver, 0, "a")

	access.Reset()

	assert.Equal(t, int64(0), access.TotalAccesses())
	assert.Equal(t, int64(0), access.TotalHits())
	// cache contents survive the reset
	assert.True(t, access.Access(resolver, 0, "a"))
}
