package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allSuitable(Host, VM) bool { return true }

func TestKaminoPolicy_PrefersWarmHost(t *testing.T) {
	// GIVEN host A holding the five group-0 items and an empty host B
	registry := NewCacheRegistry(DefaultCacheCapacity)
	policy := NewKaminoPolicy(registry, nil)
	for i := 0; i < 5; i++ {
		policy.PrewarmHostCache("A", GroupItem(0, i))
	}
	hosts := []Host{HostSnapshot{HostID: "B"}, HostSnapshot{HostID: "A"}}

	// WHEN placing VM 0
	d, err := policy.PlaceVM(VM{ID: 0, PEs: 4}, hosts, allSuitable)

	// THEN A wins on cache affinity 0.5 vs 0
	require.NoError(t, err)
	assert.Equal(t, "A", d.Host.ID())
	assert.InDelta(t, 0.5, d.Detail["A"].CacheAffinity, 1e-9)
	assert.InDelta(t, 0.0, d.Detail["B"].CacheAffinity, 1e-9)
	assert.Greater(t, d.Scores["A"], d.Scores["B"])
}

func TestKaminoPolicy_TieBreaksOnHostOrder(t *testing.T) {
	// GIVEN identical empty hosts
	policy := NewKaminoPolicy(NewCacheRegistry(10), nil)
	hosts := []Host{HostSnapshot{HostID: "h2"}, HostSnapshot{HostID: "h1"}, HostSnapshot{HostID: "h0"}}

	// WHEN placing
	d, err := policy.PlaceVM(VM{ID: 3}, hosts, allSuitable)

	// THEN the first host in list order wins
	require.NoError(t, err)
	assert.Equal(t, "h2", d.Host.ID())
}

func TestKaminoPolicy_WarmsCacheAndUpdatesLatency(t *testing.T) {
	registry := NewCacheRegistry(DefaultCacheCapacity)
	policy := NewKaminoPolicy(registry, nil)
	hosts := []Host{HostSnapshot{HostID: "h0", CPUUtil: 0.25}}

	d, err := policy.PlaceVM(VM{ID: 1}, hosts, allSuitable)
	require.NoError(t, err)
	require.Equal(t, "h0", d.Host.ID())

	store, ok := registry.Lookup("h0")
	require.True(t, ok)
	assert.Equal(t, len(policy.Pattern(1)), store.Overlap(policy.Pattern(1)))

	l, ok := policy.PredictedLatency("h0")
	require.True(t, ok)
	assert.InDelta(t, 5.0+20.0*0.25, l, 1e-9)
}

func TestKaminoPolicy_SecondVMOfGroupFollowsFirst(t *testing.T) {
	// VMs 0 and 1 share group 0, so VM 1 is drawn to VM 0's host
	policy := NewKaminoPolicy(NewCacheRegistry(DefaultCacheCapacity), nil)
	hosts := []Host{HostSnapshot{HostID: "h0"}, HostSnapshot{HostID: "h1"}}

	first, err := policy.PlaceVM(VM{ID: 0}, hosts, allSuitable)
	require.NoError(t, err)
	require.Equal(t, "h0", first.Host.ID())

	second, err := policy.PlaceVM(VM{ID: 1}, hosts, allSuitable)
	require.NoError(t, err)
	assert.Equal(t, "h0", second.Host.ID())
	assert.InDelta(t, 0.6, second.Detail["h0"].CacheAffinity, 1e-9)
}

func TestKaminoPolicy_RejectsWhenNothingSuitable(t *testing.T) {
	// GIVEN a host with some cached content and a predicate that refuses every host
	registry := NewCacheRegistry(DefaultCacheCapacity)
	policy := NewKaminoPolicy(registry, nil)
	policy.PrewarmHostCache("h0", "x")
	hosts := []Host{HostSnapshot{HostID: "h0"}}
	before := registry.Store("h0").Items()

	// WHEN placing
	_, err := policy.PlaceVM(VM{ID: 7}, hosts, func(Host, VM) bool { return false })

	// THEN the placement is rejected and no cache or latency state changes
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlacementRejected))
	assert.Equal(t, before, registry.Store("h0").Items())
	l, ok := policy.PredictedLatency("h0")
	assert.True(t, ok)
	assert.Equal(t, 0.0, l)
}

func TestKaminoPolicy_EmptyHostList_Rejects(t *testing.T) {
	policy := NewKaminoPolicy(NewCacheRegistry(10), nil)
	_, err := policy.PlaceVM(VM{ID: 0}, nil, allSuitable)
	assert.ErrorIs(t, err, ErrPlacementRejected)
	assert.Equal(t, 0.0, policy.AveragePredictedLatency())
}

func TestKaminoPolicy_SuitabilityFiltersScoredHosts(t *testing.T) {
	policy := NewKaminoPolicy(NewCacheRegistry(DefaultCacheCapacity), nil)
	for i := 0; i < 5; i++ {
		policy.PrewarmHostCache("warm", GroupItem(0, i))
	}
	hosts := []Host{HostSnapshot{HostID: "warm"}, HostSnapshot{HostID: "cold"}}
	onlyCold := func(h Host, _ VM) bool { return h.ID() == "cold" }

	d, err := policy.PlaceVM(VM{ID: 0}, hosts, onlyCold)
	require.NoError(t, err)
	assert.Equal(t, "cold", d.Host.ID())
	_, scored := d.Scores["warm"]
	assert.False(t, scored)
}

func TestKaminoPolicy_AveragePredictedLatency(t *testing.T) {
	policy := NewKaminoPolicy(NewCacheRegistry(DefaultCacheCapacity), nil)
	hosts := []Host{
		HostSnapshot{HostID: "h0", CPUUtil: 0.5},
		HostSnapshot{HostID: "h1", CPUUtil: 0.5},
	}
	_, err := policy.PlaceVM(VM{ID: 0}, hosts, allSuitable)
	require.NoError(t, err)

	// h0 -> 15ms, h1 still 0ms
	assert.InDelta(t, 7.5, policy.AveragePredictedLatency(), 1e-9)
}

func TestKaminoPolicy_SetEmptyPatternUsesColdStart(t *testing.T) {
	policy := NewKaminoPolicy(NewCacheRegistry(DefaultCacheCapacity), nil)
	policy.PrewarmHostCache("warm", "unrelated")
	policy.SetPattern(9, nil)
	hosts := []Host{HostSnapshot{HostID: "empty"}, HostSnapshot{HostID: "warm"}}

	d, err := policy.PlaceVM(VM{ID: 9}, hosts, allSuitable)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, d.Detail["empty"].CacheAffinity, 1e-9)
	assert.InDelta(t, 0.7, d.Detail["warm"].CacheAffinity, 1e-9)
	assert.Equal(t, "warm", d.Host.ID())
}

func TestKaminoPolicy_PatternIsMemoised(t *testing.T) {
	policy := NewKaminoPolicy(NewCacheRegistry(10), nil)
	assert.Equal(t, NewVMPatternGenerator().Pattern(4), policy.Pattern(4))

	policy.SetPattern(4, []string{"custom"})
	assert.Equal(t, []string{"custom"}, policy.Pattern(4))
}

func TestKaminoPolicy_PrewarmUnknownHostCreatesStore(t *testing.T) {
	registry := NewCacheRegistry(10)
	policy := NewKaminoPolicy(registry, nil)

	policy.PrewarmHostCache("new-host", "x")

	store, ok := registry.Lookup("new-host")
	require.True(t, ok)
	assert.True(t, store.Contains("x"))
}

func TestFirstFit_PicksFirstSuitable(t *testing.T) {
	policy := NewPlacementPolicy("first-fit", PolicyDeps{})
	hosts := []Host{HostSnapshot{HostID: "h0"}, HostSnapshot{HostID: "h1"}, HostSnapshot{HostID: "h2"}}
	skipFirst := func(h Host, _ VM) bool { return h.ID() != "h0" }

	d, err := policy.PlaceVM(VM{ID: 0}, hosts, skipFirst)
	require.NoError(t, err)
	assert.Equal(t, "h1", d.Host.ID())
	assert.Nil(t, d.Scores)
	assert.False(t, policy.CacheAware())
}

type allocatedHost struct {
	HostSnapshot
	pes int
}

func (h allocatedHost) AllocatedPEs() int { return h.pes }

func TestLeastUsed_PicksFewestAllocatedPEs(t *testing.T) {
	policy := NewPlacementPolicy("least-used", PolicyDeps{})
	hosts := []Host{
		allocatedHost{HostSnapshot{HostID: "h0"}, 8},
		allocatedHost{HostSnapshot{HostID: "h1"}, 4},
		allocatedHost{HostSnapshot{HostID: "h2"}, 4},
	}

	d, err := policy.PlaceVM(VM{ID: 0}, hosts, allSuitable)
	require.NoError(t, err)
	assert.Equal(t, "h1", d.Host.ID(), "ties go to the earlier host")
}

func TestLeastUsed_FallsBackToCPUUtilization(t *testing.T) {
	policy := NewPlacementPolicy("least-used", PolicyDeps{})
	hosts := []Host{HostSnapshot{HostID: "busy", CPUUtil: 0.8}, HostSnapshot{HostID: "idle", CPUUtil: 0.1}}

	d, err := policy.PlaceVM(VM{ID: 0}, hosts, allSuitable)
	require.NoError(t, err)
	assert.Equal(t, "idle", d.Host.ID())
}

func TestRandomPlacement_DeterministicPerSeed(t *testing.T) {
	hosts := []Host{HostSnapshot{HostID: "h0"}, HostSnapshot{HostID: "h1"}, HostSnapshot{HostID: "h2"}, HostSnapshot{HostID: "h3"}}
	pick := func(seed int64) []string {
		policy := NewPlacementPolicy("random", PolicyDeps{RNG: NewPartitionedRNG(NewSimulationKey(seed))})
		var ids []string
		for i := 0; i < 20; i++ {
			d, err := policy.PlaceVM(VM{ID: i}, hosts, allSuitable)
			require.NoError(t, err)
			ids = append(ids, d.Host.ID())
		}
		return ids
	}
	assert.Equal(t, pick(42), pick(42))
}

func TestBaselines_RejectWhenNothingSuitable(t *testing.T) {
	hosts := []Host{HostSnapshot{HostID: "h0"}}
	none := func(Host, VM) bool { return false }
	for _, name := range []string{"first-fit", "least-used", "random"} {
		t.Run(name, func(t *testing.T) {
			_, err := NewPlacementPolicy(name, PolicyDeps{}).PlaceVM(VM{ID: 1}, hosts, none)
			assert.ErrorIs(t, err, ErrPlacementRejected)
		})
	}
}

func TestNewPlacementPolicy_Names(t *testing.T) {
	assert.Equal(t, []string{"first-fit", "kamino", "least-used", "random"}, ValidPlacementPolicyNames())
	assert.True(t, IsValidPlacementPolicy(""))
	assert.False(t, IsValidPlacementPolicy("round-robin"))

	for _, name := range ValidPlacementPolicyNames() {
		assert.Equal(t, name, NewPlacementPolicy(name, PolicyDeps{}).Name())
	}
	assert.Equal(t, "kamino", NewPlacementPolicy("", PolicyDeps{}).Name())
	assert.True(t, NewPlacementPolicy("kamino", PolicyDeps{}).CacheAware())
}

func TestNewPlacementPolicy_UnknownName_Panics(t *testing.T) {
	assert.Panics(t, func() { NewPlacementPolicy("round-robin", PolicyDeps{}) })
}
