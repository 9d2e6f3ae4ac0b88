package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/kamino-sim/sim"
)

func TestDatacenter_HostsInOrder(t *testing.T) {
	dc := NewDatacenter(3, DefaultScenario().Host)
	hosts := dc.Hosts()
	require.Len(t, hosts, 3)
	assert.Equal(t, "host_0", hosts[0].ID())
	assert.Equal(t, "host_2", hosts[2].ID())
}

func TestDatacenter_AllocateUpdatesUtilization(t *testing.T) {
	// GIVEN an 8-PE host
	spec := DefaultScenario().Host
	dc := NewDatacenter(1, spec)
	vm := sim.VM{ID: 0, PEs: 4, RAM: 512, BW: 1000}

	// WHEN allocating a 4-PE VM
	require.NoError(t, dc.Allocate("host_0", vm))

	// THEN utilization reflects the allocated share
	h := dc.SimHosts()[0]
	assert.InDelta(t, 0.5, h.CPUUtilization(), 1e-9)
	assert.InDelta(t, 512.0/4096.0, h.RAMUtilization(), 1e-9)
	assert.InDelta(t, 0.1, h.BWUtilization(), 1e-9)
	assert.Equal(t, 4, h.AllocatedPEs())
	assert.Equal(t, []int{0}, h.VMs())

	resolved, ok := dc.ResolveHost(0)
	require.True(t, ok)
	assert.Equal(t, "host_0", resolved.ID())
}

func TestDatacenter_SuitabilityTracksCapacity(t *testing.T) {
	dc := NewDatacenter(1, DefaultScenario().Host)
	host := dc.Hosts()[0]
	vm := func(id int) sim.VM { return sim.VM{ID: id, PEs: 4, RAM: 512, BW: 1000} }

	assert.True(t, dc.IsSuitable(host, vm(0)))
	require.NoError(t, dc.Allocate("host_0", vm(0)))
	assert.True(t, dc.IsSuitable(host, vm(1)))
	require.NoError(t, dc.Allocate("host_0", vm(1)))

	// host is full at 8 PEs
	assert.False(t, dc.IsSuitable(host, vm(2)))
	assert.Error(t, dc.Allocate("host_0", vm(2)))
}

func TestDatacenter_AllocateErrors(t *testing.T) {
	dc := NewDatacenter(1, DefaultScenario().Host)
	vm := sim.VM{ID: 0, PEs: 1}

	assert.Error(t, dc.Allocate("nope", vm))
	require.NoError(t, dc.Allocate("host_0", vm))
	assert.Error(t, dc.Allocate("host_0", vm), "double allocation")

	assert.False(t, dc.IsSuitable(sim.HostSnapshot{HostID: "foreign"}, sim.VM{ID: 9, PEs: 1}))
}

func TestDatacenter_UnplacedVMDoesNotResolve(t *testing.T) {
	dc := NewDatacenter(2, DefaultScenario().Host)
	_, ok := dc.ResolveHost(5)
	assert.False(t, ok)
}
