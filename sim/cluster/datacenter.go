package cluster

import (
	"fmt"

	"github.com/inference-sim/kamino-sim/sim"
)

// SimHost is a host with PE, RAM and bandwidth capacity. Utilization fractions are the
// allocated share of each resource.
type SimHost struct {
	id       string
	spec     HostSpec
	allocPEs int
	allocRAM int64
	allocBW  int64
	vms      []int
}

// NewSimHost creates an empty host.
func NewSimHost(id string, spec HostSpec) *SimHost {
	return &SimHost{id: id, spec: spec}
}

// ID implements sim.Host.
func (h *SimHost) ID() string { return h.id }

// CPUUtilization implements sim.Host.
func (h *SimHost) CPUUtilization() float64 { return fraction(int64(h.allocPEs), int64(h.spec.PEs)) }

// RAMUtilization implements sim.Host.
func (h *SimHost) RAMUtilization() float64 { return fraction(h.allocRAM, h.spec.RAM) }

// BWUtilization implements sim.Host.
func (h *SimHost) BWUtilization() float64 { return fraction(h.allocBW, h.spec.BW) }

// AllocatedPEs implements sim.AllocationView.
func (h *SimHost) AllocatedPEs() int { return h.allocPEs }

// VMs returns the IDs of VMs allocated to this host, in allocation order.
func (h *SimHost) VMs() []int { return append([]int(nil), h.vms...) }

func (h *SimHost) fits(vm sim.VM) bool {
	return h.spec.PEs-h.allocPEs >= vm.PEs &&
		h.spec.RAM-h.allocRAM >= vm.RAM &&
		h.spec.BW-h.allocBW >= vm.BW
}

func fraction(used, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(used) / float64(total)
}

// Datacenter owns the host list and the VM → host binding. It supplies the suitability
// predicate and host resolution consumed by placement and access replay.
type Datacenter struct {
	hosts  []*SimHost
	byID   map[string]*SimHost
	vmHost map[int]*SimHost
}

// NewDatacenter creates n identical hosts named host_0..host_{n-1}.
func NewDatacenter(n int, spec HostSpec) *Datacenter {
	dc := &Datacenter{
		hosts:  make([]*SimHost, n),
		byID:   make(map[string]*SimHost, n),
		vmHost: make(map[int]*SimHost),
	}
	for i := range dc.hosts {
		h := NewSimHost(fmt.Sprintf("host_%d", i), spec)
		dc.hosts[i] = h
		dc.byID[h.id] = h
	}
	return dc
}

// Hosts returns the hosts as sim.Host, in fixed list order.
func (dc *Datacenter) Hosts() []sim.Host {
	out := make([]sim.Host, len(dc.hosts))
	for i, h := range dc.hosts {
		out[i] = h
	}
	return out
}

// SimHosts returns the concrete hosts in list order.
func (dc *Datacenter) SimHosts() []*SimHost { return dc.hosts }

// IsSuitable reports whether host has enough free PEs, RAM and bandwidth for vm.
// Hosts not owned by this datacenter are never suitable.
func (dc *Datacenter) IsSuitable(host sim.Host, vm sim.VM) bool {
	h, ok := dc.byID[host.ID()]
	if !ok {
		return false
	}
	return h.fits(vm)
}

// Allocate binds vm to the host with the given ID.
func (dc *Datacenter) Allocate(hostID string, vm sim.VM) error {
	h, ok := dc.byID[hostID]
	if !ok {
		return fmt.Errorf("allocating vm %d: unknown host %q", vm.ID, hostID)
	}
	if _, bound := dc.vmHost[vm.ID]; bound {
		return fmt.Errorf("allocating vm %d: already allocated", vm.ID)
	}
	if !h.fits(vm) {
		return fmt.Errorf("allocating vm %d: host %s lacks capacity", vm.ID, hostID)
	}
	h.allocPEs += vm.PEs
	h.allocRAM += vm.RAM
	h.allocBW += vm.BW
	h.vms = append(h.vms, vm.ID)
	dc.vmHost[vm.ID] = h
	return nil
}

// ResolveHost implements sim.HostResolver.
func (dc *Datacenter) ResolveHost(vmID int) (sim.Host, bool) {
	h, ok := dc.vmHost[vmID]
	if !ok {
		return nil, false
	}
	return h, true
}
