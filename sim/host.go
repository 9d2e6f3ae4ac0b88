package sim

// Host is the placement-time view of a physical host. Implementations live outside this
// package (see sim/cluster); the core only needs identity and utilization fractions in [0,1].
type Host interface {
	ID() string
	CPUUtilization() float64
	RAMUtilization() float64
	BWUtilization() float64
}

// AllocationView is optionally implemented by hosts that can report allocated PEs.
// Used by the least-used baseline policy.
type AllocationView interface {
	AllocatedPEs() int
}

// VM identifies a virtual machine awaiting placement.
type VM struct {
	ID  int
	PEs int
	RAM int64
	BW  int64
}

// SuitabilityFunc reports whether host can physically hold vm. Supplied by the caller.
type SuitabilityFunc func(host Host, vm VM) bool

// HostResolver maps a VM to the host currently running it.
// ok is false when the VM is unassigned.
type HostResolver interface {
	ResolveHost(vmID int) (host Host, ok bool)
}

// HostResolverFunc adapts a function to HostResolver.
type HostResolverFunc func(vmID int) (Host, bool)

// ResolveHost implements HostResolver.
func (f HostResolverFunc) ResolveHost(vmID int) (Host, bool) { return f(vmID) }

// HostSnapshot is a static Host, handy for tests and for callers that sample utilization once.
type HostSnapshot struct {
	HostID  string
	CPUUtil float64
	RAMUtil float64
	BWUtil  float64
}

func (h HostSnapshot) ID() string { return h.HostID }
func (h HostSnapshot) CPUUtilization() float64 { return h.CPUUtil }
func (h HostSnapshot) RAMUtilization() float64 { return h.RAMUtil }
func (h HostSnapshot) BWUtilization() float64 { return h.BWUtil }
