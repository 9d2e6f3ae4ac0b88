package cluster

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/inference-sim/kamino-sim/sim"
	"github.com/inference-sim/kamino-sim/sim/trace"
)

// prewarmer is implemented by policies whose host caches can be seeded before placement.
type prewarmer interface {
	PrewarmHostCache(hostID, item string)
}

// latencyReporter is implemented by policies that predict per-host latency.
type latencyReporter interface {
	AveragePredictedLatency() float64
}

// vmRuntime tracks a placed VM's free PEs and its waiting tasks.
type vmRuntime struct {
	vm      sim.VM
	freePEs int
	waiting []*sim.Task
}

// ClusterSimulator runs one scenario end to end: cache prewarm, VM placement, task
// binding, event-driven task execution, then cache access replay.
type ClusterSimulator struct {
	config   ScenarioConfig
	dc       *Datacenter
	registry *sim.CacheRegistry
	policy   sim.PlacementPolicy
	access   *sim.CacheAccessSimulator
	metrics  *sim.PlacementMetrics
	trace    *trace.SimulationTrace

	vms      []sim.VM
	tasks    []*sim.Task
	runtimes map[int]*vmRuntime
	placed   []int // VM IDs in placement order
	rejected []int

	events *EventHeap
	clock  float64
	hasRun bool
	result *ScenarioResult
}

// NewClusterSimulator validates config and builds the datacenter, policy and workload.
// A nil scope discards metrics.
func NewClusterSimulator(config ScenarioConfig, scope tally.Scope) (*ClusterSimulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if scope == nil {
		scope = tally.NoopScope
	}
	metrics := sim.NewPlacementMetrics(scope)
	registry := sim.NewCacheRegistry(config.CacheCapacity)
	policy := sim.NewPlacementPolicy(config.Policy, sim.PolicyDeps{
		Registry: registry,
		Metrics:  metrics,
		RNG:      sim.NewPartitionedRNG(sim.NewSimulationKey(config.Seed)),
	})

	cs := &ClusterSimulator{
		config:   config,
		dc:       NewDatacenter(config.Hosts, config.Host),
		registry: registry,
		policy:   policy,
		access:   sim.NewCacheAccessSimulator(registry, metrics),
		metrics:  metrics,
		runtimes: make(map[int]*vmRuntime),
		events:   NewEventHeap(),
	}
	if tc := (trace.TraceConfig{Level: trace.TraceLevel(config.TraceLevel), CounterfactualK: config.CounterfactualK}); tc.Enabled() {
		cs.trace = trace.NewSimulationTrace(tc)
	}

	cs.vms = make([]sim.VM, config.VMs)
	for i := range cs.vms {
		cs.vms[i] = sim.VM{ID: i, PEs: config.VM.PEs, RAM: config.VM.RAM, BW: config.VM.BW}
	}
	taskPatterns := sim.NewTaskPatternGenerator()
	cs.tasks = make([]*sim.Task, config.Tasks)
	for i := range cs.tasks {
		cs.tasks[i] = sim.NewTask(i, config.Task.Length, config.Task.PEs, taskPatterns.Pattern(i))
	}
	return cs, nil
}

// Run executes the scenario. Panics if called more than once.
func (cs *ClusterSimulator) Run() *ScenarioResult {
	if cs.hasRun {
		panic("ClusterSimulator.Run() called more than once")
	}
	cs.hasRun = true

	cs.prewarm()
	cs.placeVMs()
	cs.bindTasks()
	cs.execute()
	cs.replayAccesses()

	cs.result = cs.buildResult()
	return cs.result
}

// Result returns the result of Run. Panics if called before Run.
func (cs *ClusterSimulator) Result() *ScenarioResult {
	if !cs.hasRun {
		panic("ClusterSimulator.Result() called before Run()")
	}
	return cs.result
}

// Datacenter returns the simulated datacenter.
func (cs *ClusterSimulator) Datacenter() *Datacenter { return cs.dc }

// Policy returns the placement policy in use.
func (cs *ClusterSimulator) Policy() sim.PlacementPolicy { return cs.policy }

// Registry returns the shared host cache registry.
func (cs *ClusterSimulator) Registry() *sim.CacheRegistry { return cs.registry }

// Tasks returns the scenario's tasks.
func (cs *ClusterSimulator) Tasks() []*sim.Task { return cs.tasks }

// Trace returns the decision trace, or nil when tracing is disabled.
func (cs *ClusterSimulator) Trace() *trace.SimulationTrace { return cs.trace }

// Clock returns the simulation clock in seconds.
func (cs *ClusterSimulator) Clock() float64 { return cs.clock }

// prewarm seeds the caches of the first Prewarm.Hosts hosts. Host i receives the group
// items of groups i .. i+GroupsPerHost-1. Only cache-aware policies keep caches.
func (cs *ClusterSimulator) prewarm() {
	pw, ok := cs.policy.(prewarmer)
	if !ok || !cs.policy.CacheAware() {
		return
	}
	gen := sim.NewVMPatternGenerator()
	warmed := 0
	hosts := cs.dc.SimHosts()
	for idx := 0; idx < min(cs.config.Prewarm.Hosts, len(hosts)); idx++ {
		for group := idx; group < idx+cs.config.Prewarm.GroupsPerHost; group++ {
			for item := 0; item < gen.GroupItems; item++ {
				pw.PrewarmHostCache(hosts[idx].ID(), sim.GroupItem(group, item))
				warmed++
			}
		}
		logrus.Debugf("prewarm: %s cached groups %d..%d", hosts[idx].ID(), idx, idx+cs.config.Prewarm.GroupsPerHost-1)
	}
	if warmed > 0 {
		logrus.Infof("prewarmed %d cache items", warmed)
	}
}

func (cs *ClusterSimulator) placeVMs() {
	hosts := cs.dc.Hosts()
	for _, vm := range cs.vms {
		decision, err := cs.policy.PlaceVM(vm, hosts, cs.dc.IsSuitable)
		if errors.Is(err, sim.ErrPlacementRejected) {
			logrus.Warnf("vm %d not placed: %v", vm.ID, err)
			cs.rejected = append(cs.rejected, vm.ID)
			if cs.trace != nil {
				cs.trace.RecordRejection(trace.RejectionRecord{VMID: vm.ID, Policy: cs.policy.Name(), Reason: err.Error()})
			}
			continue
		}
		if err != nil {
			panic(fmt.Sprintf("placement policy %s: unexpected error: %v", cs.policy.Name(), err))
		}

		if cs.trace != nil {
			candidates, regret := computeCounterfactual(decision, hosts, cs.trace.Config.CounterfactualK)
			cs.trace.RecordPlacement(trace.PlacementRecord{
				VMID:       vm.ID,
				Policy:     cs.policy.Name(),
				ChosenHost: decision.Host.ID(),
				Reason:     decision.Reason,
				Scores:     copyScores(decision.Scores),
				Candidates: candidates,
				Regret:     regret,
			})
		}

		// Policies only choose among suitable hosts, so allocation cannot fail here
		// unless a policy ignored the predicate.
		if err := cs.dc.Allocate(decision.Host.ID(), vm); err != nil {
			panic(fmt.Sprintf("placement policy %s chose an unsuitable host: %v", cs.policy.Name(), err))
		}
		cs.placed = append(cs.placed, vm.ID)
		cs.runtimes[vm.ID] = &vmRuntime{vm: vm, freePEs: vm.PEs}
	}
}

// bindTasks assigns tasks to placed VMs in contiguous blocks: with T tasks and V placed
// VMs, task i runs on placed VM i / ceil(T/V). At two tasks per VM this keeps each
// task's data group aligned with its VM's pattern.
func (cs *ClusterSimulator) bindTasks() {
	if len(cs.placed) == 0 {
		for _, t := range cs.tasks {
			t.State = sim.TaskFailed
		}
		if len(cs.tasks) > 0 {
			logrus.Warnf("no VM was placed; %d tasks cannot run", len(cs.tasks))
		}
		return
	}
	perVM := (len(cs.tasks) + len(cs.placed) - 1) / len(cs.placed)
	for i, t := range cs.tasks {
		vmID := cs.placed[i/perVM]
		t.VMID = vmID
		rt := cs.runtimes[vmID]
		rt.waiting = append(rt.waiting, t)
	}
}

// execute runs every bound task. PEs are space-shared inside a VM; a task runs for
// Length / VM MIPS seconds once enough PEs are free.
func (cs *ClusterSimulator) execute() {
	for _, vmID := range cs.placed {
		cs.startWaiting(cs.runtimes[vmID])
	}
	for cs.events.Len() > 0 {
		ev := cs.events.PopNext()
		cs.clock = ev.Timestamp()
		ev.Execute(cs)
	}
}

func (cs *ClusterSimulator) startWaiting(rt *vmRuntime) {
	for len(rt.waiting) > 0 && rt.waiting[0].PEs <= rt.freePEs {
		t := rt.waiting[0]
		rt.waiting = rt.waiting[1:]
		rt.freePEs -= t.PEs
		t.State = sim.TaskRunning
		t.StartTime = cs.clock
		duration := float64(t.Length) / float64(cs.config.VM.MIPS)
		cs.events.Schedule(NewTaskFinishedEvent(cs.clock+duration, t))
	}
}

func (cs *ClusterSimulator) handleTaskFinished(e *TaskFinishedEvent) {
	t := e.Task
	t.State = sim.TaskCompleted
	t.FinishTime = e.Timestamp()
	rt := cs.runtimes[t.VMID]
	rt.freePEs += t.PEs
	logrus.Debugf("t=%.2fs: task %d finished on vm %d", cs.clock, t.ID, t.VMID)
	cs.startWaiting(rt)
}

// replayAccesses runs AccessCycles passes over each completed task's data items.
// Cache-aware policies go through the access simulator; for the others every access
// is a remote fetch, since nothing warms or keeps their caches.
func (cs *ClusterSimulator) replayAccesses() {
	cacheAware := cs.policy.CacheAware()
	for _, t := range cs.tasks {
		if t.State != sim.TaskCompleted {
			continue
		}
		for cycle := 0; cycle < cs.config.AccessCycles; cycle++ {
			for _, item := range t.DataItems {
				hit := false
				if cacheAware {
					hit = cs.access.Access(cs.dc, t.VMID, item)
				}
				t.RecordAccess(hit)
			}
		}
		logrus.Debugf("task %d: hits=%d misses=%d io=%.3fs", t.ID, t.Hits, t.Misses, t.IOOverhead())
	}
}

func (cs *ClusterSimulator) buildResult() *ScenarioResult {
	r := &ScenarioResult{
		Scenario:     cs.config.Name,
		Policy:       cs.policy.Name(),
		TotalHosts:   len(cs.dc.SimHosts()),
		TotalTasks:   len(cs.tasks),
		Placements:   make(map[int]string, len(cs.placed)),
		RejectedVMs:  append([]int(nil), cs.rejected...),
		SimTime:      cs.clock,
		HitRate:      cs.access.HitRate(),
		CacheAccess:  cs.access.TotalAccesses(),
		CacheHits:    cs.access.TotalHits(),
		TraceSummary: trace.Summarize(cs.trace),
	}
	for _, vmID := range cs.placed {
		h, _ := cs.dc.ResolveHost(vmID)
		r.Placements[vmID] = h.ID()
	}
	if lr, ok := cs.policy.(latencyReporter); ok {
		r.AvgPredictedLatency = lr.AveragePredictedLatency()
	}

	var latencies []float64
	for _, t := range cs.tasks {
		if t.State != sim.TaskCompleted {
			continue
		}
		r.CompletedTasks++
		latencies = append(latencies, t.TotalLatency())
		r.TotalIOOverhead += t.IOOverhead()
	}
	r.MeanLatency = sim.CalculateMean(latencies)
	r.P90Latency = sim.NearestRankPercentile(latencies, 90)
	if r.CompletedTasks > 0 {
		r.AvgIOOverhead = r.TotalIOOverhead / float64(r.CompletedTasks)
	}
	if r.SimTime > 0 {
		r.Throughput = float64(r.CompletedTasks) / r.SimTime
	}

	totalUtil := 0.0
	for _, h := range cs.dc.SimHosts() {
		if u := h.CPUUtilization(); u > 0 {
			totalUtil += u
			r.ActiveHosts++
		}
	}
	if r.ActiveHosts > 0 {
		r.HostUtilization = totalUtil / float64(r.ActiveHosts) * 100
	}
	return r
}
