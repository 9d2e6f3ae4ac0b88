package cluster

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/uber-go/tally/v4"

	"github.com/inference-sim/kamino-sim/sim"
	"github.com/inference-sim/kamino-sim/sim/trace"
)

// ScenarioResult aggregates the outcome of one scenario run.
// Latencies and I/O overheads are in seconds; HitRate is a fraction; HostUtilization is a
// percentage averaged over active hosts.
type ScenarioResult struct {
	Scenario string
	Policy   string

	TotalHosts     int
	TotalTasks     int
	CompletedTasks int
	Placements     map[int]string // VM ID → host ID
	RejectedVMs    []int

	MeanLatency     float64 // execution + I/O overhead
	P90Latency      float64 // nearest rank
	TotalIOOverhead float64
	AvgIOOverhead   float64
	Throughput      float64 // completed tasks per second
	SimTime         float64

	HitRate     float64
	CacheAccess int64
	CacheHits   int64

	HostUtilization     float64
	ActiveHosts         int
	AvgPredictedLatency float64 // ms; 0 for policies without latency prediction

	TraceSummary *trace.TraceSummary
}

// Print writes the VM allocation and performance metrics.
func (r *ScenarioResult) Print(w io.Writer) {
	fmt.Fprintln(w, "VM Allocation Results:")
	vmIDs := make([]int, 0, len(r.Placements))
	for id := range r.Placements {
		vmIDs = append(vmIDs, id)
	}
	sort.Ints(vmIDs)
	for _, id := range vmIDs {
		fmt.Fprintf(w, "VM %2d -> %s\n", id, r.Placements[id])
	}
	for _, id := range r.RejectedVMs {
		fmt.Fprintf(w, "VM %2d -> (rejected)\n", id)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "=== %s metrics (%s) ===\n", r.Policy, r.Scenario)
	fmt.Fprintf(w, "Mean Latency (CPU+I/O)   : %.2f s\n", r.MeanLatency)
	fmt.Fprintf(w, "90th Percentile Latency  : %.2f s\n", r.P90Latency)
	fmt.Fprintf(w, "Total I/O Overhead       : %.2f s\n", r.TotalIOOverhead)
	fmt.Fprintf(w, "Avg I/O per Task         : %.3f s\n", r.AvgIOOverhead)
	fmt.Fprintf(w, "Cache Hit Rate           : %.2f%%\n", r.HitRate*100)
	fmt.Fprintf(w, "Cache Accesses           : %d hits / %d total\n", r.CacheHits, r.CacheAccess)
	fmt.Fprintf(w, "Avg Host CPU Utilization : %.2f%%\n", r.HostUtilization)
	fmt.Fprintf(w, "Active Hosts             : %d / %d\n", r.ActiveHosts, r.TotalHosts)
	fmt.Fprintf(w, "Completed Tasks          : %d / %d\n", r.CompletedTasks, r.TotalTasks)
	fmt.Fprintf(w, "Throughput               : %.2f tasks/s\n", r.Throughput)
	fmt.Fprintf(w, "Total Simulation Time    : %.2f s\n", r.SimTime)
	fmt.Fprintf(w, "Avg Predicted Latency    : %.2f ms\n", r.AvgPredictedLatency)

	if r.TraceSummary != nil && r.TraceSummary.TotalDecisions > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Decision Trace ===")
		fmt.Fprintf(w, "Placed / Rejected        : %d / %d\n", r.TraceSummary.PlacedCount, r.TraceSummary.RejectedCount)
		fmt.Fprintf(w, "Unique Target Hosts      : %d\n", r.TraceSummary.UniqueTargets)
		fmt.Fprintf(w, "Mean / Max Regret        : %.4f / %.4f\n", r.TraceSummary.MeanRegret, r.TraceSummary.MaxRegret)
	}
}

// Comparison pairs a baseline and a kamino run of the same scenario.
type Comparison struct {
	Scenario string
	Baseline *ScenarioResult
	Kamino   *ScenarioResult

	LatencyImprovement    float64 // % reduction in mean latency
	P90Improvement        float64 // % reduction in p90 latency
	ThroughputImprovement float64 // % increase in throughput
	HostUtilImprovement   float64 // % increase in host utilization
	IOOverheadImprovement float64 // % reduction in total I/O overhead
}

// CompareResults computes improvement percentages of kamino over baseline.
func CompareResults(baseline, kamino *ScenarioResult) Comparison {
	c := Comparison{
		Scenario: kamino.Scenario,
		Baseline: baseline,
		Kamino:   kamino,

		LatencyImprovement:    sim.ImprovementPercent(baseline.MeanLatency, kamino.MeanLatency),
		P90Improvement:        sim.ImprovementPercent(baseline.P90Latency, kamino.P90Latency),
		ThroughputImprovement: -sim.ImprovementPercent(baseline.Throughput, kamino.Throughput),
		IOOverheadImprovement: sim.ImprovementPercent(baseline.TotalIOOverhead, kamino.TotalIOOverhead),
	}
	// Floor at 0.01 so an idle baseline does not divide by zero.
	c.HostUtilImprovement = (kamino.HostUtilization - baseline.HostUtilization) / max(baseline.HostUtilization, 0.01) * 100
	return c
}

// RunComparison runs every scenario under baselinePolicy and kamino.
// Each run gets its own simulator and registry; its metrics go to scope tagged with the
// scenario and policy. A nil scope discards metrics.
func RunComparison(scenarios []ScenarioConfig, baselinePolicy string, scope tally.Scope) ([]Comparison, error) {
	if scope == nil {
		scope = tally.NoopScope
	}
	comparisons := make([]Comparison, 0, len(scenarios))
	for _, sc := range scenarios {
		results := make([]*ScenarioResult, 2)
		for i, policy := range []string{baselinePolicy, "kamino"} {
			cfg := sc
			cfg.Policy = policy
			runScope := scope.Tagged(map[string]string{"scenario": sc.Name, "policy": policy})
			cs, err := NewClusterSimulator(cfg, runScope)
			if err != nil {
				return nil, fmt.Errorf("scenario %s (%s): %w", sc.Name, policy, err)
			}
			results[i] = cs.Run()
		}
		comparisons = append(comparisons, CompareResults(results[0], results[1]))
	}
	return comparisons, nil
}

// PrintComparison writes per-scenario tables and the overall averages.
func PrintComparison(w io.Writer, comparisons []Comparison) {
	rule := strings.Repeat("-", 80)
	for _, c := range comparisons {
		fmt.Fprintf(w, "\nSCENARIO: %s\n%s\n", c.Scenario, rule)
		fmt.Fprintf(w, "%-30s %15s %15s %15s\n", "Metric", c.Baseline.Policy, c.Kamino.Policy, "Improvement")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%-30s %15.2f %15.2f %14.2f%%\n", "Mean Latency (s)", c.Baseline.MeanLatency, c.Kamino.MeanLatency, c.LatencyImprovement)
		fmt.Fprintf(w, "%-30s %15.2f %15.2f %14.2f%%\n", "90th %ile Latency (s)", c.Baseline.P90Latency, c.Kamino.P90Latency, c.P90Improvement)
		fmt.Fprintf(w, "%-30s %15.2f %15.2f %14.2f%%\n", "Total I/O Overhead (s)", c.Baseline.TotalIOOverhead, c.Kamino.TotalIOOverhead, c.IOOverheadImprovement)
		fmt.Fprintf(w, "%-30s %15s %15.2f %15s\n", "Cache Hit Rate (%)", "N/A", c.Kamino.HitRate*100, "-")
		fmt.Fprintf(w, "%-30s %15.2f %15.2f %14.2f%%\n", "Throughput (tasks/s)", c.Baseline.Throughput, c.Kamino.Throughput, c.ThroughputImprovement)
		fmt.Fprintf(w, "%-30s %15.2f %15.2f %14.2f%%\n", "Host Utilization (%)", c.Baseline.HostUtilization, c.Kamino.HostUtilization, c.HostUtilImprovement)
		verdict := "Same"
		if c.Kamino.ActiveHosts < c.Baseline.ActiveHosts {
			verdict = "Better"
		}
		fmt.Fprintf(w, "%-30s %15d %15d %15s\n", "Active Hosts", c.Baseline.ActiveHosts, c.Kamino.ActiveHosts, verdict)
	}
	if len(comparisons) == 0 {
		return
	}

	var latency, throughput, hitRate float64
	for _, c := range comparisons {
		latency += c.LatencyImprovement
		throughput += c.ThroughputImprovement
		hitRate += c.Kamino.HitRate * 100
	}
	n := float64(len(comparisons))
	fmt.Fprintf(w, "\n%s\nOVERALL (kamino vs baseline)\n%s\n", rule, rule)
	fmt.Fprintf(w, "Average Latency Improvement     : %.2f%%\n", latency/n)
	fmt.Fprintf(w, "Average Throughput Improvement  : %.2f%%\n", throughput/n)
	fmt.Fprintf(w, "Kamino Cache Hit Rate (avg)     : %.2f%%\n", hitRate/n)
}
