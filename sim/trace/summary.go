package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int
	PlacedCount        int
	RejectedCount      int
	MeanRegret         float64
	MaxRegret          float64
	UniqueTargets      int
	TargetDistribution map[string]int // host ID → count of VMs placed
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TargetDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.PlacedCount = len(st.Placements)
	summary.RejectedCount = len(st.Rejections)
	summary.TotalDecisions = summary.PlacedCount + summary.RejectedCount

	if len(st.Placements) > 0 {
		totalRegret := 0.0
		for _, r := range st.Placements {
			summary.TargetDistribution[r.ChosenHost]++
			totalRegret += r.Regret
			if r.Regret > summary.MaxRegret {
				summary.MaxRegret = r.Regret
			}
		}
		summary.MeanRegret = totalRegret / float64(len(st.Placements))
	}

	summary.UniqueTargets = len(summary.TargetDistribution)

	return summary
}
