// Package trace provides decision-trace recording for placement analysis.
// It stores plain data types and does not import sim/ or sim/cluster/.
package trace

// RejectionRecord captures a VM for which no host qualified.
type RejectionRecord struct {
	VMID   int
	Policy string
	Reason string
}

// CandidateScore captures a counterfactual candidate host with its score breakdown.
type CandidateScore struct {
	HostID        string
	Score         float64
	CacheAffinity float64
	Latency       float64
	Load          float64
}

// PlacementRecord captures a single placement decision with optional counterfactual analysis.
type PlacementRecord struct {
	VMID       int
	Policy     string
	ChosenHost string
	Reason     string
	Scores     map[string]float64 // from PlacementDecision.Scores (may be nil)
	Candidates []CandidateScore   // top-k candidates sorted by score desc (nil if k=0)
	Regret     float64            // max(alternative scores) - score(chosen); 0 if chosen is best
}
