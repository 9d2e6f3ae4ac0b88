package cluster

import (
	"sort"

	"github.com/inference-sim/kamino-sim/sim"
	"github.com/inference-sim/kamino-sim/sim/trace"
)

// copyScores returns a shallow copy of the scores map. Returns nil for nil input.
func copyScores(scores map[string]float64) map[string]float64 {
	if scores == nil {
		return nil
	}
	cp := make(map[string]float64, len(scores))
	for k, v := range scores {
		cp[k] = v
	}
	return cp
}

// computeCounterfactual builds a ranked list of candidate hosts and computes regret
// (how much better the best alternative was compared to the chosen host).
//
// Only hosts present in decision.Scores are candidates. When the policy produced no
// scores (first-fit, least-used, random), every host in the list is a candidate with a
// synthetic score of -CPUUtilization, so emptier hosts rank higher.
//
// Returns top-k candidates sorted by score descending and regret (≥ 0).
func computeCounterfactual(decision sim.PlacementDecision, hosts []sim.Host, k int) ([]trace.CandidateScore, float64) {
	if k <= 0 || len(hosts) == 0 || decision.Host == nil {
		return nil, 0
	}

	all := make([]trace.CandidateScore, 0, len(hosts))
	chosenID := decision.Host.ID()
	var chosenScore float64
	chosenFound := false
	for _, h := range hosts {
		var c trace.CandidateScore
		if decision.Scores != nil {
			s, ok := decision.Scores[h.ID()]
			if !ok {
				continue
			}
			d := decision.Detail[h.ID()]
			c = trace.CandidateScore{HostID: h.ID(), Score: s, CacheAffinity: d.CacheAffinity, Latency: d.Latency, Load: d.Load}
		} else {
			c = trace.CandidateScore{HostID: h.ID(), Score: -h.CPUUtilization()}
		}
		all = append(all, c)
		if c.HostID == chosenID {
			chosenScore = c.Score
			chosenFound = true
		}
	}

	if !chosenFound {
		return nil, 0
	}

	// Sort by score descending; tie-break by host ID ascending for determinism
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].HostID < all[j].HostID
	})

	regret := all[0].Score - chosenScore
	if regret < 0 {
		regret = 0
	}

	n := min(k, len(all))
	return all[:n], regret
}
