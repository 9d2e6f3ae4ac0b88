// sim/metrics_utils.go
package sim

import (
	"math"
	"sort"
)

type IntOrFloat64 interface {
	int | int64 | float64
}

// CalculateMean returns the arithmetic mean of data, or 0 for an empty slice.
func CalculateMean[T IntOrFloat64](data []T) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range data {
		sum += float64(v)
	}
	return sum / float64(len(data))
}

// NearestRankPercentile returns the p-th percentile (0 < p <= 100) of data using the
// nearest-rank method: the element at index ceil(p/100 * n) - 1 of the sorted data.
// The input is not modified. Returns 0 for an empty slice.
func NearestRankPercentile[T IntOrFloat64](data []T, p float64) float64 {
	n := len(data)
	if n == 0 {
		return 0.0
	}
	sorted := make([]float64, n)
	for i, v := range data {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)
	idx := int(math.Ceil(p/100.0*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// ImprovementPercent returns (baseline - candidate) / baseline * 100, i.e. how much lower
// candidate is. Returns 0 when baseline is 0.
func ImprovementPercent(baseline, candidate float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (baseline - candidate) / baseline * 100
}
