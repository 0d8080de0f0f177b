package agemodel

import (
	"math"
	"sort"
)

// percentile computes the p-th percentile with linear interpolation between
// closest ranks. values must not be empty.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	t := rank - float64(lo)
	return sorted[lo] + t*(sorted[hi]-sorted[lo])
}

// FlagOutliers marks values outside 1.5 interquartile ranges of the
// quartiles. When the spread is below iqrMin the data is considered too
// tight to judge and nothing is flagged. The result is a keep mask aligned
// to values.
func FlagOutliers(values []float64, iqrMin float64) []bool {
	keep := make([]bool, len(values))
	for i := range keep {
		keep[i] = true
	}
	if len(values) == 0 {
		return keep
	}

	upper := percentile(values, 75)
	lower := percentile(values, 25)
	iqr := upper - lower
	if iqr < iqrMin {
		return keep
	}
	for i, v := range values {
		if v >= upper+1.5*iqr || v <= lower-1.5*iqr {
			keep[i] = false
		}
	}
	return keep
}

// RemoveOutliers masks flagged draws at every model node to NaN so they fall
// out of downstream medians and interpolation instead of skewing them.
func RemoveOutliers(res *Result, iqrMin float64) {
	for i := range res.Ensemble {
		keep := FlagOutliers(res.Ensemble[i], iqrMin)
		for j := range res.Ensemble[i] {
			if !keep[j] {
				res.Ensemble[i][j] = math.NaN()
			}
		}
	}
}
