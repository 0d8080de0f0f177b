package agemodel

import (
	"context"
	"fmt"
	"math"
	"sort"

	"proxysift/ncdc"
)

// Result is a fitted age-depth model: draws of the age function evaluated
// at the model's node depths. Ensemble[i][j] is draw j's age at Depths[i].
type Result struct {
	Depths   []float64
	Ensemble [][]float64
}

// Draws returns the ensemble width.
func (r *Result) Draws() int {
	if len(r.Ensemble) == 0 {
		return 0
	}
	return len(r.Ensemble[0])
}

// Sampler fits an age-depth model to prepared input. Implementations are
// expected to be expensive, callers cache results through Cache.
type Sampler interface {
	Sample(ctx context.Context, in *Input, draws int) (*Result, error)
}

// AgeAt evaluates one ensemble draw at an arbitrary depth by linear
// interpolation between node depths. Depths outside the modeled span
// return NaN.
func (r *Result) AgeAt(draw int, depth float64) float64 {
	n := len(r.Depths)
	if n == 0 || depth < r.Depths[0] || depth > r.Depths[n-1] {
		return math.NaN()
	}
	i := sort.SearchFloat64s(r.Depths, depth)
	if i < n && r.Depths[i] == depth {
		return r.Ensemble[i][draw]
	}
	lo, hi := i-1, i
	span := r.Depths[hi] - r.Depths[lo]
	t := (depth - r.Depths[lo]) / span
	return r.Ensemble[lo][draw] + t*(r.Ensemble[hi][draw]-r.Ensemble[lo][draw])
}

// AttachAges interpolates the fitted ensemble at the record's sample depths
// and stores the per-row ensemble and its median on the data collection.
// Ages round to whole years. Rows outside the modeled depth span get NaN
// ages rather than failing the whole record.
func AttachAges(r *ncdc.Record, res *Result) error {
	depths, ok := r.Data.Depths()
	if !ok {
		return &ncdc.EmptyDataError{What: "depth column"}
	}
	draws := res.Draws()
	if draws == 0 {
		return &ncdc.EmptyDataError{What: "ensemble draws"}
	}
	if len(res.Depths) != len(res.Ensemble) {
		return fmt.Errorf("malformed result: %d depths, %d ensemble rows", len(res.Depths), len(res.Ensemble))
	}

	ensemble := make([][]float64, len(depths))
	median := make([]float64, len(depths))
	for ri, depth := range depths {
		row := make([]float64, draws)
		for j := 0; j < draws; j++ {
			row[j] = math.Round(res.AgeAt(j, depth))
		}
		ensemble[ri] = row
		median[ri] = medianOf(row)
	}
	r.Data.AgeEnsemble = ensemble
	r.Data.AgeMedian = median
	return nil
}

// medianOf ignores NaN entries, all-NaN input yields NaN.
func medianOf(values []float64) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	mid := len(clean) / 2
	if len(clean)%2 == 1 {
		return clean[mid]
	}
	return (clean[mid-1] + clean[mid]) / 2
}
