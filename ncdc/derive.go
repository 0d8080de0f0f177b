package ncdc

import (
	"math"
)

// DepthRange returns the minimum and maximum determinant depths. It fails
// with EmptyDataError when the chronology carries no determinants.
func (c *ChronologyInformation) DepthRange() (min, max float64, err error) {
	if len(c.Determinants) == 0 {
		return 0, 0, &EmptyDataError{What: "determinants"}
	}
	min, max = math.Inf(1), math.Inf(-1)
	for i := range c.Determinants {
		d := c.Determinants[i].Depth()
		if math.IsNaN(d) {
			continue
		}
		min = math.Min(min, d)
		max = math.Max(max, d)
	}
	if math.IsInf(min, 1) {
		return 0, 0, &EmptyDataError{What: "determinant depths"}
	}
	return min, max, nil
}

// SliceDataDepths returns a new DataCollection restricted to rows whose
// depth lies in [shallow, deep] inclusive. The same row mask applies to the
// measurement table, the age ensemble and the age median. The receiver is
// left untouched. Inverted or non-finite bounds fail with
// InvalidRangeError. A collection without a depth column has nothing to
// slice and passes through unchanged.
func (r *Record) SliceDataDepths(shallow, deep float64) (*DataCollection, error) {
	if math.IsNaN(shallow) || math.IsNaN(deep) || math.IsInf(shallow, 0) || math.IsInf(deep, 0) {
		return nil, &InvalidRangeError{Low: shallow, High: deep}
	}
	if shallow > deep {
		return nil, &InvalidRangeError{Low: shallow, High: deep}
	}
	depths, ok := r.Data.Depths()
	if !ok {
		return &r.Data, nil
	}

	keep := make([]int, 0, len(depths))
	for i, d := range depths {
		if d >= shallow && d <= deep {
			keep = append(keep, i)
		}
	}
	return r.Data.maskRows(keep), nil
}

// TrimmedData applies the chronology cutoffs non-destructively: it returns
// the data restricted to the reliable depth window while the full
// collection stays intact. An unset bound is open on that side. With no
// cutoffs the full collection is returned as is.
func (r *Record) TrimmedData() (*DataCollection, error) {
	if r.Chronology.CutShallow == nil && r.Chronology.CutDeep == nil {
		return &r.Data, nil
	}
	shallow, deep := math.Inf(-1), math.Inf(1)
	if r.Chronology.CutShallow != nil {
		shallow = *r.Chronology.CutShallow
	}
	if r.Chronology.CutDeep != nil {
		deep = *r.Chronology.CutDeep
	}

	depths, ok := r.Data.Depths()
	if !ok {
		return &r.Data, nil
	}
	keep := make([]int, 0, len(depths))
	for i, d := range depths {
		if d >= shallow && d <= deep {
			keep = append(keep, i)
		}
	}
	return r.Data.maskRows(keep), nil
}

// maskRows copies the collection keeping only the rows at the given
// indexes. Metadata fields are shared, series data is deep copied.
func (d *DataCollection) maskRows(keep []int) *DataCollection {
	out := *d
	out.Columns = make([]Column, len(d.Columns))
	for ci := range d.Columns {
		vals := make([]float64, 0, len(keep))
		for _, ri := range keep {
			vals = append(vals, d.Columns[ci].Values[ri])
		}
		out.Columns[ci] = Column{Name: d.Columns[ci].Name, Values: vals}
	}
	if d.AgeMedian != nil {
		med := make([]float64, 0, len(keep))
		for _, ri := range keep {
			med = append(med, d.AgeMedian[ri])
		}
		out.AgeMedian = med
	}
	if d.AgeEnsemble != nil {
		ens := make([][]float64, 0, len(keep))
		for _, ri := range keep {
			row := make([]float64, len(d.AgeEnsemble[ri]))
			copy(row, d.AgeEnsemble[ri])
			ens = append(ens, row)
		}
		out.AgeEnsemble = ens
	}
	return &out
}

// DeltaROverride is a reservoir correction replacement for one dated
// determinant.
type DeltaROverride struct {
	DeltaR      float64
	DeltaRError float64
}

// SwapInDeltaR replaces reservoir corrections on determinants named by
// labcode. An override key matching no determinant fails with
// KeyMismatchError before anything is swapped. The first swap on a
// determinant preserves the file's original values so exports can surface
// both.
func (r *Record) SwapInDeltaR(overrides map[string]DeltaROverride) error {
	byLabcode := make(map[string]*Determinant, len(r.Chronology.Determinants))
	for i := range r.Chronology.Determinants {
		byLabcode[r.Chronology.Determinants[i].Labcode] = &r.Chronology.Determinants[i]
	}
	for key := range overrides {
		if _, ok := byLabcode[key]; !ok {
			return &KeyMismatchError{Key: key}
		}
	}
	for key, ov := range overrides {
		d := byLabcode[key]
		if d.DeltaROriginal == nil && d.DeltaRErrorOriginal == nil {
			origR, origE := d.DeltaR, d.DeltaRError
			d.DeltaROriginal, d.DeltaRErrorOriginal = &origR, &origE
		}
		d.DeltaR, d.DeltaRError = ov.DeltaR, ov.DeltaRError
	}
	return nil
}
