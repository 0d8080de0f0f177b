// Package agemodel prepares probabilistic age-depth model input from a
// record's chronology and attaches sampler output back onto the record. The
// sampler itself is pluggable, fitted models are cached on disk.
package agemodel

import (
	"fmt"
	"math"
	"sort"

	"proxysift/ncdc"
)

// CalibrationCurve selects how a dated point's age converts to calendar
// years.
type CalibrationCurve int

const (
	// CurveNone passes ages through as calendar years.
	CurveNone CalibrationCurve = 0
	// CurveMarine calibrates radiocarbon ages against the marine curve.
	CurveMarine CalibrationCurve = 2
)

func curveFor(name string) (CalibrationCurve, error) {
	switch name {
	case "marine":
		return CurveMarine, nil
	case "none", "":
		return CurveNone, nil
	}
	return CurveNone, fmt.Errorf("unknown calibration curve %q", name)
}

// DatedPoint is one age control point ready for sampling.
type DatedPoint struct {
	Labcode     string
	Depth       float64
	Age         float64
	Error       float64
	DeltaR      float64
	DeltaRError float64
	Curve       CalibrationCurve
}

// Input is everything a sampler needs to fit one core.
type Input struct {
	Points []DatedPoint
	// DepthMin and DepthMax span both the dated points and the proxy
	// sample depths so the fitted model covers every sample.
	DepthMin float64
	DepthMax float64
	// MinYear floors modeled ages, typically the collection date as
	// cal yr BP. MaxYear caps them.
	MinYear float64
	MaxYear float64
}

// PrepareInput converts the record's chronology into sampler input.
// Radiocarbon dates carry the record's calibration curve and reservoir
// correction; other-style dates pass through uncalibrated with the
// correction zeroed. A determinant carrying both date styles is rejected,
// one carrying an other date without its error is dropped the way the
// original compilations treat unusable rows.
func PrepareInput(r *ncdc.Record, info ncdc.AgeModelInfo, maxYear float64) (*Input, error) {
	curve, err := curveFor(info.CalibrationCurve)
	if err != nil {
		return nil, err
	}

	in := &Input{MinYear: info.MinYear, MaxYear: maxYear}
	for i := range r.Chronology.Determinants {
		d := &r.Chronology.Determinants[i]
		hasOther := !math.IsNaN(d.OtherDate)
		switch {
		case d.HasC14() && hasOther:
			return nil, fmt.Errorf("determinant %q: dated by both 14C and %s", d.Labcode, d.OtherType)
		case d.HasC14():
			if math.IsNaN(d.C14Error) {
				return nil, fmt.Errorf("determinant %q: 14C date without error", d.Labcode)
			}
			p := DatedPoint{
				Labcode: d.Labcode,
				Depth:   d.Depth(),
				Age:     d.C14Date,
				Error:   d.C14Error,
				Curve:   curve,
			}
			if !math.IsNaN(d.DeltaR) {
				p.DeltaR = d.DeltaR
			}
			if !math.IsNaN(d.DeltaRError) {
				p.DeltaRError = d.DeltaRError
			}
			in.Points = append(in.Points, p)
		case hasOther:
			if math.IsNaN(d.OtherError) {
				continue
			}
			in.Points = append(in.Points, DatedPoint{
				Labcode: d.Labcode,
				Depth:   d.Depth(),
				Age:     d.OtherDate,
				Error:   d.OtherError,
				Curve:   CurveNone,
			})
		}
	}
	if len(in.Points) == 0 {
		return nil, &ncdc.EmptyDataError{What: "dated determinants"}
	}
	for i := range in.Points {
		if math.IsNaN(in.Points[i].Depth) {
			return nil, fmt.Errorf("determinant %q: no usable depth", in.Points[i].Labcode)
		}
	}
	sort.SliceStable(in.Points, func(i, j int) bool {
		return in.Points[i].Depth < in.Points[j].Depth
	})

	in.DepthMin, in.DepthMax = in.Points[0].Depth, in.Points[len(in.Points)-1].Depth
	if depths, ok := r.Data.Depths(); ok {
		for _, d := range depths {
			if math.IsNaN(d) {
				continue
			}
			in.DepthMin = math.Min(in.DepthMin, d)
			in.DepthMax = math.Max(in.DepthMax, d)
		}
	}
	return in, nil
}
