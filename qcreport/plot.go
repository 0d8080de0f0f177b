// Package qcreport renders per-record quality control reports: an HTML
// summary with an inline SVG age-depth plot, optionally rasterized to PNG.
package qcreport

import (
	"fmt"
	"math"
	"strings"

	"github.com/beevik/etree"

	"proxysift/ncdc"
)

// PlotOptions are pass-through knobs for the age-depth plot.
type PlotOptions struct {
	Width  int
	Height int
	// MaxAge clips the vertical axis, zero means autoscale.
	MaxAge float64
	Title  string
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	return o
}

const (
	marginLeft   = 70.0
	marginRight  = 20.0
	marginTop    = 30.0
	marginBottom = 50.0
)

type scale struct {
	min, max float64
	lo, hi   float64
}

func (s scale) at(v float64) float64 {
	if s.max == s.min {
		return s.lo
	}
	return s.lo + (v-s.min)/(s.max-s.min)*(s.hi-s.lo)
}

func fmtNum(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

// CutoffOverlays returns the cutoff depths as an ordered sequence of
// vertical overlay positions, absent bounds omitted.
func CutoffOverlays(c *ncdc.ChronologyInformation) []float64 {
	var out []float64
	if c.CutShallow != nil {
		out = append(out, *c.CutShallow)
	}
	if c.CutDeep != nil {
		out = append(out, *c.CutDeep)
	}
	return out
}

// AgeDepthSVG draws the record's age-depth relationship: the modeled median
// age line over sample depths, the dated determinants as points, and one
// vertical overlay line per cutoff. data selects full or trimmed rows, the
// caller decides which view to plot.
func AgeDepthSVG(r *ncdc.Record, data *ncdc.DataCollection, opts PlotOptions) ([]byte, error) {
	opts = opts.withDefaults()

	depths, ok := data.Depths()
	if !ok {
		return nil, &ncdc.EmptyDataError{What: "depth column"}
	}
	ages := data.AgeMedian
	if ages == nil {
		ages, _ = data.Column("age")
	}
	if ages == nil {
		return nil, &ncdc.EmptyDataError{What: "age series"}
	}

	dMin, dMax := math.Inf(1), math.Inf(-1)
	aMin, aMax := math.Inf(1), math.Inf(-1)
	for i := range depths {
		if math.IsNaN(depths[i]) || math.IsNaN(ages[i]) {
			continue
		}
		if opts.MaxAge > 0 && ages[i] > opts.MaxAge {
			continue
		}
		dMin, dMax = math.Min(dMin, depths[i]), math.Max(dMax, depths[i])
		aMin, aMax = math.Min(aMin, ages[i]), math.Max(aMax, ages[i])
	}
	for i := range r.Chronology.Determinants {
		det := &r.Chronology.Determinants[i]
		if !det.HasC14() || math.IsNaN(det.Depth()) {
			continue
		}
		if opts.MaxAge > 0 && det.C14Date > opts.MaxAge {
			continue
		}
		dMin, dMax = math.Min(dMin, det.Depth()), math.Max(dMax, det.Depth())
		aMin, aMax = math.Min(aMin, det.C14Date), math.Max(aMax, det.C14Date)
	}
	bandLo, bandHi := ensembleSpread(data, depths, opts.MaxAge)
	for i := range bandLo {
		if math.IsNaN(bandLo[i]) {
			continue
		}
		dMin, dMax = math.Min(dMin, depths[i]), math.Max(dMax, depths[i])
		aMin, aMax = math.Min(aMin, bandLo[i]), math.Max(aMax, bandHi[i])
	}
	if math.IsInf(dMin, 1) {
		return nil, &ncdc.EmptyDataError{What: "plottable age-depth pairs"}
	}

	w, h := float64(opts.Width), float64(opts.Height)
	x := scale{min: dMin, max: dMax, lo: marginLeft, hi: w - marginRight}
	y := scale{min: aMin, max: aMax, lo: h - marginBottom, hi: marginTop}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("width", fmt.Sprintf("%d", opts.Width))
	svg.CreateAttr("height", fmt.Sprintf("%d", opts.Height))
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", opts.Width, opts.Height))

	bg := svg.CreateElement("rect")
	bg.CreateAttr("width", "100%")
	bg.CreateAttr("height", "100%")
	bg.CreateAttr("fill", "white")

	frame := svg.CreateElement("rect")
	frame.CreateAttr("x", fmtNum(marginLeft))
	frame.CreateAttr("y", fmtNum(marginTop))
	frame.CreateAttr("width", fmtNum(w-marginLeft-marginRight))
	frame.CreateAttr("height", fmtNum(h-marginTop-marginBottom))
	frame.CreateAttr("fill", "none")
	frame.CreateAttr("stroke", "black")

	if opts.Title != "" {
		title := svg.CreateElement("text")
		title.CreateAttr("x", fmtNum(w/2))
		title.CreateAttr("y", fmtNum(marginTop-10))
		title.CreateAttr("text-anchor", "middle")
		title.CreateAttr("font-family", "sans-serif")
		title.SetText(opts.Title)
	}

	// ensemble spread band behind the median line
	var lower, upper []string
	for i := range bandLo {
		if math.IsNaN(bandLo[i]) {
			continue
		}
		lower = append(lower, fmtNum(x.at(depths[i]))+","+fmtNum(y.at(bandLo[i])))
		upper = append(upper, fmtNum(x.at(depths[i]))+","+fmtNum(y.at(bandHi[i])))
	}
	if len(lower) > 1 {
		for i, j := 0, len(upper)-1; i < j; i, j = i+1, j-1 {
			upper[i], upper[j] = upper[j], upper[i]
		}
		band := svg.CreateElement("polygon")
		band.CreateAttr("points", strings.Join(append(lower, upper...), " "))
		band.CreateAttr("fill", "#aec7e8")
		band.CreateAttr("fill-opacity", "0.6")
		band.CreateAttr("stroke", "none")
		band.CreateAttr("class", "ensemble-band")
	}

	// median age line over sample depths
	var pts []string
	for i := range depths {
		if math.IsNaN(depths[i]) || math.IsNaN(ages[i]) {
			continue
		}
		if opts.MaxAge > 0 && ages[i] > opts.MaxAge {
			continue
		}
		pts = append(pts, fmtNum(x.at(depths[i]))+","+fmtNum(y.at(ages[i])))
	}
	if len(pts) > 1 {
		line := svg.CreateElement("polyline")
		line.CreateAttr("points", strings.Join(pts, " "))
		line.CreateAttr("fill", "none")
		line.CreateAttr("stroke", "#1f77b4")
		line.CreateAttr("stroke-width", "1.5")
	}

	// dated determinants
	for i := range r.Chronology.Determinants {
		det := &r.Chronology.Determinants[i]
		if !det.HasC14() || math.IsNaN(det.Depth()) {
			continue
		}
		if opts.MaxAge > 0 && det.C14Date > opts.MaxAge {
			continue
		}
		dot := svg.CreateElement("circle")
		dot.CreateAttr("cx", fmtNum(x.at(det.Depth())))
		dot.CreateAttr("cy", fmtNum(y.at(det.C14Date)))
		dot.CreateAttr("r", "3")
		dot.CreateAttr("fill", "#d62728")
	}

	// cutoff overlays as vertical dashed lines
	for _, cut := range CutoffOverlays(&r.Chronology) {
		if cut < dMin || cut > dMax {
			continue
		}
		ln := svg.CreateElement("line")
		ln.CreateAttr("x1", fmtNum(x.at(cut)))
		ln.CreateAttr("x2", fmtNum(x.at(cut)))
		ln.CreateAttr("y1", fmtNum(marginTop))
		ln.CreateAttr("y2", fmtNum(h-marginBottom))
		ln.CreateAttr("stroke", "#2ca02c")
		ln.CreateAttr("stroke-dasharray", "6,4")
		ln.CreateAttr("class", "cutoff")
	}

	xlabel := svg.CreateElement("text")
	xlabel.CreateAttr("x", fmtNum((marginLeft+w-marginRight)/2))
	xlabel.CreateAttr("y", fmtNum(h-12))
	xlabel.CreateAttr("text-anchor", "middle")
	xlabel.CreateAttr("font-family", "sans-serif")
	xlabel.SetText("Depth")

	ylabel := svg.CreateElement("text")
	ylabel.CreateAttr("x", "16")
	ylabel.CreateAttr("y", fmtNum((marginTop+h-marginBottom)/2))
	ylabel.CreateAttr("text-anchor", "middle")
	ylabel.CreateAttr("font-family", "sans-serif")
	ylabel.CreateAttr("transform", fmt.Sprintf("rotate(-90 16 %s)", fmtNum((marginTop+h-marginBottom)/2)))
	ylabel.SetText("Age (cal yr BP)")

	doc.Indent(2)
	return doc.WriteToBytes()
}

// ensembleSpread returns per-row age extremes of the attached ensemble,
// aligned to depths. Rows without a usable spread carry NaN. Outlier draws
// masked to NaN do not contribute.
func ensembleSpread(data *ncdc.DataCollection, depths []float64, maxAge float64) (lo, hi []float64) {
	if data.AgeEnsemble == nil {
		return nil, nil
	}
	lo = make([]float64, len(depths))
	hi = make([]float64, len(depths))
	for i := range depths {
		lo[i], hi[i] = math.NaN(), math.NaN()
		if math.IsNaN(depths[i]) || i >= len(data.AgeEnsemble) {
			continue
		}
		l, h := math.Inf(1), math.Inf(-1)
		for _, a := range data.AgeEnsemble[i] {
			if math.IsNaN(a) {
				continue
			}
			l, h = math.Min(l, a), math.Max(h, a)
		}
		if math.IsInf(l, 1) {
			continue
		}
		if maxAge > 0 && l > maxAge {
			continue
		}
		lo[i], hi[i] = l, h
	}
	return lo, hi
}
