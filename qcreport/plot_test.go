package qcreport

import (
	"math"
	"strings"
	"testing"

	"proxysift/ncdc"
)

func fp(v float64) *float64 { return &v }

func plotRecord() *ncdc.Record {
	nan := math.NaN()
	return &ncdc.Record{
		Chronology: ncdc.ChronologyInformation{
			Determinants: []ncdc.Determinant{
				{Labcode: "OS-1", DepthTop: 10, DepthBottom: 12, C14Date: 1850, C14Error: 30, OtherDate: nan, OtherError: nan, DeltaR: nan, DeltaRError: nan},
				{Labcode: "OS-2", DepthTop: 100, DepthBottom: 102, C14Date: 9800, C14Error: 60, OtherDate: nan, OtherError: nan, DeltaR: nan, DeltaRError: nan},
			},
		},
		Data: ncdc.DataCollection{
			Columns: []ncdc.Column{
				{Name: "depth", Values: []float64{10, 50, 120}},
				{Name: "d18O", Values: []float64{3.21, 3.05, 2.44}},
			},
			AgeMedian: []float64{100, 5000, 11000},
		},
	}
}

func TestAgeDepthSVG(t *testing.T) {
	r := plotRecord()
	svg, err := AgeDepthSVG(r, &r.Data, PlotOptions{Width: 640, Height: 480, Title: "WL-21K"})
	if err != nil {
		t.Fatal(err)
	}
	out := string(svg)
	for _, want := range []string{"<svg", `viewBox="0 0 640 480"`, "<polyline", "<circle", "WL-21K", "Age (cal yr BP)"} {
		if !strings.Contains(out, want) {
			t.Errorf("plot missing %q", want)
		}
	}
	if strings.Contains(out, `class="cutoff"`) {
		t.Error("no cutoffs set, no overlay lines expected")
	}
	if strings.Contains(out, `class="ensemble-band"`) {
		t.Error("no ensemble attached, no spread band expected")
	}
}

func TestAgeDepthSVG_EnsembleBand(t *testing.T) {
	nan := math.NaN()
	r := plotRecord()
	r.Data.AgeEnsemble = [][]float64{
		{80, 120, nan},
		{4800, 5200, nan},
		{10500, 11500, nan},
	}
	svg, err := AgeDepthSVG(r, &r.Data, PlotOptions{})
	if err != nil {
		t.Fatal(err)
	}
	out := string(svg)
	if got := strings.Count(out, `class="ensemble-band"`); got != 1 {
		t.Fatalf("got %d spread bands, want 1", got)
	}
	if !strings.Contains(out, "<polygon") {
		t.Error("spread band must be a polygon")
	}
}

func TestAgeDepthSVG_CutoffOverlays(t *testing.T) {
	r := plotRecord()
	if err := r.Chronology.SetCutoffs(fp(20), fp(110)); err != nil {
		t.Fatal(err)
	}
	svg, err := AgeDepthSVG(r, &r.Data, PlotOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(svg), `class="cutoff"`); got != 2 {
		t.Errorf("got %d overlay lines, want 2", got)
	}
}

func TestAgeDepthSVG_MaxAgeClip(t *testing.T) {
	r := plotRecord()
	svg, err := AgeDepthSVG(r, &r.Data, PlotOptions{MaxAge: 6000})
	if err != nil {
		t.Fatal(err)
	}
	// only one of the two determinants survives the clip
	if got := strings.Count(string(svg), "<circle"); got != 1 {
		t.Errorf("got %d determinant points, want 1 after age clip", got)
	}
}

func TestAgeDepthSVG_NoAges(t *testing.T) {
	r := plotRecord()
	r.Data.AgeMedian = nil
	if _, err := AgeDepthSVG(r, &r.Data, PlotOptions{}); err == nil {
		t.Error("record without any age series must fail")
	}
}

func TestCutoffOverlays(t *testing.T) {
	var c ncdc.ChronologyInformation
	if got := CutoffOverlays(&c); len(got) != 0 {
		t.Errorf("no cutoffs should produce no overlays, got %v", got)
	}
	c.CutDeep = fp(110)
	got := CutoffOverlays(&c)
	if len(got) != 1 || got[0] != 110 {
		t.Errorf("overlays = %v, want [110]", got)
	}
}
