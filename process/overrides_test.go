package process

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"proxysift/ncdc"
)

func writeOverrides(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("unable to write override file: %v", err)
	}
}

func TestOverridesName(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
	}{
		{"WL-21K", "wl-21k.yaml"},
		{"Wonder Lake 2", "wonder-lake-2.yaml"},
	}
	for _, tt := range tests {
		if got := overridesName(tt.identifier); got != tt.want {
			t.Errorf("overridesName(%q) = %q, want %q", tt.identifier, got, tt.want)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	writeOverrides(t, dir, "wl-21k.yaml", strings.Join([]string{
		"cut_shallow: 20",
		"cut_deep: 110",
		"delta_r:",
		"  OS-1001:",
		"    delta_r: 250",
		"    delta_r_1s_err: 35",
		"seasonality: [6, 7, 8]",
		"database_labels: [DTDA]",
		"",
	}, "\n"))

	o, err := LoadOverrides(dir, "WL-21K")
	if err != nil {
		t.Fatalf("LoadOverrides() error = %v", err)
	}
	if o == nil {
		t.Fatal("LoadOverrides() = nil for existing file")
	}
	if o.CutShallow == nil || *o.CutShallow != 20 {
		t.Errorf("CutShallow = %v, want 20", o.CutShallow)
	}
	if o.CutDeep == nil || *o.CutDeep != 110 {
		t.Errorf("CutDeep = %v, want 110", o.CutDeep)
	}
	if got := o.DeltaR["OS-1001"]; got.DeltaR != 250 || got.DeltaRError != 35 {
		t.Errorf("DeltaR[OS-1001] = %+v, want {250 35}", got)
	}
	if len(o.Seasonality) != 3 {
		t.Errorf("Seasonality = %v", o.Seasonality)
	}
}

func TestLoadOverrides_Missing(t *testing.T) {
	o, err := LoadOverrides(t.TempDir(), "WL-21K")
	if err != nil {
		t.Fatalf("LoadOverrides() error = %v", err)
	}
	if o != nil {
		t.Error("missing file should yield nil overrides")
	}

	// no directory configured at all
	if o, err := LoadOverrides("", "WL-21K"); err != nil || o != nil {
		t.Errorf("LoadOverrides(\"\") = (%v, %v), want (nil, nil)", o, err)
	}
}

func TestLoadOverrides_UnknownField(t *testing.T) {
	dir := t.TempDir()
	writeOverrides(t, dir, "wl-21k.yaml", "cut_shalow: 20\n")

	if _, err := LoadOverrides(dir, "WL-21K"); err == nil {
		t.Error("expected error for misspelled field")
	}
}

func TestSiteOverrides_Apply(t *testing.T) {
	rec, err := ncdc.Read(strings.NewReader(proxyFixture))
	if err != nil {
		t.Fatalf("unable to parse fixture: %v", err)
	}

	shallow, deep := 20.0, 110.0
	o := &SiteOverrides{
		CutShallow: &shallow,
		CutDeep:    &deep,
		DeltaR:     map[string]ReservoirOverride{"OS-1001": {DeltaR: 250, DeltaRError: 35}},
	}
	if err := o.Apply(rec); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if rec.Chronology.CutShallow == nil || *rec.Chronology.CutShallow != 20 {
		t.Errorf("CutShallow = %v, want 20", rec.Chronology.CutShallow)
	}
	d := &rec.Chronology.Determinants[0]
	if d.DeltaR != 250 || d.DeltaRError != 35 {
		t.Errorf("determinant correction = (%g, %g), want (250, 35)", d.DeltaR, d.DeltaRError)
	}
	if d.DeltaROriginal == nil || *d.DeltaROriginal != 400 {
		t.Errorf("original correction not preserved: %v", d.DeltaROriginal)
	}
}

func TestSiteOverrides_ApplyUnknownLabcode(t *testing.T) {
	rec, err := ncdc.Read(strings.NewReader(proxyFixture))
	if err != nil {
		t.Fatalf("unable to parse fixture: %v", err)
	}

	o := &SiteOverrides{DeltaR: map[string]ReservoirOverride{"NOPE-1": {DeltaR: 1}}}
	if err := o.Apply(rec); err == nil {
		t.Error("expected error for unknown labcode")
	}
	// record untouched after failed swap
	if got := rec.Chronology.Determinants[0].DeltaR; got != 400 {
		t.Errorf("determinant modified by failed apply: %g", got)
	}
}

func TestSiteOverrides_ApplyNil(t *testing.T) {
	var o *SiteOverrides
	if err := o.Apply(nil); err != nil {
		t.Errorf("nil overrides Apply() error = %v", err)
	}
}

func TestLoadReservoirPoints(t *testing.T) {
	dir := t.TempDir()
	writeOverrides(t, dir, reservoirFileName, strings.Join([]string{
		"- lat: 54.0",
		"  lon: -160.0",
		"  delta_r: 420",
		"  delta_r_1s_err: 60",
		"- lat: -40.0",
		"  lon: 170.0",
		"  delta_r: 100",
		"  delta_r_1s_err: 30",
		"",
	}, "\n"))

	points, err := LoadReservoirPoints(dir)
	if err != nil {
		t.Fatalf("LoadReservoirPoints() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].DeltaR != 420 || points[0].Lat != 54.0 {
		t.Errorf("points[0] = %+v", points[0])
	}
}

func TestLoadReservoirPoints_Missing(t *testing.T) {
	if points, err := LoadReservoirPoints(t.TempDir()); err != nil || points != nil {
		t.Errorf("missing table = (%v, %v), want (nil, nil)", points, err)
	}
	if points, err := LoadReservoirPoints(""); err != nil || points != nil {
		t.Errorf("no directory = (%v, %v), want (nil, nil)", points, err)
	}
}
