package ncdc

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestFindValue(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		key    string
		want   string
		wantOK bool
	}{
		{
			name:   "plain",
			lines:  []string{"#    Site_Name: Wonder Lake"},
			key:    "Site_Name",
			want:   "Wonder Lake",
			wantOK: true,
		},
		{
			name:   "last occurrence wins",
			lines:  []string{"# Elevation: 100", "# Elevation: 250"},
			key:    "Elevation",
			want:   "250",
			wantOK: true,
		},
		{
			name:   "empty value is absent",
			lines:  []string{"# Country:"},
			key:    "Country",
			wantOK: false,
		},
		{
			name:   "empty then filled",
			lines:  []string{"# Country:", "# Country: USA"},
			key:    "Country",
			want:   "USA",
			wantOK: true,
		},
		{
			name:   "filled then empty keeps filled",
			lines:  []string{"# Country: USA", "# Country:"},
			key:    "Country",
			want:   "USA",
			wantOK: true,
		},
		{
			name:   "key never appears",
			lines:  []string{"# Site_Name: Wonder Lake"},
			key:    "Country",
			wantOK: false,
		},
		{
			name:   "prefix of longer key does not match",
			lines:  []string{"# Site_Name_Long: nope"},
			key:    "Site_Name",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findValue(tt.lines, tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("findValue() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestOptFloat_ParseError(t *testing.T) {
	_, err := optFloat([]string{"# Elevation: very deep"}, "Elevation")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Field != "Elevation" || pe.Raw != "very deep" {
		t.Errorf("ParseError = %+v, want field Elevation raw %q", pe, "very deep")
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		missing string
		want    float64
		wantNaN bool
	}{
		{"number", "3.21", "-999", 3.21, false},
		{"declared missing", "-999.9", "-999.9", 0, true},
		{"fallback missing", "-999", "", 0, true},
		{"empty", "", "-999", 0, true},
		{"nan literal", "NaN", "-999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cell("x", tt.raw, tt.missing)
			if err != nil {
				t.Fatalf("cell() error: %v", err)
			}
			if tt.wantNaN != math.IsNaN(got) || (!tt.wantNaN && got != tt.want) {
				t.Errorf("cell(%q) = %v, want %v (NaN=%v)", tt.raw, got, tt.want, tt.wantNaN)
			}
		})
	}

	if _, err := cell("d18O", "abc", "-999"); err == nil {
		t.Error("cell() should fail on unparseable text")
	}
}

func TestExtractPublications(t *testing.T) {
	g := NewGuts(sampleArchive)
	pubs, err := g.extractPublications()
	if err != nil {
		t.Fatal(err)
	}
	if len(pubs) != 1 {
		t.Fatalf("got %d publications, want 1", len(pubs))
	}
	p := pubs[0]
	if want := []string{"Smith, A.", "Jones, B."}; !reflect.DeepEqual(p.Authors, want) {
		t.Errorf("Authors = %v, want %v", p.Authors, want)
	}
	if p.Year == nil || *p.Year != 2014 {
		t.Errorf("Year = %v, want 2014", p.Year)
	}
	if p.Issue != nil {
		t.Errorf("Issue should be absent, got %q", *p.Issue)
	}
	want := "Smith, A.; Jones, B. (2014): Holocene variability at Wonder Lake. Paleoceanography, 29, 101-115, doi:10.1000/xyz123"
	if got := p.Citation(); got != want {
		t.Errorf("Citation() = %q, want %q", got, want)
	}
}

func TestExtractSiteInformation(t *testing.T) {
	g := NewGuts(sampleArchive)
	si, err := g.extractSiteInformation()
	if err != nil {
		t.Fatal(err)
	}
	if si.SiteName == nil || *si.SiteName != "Wonder Lake" {
		t.Errorf("SiteName = %v", si.SiteName)
	}
	if si.Elevation == nil || *si.Elevation != -1420 {
		t.Errorf("Elevation = %v", si.Elevation)
	}
	lat, lon, ok := si.LatLon()
	if !ok || lat != 54.5 || lon != -160.25 {
		t.Errorf("LatLon() = (%v, %v, %v)", lat, lon, ok)
	}
}

func TestExtractVariables(t *testing.T) {
	g := NewGuts(sampleArchive)
	vs, err := g.extractVariables()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"depth", "d18O", "temperature"}; !reflect.DeepEqual(vs.Names, want) {
		t.Fatalf("Names = %v, want %v", vs.Names, want)
	}
	d18O := vs.Info("d18O")
	if d18O.Material != "foraminifera" || d18O.Units != "permil" || d18O.Seasonality != "1 2 3 4 5 6 7 8 9 10 11 12" {
		t.Errorf("d18O info = %+v", d18O)
	}
	temp := vs.Info("temperature")
	if temp.DataType != "Mg/Ca" {
		t.Errorf("temperature data type = %q, want Mg/Ca", temp.DataType)
	}
}

func TestExtractChronology(t *testing.T) {
	g := NewGuts(sampleArchive)
	ci, err := g.extractChronology()
	if err != nil {
		t.Fatal(err)
	}
	if len(ci.Determinants) != 2 {
		t.Fatalf("got %d determinants, want 2", len(ci.Determinants))
	}
	d := ci.Determinants[0]
	if d.Labcode != "OS-1001" {
		t.Errorf("Labcode = %q", d.Labcode)
	}
	if d.C14Date != 1850 || d.C14Error != 30 || d.DeltaR != 400 || d.DeltaRError != 50 {
		t.Errorf("dates = %+v", d)
	}
	if !math.IsNaN(d.OtherDate) || !math.IsNaN(d.OtherError) {
		t.Error("other date fields should be NaN for the -999 marker")
	}
	if d.OtherType != "" {
		t.Errorf("OtherType = %q, want empty for nan", d.OtherType)
	}
	if got := d.Depth(); got != 11 {
		t.Errorf("Depth() = %v, want interval midpoint 11", got)
	}
	if !d.HasC14() {
		t.Error("HasC14() = false")
	}
}

func TestExtractData(t *testing.T) {
	g := NewGuts(sampleArchive)
	var dc DataCollection
	if err := g.extractData(&dc); err != nil {
		t.Fatal(err)
	}
	if dc.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", dc.Len())
	}
	if len(dc.Columns) != 3 {
		t.Fatalf("got %d columns, want 3", len(dc.Columns))
	}
	temps, ok := dc.Column("Temperature")
	if !ok {
		t.Fatal("Column lookup should be case-insensitive")
	}
	if !math.IsNaN(temps[1]) {
		t.Errorf("temps[1] = %v, want NaN for missing marker", temps[1])
	}
	depths, ok := dc.Depths()
	if !ok || !reflect.DeepEqual(depths, []float64{10, 50, 50, 120}) {
		t.Errorf("Depths() = (%v, %v)", depths, ok)
	}
	if want := []string{"d18O", "temperature"}; !reflect.DeepEqual(dc.ProxyNames(), want) {
		t.Errorf("ProxyNames() = %v, want %v", dc.ProxyNames(), want)
	}
}

func TestExtractContributionDate(t *testing.T) {
	g := NewGuts(sampleArchive)
	d, err := g.extractContributionDate()
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Year() != 2015 || int(d.Month()) != 6 || d.Day() != 12 {
		t.Errorf("date = %v, want 2015-06-12", d)
	}

	g = NewGuts("#------------------------\n# Contribution_Date\n#    Date: June 2015\n#------------------------\n")
	if _, err := g.extractContributionDate(); err == nil {
		t.Error("malformed date should fail")
	}
}
