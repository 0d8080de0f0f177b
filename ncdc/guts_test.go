package ncdc

import (
	"reflect"
	"strings"
	"testing"
)

var sampleArchive = strings.Join([]string{
	"# Wonder Lake multiproxy record",
	"#------------------------",
	"# Contribution_Date",
	"#    Date: 2015-06-12",
	"#------------------------",
	"# Title",
	"#    Study_Name: Wonder Lake d18O",
	"#------------------------",
	"# Investigators",
	"#    Investigators: Smith, A.; Jones, B.",
	"#------------------------",
	"# NOTE: Please cite original publication, online resource and date accessed when using this data.",
	"#    Original_Source_URL: https://www.ncdc.noaa.gov/paleo/study/12345",
	"#------------------------",
	"# Description and Notes",
	"#    Description: Marine sediment core record.",
	"#------------------------",
	"# Publication",
	"#    Authors: Smith, A.; Jones, B.",
	"#    Published_Date_or_Year: 2014",
	"#    Published_Title: Holocene variability at Wonder Lake",
	"#    Journal_Name: Paleoceanography",
	"#    Volume: 29",
	"#    Pages: 101-115",
	"#    DOI: 10.1000/xyz123",
	"#------------------------",
	"# Funding_Agency",
	"#    Funding_Agency_Name: NSF",
	"#    Grant: OCE-1234567",
	"#------------------------",
	"# Site Information",
	"#    Site_Name: Wonder Lake",
	"#    Location: North Pacific Ocean",
	"#    Country: USA",
	"#    Northernmost_Latitude: 54.5",
	"#    Southernmost_Latitude: 54.5",
	"#    Easternmost_Longitude: -160.25",
	"#    Westernmost_Longitude: -160.25",
	"#    Elevation: -1420",
	"#------------------------",
	"# Data_Collection",
	"#    Collection_Name: WL-21K",
	"#    First_Year: 21000",
	"#    Last_Year: 150",
	"#    Time_Unit: cal yr BP",
	"#    Core_Length: 12.4 m",
	"#    Collection_Year: 2009",
	"#    Notes: splice of two holes",
	"#------------------------",
	"# Species",
	"#    Species_Name: Neogloboquadrina pachyderma",
	"#------------------------",
	"# Chronology_Information",
	"# Labcode\tdepth_top\tdepth_bottom\tmat_dated\t14C_date\t14C_1s_err\tdelta_R\tdelta_R_1s_err\tother_date\tother_1s_err\tother_type",
	"# OS-1001\t10\t12\tforam mix\t1850\t30\t400\t50\t-999\t-999\tnan",
	"# OS-1002\t100\t102\tforam mix\t9800\t60\t400\t50\t-999\t-999\tnan",
	"#------------------------",
	"# Variables",
	"## depth\t,,cm,,marine sediment,,,N,",
	"## d18O\tforaminifera,,permil,1 2 3 4 5 6 7 8 9 10 11 12,marine sediment,,analytic,N,",
	"## temperature\tforaminifera,,deg C,,marine sediment,,Mg/Ca,N,",
	"#------------------------",
	"# Data",
	"# Data lines follow (have no #)",
	"# Missing Value: -999",
	"depth\td18O\ttemperature",
	"10\t3.21\t4.5",
	"50\t3.05\t-999",
	"50\t2.95\t5.1",
	"120\t2.44\t6.0",
	"",
}, "\n")

func TestNewGuts_SectionIndex(t *testing.T) {
	g := NewGuts(sampleArchive)

	want := []string{
		SectionContributionDate,
		SectionTitle,
		SectionInvestigators,
		SectionNote,
		SectionDescription,
		SectionPublication,
		SectionFunding,
		SectionSite,
		SectionDataCollection,
		SectionSpecies,
		SectionChronology,
		SectionVariables,
		SectionData,
	}
	if got := g.Available(); !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
	if !g.Has(SectionSite) {
		t.Error("Has(Site Information) = false")
	}
	if g.Has("Bogus") {
		t.Error("Has(Bogus) = true")
	}
}

func TestNewGuts_RepeatedSections(t *testing.T) {
	text := strings.Join([]string{
		"#------------------------",
		"# Publication",
		"#    Published_Title: first",
		"#------------------------",
		"# Publication",
		"#    Published_Title: second",
		"#------------------------",
	}, "\n")
	g := NewGuts(text)

	pubs := g.Sections(SectionPublication)
	if len(pubs) != 2 {
		t.Fatalf("Sections(Publication) = %d occurrences, want 2", len(pubs))
	}
	if !strings.Contains(pubs[0].Lines[0], "first") || !strings.Contains(pubs[1].Lines[0], "second") {
		t.Errorf("occurrence order not preserved: %v / %v", pubs[0].Lines, pubs[1].Lines)
	}
}

func TestNewGuts_EmptySection(t *testing.T) {
	text := strings.Join([]string{
		"#------------------------",
		"# Species",
		"#------------------------",
		"# Title",
		"#    Study_Name: x",
		"#------------------------",
	}, "\n")
	g := NewGuts(text)

	sec, ok := g.Section(SectionSpecies)
	if !ok {
		t.Fatal("empty section should still be indexed")
	}
	if len(sec.Lines) != 0 {
		t.Errorf("empty section has %d lines, want 0", len(sec.Lines))
	}
}

func TestGuts_DataLines(t *testing.T) {
	g := NewGuts(sampleArchive)

	lines := g.DataLines()
	if len(lines) != 5 {
		t.Fatalf("DataLines() = %d lines, want 5 (header + 4 rows)", len(lines))
	}
	if lines[0] != "depth\td18O\ttemperature" {
		t.Errorf("header = %q", lines[0])
	}
	if !g.HasData() {
		t.Error("HasData() = false")
	}
}

func TestGuts_DataLines_NoTrigger(t *testing.T) {
	g := NewGuts("#------------------------\n# Title\n#    Study_Name: x\n")
	if g.DataLines() != nil {
		t.Error("DataLines() should be nil without the trigger line")
	}
	if g.HasData() {
		t.Error("HasData() = true without the trigger line")
	}
}

func TestGuts_ChronologyLines(t *testing.T) {
	g := NewGuts(sampleArchive)

	if !g.HasChronology() {
		t.Fatal("HasChronology() = false")
	}
	rows := g.ChronologyLines()
	if len(rows) != 2 {
		t.Fatalf("ChronologyLines() = %d rows, want 2", len(rows))
	}
	if !strings.HasPrefix(rows[0], "OS-1001\t") {
		t.Errorf("first row = %q, want hash stripped and labcode first", rows[0])
	}
}

func TestGuts_ChronologyLines_TrailingTab(t *testing.T) {
	// archive files in the wild end the header and every table row with a
	// trailing tab
	text := strings.Join([]string{
		"#------------------------",
		"# Chronology_Information",
		"# Labcode\tdepth_top\tdepth_bottom\tmat_dated\t14C_date\t14C_1s_err\tdelta_R\tdelta_R_1s_err\tother_date\tother_1s_err\tother_type\t",
		"# OS-1001\t10\t12\tforam mix\t1850\t30\t400\t50\t-999\t-999\tnan\t",
		"#------------------------",
	}, "\n")
	g := NewGuts(text)

	if !g.HasChronology() {
		t.Fatal("HasChronology() = false with trailing tab on header")
	}
	rows := g.ChronologyLines()
	if len(rows) != 1 {
		t.Fatalf("ChronologyLines() = %d rows, want 1", len(rows))
	}
	if strings.HasSuffix(rows[0], "\t") {
		t.Errorf("row %q keeps trailing tab", rows[0])
	}
	if !strings.HasSuffix(rows[0], "\tnan") {
		t.Errorf("row = %q, want last column intact", rows[0])
	}
}

func TestGuts_GuessMissingValue(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"declared", sampleArchive, "-999", true},
		{"absent", "# plain header\n", "", false},
		{"last wins", "# Missing Value: -99\n# Missing Value: -999.9\n", "-999.9", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewGuts(tt.text).GuessMissingValue()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("GuessMissingValue() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStripHash(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"# Key: Value", "Key: Value"},
		{"#\tA\tB", "\tA\tB"},
		{"## doubled", "doubled"},
		{"no hash", "no hash"},
		{"#", ""},
	}
	for _, tt := range tests {
		if got := stripHash(tt.in); got != tt.want {
			t.Errorf("stripHash(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
