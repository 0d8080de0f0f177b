// Package ncdc parses NCDC/NOAA formatted paleoclimate proxy archive text
// files into typed records and computes their derived chronology fields.
//
// The format is line oriented. Metadata lines carry a leading '#', labeled
// sections are fenced by divider lines, and the measurement table at the end
// of the file is the only unprefixed content. Sections may repeat (multiple
// Publication blocks are common) and repetition order is preserved
// everywhere.
package ncdc

import (
	"strings"
)

const (
	divider         = "#------------------------"
	dataLineTrigger = "# Data lines follow (have no #)"
	missingValueKey = "# Missing Value:"

	chronHeader = "Labcode\tdepth_top\tdepth_bottom\tmat_dated\t14C_date\t14C_1s_err\tdelta_R\tdelta_R_1s_err\tother_date\tother_1s_err\tother_type"
)

// Section labels recognized in the wild. A fenced block whose heading is not
// listed here is skipped without failing.
const (
	SectionContributionDate = "Contribution_Date"
	SectionTitle            = "Title"
	SectionInvestigators    = "Investigators"
	SectionNote             = "NOTE: Please cite original publication, online resource and date accessed when using this data."
	SectionDescription      = "Description and Notes"
	SectionPublication      = "Publication"
	SectionFunding          = "Funding_Agency"
	SectionSite             = "Site Information"
	SectionDataCollection   = "Data_Collection"
	SectionSpecies          = "Species"
	SectionChronology       = "Chronology_Information"
	SectionVariables        = "Variables"
	SectionData             = "Data"
)

var sectionHeadings = []string{
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

// RawSection is one labeled fenced block: the lines between its heading and
// the next divider, heading excluded. A block with no content lines is a
// valid empty section, not an omission.
type RawSection struct {
	Label string
	// Start and End are line offsets into the source text (half-open,
	// content lines only). Useful for error reporting.
	Start, End int
	Lines      []string
}

// Guts is the tokenized form of one archive file. It knows where sections
// are but nothing about their meaning.
type Guts struct {
	lines    []string
	sections []*RawSection
	byLabel  map[string][]*RawSection
	dataAt   int // line index of the data-lines trigger, -1 when absent
}

// NewGuts tokenizes raw archive text. It never fails: malformed or unknown
// content outside recognized sections is ignored.
func NewGuts(text string) *Guts {
	g := &Guts{
		byLabel: make(map[string][]*RawSection),
		dataAt:  -1,
	}
	for _, ln := range strings.Split(text, "\n") {
		g.lines = append(g.lines, strings.TrimRight(ln, "\r"))
	}
	g.index()
	return g
}

func (g *Guts) index() {
	known := make(map[string]bool, len(sectionHeadings))
	for _, h := range sectionHeadings {
		known[h] = true
	}

	var cur *RawSection
	closeCurrent := func(end int) {
		if cur == nil {
			return
		}
		cur.End = end
		cur.Lines = g.lines[cur.Start:cur.End]
		g.sections = append(g.sections, cur)
		g.byLabel[cur.Label] = append(g.byLabel[cur.Label], cur)
		cur = nil
	}

	for i := 0; i < len(g.lines); i++ {
		ln := g.lines[i]

		if strings.HasPrefix(ln, divider) {
			closeCurrent(i)
			if i+1 >= len(g.lines) {
				break
			}
			heading := strings.TrimSpace(strings.TrimLeft(g.lines[i+1], "#"))
			if known[heading] {
				cur = &RawSection{Label: heading, Start: i + 2}
				i++ // heading line consumed
			}
			continue
		}
		if g.dataAt < 0 && strings.HasPrefix(ln, dataLineTrigger) {
			g.dataAt = i
		}
	}
	closeCurrent(len(g.lines))
}

// Sections returns every occurrence of the labeled section in encounter
// order. The result is nil when the label never appears.
func (g *Guts) Sections(label string) []*RawSection {
	return g.byLabel[label]
}

// Section returns the first occurrence of the labeled section.
func (g *Guts) Section(label string) (*RawSection, bool) {
	ss := g.byLabel[label]
	if len(ss) == 0 {
		return nil, false
	}
	return ss[0], true
}

// Available lists the labels present in the file, in encounter order,
// without duplicates.
func (g *Guts) Available() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range g.sections {
		if !seen[s.Label] {
			seen[s.Label] = true
			out = append(out, s.Label)
		}
	}
	return out
}

// Has reports whether the labeled section appears at least once.
func (g *Guts) Has(label string) bool {
	return len(g.byLabel[label]) > 0
}

// HasData reports whether the file carries unprefixed measurement lines.
func (g *Guts) HasData() bool {
	return len(g.DataLines()) > 0
}

// HasChronology reports whether a chronology table header was found.
func (g *Guts) HasChronology() bool {
	_, ok := g.chronTable()
	return ok
}

// DataLines returns the unprefixed measurement lines that follow the
// data-lines trigger: the tab separated column header first, rows after it.
func (g *Guts) DataLines() []string {
	if g.dataAt < 0 {
		return nil
	}
	var out []string
	for _, ln := range g.lines[g.dataAt+1:] {
		if strings.HasPrefix(ln, "#") || strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, ln)
	}
	return out
}

// ChronologyLines returns the rows of the chronology determination table,
// leading '#' stripped, header excluded.
func (g *Guts) ChronologyLines() []string {
	rows, _ := g.chronTable()
	return rows
}

func (g *Guts) chronTable() ([]string, bool) {
	for _, sec := range g.byLabel[SectionChronology] {
		for i, ln := range sec.Lines {
			// archive files usually carry a trailing tab after the last
			// header column and on table rows
			if strings.TrimRight(stripHash(ln), "\t ") != chronHeader {
				continue
			}
			var rows []string
			for _, row := range sec.Lines[i+1:] {
				row = strings.TrimRight(stripHash(row), "\t ")
				if strings.TrimSpace(row) == "" {
					continue
				}
				rows = append(rows, row)
			}
			return rows, true
		}
	}
	return nil, false
}

// GuessMissingValue returns the declared missing-value marker, e.g. "-999".
// The last declaration in the file wins. ok is false when the file declares
// none.
func (g *Guts) GuessMissingValue() (string, bool) {
	val, ok := "", false
	for _, ln := range g.lines {
		if strings.HasPrefix(ln, missingValueKey) {
			v := strings.TrimSpace(ln[len(missingValueKey):])
			if v != "" {
				val, ok = v, true
			}
		}
	}
	return val, ok
}

// stripHash removes the comment prefix from a metadata line: a leading '#'
// and at most one following space, so tab-aligned table rows keep their
// column structure.
func stripHash(ln string) string {
	if !strings.HasPrefix(ln, "#") {
		return ln
	}
	ln = strings.TrimLeft(ln, "#")
	if strings.HasPrefix(ln, " ") {
		ln = ln[1:]
	}
	return ln
}
