package ncdc

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Field extraction within a tokenized section. Lines look like
// "# Key: Value"; the LAST occurrence of a key wins and keys with empty
// values are treated as absent, matching the way contributors amend files by
// appending corrected lines.

// findValue scans section lines for "key<sep>value". ok is false when the
// key never appears or only appears with an empty value.
func findValue(lines []string, key string) (string, bool) {
	val, ok := "", false
	for _, ln := range lines {
		ln = stripHash(ln)
		rest, found := strings.CutPrefix(strings.TrimSpace(ln), key)
		if !found || !strings.HasPrefix(rest, ":") {
			continue
		}
		if v := strings.TrimSpace(rest[1:]); v != "" {
			val, ok = v, true
		}
	}
	return val, ok
}

// optString returns the value for key as a pointer, nil when absent.
func optString(lines []string, key string) *string {
	if v, ok := findValue(lines, key); ok {
		return &v
	}
	return nil
}

// optFloat coerces the value for key to float64. Absent keys yield nil,
// unparseable values a ParseError naming the field.
func optFloat(lines []string, key string) (*float64, error) {
	v, ok := findValue(lines, key)
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, &ParseError{Field: key, Raw: v, Err: err}
	}
	return &f, nil
}

// optInt coerces the value for key to int, same contract as optFloat.
func optInt(lines []string, key string) (*int, error) {
	v, ok := findValue(lines, key)
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &ParseError{Field: key, Raw: v, Err: err}
	}
	return &n, nil
}

// cell converts one table cell to float64 honoring the file's declared
// missing value marker. Empty cells and markers become NaN.
func cell(field, raw, missing string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == missing || strings.EqualFold(raw, "nan") || raw == "-999" {
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Raw: raw, Err: err}
	}
	return f, nil
}

// extractPublications pulls every Publication section occurrence into an
// independently validated Publication, preserving encounter order.
func (g *Guts) extractPublications() ([]Publication, error) {
	var out []Publication
	for _, sec := range g.Sections(SectionPublication) {
		p := Publication{
			Title:          optString(sec.Lines, "Published_Title"),
			Journal:        optString(sec.Lines, "Journal_Name"),
			Volume:         optString(sec.Lines, "Volume"),
			Edition:        optString(sec.Lines, "Edition"),
			Issue:          optString(sec.Lines, "Issue"),
			Pages:          optString(sec.Lines, "Pages"),
			ReportNumber:   optString(sec.Lines, "Report Number"),
			DOI:            optString(sec.Lines, "DOI"),
			OnlineResource: optString(sec.Lines, "Online_Resource"),
			FullCitation:   optString(sec.Lines, "Full_Citation"),
			Abstract:       optString(sec.Lines, "Abstract"),
		}
		if authors, ok := findValue(sec.Lines, "Authors"); ok {
			for _, a := range strings.Split(authors, ";") {
				if a = strings.TrimSpace(a); a != "" {
					p.Authors = append(p.Authors, a)
				}
			}
		}
		year, err := optInt(sec.Lines, "Published_Date_or_Year")
		if err != nil {
			return nil, err
		}
		p.Year = year
		out = append(out, p)
	}
	return out, nil
}

// extractSiteInformation reads the Site Information section.
func (g *Guts) extractSiteInformation() (SiteInformation, error) {
	si := SiteInformation{}
	sec, ok := g.Section(SectionSite)
	if !ok {
		return si, nil
	}
	si.SiteName = optString(sec.Lines, "Site_Name")
	si.Location = optString(sec.Lines, "Location")
	si.Country = optString(sec.Lines, "Country")

	var err error
	for _, f := range []struct {
		key string
		dst **float64
	}{
		{"Northernmost_Latitude", &si.NorthernmostLatitude},
		{"Southernmost_Latitude", &si.SouthernmostLatitude},
		{"Easternmost_Longitude", &si.EasternmostLongitude},
		{"Westernmost_Longitude", &si.WesternmostLongitude},
		{"Elevation", &si.Elevation},
	} {
		if *f.dst, err = optFloat(sec.Lines, f.key); err != nil {
			return si, err
		}
	}
	return si, nil
}

// extractDataCollection reads Data_Collection metadata. First_Year and
// Last_Year are coerced to float even when written as integers, fractional
// years are valid.
func (g *Guts) extractDataCollection(dst *DataCollection) error {
	sec, ok := g.Section(SectionDataCollection)
	if !ok {
		return nil
	}
	dst.CollectionName = optString(sec.Lines, "Collection_Name")
	dst.TimeUnit = optString(sec.Lines, "Time_Unit")
	dst.CoreLength = optString(sec.Lines, "Core_Length")
	dst.Notes = optString(sec.Lines, "Notes")

	var err error
	if dst.FirstYear, err = optFloat(sec.Lines, "First_Year"); err != nil {
		return err
	}
	if dst.LastYear, err = optFloat(sec.Lines, "Last_Year"); err != nil {
		return err
	}
	if dst.CollectionYear, err = optInt(sec.Lines, "Collection_Year"); err != nil {
		return err
	}
	return nil
}

// extractVariables reads the Variables section. Variable lines start with
// "## name" followed by a tab and nine comma separated components.
func (g *Guts) extractVariables() (VariablesSection, error) {
	vs := VariablesSection{ByName: make(map[string]VariableInfo)}
	sec, ok := g.Section(SectionVariables)
	if !ok {
		return vs, nil
	}
	for _, ln := range sec.Lines {
		if !strings.HasPrefix(ln, "## ") {
			continue
		}
		name, components, found := strings.Cut(ln[3:], "\t")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		parts := strings.Split(components, ",")
		get := func(i int) string {
			if i < len(parts) {
				return strings.TrimSpace(parts[i])
			}
			return ""
		}
		vs.Names = append(vs.Names, name)
		vs.ByName[name] = VariableInfo{
			Material:    get(0),
			Error:       get(1),
			Units:       get(2),
			Seasonality: get(3),
			Archive:     get(4),
			Detail:      get(5),
			Method:      get(6),
			DataType:    get(7),
			Direction:   get(8),
		}
	}
	return vs, nil
}

// extractChronology parses the tab-delimited chronology determination table.
func (g *Guts) extractChronology() (ChronologyInformation, error) {
	ci := ChronologyInformation{}
	missing, _ := g.GuessMissingValue()

	for _, row := range g.ChronologyLines() {
		fields := strings.Split(row, "\t")
		get := func(i int) string {
			if i < len(fields) {
				return strings.TrimSpace(fields[i])
			}
			return ""
		}
		d := Determinant{
			Labcode:       get(0),
			MaterialDated: textCell(get(3), missing),
			OtherType:     textCell(get(10), missing),
		}
		var err error
		for _, f := range []struct {
			name string
			idx  int
			dst  *float64
		}{
			{"depth_top", 1, &d.DepthTop},
			{"depth_bottom", 2, &d.DepthBottom},
			{"14C_date", 4, &d.C14Date},
			{"14C_1s_err", 5, &d.C14Error},
			{"delta_R", 6, &d.DeltaR},
			{"delta_R_1s_err", 7, &d.DeltaRError},
			{"other_date", 8, &d.OtherDate},
			{"other_1s_err", 9, &d.OtherError},
		} {
			if *f.dst, err = cell(f.name, get(f.idx), missing); err != nil {
				return ci, err
			}
		}
		ci.Determinants = append(ci.Determinants, d)
	}
	return ci, nil
}

// extractData parses the unprefixed measurement table at the end of the
// file: a tab separated header line followed by data rows.
func (g *Guts) extractData(dst *DataCollection) error {
	lines := g.DataLines()
	if len(lines) == 0 {
		return nil
	}
	missing, _ := g.GuessMissingValue()

	header := strings.Split(lines[0], "\t")
	cols := make([]Column, 0, len(header))
	for _, h := range header {
		cols = append(cols, Column{Name: strings.TrimSpace(h)})
	}

	for _, row := range lines[1:] {
		fields := strings.Split(row, "\t")
		for i := range cols {
			raw := ""
			if i < len(fields) {
				raw = fields[i]
			}
			v, err := cell(cols[i].Name, raw, missing)
			if err != nil {
				return err
			}
			cols[i].Values = append(cols[i].Values, v)
		}
	}
	dst.Columns = cols
	return nil
}

// extractContributionDate reads the Contribution_Date section, expected as
// "Date: YYYY-MM-DD".
func (g *Guts) extractContributionDate() (*time.Time, error) {
	sec, ok := g.Section(SectionContributionDate)
	if !ok {
		return nil, nil
	}
	v, ok := findValue(sec.Lines, "Date")
	if !ok {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, &ParseError{Field: "Date", Raw: v, Err: err}
	}
	return &t, nil
}

// extractFunding pulls every Funding_Agency occurrence.
func (g *Guts) extractFunding() []Funding {
	var out []Funding
	for _, sec := range g.Sections(SectionFunding) {
		f := Funding{
			Agency: optString(sec.Lines, "Funding_Agency_Name"),
			Grant:  optString(sec.Lines, "Grant"),
		}
		if f.Agency != nil || f.Grant != nil {
			out = append(out, f)
		}
	}
	return out
}

// extractSpecies reads species names, one per "Species_Name" line.
func (g *Guts) extractSpecies() []string {
	var out []string
	for _, sec := range g.Sections(SectionSpecies) {
		for _, ln := range sec.Lines {
			ln = strings.TrimSpace(stripHash(ln))
			if rest, ok := strings.CutPrefix(ln, "Species_Name:"); ok {
				if name := strings.TrimSpace(rest); name != "" {
					out = append(out, name)
				}
			}
		}
	}
	return out
}

// textCell normalizes a free-text table cell, mapping the missing value
// marker to the empty string.
func textCell(raw, missing string) string {
	if raw == missing || raw == "-999" || strings.EqualFold(raw, "nan") {
		return ""
	}
	return raw
}
