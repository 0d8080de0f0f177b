package ncdc

import (
	"io"
	"math"
	"os"
)

// Build assembles a Record from tokenized sections. The collection name,
// site name and location are required; a missing one fails with a
// SchemaError and no partially built Record escapes.
func Build(g *Guts) (*Record, error) {
	r := &Record{}

	var err error
	if r.Site, err = g.extractSiteInformation(); err != nil {
		return nil, err
	}
	if r.ContributionDate, err = g.extractContributionDate(); err != nil {
		return nil, err
	}
	if r.Publications, err = g.extractPublications(); err != nil {
		return nil, err
	}
	if err = g.extractDataCollection(&r.Data); err != nil {
		return nil, err
	}
	if r.Variables, err = g.extractVariables(); err != nil {
		return nil, err
	}
	if r.Chronology, err = g.extractChronology(); err != nil {
		return nil, err
	}
	if err = g.extractData(&r.Data); err != nil {
		return nil, err
	}
	r.Funding = g.extractFunding()
	r.Species = g.extractSpecies()

	if sec, ok := g.Section(SectionInvestigators); ok {
		r.Investigators = optString(sec.Lines, "Investigators")
	}
	if sec, ok := g.Section(SectionDescription); ok {
		r.Description = optString(sec.Lines, "Description")
	}
	if sec, ok := g.Section(SectionNote); ok {
		r.OriginalSourceURL = optString(sec.Lines, "Original_Source_URL")
	}
	if r.OriginalSourceURL == nil {
		if sec, ok := g.Section(SectionContributionDate); ok {
			r.OriginalSourceURL = optString(sec.Lines, "Original_Source_URL")
		}
	}

	for _, req := range []struct {
		field string
		ok    bool
	}{
		{"Collection_Name", r.Data.CollectionName != nil},
		{"Site_Name", r.Site.SiteName != nil},
		{"Location", r.Site.Location != nil},
	} {
		if !req.ok {
			return nil, &SchemaError{Field: req.field}
		}
	}
	return r, nil
}

// Read parses one archive file from r, detecting and converting its
// character encoding first.
func Read(r io.Reader) (*Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text, err := DecodeBytes(raw)
	if err != nil {
		return nil, err
	}
	return Build(NewGuts(text))
}

// ReadFile parses the archive file at path.
func ReadFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// ReadLgm wraps a parsed record for the Last Glacial Maximum compilation:
// radiocarbon dated marine sediments, so ages calibrate against a marine
// curve and the model floor is the core collection date expressed as
// cal yr BP.
func ReadLgm(r io.Reader) (*LgmRecord, error) {
	rec, err := Read(r)
	if err != nil {
		return nil, err
	}
	out := &LgmRecord{Record: *rec}
	out.CalibrationCurve = "marine"
	if year, ok := rec.RecentDate(); ok {
		out.MinYear = float64(1950 - year)
	}
	return out, nil
}

// ReadPetm wraps a parsed record for the Paleocene-Eocene Thermal Maximum
// compilation. Dates are already calendar ages, no calibration applies.
func ReadPetm(r io.Reader) (*PetmRecord, error) {
	rec, err := Read(r)
	if err != nil {
		return nil, err
	}
	out := &PetmRecord{Record: *rec}
	out.CalibrationCurve = "none"
	return out, nil
}

// SetCutoffs installs the shallow/deep reliability bounds. Either may be
// nil. When both are set the pair must order shallow <= deep, an inverted
// pair fails with InvalidRangeError and leaves the chronology unchanged.
func (c *ChronologyInformation) SetCutoffs(shallow, deep *float64) error {
	if shallow != nil && deep != nil && *shallow > *deep {
		return &InvalidRangeError{Low: *shallow, High: *deep}
	}
	for _, v := range []*float64{shallow, deep} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return &InvalidRangeError{Low: ptrOr(shallow), High: ptrOr(deep)}
		}
	}
	c.CutShallow, c.CutDeep = shallow, deep
	return nil
}

func ptrOr(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// AverageDuplicateDepths collapses measurement rows that share a depth into
// one row holding the NaN-aware mean of each column. Encounter order of
// first occurrences is preserved. Age ensemble and median rows collapse
// under the same grouping. A collection without a depth column is left
// unchanged.
func (d *DataCollection) AverageDuplicateDepths() {
	depths, ok := d.Depths()
	if !ok {
		return
	}
	groups := make(map[float64][]int, len(depths))
	order := make([]float64, 0, len(depths))
	for i, depth := range depths {
		if _, seen := groups[depth]; !seen {
			order = append(order, depth)
		}
		groups[depth] = append(groups[depth], i)
	}
	if len(order) == len(depths) {
		return
	}

	for ci := range d.Columns {
		merged := make([]float64, 0, len(order))
		for _, depth := range order {
			merged = append(merged, nanMean(d.Columns[ci].Values, groups[depth]))
		}
		d.Columns[ci].Values = merged
	}
	if d.AgeMedian != nil {
		merged := make([]float64, 0, len(order))
		for _, depth := range order {
			merged = append(merged, nanMean(d.AgeMedian, groups[depth]))
		}
		d.AgeMedian = merged
	}
	if d.AgeEnsemble != nil {
		merged := make([][]float64, 0, len(order))
		for _, depth := range order {
			rows := groups[depth]
			draws := len(d.AgeEnsemble[rows[0]])
			row := make([]float64, draws)
			for j := 0; j < draws; j++ {
				sum, n := 0.0, 0
				for _, ri := range rows {
					if v := d.AgeEnsemble[ri][j]; !math.IsNaN(v) {
						sum += v
						n++
					}
				}
				if n == 0 {
					row[j] = math.NaN()
				} else {
					row[j] = sum / float64(n)
				}
			}
			merged = append(merged, row)
		}
		d.AgeEnsemble = merged
	}
}

// nanMean averages values at the given indexes ignoring NaN entries,
// returning NaN when none remain.
func nanMean(values []float64, idx []int) float64 {
	sum, n := 0.0, 0
	for _, i := range idx {
		if v := values[i]; !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
