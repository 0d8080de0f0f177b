package ncdc

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Publication describes one cited publication. Optional fields are nil when
// the source file leaves them out, never empty strings, so "unset" stays
// distinguishable from "known empty".
type Publication struct {
	Authors        []string
	Year           *int
	Title          *string
	Journal        *string
	Volume         *string
	Edition        *string
	Issue          *string
	Pages          *string
	ReportNumber   *string
	DOI            *string
	OnlineResource *string
	FullCitation   *string
	Abstract       *string
}

// Citation formats the publication as "Authors (Year): Title. Journal,
// Volume, Issue, Pages, doi:DOI" skipping absent parts.
func (p *Publication) Citation() string {
	var sb strings.Builder

	if len(p.Authors) > 0 {
		sb.WriteString(strings.Join(p.Authors, "; "))
	}
	if p.Year != nil {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("(")
		sb.WriteString(strconv.Itoa(*p.Year))
		sb.WriteString(")")
	}
	if sb.Len() > 0 {
		sb.WriteString(": ")
	}
	if p.Title != nil {
		sb.WriteString(strings.TrimSuffix(*p.Title, "."))
		sb.WriteString(". ")
	}

	var parts []string
	for _, s := range []*string{p.Journal, p.Volume, p.Issue, p.Pages} {
		if s != nil {
			parts = append(parts, *s)
		}
	}
	if p.DOI != nil {
		parts = append(parts, "doi:"+*p.DOI)
	}
	sb.WriteString(strings.Join(parts, ", "))
	return strings.TrimSpace(sb.String())
}

// SiteInformation describes where the proxy archive was collected.
type SiteInformation struct {
	SiteName              *string
	Location              *string
	Country               *string
	NorthernmostLatitude  *float64
	SouthernmostLatitude  *float64
	EasternmostLongitude  *float64
	WesternmostLongitude  *float64
	Elevation             *float64
}

// LatLon returns the canonical site coordinate (northernmost latitude,
// westernmost longitude) the way downstream consumers expect it. ok is false
// when either half is missing.
func (s *SiteInformation) LatLon() (lat, lon float64, ok bool) {
	if s.NorthernmostLatitude == nil || s.WesternmostLongitude == nil {
		return 0, 0, false
	}
	return *s.NorthernmostLatitude, *s.WesternmostLongitude, true
}

// VariableInfo is the metadata encoded as nine comma separated components on
// a "## name" line of the Variables section.
type VariableInfo struct {
	Material    string
	Error       string
	Units       string
	Seasonality string
	Archive     string
	Detail      string
	Method      string
	DataType    string
	Direction   string
}

// VariablesSection maps column names to their metadata preserving file order.
type VariablesSection struct {
	Names  []string
	ByName map[string]VariableInfo
}

// Info returns metadata for the named column, zero value when the file never
// declared it.
func (v *VariablesSection) Info(name string) VariableInfo {
	if v.ByName == nil {
		return VariableInfo{}
	}
	return v.ByName[name]
}

// Determinant is one dated point of the depth-age chronology. Numeric fields
// use NaN for values the file marks missing.
type Determinant struct {
	Labcode       string
	DepthTop      float64
	DepthBottom   float64
	MaterialDated string
	C14Date       float64
	C14Error      float64
	DeltaR        float64
	DeltaRError   float64
	OtherDate     float64
	OtherError    float64
	OtherType     string

	// set on first reservoir correction swap-in, keeping the file values
	// available to exports
	DeltaROriginal      *float64
	DeltaRErrorOriginal *float64
}

// Depth is the representative depth of the determinant: midpoint of the
// sampled interval, top depth alone when the bottom is missing.
func (d *Determinant) Depth() float64 {
	if math.IsNaN(d.DepthBottom) {
		return d.DepthTop
	}
	return (d.DepthTop + d.DepthBottom) / 2
}

// HasC14 reports whether the determinant carries a radiocarbon date.
func (d *Determinant) HasC14() bool {
	return !math.IsNaN(d.C14Date)
}

// ChronologyInformation holds the dated determinants and the optional
// shallow/deep reliability cutoffs.
type ChronologyInformation struct {
	Determinants []Determinant

	// trim bounds, either may be absent independently
	CutShallow *float64
	CutDeep    *float64
}

// HasDeltaR reports whether any determinant carries a reservoir correction.
func (c *ChronologyInformation) HasDeltaR() bool {
	for i := range c.Determinants {
		if !math.IsNaN(c.Determinants[i].DeltaR) {
			return true
		}
	}
	return false
}

// HasDeltaRError reports whether any determinant carries a reservoir
// correction error.
func (c *ChronologyInformation) HasDeltaRError() bool {
	for i := range c.Determinants {
		if !math.IsNaN(c.Determinants[i].DeltaRError) {
			return true
		}
	}
	return false
}

// Swapped reports whether reservoir corrections were replaced with overrides
// at least once.
func (c *ChronologyInformation) Swapped() bool {
	for i := range c.Determinants {
		if c.Determinants[i].DeltaROriginal != nil || c.Determinants[i].DeltaRErrorOriginal != nil {
			return true
		}
	}
	return false
}

// Column is one named series of the measurement table.
type Column struct {
	Name   string
	Values []float64
}

// DataCollection is the tabular depth/time series together with collection
// metadata and the optional modeled ages attached after age-depth sampling.
type DataCollection struct {
	Columns []Column

	CollectionName *string
	FirstYear      *float64
	LastYear       *float64
	TimeUnit       *string
	CoreLength     *string
	Notes          *string
	CollectionYear *int

	// AgeEnsemble rows and AgeMedian are aligned to data rows when present.
	AgeEnsemble [][]float64
	AgeMedian   []float64
}

// Len returns the number of data rows.
func (d *DataCollection) Len() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// Column returns the named series, ok is false when the column does not
// exist. Lookup is case insensitive, file headers are not consistent.
func (d *DataCollection) Column(name string) ([]float64, bool) {
	for i := range d.Columns {
		if strings.EqualFold(d.Columns[i].Name, name) {
			return d.Columns[i].Values, true
		}
	}
	return nil, false
}

// Depths returns the depth column.
func (d *DataCollection) Depths() ([]float64, bool) {
	return d.Column("depth")
}

// ProxyNames lists measurement columns, skipping dimension-like series.
func (d *DataCollection) ProxyNames() []string {
	var out []string
	for i := range d.Columns {
		switch strings.ToLower(d.Columns[i].Name) {
		case "depth", "age", "age_median", "age_ensemble", "original_age":
		default:
			out = append(out, d.Columns[i].Name)
		}
	}
	return out
}

// Funding is one Funding_Agency section occurrence.
type Funding struct {
	Agency *string
	Grant  *string
}

// Record is the canonical parsed form of one archive file.
type Record struct {
	Site              SiteInformation
	ContributionDate  *time.Time
	Investigators     *string
	Description       *string
	OriginalSourceURL *string
	Publications      []Publication
	Funding           []Funding
	Species           []string
	Variables         VariablesSection
	Chronology        ChronologyInformation
	Data              DataCollection
}

// Identifier returns the collection name, the record's required identity.
func (r *Record) Identifier() string {
	if r.Data.CollectionName == nil {
		return ""
	}
	return *r.Data.CollectionName
}

// RecentDate returns the most recent calendar year known for the record:
// collection year when present, otherwise the earliest publication year,
// otherwise the contribution date year. ok is false when none is known.
func (r *Record) RecentDate() (int, bool) {
	if r.Data.CollectionYear != nil {
		return *r.Data.CollectionYear, true
	}
	year := 0
	for i := range r.Publications {
		if y := r.Publications[i].Year; y != nil && (year == 0 || *y < year) {
			year = *y
		}
	}
	if year != 0 {
		return year, true
	}
	if r.ContributionDate != nil {
		return r.ContributionDate.Year(), true
	}
	return 0, false
}

// HasData reports whether the record carries at least one measurement row.
func (r *Record) HasData() bool {
	return r.Data.Len() > 0
}

// HasChronology reports whether the record carries enough dated determinants
// to build an age model.
func (r *Record) HasChronology() bool {
	return len(r.Chronology.Determinants) > 1
}

// AgeModelInfo carries the fields specialized readers attach for records
// that go through probabilistic age-depth modeling.
type AgeModelInfo struct {
	// MinYear is the youngest age the model may produce, cal yr BP.
	MinYear float64
	// CalibrationCurve selects radiocarbon calibration: "marine" for ocean
	// sediment records, "none" when dates are already calendar ages.
	CalibrationCurve string
}

// LgmRecord is a Record from the Last Glacial Maximum compilation: marine
// sediment archives dated by radiocarbon with reservoir corrections.
type LgmRecord struct {
	Record
	AgeModelInfo
}

// PetmRecord is a Record from the Paleocene-Eocene Thermal Maximum
// compilation: deep time archives dated by non-radiocarbon methods only.
type PetmRecord struct {
	Record
	AgeModelInfo
}
