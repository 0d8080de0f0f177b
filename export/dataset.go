// Package export projects parsed records into NetCDF files. The classic
// model has no group objects, so logical groups flatten into variable name
// prefixes and the site group name rides along as a global attribute.
package export

import (
	"math"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"proxysift/ncdc"
)

// Attr is one named attribute value.
type Attr struct {
	Name  string
	Value any
}

// Var is one flattened variable.
type Var struct {
	Name       string
	Values     any
	Dimensions []string
	Attrs      []Attr
}

// Dataset is a read-only projection of a Record ready for writing. Building
// it never mutates the record.
type Dataset struct {
	// SiteGroup is the slugified ASCII site name the original exporter
	// used as the record's group.
	SiteGroup string
	Global    []Attr
	Vars      []Var
}

const (
	chronPrefix = "chron_"
	dataPrefix  = "data_"

	dimChron  = "chron"
	dimSample = "sample"
	dimDraw   = "draw"
)

// asciiFold strips diacritics and non-ASCII runes, NetCDF classic attribute
// and string payloads are bytes, not UTF-8.
func asciiFold(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	var sb strings.Builder
	for _, r := range folded {
		if r < 128 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// NewDataset builds the projection. data selects which rows to persist,
// callers pass either the record's full collection or its trimmed view.
func NewDataset(r *ncdc.Record, data *ncdc.DataCollection) (*Dataset, error) {
	if r.Site.SiteName == nil {
		return nil, &ncdc.SchemaError{Field: "Site_Name"}
	}
	ds := &Dataset{SiteGroup: slug.Make(asciiFold(*r.Site.SiteName))}
	ds.buildGlobal(r)
	ds.buildChronology(&r.Chronology)
	ds.buildData(r, data)
	return ds, nil
}

func (d *Dataset) global(name string, value any) {
	d.Global = append(d.Global, Attr{Name: name, Value: value})
}

func (d *Dataset) optGlobal(name string, value *string) {
	if value != nil {
		d.global(name, asciiFold(*value))
	}
}

func (d *Dataset) buildGlobal(r *ncdc.Record) {
	d.global("site_group", d.SiteGroup)
	d.optGlobal("site_name", r.Site.SiteName)
	d.optGlobal("location", r.Site.Location)
	d.optGlobal("country", r.Site.Country)
	if lat, lon, ok := r.Site.LatLon(); ok {
		d.global("latitude", lat)
		d.global("longitude", lon)
	}
	if r.Site.Elevation != nil {
		d.global("elevation", *r.Site.Elevation)
	}

	d.optGlobal("collection_name", r.Data.CollectionName)
	d.optGlobal("time_unit", r.Data.TimeUnit)
	d.optGlobal("core_length", r.Data.CoreLength)
	if r.Data.FirstYear != nil {
		d.global("first_year", *r.Data.FirstYear)
	}
	if r.Data.LastYear != nil {
		d.global("last_year", *r.Data.LastYear)
	}
	d.optGlobal("investigators", r.Investigators)
	d.optGlobal("description", r.Description)
	d.optGlobal("original_source_url", r.OriginalSourceURL)

	if len(r.Publications) > 0 {
		cites := make([]string, len(r.Publications))
		for i := range r.Publications {
			cites[i] = asciiFold(r.Publications[i].Citation())
		}
		d.global("references", strings.Join(cites, "\n"))
	}
	if len(r.Species) > 0 {
		d.global("species", asciiFold(strings.Join(r.Species, "; ")))
	}
}

func (d *Dataset) addVar(v Var) {
	d.Vars = append(d.Vars, v)
}

func (d *Dataset) buildChronology(c *ncdc.ChronologyInformation) {
	n := len(c.Determinants)
	if n == 0 {
		return
	}

	labcodes := make([]string, n)
	materials := make([]string, n)
	otherTypes := make([]string, n)
	numeric := map[string][]float64{
		"depth_top": make([]float64, n), "depth_bottom": make([]float64, n),
		"14c_date": make([]float64, n), "14c_1s_err": make([]float64, n),
		"delta_r": make([]float64, n), "delta_r_1s_err": make([]float64, n),
		"other_date": make([]float64, n), "other_1s_err": make([]float64, n),
	}
	for i := range c.Determinants {
		det := &c.Determinants[i]
		labcodes[i] = asciiFold(det.Labcode)
		materials[i] = asciiFold(det.MaterialDated)
		otherTypes[i] = asciiFold(det.OtherType)
		numeric["depth_top"][i] = det.DepthTop
		numeric["depth_bottom"][i] = det.DepthBottom
		numeric["14c_date"][i] = det.C14Date
		numeric["14c_1s_err"][i] = det.C14Error
		numeric["delta_r"][i] = det.DeltaR
		numeric["delta_r_1s_err"][i] = det.DeltaRError
		numeric["other_date"][i] = det.OtherDate
		numeric["other_1s_err"][i] = det.OtherError
	}

	// cutoff attributes appear only when the bound is set, an absent
	// cutoff must not surface as a null-valued attribute
	var cutAttrs []Attr
	if c.CutShallow != nil {
		cutAttrs = append(cutAttrs, Attr{Name: "cut_shallow", Value: *c.CutShallow})
	}
	if c.CutDeep != nil {
		cutAttrs = append(cutAttrs, Attr{Name: "cut_deep", Value: *c.CutDeep})
	}

	d.addVar(Var{Name: chronPrefix + "labcode", Values: labcodes, Dimensions: []string{dimChron}})
	d.addVar(Var{Name: chronPrefix + "depth_top", Values: numeric["depth_top"], Dimensions: []string{dimChron}, Attrs: cutAttrs})
	for _, name := range []string{"depth_bottom", "14c_date", "14c_1s_err", "delta_r", "delta_r_1s_err", "other_date", "other_1s_err"} {
		d.addVar(Var{Name: chronPrefix + name, Values: numeric[name], Dimensions: []string{dimChron}})
	}
	d.addVar(Var{Name: chronPrefix + "mat_dated", Values: materials, Dimensions: []string{dimChron}})
	d.addVar(Var{Name: chronPrefix + "other_type", Values: otherTypes, Dimensions: []string{dimChron}})

	if c.Swapped() {
		origR := make([]float64, n)
		origE := make([]float64, n)
		for i := range c.Determinants {
			det := &c.Determinants[i]
			origR[i], origE[i] = math.NaN(), math.NaN()
			if det.DeltaROriginal != nil {
				origR[i] = *det.DeltaROriginal
			}
			if det.DeltaRErrorOriginal != nil {
				origE[i] = *det.DeltaRErrorOriginal
			}
		}
		d.addVar(Var{Name: chronPrefix + "delta_r_original", Values: origR, Dimensions: []string{dimChron}})
		d.addVar(Var{Name: chronPrefix + "delta_r_1s_err_original", Values: origE, Dimensions: []string{dimChron}})
	}
}

func (d *Dataset) buildData(r *ncdc.Record, data *ncdc.DataCollection) {
	for i := range data.Columns {
		col := &data.Columns[i]
		v := Var{
			Name:       dataPrefix + slug.Make(asciiFold(col.Name)),
			Values:     col.Values,
			Dimensions: []string{dimSample},
		}
		info := r.Variables.Info(col.Name)
		for _, a := range []struct{ name, value string }{
			{"long_name", col.Name},
			{"material", info.Material},
			{"units", info.Units},
			{"seasonality", info.Seasonality},
			{"archive", info.Archive},
			{"method", info.Method},
			{"detail", info.Detail},
		} {
			if a.value != "" {
				v.Attrs = append(v.Attrs, Attr{Name: a.name, Value: asciiFold(a.value)})
			}
		}
		d.addVar(v)
	}
	if data.AgeMedian != nil {
		d.addVar(Var{Name: dataPrefix + "age_median", Values: data.AgeMedian, Dimensions: []string{dimSample}})
	}
	if data.AgeEnsemble != nil {
		d.addVar(Var{Name: dataPrefix + "age_ensemble", Values: data.AgeEnsemble, Dimensions: []string{dimSample, dimDraw}})
	}
}

// Var returns the named variable, nil when absent.
func (d *Dataset) Var(name string) *Var {
	for i := range d.Vars {
		if d.Vars[i].Name == name {
			return &d.Vars[i]
		}
	}
	return nil
}
