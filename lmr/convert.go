package lmr

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"proxysift/export"
	"proxysift/ncdc"
)

// MetaRow is one proxy series' metadata in LMR layout.
type MetaRow struct {
	ProxyID      string
	Site         string
	Lat          float64
	Lon          float64
	ArchiveType  string
	Measurement  string
	ResolutionYr float64
	Reference    string
	Databases    []string
	Seasonality  []int
	Elevation    float64
	OldestCE     float64
	YoungestCE   float64
}

// Series is one proxy series' values indexed by calendar year.
type Series struct {
	ProxyID string
	YearsCE []float64
	Values  []float64
}

// Options steer the conversion.
type Options struct {
	// EnsembleIndex selects one age-model draw instead of the median.
	EnsembleIndex *int
	// ModernSeasonality estimates per-site seasonality from production
	// regions; off means annual for everything.
	ModernSeasonality bool
	// DatabaseLabels tag every row, e.g. DTDA.
	DatabaseLabels []string
	// IceVolumeCorrection removes the global ice volume component from
	// d18O measurements.
	IceVolumeCorrection bool
}

const archiveMarineSediments = "Marine sediments"

// skipped alongside the measurement columns
func isDimensionVar(name string) bool {
	switch name {
	case "data_depth", "data_age", "data_age_original", "data_age_median", "data_age_ensemble":
		return true
	}
	return false
}

// ages returns the age series the conversion indexes by: one ensemble draw
// when requested, otherwise the median with the original age column as
// fallback.
func ages(f *export.File, ensembleIndex *int) ([]float64, error) {
	if ensembleIndex != nil {
		v, ok := f.Vars["data_age_ensemble"]
		if !ok {
			return nil, &ncdc.EmptyDataError{What: "age ensemble"}
		}
		rows, ok := v.Values.([][]float64)
		if !ok {
			return nil, fmt.Errorf("age ensemble has unexpected type %T", v.Values)
		}
		idx := *ensembleIndex
		out := make([]float64, len(rows))
		for i, row := range rows {
			if idx < 0 || idx >= len(row) {
				return nil, fmt.Errorf("age ensemble draw %d out of range (%d draws)", idx, len(row))
			}
			out[i] = row[idx]
		}
		return out, nil
	}
	if a := f.Floats("data_age_median"); a != nil {
		return a, nil
	}
	if a := f.Floats("data_age"); a != nil {
		return a, nil
	}
	return nil, &ncdc.EmptyDataError{What: "age series"}
}

// depthMask marks rows inside the source's reliability cutoffs. Without
// cutoffs or a depth variable every row passes.
func depthMask(f *export.File, n int) []bool {
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}
	chron, ok := f.Vars["chron_depth_top"]
	if !ok {
		return keep
	}
	depths := f.Floats("data_depth")
	if depths == nil {
		return keep
	}
	shallow, deep := math.Inf(-1), math.Inf(1)
	if v, ok := chron.Attrs["cut_shallow"]; ok {
		if x, ok := export.ToFloat(v); ok {
			shallow = x
		}
	}
	if v, ok := chron.Attrs["cut_deep"]; ok {
		if x, ok := export.ToFloat(v); ok {
			deep = x
		}
	}
	for i := 0; i < n && i < len(depths); i++ {
		keep[i] = depths[i] >= shallow && depths[i] <= deep
	}
	return keep
}

// reference returns the first citation line of the source file.
func reference(f *export.File) string {
	refs := f.GlobalString("references")
	if refs == "" {
		return ""
	}
	line, _, _ := strings.Cut(refs, "\n")
	return line
}

// Convert re-encodes one exported proxy file into LMR meta rows and value
// series, one pair per measurement column. Rows outside the source's
// reliability cutoffs and rows without a finite age or value are dropped.
func Convert(f *export.File, opts Options, log *zap.Logger) ([]MetaRow, []Series, error) {
	siteID := strings.ToLower(strings.TrimSpace(f.GlobalString("site_name")))
	if siteID == "" {
		return nil, nil, &ncdc.SchemaError{Field: "site_name"}
	}
	lat, latOK := f.GlobalFloat("latitude")
	lon, lonOK := f.GlobalFloat("longitude")
	if !latOK || !lonOK {
		return nil, nil, &ncdc.SchemaError{Field: "latitude/longitude"}
	}
	elevation, _ := f.GlobalFloat("elevation")

	ageBP, err := ages(f, opts.EnsembleIndex)
	if err != nil {
		return nil, nil, err
	}
	keep := depthMask(f, len(ageBP))

	var names []string
	for _, name := range f.VarNames {
		if strings.HasPrefix(name, "data_") && !isDimensionVar(name) {
			names = append(names, name)
		}
	}
	sort.Sort(natural.StringSlice(names))

	var meta []MetaRow
	var series []Series
	for _, name := range names {
		values := f.Floats(name)
		if values == nil || len(values) != len(ageBP) {
			log.Warn("Skipping malformed measurement column", zap.String("site", siteID), zap.String("variable", name))
			continue
		}
		measurement := strings.ToLower(strings.TrimPrefix(name, "data_"))
		proxyID := siteID + ":" + measurement
		correct := opts.IceVolumeCorrection && isIceVolumeTarget(measurement)

		s := Series{ProxyID: proxyID}
		oldest, youngest := math.Inf(1), math.Inf(-1)
		for i, v := range values {
			if !keep[i] || math.IsNaN(v) || math.IsNaN(ageBP[i]) {
				continue
			}
			if correct {
				v -= iceVolumeDelta(ageBP[i])
			}
			yearCE := 1950 - ageBP[i]
			s.YearsCE = append(s.YearsCE, yearCE)
			s.Values = append(s.Values, v)
			oldest = math.Min(oldest, yearCE)
			youngest = math.Max(youngest, yearCE)
		}
		if len(s.Values) == 0 {
			log.Debug("Measurement column has no usable rows", zap.String("proxy", proxyID))
			continue
		}

		seasonality := annualSeasonality()
		if opts.ModernSeasonality {
			proxyType := measurement
			if v, ok := f.Vars[name].Attrs["long_name"]; ok {
				if s, ok := v.(string); ok {
					proxyType = s
				}
			}
			seasonality = ModernSeasonality(proxyType, lat, lon)
		}

		meta = append(meta, MetaRow{
			ProxyID:      proxyID,
			Site:         siteID,
			Lat:          lat,
			Lon:          lon,
			ArchiveType:  archiveMarineSediments,
			Measurement:  measurement,
			ResolutionYr: (youngest - oldest) / float64(len(s.Values)),
			Reference:    reference(f),
			Databases:    opts.DatabaseLabels,
			Seasonality:  seasonality,
			Elevation:    elevation,
			OldestCE:     oldest,
			YoungestCE:   youngest,
		})
		series = append(series, s)
	}
	return meta, series, nil
}
