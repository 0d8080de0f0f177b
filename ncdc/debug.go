package ncdc

import (
	"strings"

	"proxysift/utils/debug"
)

// String renders an indented dump of the record for troubleshooting. Absent
// optional fields are omitted rather than printed empty.
func (r *Record) String() string {
	tw := debug.NewTreeWriter()

	tw.Line(0, "record %q", r.Identifier())
	tw.Line(1, "site")
	tw.OptText(2, "name", r.Site.SiteName)
	tw.OptText(2, "location", r.Site.Location)
	tw.OptText(2, "country", r.Site.Country)
	if lat, lon, ok := r.Site.LatLon(); ok {
		tw.Line(2, "lat/lon: %g, %g", lat, lon)
	}
	if r.ContributionDate != nil {
		tw.Line(1, "contributed: %s", r.ContributionDate.Format("2006-01-02"))
	}
	tw.OptText(1, "investigators", r.Investigators)

	if len(r.Publications) > 0 {
		tw.Line(1, "publications: %d", len(r.Publications))
		for i := range r.Publications {
			tw.TextBlock(2, "citation", r.Publications[i].Citation())
		}
	}
	if len(r.Species) > 0 {
		tw.Line(1, "species: %s", strings.Join(r.Species, "; "))
	}

	if n := len(r.Chronology.Determinants); n > 0 {
		tw.Line(1, "chronology: %d determinants", n)
		if min, max, err := r.Chronology.DepthRange(); err == nil {
			tw.Line(2, "depth range: %g to %g", min, max)
		}
		if r.Chronology.CutShallow != nil {
			tw.Line(2, "cut shallow: %g", *r.Chronology.CutShallow)
		}
		if r.Chronology.CutDeep != nil {
			tw.Line(2, "cut deep: %g", *r.Chronology.CutDeep)
		}
	}

	tw.Line(1, "data: %d rows", r.Data.Len())
	for i := range r.Data.Columns {
		tw.Series(2, r.Data.Columns[i].Name, r.Data.Columns[i].Values, 5)
	}
	if r.Data.AgeMedian != nil {
		tw.Series(2, "age_median", r.Data.AgeMedian, 5)
	}
	if r.Data.AgeEnsemble != nil {
		tw.Line(2, "age_ensemble: %d rows x %d draws", len(r.Data.AgeEnsemble), ensembleDraws(r.Data.AgeEnsemble))
	}
	return tw.String()
}

func ensembleDraws(ens [][]float64) int {
	if len(ens) == 0 {
		return 0
	}
	return len(ens[0])
}
