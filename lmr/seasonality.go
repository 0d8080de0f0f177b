// Package lmr re-encodes exported proxy NetCDF files into the flat
// meta/values tables the LMR data assimilation workflow consumes.
package lmr

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// annualSeasonality is all twelve months, the fallback when no regional
// rule applies.
func annualSeasonality() []int {
	return []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
}

// Alkenone production regions from the BAYSPLINE calibration. The north
// Pacific polygon is drawn across the dateline and wrapped below.
var (
	mediterranean = orb.Polygon{{
		{-5.5, 36.25}, {3, 47.5}, {45, 47.5}, {45, 30}, {-5.5, 30}, {-5.5, 36.25},
	}}
	northAtlantic = orb.Polygon{{
		{-55, 48}, {-50, 70}, {20, 70}, {10, 62.5}, {-4.5, 58.2}, {-4.5, 48}, {-55, 48},
	}}
	northPacific = datelineWrap(orb.Polygon{{
		{135, 45}, {135, 70}, {250, 70}, {232, 52.5}, {180, 45}, {135, 45},
	}})
)

// datelineWrap splits a polygon drawn past longitude 180 into a
// multipolygon whose parts both lie within [-180, 180].
func datelineWrap(p orb.Polygon) orb.MultiPolygon {
	if p.Bound().Max[0] <= 180 {
		return orb.MultiPolygon{p}
	}
	world := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
	east := orb.Bound{Min: orb.Point{180, -90}, Max: orb.Point{360, 90}}

	left := clip.Polygon(world, p.Clone())
	right := clip.Polygon(east, p.Clone())
	for ri := range right {
		for pi := range right[ri] {
			right[ri][pi][0] -= 360
		}
	}
	return orb.MultiPolygon{left, right}
}

// ModernSeasonality estimates which months a proxy measurement records at a
// site. Alkenone unsaturation outside the year-round production belt blooms
// seasonally: winter-spring in the Mediterranean, late summer in the north
// Atlantic and north Pacific. Anything unrecognized is annual.
func ModernSeasonality(proxyType string, lat, lon float64) []int {
	if proxyType != "UK'37" {
		return annualSeasonality()
	}
	site := orb.Point{lon, lat}
	out := annualSeasonality()
	if planar.PolygonContains(mediterranean, site) {
		out = []int{1, 2, 3, 4, 5, 11, 12}
	}
	if planar.PolygonContains(northAtlantic, site) {
		out = []int{8, 9, 10}
	}
	if planar.MultiPolygonContains(northPacific, site) {
		out = []int{6, 7, 8}
	}
	return out
}
