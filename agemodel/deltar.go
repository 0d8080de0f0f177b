package agemodel

import (
	"math"

	"proxysift/ncdc"
)

// ReservoirPoint is one published marine reservoir correction measurement.
type ReservoirPoint struct {
	Lat         float64
	Lon         float64
	DeltaR      float64
	DeltaRError float64
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	phi1, phi2 := lat1*rad, lat2*rad
	dPhi, dLambda := (lat2-lat1)*rad, (lon2-lon1)*rad
	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Nearby filters reservoir points to those within maxKm of the site.
func Nearby(points []ReservoirPoint, lat, lon, maxKm float64) []ReservoirPoint {
	var out []ReservoirPoint
	for _, p := range points {
		if DistanceKm(lat, lon, p.Lat, p.Lon) <= maxKm {
			out = append(out, p)
		}
	}
	return out
}

// PooledDeltaR combines reservoir measurements into a single correction
// using the pooled variance of the individual distributions: each point
// contributes its spread around the mean plus its own measurement variance,
// equally weighted.
func PooledDeltaR(points []ReservoirPoint) (mean, sigma float64, err error) {
	if len(points) == 0 {
		return 0, 0, &ncdc.EmptyDataError{What: "reservoir points"}
	}
	for _, p := range points {
		mean += p.DeltaR
	}
	mean /= float64(len(points))

	w := 1 / float64(len(points))
	variance := 0.0
	for _, p := range points {
		d := p.DeltaR - mean
		variance += w * (d*d + p.DeltaRError*p.DeltaRError)
	}
	return mean, math.Sqrt(variance), nil
}
