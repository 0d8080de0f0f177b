package lmr

import "strings"

// iceVolumeCurve approximates the global mean seawater d18O enrichment
// caused by continental ice volume, in permil relative to modern, as
// (age cal yr BP, delta) anchor pairs of the Waelbroeck et al. (2002)
// sea-level reconstruction. Ages between anchors interpolate linearly,
// ages past the last anchor hold its value, post-1950 ages are modern.
var iceVolumeCurve = []struct{ ageBP, delta float64 }{
	{0, 0},
	{6000, 0.05},
	{12000, 0.55},
	{15000, 0.8},
	{18000, 0.95},
	{21000, 1.05},
	{24000, 1.0},
	{30000, 0.85},
	{50000, 0.6},
	{80000, 0.5},
	{110000, 0.2},
	{125000, 0},
}

// iceVolumeDelta returns the ice volume d18O component at ageBP.
func iceVolumeDelta(ageBP float64) float64 {
	if ageBP <= iceVolumeCurve[0].ageBP {
		return iceVolumeCurve[0].delta
	}
	for i := 1; i < len(iceVolumeCurve); i++ {
		lo, hi := iceVolumeCurve[i-1], iceVolumeCurve[i]
		if ageBP <= hi.ageBP {
			f := (ageBP - lo.ageBP) / (hi.ageBP - lo.ageBP)
			return lo.delta + f*(hi.delta-lo.delta)
		}
	}
	return iceVolumeCurve[len(iceVolumeCurve)-1].delta
}

// isIceVolumeTarget reports whether a measurement records d18O and so
// carries the ice volume component.
func isIceVolumeTarget(measurement string) bool {
	return strings.Contains(strings.ToLower(measurement), "d18o")
}
