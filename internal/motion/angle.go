package motion

import "math"

// TurnedAngle returns the heading change in degrees of a rigid drivetrain
// whose wheels at the given lateral offsets traveled the given distances.
// Each wheel covers d = θ(R + o) around a common center, so the angle
// follows from the two extreme wheels alone. The result is positive when
// the higher-offset wheel traveled further, and 0 for a straight move or
// when all offsets coincide.
func TurnedAngle(offsets, traveled []float64) float64 {
	lo, hi, ok := extremes(offsets)
	if !ok || len(traveled) != len(offsets) {
		return 0
	}
	theta := (traveled[hi] - traveled[lo]) / (offsets[hi] - offsets[lo])
	return theta * 180 / math.Pi
}

// TurnRadius returns the signed distance of the turn center from the
// drivetrain origin, measured along the offset axis. ok is false for a
// straight move.
func TurnRadius(offsets, traveled []float64) (r float64, ok bool) {
	lo, hi, ok := extremes(offsets)
	if !ok || len(traveled) != len(offsets) {
		return 0, false
	}
	minO, maxO := offsets[lo], offsets[hi]
	minT, maxT := traveled[lo], traveled[hi]
	if minT == maxT {
		return 0, false
	}
	return (maxT*minO - minT*maxO) / (minT - maxT), true
}

func extremes(offsets []float64) (lo, hi int, ok bool) {
	if len(offsets) < 2 {
		return 0, 0, false
	}
	for i, o := range offsets {
		if o < offsets[lo] {
			lo = i
		}
		if o > offsets[hi] {
			hi = i
		}
	}
	return lo, hi, offsets[hi] != offsets[lo]
}
