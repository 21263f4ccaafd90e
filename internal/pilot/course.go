package pilot

import (
	"fmt"
	"math"
)

// MinRadius replaces a zero turn radius, which would put the turn center
// on the drivetrain origin and leave a symmetric pair with no speed.
const MinRadius = 1e-3

// Course is a drive path: straight or an arc around a center at signed
// distance R on the offset axis. A wheel at offset o covers θ(R + o), so a
// positive radius turns towards negative offsets (counterclockwise). The
// zero Course is straight.
type Course struct {
	curved bool
	radius float64
}

func Straight() Course { return Course{} }

// Radius returns an arc course. Radius(0) becomes MinRadius.
func Radius(r float64) Course {
	if r == 0 {
		r = MinRadius
	}
	return Course{curved: true, radius: r}
}

func (c Course) IsStraight() bool { return !c.curved }

func (c Course) Radius() float64 { return c.radius }

func (c Course) String() string {
	if !c.curved {
		return "straight"
	}
	return fmt.Sprintf("radius %g", c.radius)
}

// MaxCoursePercent bounds percent courses. Past 100 the inner wheel
// reverses; 200 is a pivot.
const MaxCoursePercent = 200

// PercentRatios returns per-wheel speed factors for a percent course.
// Positive courses slow the wheels with higher offsets (turning towards
// them, clockwise), negative courses the ones with lower offsets. At 100 the
// inner extreme wheel stands still; the outer extreme wheel always keeps
// factor 1.
func PercentRatios(offsets []float64, course float64) []float64 {
	course = math.Max(-MaxCoursePercent, math.Min(MaxCoursePercent, course))
	out := make([]float64, len(offsets))
	lo, hi := offsetRange(offsets)
	span := hi - lo
	ref := lo
	if course < 0 {
		ref = hi
	}
	for i, o := range offsets {
		if span == 0 {
			out[i] = 1
			continue
		}
		out[i] = 1 - math.Abs(course)/100*math.Abs(o-ref)/span
	}
	return out
}

// RadiusRatios returns per-wheel speed factors for an arc course,
// normalized so the fastest wheel has factor ±1. Factors are signed so a
// positive speed always moves the drivetrain forward along the arc.
func RadiusRatios(offsets []float64, c Course) []float64 {
	out := make([]float64, len(offsets))
	if c.IsStraight() {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	var peak float64
	for i, o := range offsets {
		out[i] = c.radius + o
		peak = math.Max(peak, math.Abs(out[i]))
	}
	if peak == 0 {
		return out
	}
	if c.radius < 0 {
		peak = -peak
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}

func offsetRange(offsets []float64) (lo, hi float64) {
	for i, o := range offsets {
		if i == 0 || o < lo {
			lo = o
		}
		if i == 0 || o > hi {
			hi = o
		}
	}
	return lo, hi
}
