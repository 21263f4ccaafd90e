package regulator

import "math"

// MinPercentRange floors the one-sided error range of a Percent regulator.
// A target at exactly 0 or 100 leaves no room on one side; the floor keeps
// the normalization finite, amplifying that side a hundredfold instead.
const MinPercentRange = 0.6

// Percent regulates percent values in [-100, 100]. Because the reachable
// error on each side of an off-center target differs, the error is scaled
// by the range available on its side before the PID formula is applied.
type Percent struct {
	Value
}

func NewPercent(g Gains) *Percent {
	return &Percent{Value: Value{gains: g}}
}

// Regulate clamps measured to [-100, 100] and computes the correction.
func (r *Percent) Regulate(measured float64) float64 {
	measured = Clamp(measured, 100)
	target := r.Target()

	err := target - measured
	maxErr := 0.6 * math.Abs(100-target)
	if err < 0 {
		maxErr = 0.6 * math.Abs(target)
	}
	if maxErr < MinPercentRange {
		maxErr = MinPercentRange
	}
	err *= 100 / maxErr

	return r.RegulateError(err)
}
