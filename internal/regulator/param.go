package regulator

// Param is a numeric input that is either fixed or computed on demand.
// A computed getter may report no value, in which case the fixed fallback
// is used. The zero Param is Fixed(0).
type Param struct {
	fixed  float64
	getter func() (float64, bool)
}

// Fixed returns a constant Param.
func Fixed(v float64) Param {
	return Param{fixed: v}
}

// Computed returns a Param evaluated on every resolve.
func Computed(fn func() float64) Param {
	return Param{getter: func() (float64, bool) { return fn(), true }}
}

// ComputedOr returns a Param evaluated on every resolve that falls back to
// fallback whenever fn reports no value.
func ComputedOr(fn func() (float64, bool), fallback float64) Param {
	return Param{fixed: fallback, getter: fn}
}

// Resolve returns the getter's value when available, else the fixed value.
func (p Param) Resolve() float64 {
	if p.getter != nil {
		if v, ok := p.getter(); ok {
			return v
		}
	}
	return p.fixed
}

// IsComputed reports whether p has a getter.
func (p Param) IsComputed() bool { return p.getter != nil }

// Clamp limits v to [-limit, limit].
func Clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
