package regulator

import (
	"sync"

	"github.com/san-kum/rover/internal/device"
)

// Regulator turns a measurement into a correction.
type Regulator interface {
	Regulate(measured float64) float64
	Reset()
}

// Gains holds the PID constants and the target of a regulator.
type Gains struct {
	P, I, D Param
	Target  Param
}

// Value is a raw-value PID regulator. It is safe for concurrent use so
// gains can be retuned from another goroutine.
type Value struct {
	mu    sync.Mutex
	gains Gains

	lastError      float64
	lastDerivative float64
	lastIntegral   float64
}

func NewValue(g Gains) *Value {
	return &Value{gains: g}
}

// Regulate computes the correction for a measured value.
func (r *Value) Regulate(measured float64) float64 {
	return r.RegulateError(r.Target() - measured)
}

// RegulateError computes the correction for an error computed by the
// caller.
func (r *Value) RegulateError(err float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.gains
	integral := 0.5*r.lastIntegral + err
	r.lastIntegral = integral

	derivative := err - r.lastError
	r.lastError = err
	r.lastDerivative = derivative

	return g.P.Resolve()*err + g.I.Resolve()*integral + g.D.Resolve()*derivative
}

// Reset clears the error history. The last derivative is kept for callers
// that inspect it after a loop ends.
func (r *Value) Reset() {
	r.mu.Lock()
	r.lastError = 0
	r.lastIntegral = 0
	r.mu.Unlock()
}

// Target resolves the current target.
func (r *Value) Target() float64 {
	r.mu.Lock()
	p := r.gains.Target
	r.mu.Unlock()
	return p.Resolve()
}

func (r *Value) LastError() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// LastDerivative is the error change seen by the last call. Line followers
// use it to detect sharp turns and line ends.
func (r *Value) LastDerivative() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastDerivative
}

// Params returns the resolved gains for live adjustment.
func (r *Value) Params() map[string]float64 {
	r.mu.Lock()
	g := r.gains
	r.mu.Unlock()
	return map[string]float64{
		"p":      g.P.Resolve(),
		"i":      g.I.Resolve(),
		"d":      g.D.Resolve(),
		"target": g.Target.Resolve(),
	}
}

// SetParam replaces one gain with a fixed value.
func (r *Value) SetParam(name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch name {
	case "p":
		r.gains.P = Fixed(value)
	case "i":
		r.gains.I = Fixed(value)
	case "d":
		r.gains.D = Fixed(value)
	case "target":
		r.gains.Target = Fixed(value)
	default:
		return device.Configurationf("regulator.SetParam", "unknown parameter %q", name)
	}
	return nil
}
