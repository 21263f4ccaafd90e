package regulator

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/rover/internal/device"
)

func TestParamResolve(t *testing.T) {
	calls := 0
	tests := []struct {
		name string
		p    Param
		want float64
	}{
		{"zero", Param{}, 0},
		{"fixed", Fixed(2.5), 2.5},
		{"computed", Computed(func() float64 { calls++; return 7 }), 7},
		{"fallback", ComputedOr(func() (float64, bool) { return 0, false }, 3), 3},
		{"getter wins", ComputedOr(func() (float64, bool) { return 9, true }, 3), 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Resolve(); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
	if calls != 1 {
		t.Errorf("computed getter called %d times, want 1", calls)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ v, limit, want float64 }{
		{50, 100, 50},
		{150, 100, 100},
		{-150, 100, -100},
		{-3, 5, -3},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.limit); got != tt.want {
			t.Errorf("Clamp(%v, %v) = %v, want %v", tt.v, tt.limit, got, tt.want)
		}
	}
}

func TestValueProportionalOnly(t *testing.T) {
	r := NewValue(Gains{P: Fixed(1), Target: Fixed(10)})
	if got := r.Regulate(4); got != 6 {
		t.Errorf("Regulate(4) = %v, want 6", got)
	}
}

func TestValueZeroGains(t *testing.T) {
	inputs := []float64{0, 12, -40, 130, 50, -150, 99.5, 3}
	regs := map[string]Regulator{
		"value":   NewValue(Gains{Target: Fixed(50)}),
		"percent": NewPercent(Gains{Target: Fixed(50)}),
	}
	for name, r := range regs {
		for _, in := range inputs {
			if got := r.Regulate(in); got != 0 {
				t.Errorf("%s: Regulate(%v) = %v, want 0", name, in, got)
			}
		}
	}
}

func TestValueSequence(t *testing.T) {
	r := NewValue(Gains{P: Fixed(1), I: Fixed(1), D: Fixed(1), Target: Fixed(10)})

	// error 10: integral 10, derivative 10
	if got := r.Regulate(0); got != 30 {
		t.Errorf("first call = %v, want 30", got)
	}
	// error 5: integral 0.5*10+5 = 10, derivative -5
	if got := r.Regulate(5); got != 10 {
		t.Errorf("second call = %v, want 10", got)
	}
	if r.LastError() != 5 {
		t.Errorf("LastError() = %v, want 5", r.LastError())
	}
	if r.LastDerivative() != -5 {
		t.Errorf("LastDerivative() = %v, want -5", r.LastDerivative())
	}
}

func TestValueResetMatchesFresh(t *testing.T) {
	g := Gains{P: Fixed(1), I: Fixed(0.1), D: Fixed(2), Target: Fixed(100)}
	used := NewValue(g)
	for _, m := range []float64{3, 20, 57, 91} {
		used.Regulate(m)
	}
	used.Reset()

	fresh := NewValue(g)
	for _, m := range []float64{12, 40, 80} {
		a, b := used.Regulate(m), fresh.Regulate(m)
		if a != b {
			t.Fatalf("after reset Regulate(%v) = %v, fresh = %v", m, a, b)
		}
	}
}

func TestValueComputedTargetTracksGetter(t *testing.T) {
	target := 0.0
	r := NewValue(Gains{P: Fixed(1), Target: Computed(func() float64 { return target })})
	r.Regulate(0)
	target = 25
	if got := r.Regulate(5); got != 20 {
		t.Errorf("Regulate(5) = %v, want 20", got)
	}
}

func TestSetParam(t *testing.T) {
	r := NewValue(Gains{P: Fixed(1), Target: Fixed(1)})
	if err := r.SetParam("p", 3); err != nil {
		t.Fatalf("SetParam(p): %v", err)
	}
	if err := r.SetParam("target", 10); err != nil {
		t.Fatalf("SetParam(target): %v", err)
	}
	params := r.Params()
	if params["p"] != 3 || params["target"] != 10 {
		t.Errorf("Params() = %v", params)
	}

	err := r.SetParam("k", 1)
	if !errors.Is(err, device.ErrConfiguration) {
		t.Errorf("SetParam(k) error = %v, want configuration error", err)
	}
}

func TestPercentSymmetricTarget(t *testing.T) {
	r := NewPercent(Gains{P: Fixed(1), Target: Fixed(50)})
	// max error on both sides is 30, error 20 scales to 200/3
	got := r.Regulate(30)
	if math.Abs(got-200.0/3) > 1e-9 {
		t.Errorf("Regulate(30) = %v, want %v", got, 200.0/3)
	}
	r.Reset()
	got = r.Regulate(70)
	if math.Abs(got+200.0/3) > 1e-9 {
		t.Errorf("Regulate(70) = %v, want %v", got, -200.0/3)
	}
}

func TestPercentAsymmetricTarget(t *testing.T) {
	r := NewPercent(Gains{P: Fixed(1), Target: Fixed(20)})
	// positive side: 0.6*80 = 48, negative side: 0.6*20 = 12
	if got := r.Regulate(0); math.Abs(got-20*100/48.0) > 1e-9 {
		t.Errorf("below target = %v, want %v", got, 20*100/48.0)
	}
	r.Reset()
	if got := r.Regulate(32); math.Abs(got+12*100/12.0) > 1e-9 {
		t.Errorf("above target = %v, want %v", got, -100.0)
	}
}

func TestPercentClampsInput(t *testing.T) {
	a := NewPercent(Gains{P: Fixed(1), Target: Fixed(50)})
	b := NewPercent(Gains{P: Fixed(1), Target: Fixed(50)})
	if a.Regulate(250) != b.Regulate(100) {
		t.Error("input above 100 should regulate like 100")
	}
}

func TestPercentEdgeTargetFinite(t *testing.T) {
	for _, target := range []float64{0, 100} {
		r := NewPercent(Gains{P: Fixed(1), Target: Fixed(target)})
		for _, m := range []float64{-100, 0, 50, 100} {
			got := r.Regulate(m)
			if math.IsInf(got, 0) || math.IsNaN(got) {
				t.Errorf("target %v, input %v: got %v", target, m, got)
			}
		}
	}
}
