package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/rover/internal/motion"
)

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Errorf("empty effort = %v", m.Value())
	}
	m.OnTick(motion.Tick{Commands: []float64{10, -30}})
	m.OnTick(motion.Tick{Commands: []float64{20, 0}})

	if math.Abs(m.Value()-15) > 1e-9 {
		t.Errorf("effort = %v, want 15", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("reset should clear effort")
	}
}

func TestSyncErrorKeepsPeak(t *testing.T) {
	m := NewSyncError()
	m.OnTick(motion.Tick{ProgressErrors: []float64{0.01, -0.01}})
	m.OnTick(motion.Tick{ProgressErrors: []float64{-0.2, 0.2}})
	m.OnTick(motion.Tick{ProgressErrors: []float64{0, 0}})

	if m.Value() != 0.2 {
		t.Errorf("sync error = %v, want 0.2", m.Value())
	}
}

func TestSaturation(t *testing.T) {
	m := NewSaturation(80)
	m.OnTick(motion.Tick{Commands: []float64{80, 80}})
	m.OnTick(motion.Tick{Commands: []float64{10, -90}})
	m.OnTick(motion.Tick{Commands: []float64{10, 10}})
	m.OnTick(motion.Tick{Commands: []float64{0, 0}})

	if m.Value() != 0.5 {
		t.Errorf("saturation = %v, want 0.5", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("reset should clear saturation")
	}
}

func TestSnapshot(t *testing.T) {
	ms := Standard(100)
	for _, o := range Observers(ms) {
		o.OnTick(motion.Tick{Commands: []float64{100, 50}, ProgressErrors: []float64{0.1, -0.1}})
	}
	snap := Snapshot(ms)
	want := map[string]float64{"control_effort": 75, "sync_error": 0.1, "saturation": 1}
	for name, v := range want {
		if math.Abs(snap[name]-v) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, snap[name], v)
		}
	}
}
