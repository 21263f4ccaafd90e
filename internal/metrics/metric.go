// Package metrics summarizes closed-loop moves. Every metric is a
// motion.Observer and can be attached to a Pilot or Coordinator.
package metrics

import (
	"sync"

	"github.com/san-kum/rover/internal/motion"
)

type Metric interface {
	motion.Observer
	Name() string
	Value() float64
	Reset()
}

// Standard returns the metrics recorded for every run.
func Standard(dutyLimit float64) []Metric {
	return []Metric{NewControlEffort(), NewSyncError(), NewSaturation(dutyLimit)}
}

// Snapshot reads every metric by name.
func Snapshot(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// Observers adapts metrics for motion.Config and pilot options.
func Observers(ms []Metric) []motion.Observer {
	out := make([]motion.Observer, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

// accumulator is a locked running sum shared by the metrics.
type accumulator struct {
	mu      sync.Mutex
	sum     float64
	peak    float64
	samples int
}

func (a *accumulator) mean() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.samples == 0 {
		return 0
	}
	return a.sum / float64(a.samples)
}

func (a *accumulator) reset() {
	a.mu.Lock()
	a.sum, a.peak, a.samples = 0, 0, 0
	a.mu.Unlock()
}
