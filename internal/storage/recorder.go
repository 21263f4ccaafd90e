package storage

import (
	"sync"

	"github.com/san-kum/rover/internal/motion"
)

// Sample is one recorded control cycle.
type Sample struct {
	Time     float64   `json:"time"`
	Angle    float64   `json:"angle"`
	Traveled []float64 `json:"traveled"`
	Commands []float64 `json:"commands"`
}

// Trace is the recorded history of one or more moves.
type Trace struct {
	Samples []Sample `json:"samples"`
}

// Wheels is the number of wheels in the trace.
func (t *Trace) Wheels() int {
	if len(t.Samples) == 0 {
		return 0
	}
	return len(t.Samples[0].Traveled)
}

// Column extracts one series: "angle", "traveled" or "command" for wheel.
func (t *Trace) Column(name string, wheel int) []float64 {
	out := make([]float64, 0, len(t.Samples))
	for _, s := range t.Samples {
		switch name {
		case "angle":
			out = append(out, s.Angle)
		case "traveled":
			if wheel < len(s.Traveled) {
				out = append(out, s.Traveled[wheel])
			}
		case "command":
			if wheel < len(s.Commands) {
				out = append(out, s.Commands[wheel])
			}
		}
	}
	return out
}

// Recorder captures coordinator ticks. Consecutive moves are appended with
// a continuous time axis.
type Recorder struct {
	mu      sync.Mutex
	trace   Trace
	base    float64
	lastRaw float64
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) OnTick(t motion.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw := t.Elapsed.Seconds()
	if t.Step == 0 && len(r.trace.Samples) > 0 {
		r.base += r.lastRaw
	}
	r.lastRaw = raw
	r.trace.Samples = append(r.trace.Samples, Sample{
		Time:     r.base + raw,
		Angle:    t.Angle,
		Traveled: append([]float64(nil), t.Traveled...),
		Commands: append([]float64(nil), t.Commands...),
	})
}

// Trace returns a copy of everything recorded so far.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Trace{Samples: append([]Sample(nil), r.trace.Samples...)}
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trace.Samples)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.trace = Trace{}
	r.base, r.lastRaw = 0, 0
	r.mu.Unlock()
}
