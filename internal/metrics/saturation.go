package metrics

import (
	"math"

	"github.com/san-kum/rover/internal/motion"
)

// Saturation is the fraction of ticks in which some wheel was commanded at
// its duty limit. A move that saturates often is asking for more speed than
// the motors can give.
type Saturation struct {
	limit     float64
	saturated int
	acc       accumulator
}

func NewSaturation(limit float64) *Saturation {
	if limit <= 0 {
		limit = 100
	}
	return &Saturation{limit: limit}
}

func (s *Saturation) Name() string { return "saturation" }

func (s *Saturation) OnTick(t motion.Tick) {
	s.acc.mu.Lock()
	defer s.acc.mu.Unlock()
	s.acc.samples++
	for _, cmd := range t.Commands {
		if math.Abs(cmd) >= s.limit {
			s.saturated++
			break
		}
	}
}

func (s *Saturation) Value() float64 {
	s.acc.mu.Lock()
	defer s.acc.mu.Unlock()
	if s.acc.samples == 0 {
		return 0
	}
	return float64(s.saturated) / float64(s.acc.samples)
}

func (s *Saturation) Reset() {
	s.acc.mu.Lock()
	s.saturated = 0
	s.acc.mu.Unlock()
	s.acc.reset()
}
