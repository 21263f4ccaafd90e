package metrics

import (
	"math"

	"github.com/san-kum/rover/internal/motion"
)

// SyncError is the worst progress spread between wheels seen during a
// move, in seconds of ideal travel.
type SyncError struct {
	acc accumulator
}

func NewSyncError() *SyncError { return &SyncError{} }

func (s *SyncError) Name() string { return "sync_error" }

func (s *SyncError) OnTick(t motion.Tick) {
	s.acc.mu.Lock()
	defer s.acc.mu.Unlock()
	for _, e := range t.ProgressErrors {
		s.acc.peak = math.Max(s.acc.peak, math.Abs(e))
	}
	s.acc.samples++
}

func (s *SyncError) Value() float64 {
	s.acc.mu.Lock()
	defer s.acc.mu.Unlock()
	return s.acc.peak
}

func (s *SyncError) Reset() { s.acc.reset() }
