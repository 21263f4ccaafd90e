package motion

import (
	"fmt"
	"math"
	"time"
)

type stopKind int

const (
	stopNever stopKind = iota
	stopTime
	stopDistance
	stopAngle
)

// StopCondition ends a coordinated move. The zero value never stops.
type StopCondition struct {
	kind  stopKind
	after time.Duration
	limit float64
}

func Never() StopCondition { return StopCondition{} }

// StopAfter stops once d has elapsed.
func StopAfter(d time.Duration) StopCondition {
	return StopCondition{kind: stopTime, after: d}
}

// StopAtDistance stops once the mean signed travel reaches units in
// magnitude. Zero stops before the first command.
func StopAtDistance(units float64) StopCondition {
	return StopCondition{kind: stopDistance, limit: math.Abs(units)}
}

// StopAtAngle stops once the drivetrain has turned deg degrees either way.
func StopAtAngle(deg float64) StopCondition {
	return StopCondition{kind: stopAngle, limit: math.Abs(deg)}
}

func (s StopCondition) needsAngle() bool { return s.kind == stopAngle }

// Reached reports whether the move described by st is complete.
func (s StopCondition) Reached(st Status) bool {
	switch s.kind {
	case stopTime:
		return st.Elapsed >= s.after
	case stopDistance:
		return math.Abs(mean(st.Traveled)) >= s.limit
	case stopAngle:
		return st.HasAngle && math.Abs(st.Angle) >= s.limit
	}
	return false
}

func (s StopCondition) String() string {
	switch s.kind {
	case stopTime:
		return fmt.Sprintf("after %s", s.after)
	case stopDistance:
		return fmt.Sprintf("at distance %g", s.limit)
	case stopAngle:
		return fmt.Sprintf("at angle %g", s.limit)
	}
	return "never"
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
