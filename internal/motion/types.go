package motion

import (
	"time"

	"github.com/charmbracelet/log"
)

// Action drives one actuator for the lifetime of a coordinated move.
type Action interface {
	// Traveled is the signed distance covered since the action was built.
	Traveled() float64
	// Progress is the time of ideal travel covered, in seconds. Idle
	// actions report 0.
	Progress() float64
	// Handle issues one command and returns it. progressError is how far
	// ahead of the group this action is, in seconds.
	Handle(elapsed time.Duration, progressError float64) (float64, error)
	// Settle leaves the actuator stopped.
	Settle() error
}

// Offsetter is implemented by actions mounted at a lateral offset from the
// drivetrain center. Angle stops require every action to be one.
type Offsetter interface {
	Offset() float64
}

// Idler is implemented by actions that do not move. They are left out of
// the progress average.
type Idler interface {
	Idle() bool
}

// Weighted actions count towards the group progress in proportion to
// Weight. Actions that do not implement it weigh 1.
type Weighted interface {
	Weight() float64
}

// Status is what stop conditions see before every cycle.
type Status struct {
	Step     int
	Elapsed  time.Duration
	Traveled []float64
	Angle    float64
	HasAngle bool
}

// Tick is reported to observers after every cycle.
type Tick struct {
	Step           int
	Elapsed        time.Duration
	Traveled       []float64
	Commands       []float64
	ProgressErrors []float64
	Angle          float64
}

type Observer interface {
	OnTick(Tick)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Tick)

func (f ObserverFunc) OnTick(t Tick) { f(t) }

type Config struct {
	Cycle     time.Duration
	Stop      StopCondition
	Observers []Observer
	Logger    *log.Logger
}

const DefaultCycle = 50 * time.Millisecond
