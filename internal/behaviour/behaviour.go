// Package behaviour arbitrates a shared drivetrain between prioritized
// behaviours.
//
// Behaviours are listed by priority, highest first. On every loop the first
// one that wants control gets it; a change of owner is announced with
// OnLooseControl on the old owner before OnTakeControl on the new one, and
// only the owner's HandleLoop runs. Handoff happens between loops, never
// inside HandleLoop.
package behaviour

import (
	"context"
	"fmt"
)

// Behaviour is one competing robot activity.
type Behaviour interface {
	// ShouldTakeControl is polled every loop and should be cheap.
	ShouldTakeControl() bool
	OnTakeControl()
	// HandleLoop does one iteration of work while in control.
	HandleLoop(ctx context.Context)
	OnLooseControl()
}

// Named behaviours are logged by name.
type Named interface {
	Name() string
}

func nameOf(b Behaviour) string {
	if b == nil {
		return "none"
	}
	if n, ok := b.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", b)
}

// Arbiter picks the behaviour in control. It is not safe for concurrent
// use; a Controller drives it from a single goroutine.
type Arbiter struct {
	behaviours []Behaviour
	active     int
}

func NewArbiter(behaviours []Behaviour) *Arbiter {
	return &Arbiter{behaviours: behaviours, active: -1}
}

func (a *Arbiter) selectBehaviour() int {
	for i, b := range a.behaviours {
		if b.ShouldTakeControl() {
			return i
		}
	}
	return -1
}

// Step runs one arbitration loop and reports whether a behaviour ran.
func (a *Arbiter) Step(ctx context.Context) bool {
	next := a.selectBehaviour()
	if next != a.active {
		if a.active >= 0 {
			a.behaviours[a.active].OnLooseControl()
		}
		a.active = next
		if next >= 0 {
			a.behaviours[next].OnTakeControl()
		}
	}
	if a.active < 0 {
		return false
	}
	a.behaviours[a.active].HandleLoop(ctx)
	return true
}

// ForceLooseControl takes control away from the active behaviour, leaving
// the arbiter idle.
func (a *Arbiter) ForceLooseControl() {
	if a.active < 0 {
		return
	}
	b := a.behaviours[a.active]
	a.active = -1
	b.OnLooseControl()
}

// Active returns the behaviour in control, nil when idle.
func (a *Arbiter) Active() Behaviour {
	if a.active < 0 {
		return nil
	}
	return a.behaviours[a.active]
}

// ActiveIndex is the priority index of the behaviour in control, -1 when
// idle.
func (a *Arbiter) ActiveIndex() int { return a.active }
