// Package patrol is a two-behaviour program: cruise straight ahead and
// turn away from anything closer than a clearance distance.
package patrol

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/rover/internal/behaviour"
	"github.com/san-kum/rover/internal/logging"
	"github.com/san-kum/rover/internal/pilot"
)

// Drive is the part of a Pilot the behaviours use.
type Drive interface {
	RunDriveForever(ctx context.Context, c pilot.Course, speedUnit float64) error
	RunDriveToAngle(ctx context.Context, c pilot.Course, speedUnit, angle float64) error
	WaitToStop(ctx context.Context) error
	Stop() error
}

// Ranger reports the distance to the nearest obstacle ahead.
type Ranger interface {
	Value(percent bool) (float64, error)
}

// Looker is a Ranger on a rotating head. Avoid uses it to turn towards
// the more open side.
type Looker interface {
	Ranger
	ValueScan(ctx context.Context, angle float64, percent bool) (float64, error)
}

type Options struct {
	Speed     float64 // cruise speed, distance units per second
	TurnSpeed float64
	Clearance float64 // obstacle distance that triggers a turn
	TurnAngle float64 // degrees, positive turns left
	Interval  time.Duration
}

func DefaultOptions() Options {
	return Options{Speed: 15, TurnSpeed: 8, Clearance: 25, TurnAngle: 90, Interval: 50 * time.Millisecond}
}

// New returns the behaviours by priority, ready for a behaviour.Controller.
func New(d Drive, r Ranger, opts Options) []behaviour.Behaviour {
	l := logging.New("patrol")
	return []behaviour.Behaviour{
		&Avoid{drive: d, ranger: r, opts: opts, log: l},
		&Cruise{drive: d, opts: opts, log: l},
	}
}

// Cruise drives straight ahead. It always wants control.
type Cruise struct {
	drive   Drive
	opts    Options
	log     *log.Logger
	started bool
}

func (c *Cruise) Name() string            { return "cruise" }
func (c *Cruise) ShouldTakeControl() bool { return true }
func (c *Cruise) OnTakeControl()          { c.started = false }

func (c *Cruise) HandleLoop(ctx context.Context) {
	if !c.started {
		if err := c.drive.RunDriveForever(ctx, pilot.Straight(), c.opts.Speed); err != nil {
			c.log.Error("cruise", "err", err)
			return
		}
		c.started = true
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.opts.Interval):
	}
}

func (c *Cruise) OnLooseControl() {
	if err := c.drive.Stop(); err != nil {
		c.log.Error("cruise stop", "err", err)
	}
}

// Avoid turns in place once an obstacle is within clearance and keeps
// control until the turn is done.
type Avoid struct {
	drive   Drive
	ranger  Ranger
	opts    Options
	log     *log.Logger
	turning bool
	turns   int
}

func (a *Avoid) Name() string { return "avoid" }

func (a *Avoid) ShouldTakeControl() bool {
	if a.turning {
		return true
	}
	d, err := a.ranger.Value(false)
	return err == nil && d < a.opts.Clearance
}

func (a *Avoid) OnTakeControl() { a.turning = true }

func (a *Avoid) HandleLoop(ctx context.Context) {
	defer func() { a.turning = false }()
	if err := a.drive.Stop(); err != nil {
		a.log.Error("avoid stop", "err", err)
	}
	angle := a.chooseTurn(ctx)
	a.log.Info("obstacle ahead, turning", "angle", angle)
	if err := a.drive.RunDriveToAngle(ctx, pilot.Radius(math.Copysign(pilot.MinRadius, angle)), a.opts.TurnSpeed, angle); err != nil {
		a.log.Error("avoid", "err", err)
		return
	}
	if err := a.drive.WaitToStop(ctx); err != nil {
		return
	}
	a.turns++
}

// chooseTurn looks both ways when the ranger can rotate and returns the
// signed turn angle towards the larger reading. Ties turn left.
func (a *Avoid) chooseTurn(ctx context.Context) float64 {
	angle := a.opts.TurnAngle
	look, ok := a.ranger.(Looker)
	if !ok {
		return angle
	}
	left, errL := look.ValueScan(ctx, angle, false)
	right, errR := look.ValueScan(ctx, -angle, false)
	if _, err := look.ValueScan(ctx, 0, false); err != nil {
		a.log.Warn("scanner recenter", "err", err)
	}
	if errL != nil || errR != nil {
		return angle
	}
	if right > left {
		return -angle
	}
	return angle
}

func (a *Avoid) OnLooseControl() {}

// Turns counts completed avoidance turns.
func (a *Avoid) Turns() int { return a.turns }
