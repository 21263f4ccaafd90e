package simulation

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/san-kum/rover/internal/device"
	"github.com/san-kum/rover/internal/regulator"
)

const (
	DefaultMaxSpeed    = 1050
	DefaultCountPerRot = 360
	DefaultTau         = 50 * time.Millisecond

	maxSubstep = 5 * time.Millisecond
)

// Mode is the command a SimMotor is currently executing.
type Mode int

const (
	ModeStopped Mode = iota
	ModeDirect
	ModeForever
	ModeToPosition
	ModeTimed
)

func (m Mode) String() string {
	switch m {
	case ModeStopped:
		return "stopped"
	case ModeDirect:
		return "direct"
	case ModeForever:
		return "forever"
	case ModeToPosition:
		return "to-position"
	case ModeTimed:
		return "timed"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

type MotorOption func(*Motor)

func WithMaxSpeed(s int) MotorOption { return func(m *Motor) { m.maxSpeed = s } }

func WithCountPerRot(c int) MotorOption { return func(m *Motor) { m.countPerRot = c } }

// WithTau sets the velocity time constant.
func WithTau(d time.Duration) MotorOption { return func(m *Motor) { m.tau = d.Seconds() } }

// WithEfficiency scales every velocity command, modelling load or a weak
// motor. 1 is an ideal motor.
func WithEfficiency(e float64) MotorOption { return func(m *Motor) { m.efficiency = e } }

// WithClock replaces the wall clock, mainly for deterministic tests.
func WithClock(now func() time.Time) MotorOption { return func(m *Motor) { m.now = now } }

// Disconnected makes the motor report itself as unavailable.
func Disconnected() MotorOption { return func(m *Motor) { m.connected = false } }

// Motor is a first-order DC motor with a tacho counter. Its state is
// [position, velocity] in tacho counts and counts per second; the velocity
// follows the commanded velocity with time constant tau. State advances
// lazily on wall-clock time whenever the motor is read or commanded.
type Motor struct {
	mu sync.Mutex

	name        string
	maxSpeed    int
	countPerRot int
	tau         float64
	efficiency  float64
	connected   bool
	now         func() time.Time

	x     []float64
	integ rk4
	last  time.Time

	mode     Mode
	duty     float64
	speedSP  float64
	posSP    float64
	runUntil time.Time
	commands int
}

var _ device.Motor = (*Motor)(nil)

func NewMotor(name string, opts ...MotorOption) *Motor {
	m := &Motor{
		name:        name,
		maxSpeed:    DefaultMaxSpeed,
		countPerRot: DefaultCountPerRot,
		tau:         DefaultTau.Seconds(),
		efficiency:  1,
		connected:   true,
		now:         time.Now,
		x:           make([]float64, 2),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.last = m.now()
	return m
}

func (m *Motor) Name() string { return m.name }

func (m *Motor) derive(x []float64, u float64) []float64 {
	return []float64{x[1], (u - x[1]) / m.tau}
}

// command is the velocity the motor is driven towards. Caller holds mu.
func (m *Motor) command() float64 {
	var u float64
	switch m.mode {
	case ModeDirect:
		u = m.duty / 100 * float64(m.maxSpeed)
	case ModeForever, ModeTimed:
		u = m.speedSP
	case ModeToPosition:
		kp := 1 / (4 * m.tau)
		u = regulator.Clamp(kp*(m.posSP-m.x[0]), math.Abs(m.speedSP))
	}
	return regulator.Clamp(u, float64(m.maxSpeed)) * m.efficiency
}

// advance integrates up to the current time. Caller holds mu.
func (m *Motor) advance() {
	now := m.now()
	limit := maxSubstep
	if half := time.Duration(m.tau * float64(time.Second) / 2); half > 0 && half < limit {
		limit = half
	}
	for m.last.Before(now) {
		h := now.Sub(m.last)
		if h > limit {
			h = limit
		}
		if m.mode == ModeTimed && !m.last.Before(m.runUntil) {
			m.mode = ModeStopped
		}
		m.integ.step(m.derive, m.x, m.command(), h.Seconds())
		m.last = m.last.Add(h)

		if m.mode == ModeToPosition && math.Abs(m.posSP-m.x[0]) < 0.5 && math.Abs(m.x[1]) < 20 {
			m.x[0], m.x[1] = m.posSP, 0
			m.mode = ModeStopped
		}
	}
	if m.mode == ModeTimed && !now.Before(m.runUntil) {
		m.mode = ModeStopped
	}
}

func (m *Motor) Position() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return 0
	}
	m.advance()
	return int(math.Round(m.x[0]))
}

func (m *Motor) Speed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return 0
	}
	m.advance()
	return int(math.Round(m.x[1]))
}

func (m *Motor) MaxSpeed() int { return m.maxSpeed }

func (m *Motor) CountPerRot() int { return m.countPerRot }

func (m *Motor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetConnected plugs or unplugs the motor.
func (m *Motor) SetConnected(c bool) {
	m.mu.Lock()
	m.connected = c
	m.mu.Unlock()
}

// run applies a new command after integrating the old one.
func (m *Motor) run(apply func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("%s: %w", m.name, device.ErrNotConnected)
	}
	m.advance()
	apply()
	m.commands++
	return nil
}

func (m *Motor) RunDirect() error {
	return m.run(func() { m.mode = ModeDirect })
}

// SetDutyCycle records the duty setpoint. It only drives the motor in
// direct mode.
func (m *Motor) SetDutyCycle(pct float64) error {
	return m.run(func() { m.duty = regulator.Clamp(pct, 100) })
}

func (m *Motor) RunForever(speed int) error {
	return m.run(func() {
		m.mode = ModeForever
		m.speedSP = float64(speed)
	})
}

func (m *Motor) RunToAbsolutePosition(speed, pos int) error {
	return m.run(func() {
		m.mode = ModeToPosition
		m.speedSP = float64(speed)
		m.posSP = float64(pos)
	})
}

func (m *Motor) RunTimed(speed int, d time.Duration) error {
	return m.run(func() {
		m.mode = ModeTimed
		m.speedSP = float64(speed)
		m.runUntil = m.last.Add(d)
	})
}

func (m *Motor) Stop() error {
	return m.run(func() { m.mode = ModeStopped })
}

// Reset zeroes the tacho counter and stops the motor.
func (m *Motor) Reset() error {
	return m.run(func() {
		m.mode = ModeStopped
		m.duty = 0
		m.speedSP = 0
		m.x[0], m.x[1] = 0, 0
	})
}

func (m *Motor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return false
	}
	m.advance()
	return m.mode != ModeStopped
}

func (m *Motor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	return m.mode
}

// LastDuty is the most recent duty cycle setpoint.
func (m *Motor) LastDuty() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duty
}

// Commands counts accepted commands since construction.
func (m *Motor) Commands() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commands
}
