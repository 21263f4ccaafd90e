package pilot

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/san-kum/rover/internal/device"
	"github.com/san-kum/rover/internal/logging"
	"github.com/san-kum/rover/internal/motion"
)

var errStillRunning = errors.New("pilot: motors still running")

// Pilot owns a drivetrain. Every command takes exclusive access: a running
// closed-loop move is cancelled and fully settled before the next command
// touches a motor.
type Pilot struct {
	mu     sync.Mutex
	wheels []Wheel

	cycle     time.Duration
	gains     Gains
	syncGain  float64
	dutyLimit float64
	log       *log.Logger
	observers []motion.Observer

	move *motion.Coordinator
}

func New(wheels []Wheel, opts ...Option) (*Pilot, error) {
	p := &Pilot{
		cycle:     motion.DefaultCycle,
		gains:     DefaultGains,
		syncGain:  DefaultSyncGain,
		dutyLimit: DefaultDutyLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logging.New("pilot")
	}
	if err := checkWheels(wheels); err != nil {
		return nil, err
	}
	p.wheels = append([]Wheel(nil), wheels...)
	return p, nil
}

func checkWheels(wheels []Wheel) error {
	if len(wheels) == 0 {
		return device.Configurationf("pilot.New", "no wheels")
	}
	for i, w := range wheels {
		if err := w.validate(i); err != nil {
			return err
		}
	}
	return nil
}

// SetWheels stops the drivetrain and replaces the wheel set.
func (p *Pilot) SetWheels(wheels []Wheel) error {
	if err := checkWheels(wheels); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.stopLocked()
	p.wheels = append([]Wheel(nil), wheels...)
	return err
}

func (p *Pilot) Wheels() []Wheel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Wheel(nil), p.wheels...)
}

// AddObserver attaches an observer to subsequent closed-loop moves.
func (p *Pilot) AddObserver(o motion.Observer) {
	p.mu.Lock()
	p.observers = append(p.observers, o)
	p.mu.Unlock()
}

func (p *Pilot) offsets() []float64 {
	out := make([]float64, len(p.wheels))
	for i, w := range p.wheels {
		out[i] = w.offset
	}
	return out
}

// cancelMoveLocked ends the current closed-loop move and waits until its
// actions have settled.
func (p *Pilot) cancelMoveLocked() {
	if p.move == nil {
		return
	}
	p.move.Cancel()
	if err := p.move.Err(); err != nil {
		p.log.Warn("previous move ended with errors", "err", err)
	}
	p.move = nil
}

// RunDirect runs every motor in direct duty mode at duty scaled by the
// percent course.
func (p *Pilot) RunDirect(course, duty float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelMoveLocked()

	var err error
	for i, r := range PercentRatios(p.offsets(), course) {
		m := p.wheels[i].motor
		err = multierr.Append(err, m.SetDutyCycle(duty*r))
		err = multierr.Append(err, m.RunDirect())
	}
	return err
}

// UpdateDutyCycle changes the duty of motors already in direct mode.
func (p *Pilot) UpdateDutyCycle(course, duty float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelMoveLocked()

	var err error
	for i, r := range PercentRatios(p.offsets(), course) {
		err = multierr.Append(err, p.wheels[i].motor.SetDutyCycle(duty*r))
	}
	return err
}

// UpdateDutyCycleRaw sets one duty per wheel.
func (p *Pilot) UpdateDutyCycleRaw(duties []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(duties) != len(p.wheels) {
		return device.LengthMismatch("pilot.UpdateDutyCycleRaw", len(duties), len(p.wheels))
	}
	p.cancelMoveLocked()

	var err error
	for i, d := range duties {
		err = multierr.Append(err, p.wheels[i].motor.SetDutyCycle(d))
	}
	return err
}

// RunForeverRaw runs each motor at its own tacho speed.
func (p *Pilot) RunForeverRaw(speeds []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(speeds) != len(p.wheels) {
		return device.LengthMismatch("pilot.RunForeverRaw", len(speeds), len(p.wheels))
	}
	p.cancelMoveLocked()

	var err error
	for i, s := range speeds {
		err = multierr.Append(err, p.wheels[i].motor.RunForever(s))
	}
	return err
}

// RunDriveForever drives the course at speedUnit distance units per second
// until stopped. For arcs the speed is that of the fastest wheel.
func (p *Pilot) RunDriveForever(ctx context.Context, c Course, speedUnit float64) error {
	return p.drive(ctx, c, nil, speedUnit, motion.Never())
}

// RunDriveToDistance stops once the mean wheel travel reaches distance.
func (p *Pilot) RunDriveToDistance(ctx context.Context, c Course, speedUnit, distance float64) error {
	return p.drive(ctx, c, nil, speedUnit, motion.StopAtDistance(distance))
}

// RunDriveToAngle stops once the drivetrain has turned angle degrees.
func (p *Pilot) RunDriveToAngle(ctx context.Context, c Course, speedUnit, angle float64) error {
	if c.IsStraight() {
		return device.Configurationf("pilot.RunDriveToAngle", "a straight course never turns")
	}
	return p.drive(ctx, c, nil, speedUnit, motion.StopAtAngle(angle))
}

func (p *Pilot) RunDriveTimed(ctx context.Context, c Course, speedUnit float64, d time.Duration) error {
	return p.drive(ctx, c, nil, speedUnit, motion.StopAfter(d))
}

// RunPercentDriveForever drives a percent course at speedUnit for the
// outer wheel until stopped.
func (p *Pilot) RunPercentDriveForever(ctx context.Context, course, speedUnit float64) error {
	return p.drive(ctx, Course{}, &course, speedUnit, motion.Never())
}

func (p *Pilot) RunPercentDriveToDistance(ctx context.Context, course, speedUnit, distance float64) error {
	return p.drive(ctx, Course{}, &course, speedUnit, motion.StopAtDistance(distance))
}

func (p *Pilot) RunPercentDriveToAngle(ctx context.Context, course, speedUnit, angle float64) error {
	if course == 0 {
		return device.Configurationf("pilot.RunPercentDriveToAngle", "a zero course never turns")
	}
	return p.drive(ctx, Course{}, &course, speedUnit, motion.StopAtAngle(angle))
}

func (p *Pilot) RunPercentDriveTimed(ctx context.Context, course, speedUnit float64, d time.Duration) error {
	return p.drive(ctx, Course{}, &course, speedUnit, motion.StopAfter(d))
}

// drive starts a closed-loop move. percent selects a percent course over c.
func (p *Pilot) drive(ctx context.Context, c Course, percent *float64, speedUnit float64, stop motion.StopCondition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelMoveLocked()

	offsets := p.offsets()
	ratios := RadiusRatios(offsets, c)
	if percent != nil {
		ratios = PercentRatios(offsets, *percent)
	}

	speeds := make([]float64, len(p.wheels))
	for i, w := range p.wheels {
		speeds[i] = speedUnit * ratios[i] * w.UnitRatio()
	}
	speeds = p.scaleToCapacity(speeds)

	actions := make([]motion.Action, len(p.wheels))
	for i, w := range p.wheels {
		actions[i] = motion.NewWheelAction(w.motor, speeds[i], motion.WheelConfig{
			UnitRatio: w.UnitRatio(),
			Offset:    w.offset,
			DutyLimit: p.dutyLimit,
			SyncGain:  p.syncGain,
			P:         p.gains.P,
			I:         p.gains.I,
			D:         p.gains.D,
		})
	}

	move, err := motion.Start(ctx, actions, motion.Config{
		Cycle:     p.cycle,
		Stop:      stop,
		Observers: append([]motion.Observer(nil), p.observers...),
		Logger:    p.log,
	})
	if err != nil {
		return err
	}
	p.move = move
	p.log.Debug("drive", "speeds", speeds, "stop", stop)
	return nil
}

// scaleToCapacity shrinks all speeds by one factor when any of them is
// beyond its motor's maximum, keeping the course shape.
func (p *Pilot) scaleToCapacity(speeds []float64) []float64 {
	scale := 1.0
	for i, s := range speeds {
		limit := float64(p.wheels[i].motor.MaxSpeed())
		if limit > 0 && math.Abs(s)/limit > scale {
			scale = math.Abs(s) / limit
		}
	}
	if scale == 1 {
		return speeds
	}
	p.log.Warn("speed over motor capacity, scaling down", "factor", 1/scale)
	out := make([]float64, len(speeds))
	for i, s := range speeds {
		out[i] = s / scale
	}
	return out
}

// WaitToStop blocks until the current move has ended and every motor is
// idle, or ctx is done.
func (p *Pilot) WaitToStop(ctx context.Context) error {
	p.mu.Lock()
	move := p.move
	wheels := p.wheels
	p.mu.Unlock()

	var err error
	if move != nil {
		if err = move.Wait(ctx); ctx.Err() != nil {
			return ctx.Err()
		}
	}

	poll := backoff.WithContext(backoff.NewConstantBackOff(pollInterval), ctx)
	waitErr := backoff.Retry(func() error {
		for _, w := range wheels {
			if w.motor.IsRunning() {
				return errStillRunning
			}
		}
		return nil
	}, poll)
	if waitErr != nil {
		return ctx.Err()
	}
	return err
}

// IsRunning reports whether a move is in progress or any motor is running.
func (p *Pilot) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.move != nil && p.move.Running() {
		return true
	}
	for _, w := range p.wheels {
		if w.motor.IsRunning() {
			return true
		}
	}
	return false
}

// Stop cancels any move and stops every motor.
func (p *Pilot) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Pilot) stopLocked() error {
	p.cancelMoveLocked()
	var err error
	for _, w := range p.wheels {
		err = multierr.Append(err, w.motor.Stop())
	}
	return err
}

// Reset stops the drivetrain and zeroes every tacho counter.
func (p *Pilot) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.stopLocked()
	for _, w := range p.wheels {
		err = multierr.Append(err, w.motor.Reset())
	}
	return err
}

func (p *Pilot) Positions() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.wheels))
	for i, w := range p.wheels {
		out[i] = w.motor.Position()
	}
	return out
}

// WheelState is a snapshot of one drive motor.
type WheelState struct {
	Position int
	Speed    int
	Running  bool
}

func (p *Pilot) States() []WheelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]WheelState, len(p.wheels))
	for i, w := range p.wheels {
		out[i] = WheelState{
			Position: w.motor.Position(),
			Speed:    w.motor.Speed(),
			Running:  w.motor.IsRunning(),
		}
	}
	return out
}

// RestorePositions drives every motor back to a saved tacho position. Each
// motor's speed is proportional to its displacement, so all of them arrive
// together and the one moving furthest runs at speed.
func (p *Pilot) RestorePositions(positions []int, speed int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(positions) != len(p.wheels) {
		return device.LengthMismatch("pilot.RestorePositions", len(positions), len(p.wheels))
	}
	if speed <= 0 {
		return device.Configurationf("pilot.RestorePositions", "speed must be positive, got %d", speed)
	}
	p.cancelMoveLocked()

	disp := make([]float64, len(p.wheels))
	var far float64
	for i, w := range p.wheels {
		disp[i] = math.Abs(float64(positions[i] - w.motor.Position()))
		far = math.Max(far, disp[i])
	}
	if far == 0 {
		return nil
	}

	var err error
	for i, w := range p.wheels {
		if disp[i] == 0 {
			continue
		}
		s := int(math.Max(1, math.Round(float64(speed)*disp[i]/far)))
		err = multierr.Append(err, w.motor.RunToAbsolutePosition(s, positions[i]))
	}
	return err
}

// IsConnected reports whether every drive motor is attached.
func (p *Pilot) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.wheels {
		if !w.motor.Connected() {
			return false
		}
	}
	return true
}

// MaxSpeedUnit is the highest straight-line speed, in distance units per
// second, that every wheel can sustain.
func (p *Pilot) MaxSpeedUnit() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	best := math.Inf(1)
	for _, w := range p.wheels {
		best = math.Min(best, float64(w.motor.MaxSpeed())/w.UnitRatio())
	}
	return best
}

// Move returns the closed-loop move started last, nil once it has been
// replaced by another command.
func (p *Pilot) Move() *motion.Coordinator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.move
}

// Params returns the tunables applied to the next closed-loop move.
func (p *Pilot) Params() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]float64{
		"p":         p.gains.P,
		"i":         p.gains.I,
		"d":         p.gains.D,
		"sync_gain": p.syncGain,
	}
}

// SetParam changes a tunable for subsequent moves. The running move keeps
// its gains.
func (p *Pilot) SetParam(name string, v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch name {
	case "p":
		p.gains.P = v
	case "i":
		p.gains.I = v
	case "d":
		p.gains.D = v
	case "sync_gain":
		p.syncGain = v
	default:
		return device.Configurationf("pilot.SetParam", "unknown parameter %q", name)
	}
	return nil
}
