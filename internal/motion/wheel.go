package motion

import (
	"math"
	"time"

	"go.uber.org/multierr"

	"github.com/san-kum/rover/internal/device"
	"github.com/san-kum/rover/internal/regulator"
)

// WheelConfig describes how a WheelAction drives its motor.
type WheelConfig struct {
	// UnitRatio is tacho counts per distance unit.
	UnitRatio float64
	// Offset is the lateral mount offset in distance units.
	Offset float64
	// DutyLimit bounds the duty cycle, default 100.
	DutyLimit float64
	// SyncGain scales the progress correction applied to the ramp target.
	SyncGain float64
	P, I, D  float64
}

// WheelAction keeps one motor on a position ramp. The regulator target is
// start + speed·(elapsed − SyncGain·progressError), so a wheel that is ahead
// of the group has its ramp pulled back and a wheel that lags is pushed
// forward.
type WheelAction struct {
	motor device.Motor
	cfg   WheelConfig
	speed float64
	start int
	reg   *regulator.Value

	elapsed  time.Duration
	progErr  float64
	direct   bool
	lastDuty float64
}

// NewWheelAction captures the motor's current position as the ramp start.
// speed is in tacho counts per second.
func NewWheelAction(m device.Motor, speed float64, cfg WheelConfig) *WheelAction {
	if cfg.DutyLimit <= 0 {
		cfg.DutyLimit = 100
	}
	if cfg.UnitRatio == 0 {
		cfg.UnitRatio = 1
	}
	w := &WheelAction{
		motor: m,
		cfg:   cfg,
		speed: speed,
		start: m.Position(),
	}
	w.reg = regulator.NewValue(regulator.Gains{
		P:      regulator.Fixed(cfg.P),
		I:      regulator.Fixed(cfg.I),
		D:      regulator.Fixed(cfg.D),
		Target: regulator.Computed(w.target),
	})
	return w
}

func (w *WheelAction) target() float64 {
	t := w.elapsed.Seconds() - w.cfg.SyncGain*w.progErr
	return float64(w.start) + w.speed*t
}

func (w *WheelAction) traveledTacho() float64 {
	return float64(w.motor.Position() - w.start)
}

func (w *WheelAction) Traveled() float64 {
	return w.traveledTacho() / w.cfg.UnitRatio
}

// Progress is the tacho travel divided by the signed speed, so it grows in
// the commanded direction for forward and reverse wheels alike.
func (w *WheelAction) Progress() float64 {
	if w.speed == 0 {
		return 0
	}
	return w.traveledTacho() / w.speed
}

func (w *WheelAction) Idle() bool { return w.speed == 0 }

// Weight is the absolute commanded speed.
func (w *WheelAction) Weight() float64 { return math.Abs(w.speed) }

func (w *WheelAction) Offset() float64 { return w.cfg.Offset }

func (w *WheelAction) Speed() float64 { return w.speed }

// Regulator exposes the position regulator for live tuning.
func (w *WheelAction) Regulator() *regulator.Value { return w.reg }

func (w *WheelAction) Handle(elapsed time.Duration, progressError float64) (float64, error) {
	if !w.direct {
		if err := w.motor.RunDirect(); err != nil {
			return 0, err
		}
		w.direct = true
	}
	w.elapsed = elapsed
	w.progErr = progressError

	duty := regulator.Clamp(w.reg.Regulate(float64(w.motor.Position())), w.cfg.DutyLimit)
	w.lastDuty = duty
	return duty, w.motor.SetDutyCycle(duty)
}

// Settle writes a zero duty cycle and stops the motor.
func (w *WheelAction) Settle() error {
	w.lastDuty = 0
	return multierr.Append(w.motor.SetDutyCycle(0), w.motor.Stop())
}

func (w *WheelAction) LastDuty() float64 { return w.lastDuty }
