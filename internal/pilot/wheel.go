package pilot

import (
	"math"

	"github.com/san-kum/rover/internal/device"
)

// Wheel is a driven wheel mounted at a signed lateral offset from the
// drivetrain center. Negative offsets are on the left.
type Wheel struct {
	motor     device.Motor
	gearRatio float64
	diameter  float64
	width     float64
	offset    float64
}

func NewWheel(m device.Motor, gearRatio, diameter, width, offset float64) Wheel {
	return Wheel{motor: m, gearRatio: gearRatio, diameter: diameter, width: width, offset: offset}
}

func (w Wheel) Motor() device.Motor { return w.motor }
func (w Wheel) GearRatio() float64  { return w.gearRatio }
func (w Wheel) Diameter() float64   { return w.diameter }
func (w Wheel) Width() float64      { return w.width }
func (w Wheel) Offset() float64     { return w.offset }

// TachoPerDegree is tacho counts per motor degree, 1 when the motor is
// not connected.
func (w Wheel) TachoPerDegree() float64 {
	if !w.motor.Connected() {
		return 1
	}
	return float64(w.motor.CountPerRot()) / 360
}

// TotalRatio is tacho counts per wheel degree.
func (w Wheel) TotalRatio() float64 {
	return w.gearRatio * w.TachoPerDegree()
}

// UnitRatio is tacho counts per distance unit traveled.
func (w Wheel) UnitRatio() float64 {
	return w.TotalRatio() * 360 / (math.Pi * w.diameter)
}

func (w Wheel) validate(i int) error {
	if w.motor == nil {
		return device.Configurationf("pilot.New", "wheel %d has no motor", i)
	}
	if w.diameter <= 0 || w.gearRatio == 0 {
		return device.Configurationf("pilot.New", "wheel %d: diameter %g, gear ratio %g", i, w.diameter, w.gearRatio)
	}
	return nil
}
