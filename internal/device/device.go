// Package device defines the capabilities rover needs from motors and
// sensors.
//
// Device discovery and register access live outside this module; drivers
// (or the simulation package) satisfy [Motor] and [Sensor]. Disconnected
// devices are valid values: callers check Connected and degrade instead of
// failing at construction.
package device

import "time"

// Motor is a tacho motor with an encoder. Positions and speeds are in tacho
// counts and tacho counts per second, duty cycles in percent [-100, 100].
type Motor interface {
	// Position reports the encoder position.
	Position() int
	// Speed reports the current speed.
	Speed() int
	// MaxSpeed reports the rated maximum speed.
	MaxSpeed() int
	// CountPerRot reports tacho counts per motor revolution.
	CountPerRot() int

	// RunDirect switches the motor to open-loop duty cycle control.
	RunDirect() error
	// SetDutyCycle updates the duty cycle used by RunDirect.
	SetDutyCycle(pct float64) error
	// RunForever runs at speed until told otherwise.
	RunForever(speed int) error
	// RunToAbsolutePosition runs at speed until the encoder reaches pos.
	RunToAbsolutePosition(speed, pos int) error
	// RunTimed runs at speed for d.
	RunTimed(speed int, d time.Duration) error
	// Stop brakes the motor.
	Stop() error
	// Reset stops the motor and zeroes its encoder.
	Reset() error

	IsRunning() bool
	Connected() bool
}

// Sensor is a multi-value sensor with selectable modes.
type Sensor interface {
	// Value returns value number index of the current mode.
	Value(index int) float64
	// SetMode switches the sensor mode. Unknown modes fail with a
	// ConfigurationError.
	SetMode(mode string) error
	// NumValues reports how many values the current mode provides.
	NumValues() int
	Connected() bool
}
