// Package scanner drives a rotating sensor head: a motor that points a
// distance sensor at an angle.
package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/charmbracelet/log"

	"github.com/san-kum/rover/internal/device"
	"github.com/san-kum/rover/internal/logging"
)

var errRotating = errors.New("scanner: still rotating")

// Head is the propulsion of a scanner: a motor behind a gear train.
type Head struct {
	Motor     device.Motor
	GearRatio float64
}

// TotalRatio is tacho counts per degree of head rotation.
func (h Head) TotalRatio() float64 {
	tacho := 1.0
	if h.Motor != nil && h.Motor.Connected() {
		tacho = float64(h.Motor.CountPerRot()) / 360
	}
	return h.GearRatio * tacho
}

// Scanner reads a distance sensor, optionally rotated by a motor. Both
// devices may be missing; HasMotor and IsConnected report what is usable.
type Scanner struct {
	head        Head
	sensor      device.Sensor
	maxDistance float64
	log         *log.Logger
}

// New builds a scanner. maxDistance is the sensor reading that maps to
// 100 percent.
func New(head Head, sensor device.Sensor, maxDistance float64) *Scanner {
	if head.GearRatio == 0 {
		head.GearRatio = 1
	}
	return &Scanner{head: head, sensor: sensor, maxDistance: maxDistance, log: logging.New("scanner")}
}

func (s *Scanner) HasMotor() bool {
	return s.head.Motor != nil && s.head.Motor.Connected()
}

// IsConnected reports whether a distance sensor is attached.
func (s *Scanner) IsConnected() bool {
	return s.sensor != nil && s.sensor.Connected()
}

func (s *Scanner) MaxDistance() float64 { return s.maxDistance }

// RotateTo starts turning the head to angle degrees at speed degrees per
// second. A speed of 0 uses a fifth of the motor's maximum.
func (s *Scanner) RotateTo(angle, speed float64) error {
	if !s.HasMotor() {
		return device.ErrNotConnected
	}
	ratio := s.head.TotalRatio()
	sp := int(speed * ratio)
	if speed == 0 {
		sp = s.head.Motor.MaxSpeed() / 5
	}
	return s.head.Motor.RunToAbsolutePosition(sp, int(angle*ratio))
}

// Angle is the current head angle in degrees.
func (s *Scanner) Angle() float64 {
	if !s.HasMotor() {
		return 0
	}
	return float64(s.head.Motor.Position()) / s.head.TotalRatio()
}

func (s *Scanner) IsRunning() bool {
	return s.HasMotor() && s.head.Motor.IsRunning()
}

// WaitToStop polls the head until it has stopped or ctx is done.
func (s *Scanner) WaitToStop(ctx context.Context) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     5 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          1.5,
		MaxInterval:         50 * time.Millisecond,
		Clock:               backoff.SystemClock,
	}
	err := backoff.Retry(func() error {
		if s.IsRunning() {
			return errRotating
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return ctx.Err()
	}
	return nil
}

// Value reads the sensor, as a percentage of the maximum distance when
// percent is set.
func (s *Scanner) Value(percent bool) (float64, error) {
	if !s.IsConnected() {
		return 0, device.ErrNotConnected
	}
	v := s.sensor.Value(0)
	if percent && s.maxDistance > 0 {
		v = v / s.maxDistance * 100
	}
	return v, nil
}

// ValueScan points the head at angle, waits for it to stop and reads.
func (s *Scanner) ValueScan(ctx context.Context, angle float64, percent bool) (float64, error) {
	if s.HasMotor() && s.Angle() != angle {
		if err := s.RotateTo(angle, 0); err != nil {
			return 0, err
		}
		if err := s.WaitToStop(ctx); err != nil {
			return 0, err
		}
	}
	return s.Value(percent)
}

// Sample is one reading of a continuous scan.
type Sample struct {
	Angle float64
	Value float64
}

// ValueScanContinuous turns the head to angle, calling fn with a reading
// every interval while it rotates.
func (s *Scanner) ValueScanContinuous(ctx context.Context, angle float64, interval time.Duration, percent bool, fn func(Sample)) error {
	if err := s.RotateTo(angle, 0); err != nil {
		return err
	}
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for s.IsRunning() {
		v, err := s.Value(percent)
		if err != nil {
			return err
		}
		fn(Sample{Angle: s.Angle(), Value: v})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Reset turns the head back to 0 slowly and zeroes its counter.
func (s *Scanner) Reset(ctx context.Context) error {
	if !s.HasMotor() {
		return nil
	}
	speed := float64(s.head.Motor.MaxSpeed()) / 10 / s.head.TotalRatio()
	if err := s.RotateTo(0, speed); err != nil {
		return err
	}
	if err := s.WaitToStop(ctx); err != nil {
		return err
	}
	s.log.Debug("scanner head reset")
	return s.head.Motor.Reset()
}
