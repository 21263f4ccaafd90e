package scanner

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/rover/internal/device"
	"github.com/san-kum/rover/internal/simulation"
)

func newTestScanner(distance float64) (*Scanner, *simulation.Motor) {
	m := simulation.NewMotor("scan", simulation.WithTau(10*time.Millisecond))
	sensor := simulation.NewSensor(map[string]int{"US-DIST-CM": 1}, func(string, int) float64 { return distance })
	return New(Head{Motor: m, GearRatio: 3}, sensor, 255), m
}

func TestValuePercent(t *testing.T) {
	s, _ := newTestScanner(51)

	raw, err := s.Value(false)
	if err != nil || raw != 51 {
		t.Fatalf("Value(false) = %v, %v", raw, err)
	}
	pct, _ := s.Value(true)
	if math.Abs(pct-20) > 1e-9 {
		t.Errorf("Value(true) = %v, want 20", pct)
	}
}

func TestValueScanRotates(t *testing.T) {
	s, m := newTestScanner(100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.ValueScan(ctx, 30, true); err != nil {
		t.Fatal(err)
	}
	if got := m.Position(); got != 90 {
		t.Errorf("motor position = %d, want 90 (30 degrees through 3:1)", got)
	}
	if math.Abs(s.Angle()-30) > 1e-9 {
		t.Errorf("Angle() = %v, want 30", s.Angle())
	}
}

func TestValueScanContinuous(t *testing.T) {
	s, _ := newTestScanner(100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var samples []Sample
	err := s.ValueScanContinuous(ctx, 90, 5*time.Millisecond, false, func(smp Sample) {
		samples = append(samples, smp)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) < 2 {
		t.Fatalf("got %d samples", len(samples))
	}
	first, last := samples[0], samples[len(samples)-1]
	if last.Angle <= first.Angle || last.Angle > 91 {
		t.Errorf("sweep went from %v to %v degrees", first.Angle, last.Angle)
	}
}

func TestResetReturnsHome(t *testing.T) {
	s, m := newTestScanner(0)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.RunToAbsolutePosition(500, 60)
	if err := s.WaitToStop(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Angle() != 20 {
		t.Fatalf("Angle() = %v, want 20", s.Angle())
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if m.Position() != 0 || m.IsRunning() {
		t.Errorf("head not home: pos %d running %v", m.Position(), m.IsRunning())
	}
}

func TestMissingDevices(t *testing.T) {
	s := New(Head{}, nil, 100)
	if s.HasMotor() || s.IsConnected() {
		t.Error("scanner without devices reports them")
	}
	if _, err := s.Value(true); !errors.Is(err, device.ErrNotConnected) {
		t.Errorf("Value() = %v", err)
	}
	if err := s.RotateTo(10, 0); !errors.Is(err, device.ErrNotConnected) {
		t.Errorf("RotateTo() = %v", err)
	}
	if err := s.Reset(context.Background()); err != nil {
		t.Errorf("Reset() without motor = %v", err)
	}
	if s.Angle() != 0 {
		t.Error("Angle() without motor should be 0")
	}
}
