package simulation

import (
	"sort"
	"sync"

	"github.com/san-kum/rover/internal/device"
)

// ValueFunc produces the reading of value index in mode.
type ValueFunc func(mode string, index int) float64

// Sensor is a multi-mode sensor whose readings come from a ValueFunc.
type Sensor struct {
	mu        sync.Mutex
	modes     map[string]int
	mode      string
	fn        ValueFunc
	connected bool
}

var _ device.Sensor = (*Sensor)(nil)

// NewSensor builds a sensor from a mode table mapping mode names to the
// number of values each mode reports. The first mode in sorted order is
// active until SetMode is called.
func NewSensor(modes map[string]int, fn ValueFunc) *Sensor {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)

	s := &Sensor{modes: modes, fn: fn, connected: true}
	if len(names) > 0 {
		s.mode = names[0]
	}
	return s
}

func (s *Sensor) SetMode(mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return device.ErrNotConnected
	}
	if _, ok := s.modes[mode]; !ok {
		return device.Configurationf("sensor.SetMode", "unknown mode %q", mode)
	}
	s.mode = mode
	return nil
}

func (s *Sensor) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Value returns 0 for indexes outside the current mode.
func (s *Sensor) Value(index int) float64 {
	s.mu.Lock()
	mode, n, fn, ok := s.mode, s.modes[s.mode], s.fn, s.connected
	s.mu.Unlock()
	if !ok || fn == nil || index < 0 || index >= n {
		return 0
	}
	return fn(mode, index)
}

func (s *Sensor) NumValues() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes[s.mode]
}

func (s *Sensor) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Sensor) SetConnected(c bool) {
	s.mu.Lock()
	s.connected = c
	s.mu.Unlock()
}
