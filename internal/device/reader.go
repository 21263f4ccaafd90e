package device

import (
	"context"
	"sync"
	"time"
)

// ValueReader polls a sensor in the background and serves the latest values
// from a cache, so control loops never block on a slow sensor read.
// It satisfies Sensor itself and can wrap any sensor transparently.
type ValueReader struct {
	sensor   Sensor
	interval time.Duration

	// ioMu serializes sensor access between the poller and mode switches.
	ioMu sync.Mutex

	mu     sync.RWMutex
	values []float64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewValueReader wraps s. Polling starts with Start.
func NewValueReader(s Sensor, interval time.Duration) *ValueReader {
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}
	r := &ValueReader{sensor: s, interval: interval}
	r.reload()
	return r
}

func (r *ValueReader) reload() {
	n := 0
	if r.sensor.Connected() {
		n = r.sensor.NumValues()
	}
	r.mu.Lock()
	r.values = make([]float64, n)
	r.mu.Unlock()
}

// Start launches the poller. It stops when ctx is done or Stop is called.
func (r *ValueReader) Start(ctx context.Context) {
	if r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)
}

func (r *ValueReader) run(ctx context.Context) {
	defer close(r.done)
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		r.refresh()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (r *ValueReader) refresh() {
	if !r.sensor.Connected() {
		return
	}
	r.ioMu.Lock()
	fresh := make([]float64, r.sensor.NumValues())
	for i := range fresh {
		fresh[i] = r.sensor.Value(i)
	}
	r.ioMu.Unlock()

	r.mu.Lock()
	r.values = fresh
	r.mu.Unlock()
}

// Stop cancels the poller and waits for it to exit.
func (r *ValueReader) Stop() {
	if r.done == nil {
		return
	}
	r.cancel()
	<-r.done
	r.done = nil
}

// Value returns the cached value number index, or 0 when the current mode
// has fewer values.
func (r *ValueReader) Value(index int) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.values) {
		return 0
	}
	return r.values[index]
}

// Fresh reads value number index from the sensor and updates the cache.
func (r *ValueReader) Fresh(index int) float64 {
	r.ioMu.Lock()
	v := r.sensor.Value(index)
	r.ioMu.Unlock()

	r.mu.Lock()
	if index >= 0 && index < len(r.values) {
		r.values[index] = v
	}
	r.mu.Unlock()
	return v
}

// Values returns a copy of all cached values.
func (r *ValueReader) Values() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// SetMode switches the sensor mode while the poller is held off, then
// resizes the cache for the new mode.
func (r *ValueReader) SetMode(mode string) error {
	r.ioMu.Lock()
	err := r.sensor.SetMode(mode)
	r.ioMu.Unlock()
	r.reload()
	return err
}

func (r *ValueReader) NumValues() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}

func (r *ValueReader) Connected() bool { return r.sensor.Connected() }
