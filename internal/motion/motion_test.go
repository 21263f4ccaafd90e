package motion

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/san-kum/rover/internal/device"
	"github.com/san-kum/rover/internal/logging"
	"github.com/san-kum/rover/internal/simulation"
)

const testUnitRatio = 360 / (math.Pi * 4.3)

func TestTurnedAngle(t *testing.T) {
	pivot := 6.5 * math.Pi / 2 // quarter turn on each wheel
	tests := []struct {
		name     string
		offsets  []float64
		traveled []float64
		want     float64
	}{
		{"straight", []float64{-6.5, 6.5}, []float64{10, 10}, 0},
		{"pivot left", []float64{-6.5, 6.5}, []float64{-pivot, pivot}, 90},
		{"pivot right", []float64{-6.5, 6.5}, []float64{pivot, -pivot}, -90},
		{"one wheel still", []float64{-6.5, 6.5}, []float64{0, 13 * math.Pi / 4}, 45},
		{"three wheels", []float64{-6.5, 0, 6.5}, []float64{-pivot, 0, pivot}, 90},
		{"coincident offsets", []float64{1, 1}, []float64{0, 5}, 0},
		{"single wheel", []float64{3}, []float64{5}, 0},
		{"length mismatch", []float64{-1, 1}, []float64{5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TurnedAngle(tt.offsets, tt.traveled)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TurnedAngle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTurnRadius(t *testing.T) {
	// center 20 units beyond the low-offset side: d = θ(R + o) with R = -20
	offsets := []float64{-5, 5}
	theta := 0.5
	traveled := []float64{theta * (-20 - 5), theta * (-20 + 5)}

	r, ok := TurnRadius(offsets, traveled)
	if !ok {
		t.Fatal("expected a turn")
	}
	if math.Abs(r+20) > 1e-9 {
		t.Errorf("radius = %v, want -20", r)
	}

	if _, ok := TurnRadius(offsets, []float64{3, 3}); ok {
		t.Error("straight move should have no radius")
	}
}

func TestStopConditions(t *testing.T) {
	tests := []struct {
		name string
		stop StopCondition
		st   Status
		want bool
	}{
		{"never", Never(), Status{Elapsed: time.Hour, Traveled: []float64{1e6}}, false},
		{"time not yet", StopAfter(time.Second), Status{Elapsed: 999 * time.Millisecond}, false},
		{"time reached", StopAfter(time.Second), Status{Elapsed: time.Second}, true},
		{"zero distance", StopAtDistance(0), Status{Traveled: []float64{0, 0}}, true},
		{"distance mean", StopAtDistance(10), Status{Traveled: []float64{8, 11}}, false},
		{"distance reverse", StopAtDistance(10), Status{Traveled: []float64{-10, -11}}, true},
		{"negative distance", StopAtDistance(-10), Status{Traveled: []float64{10, 10}}, true},
		{"angle without offsets", StopAtAngle(0), Status{}, false},
		{"angle reached", StopAtAngle(90), Status{Angle: -91, HasAngle: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stop.Reached(tt.st); got != tt.want {
				t.Errorf("Reached() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeAction struct {
	progress float64
	weight   float64
	idle     bool
	settled  int32
	handled  int32
	err      error
}

func (f *fakeAction) Traveled() float64 { return 0 }
func (f *fakeAction) Progress() float64 { return f.progress }
func (f *fakeAction) Idle() bool        { return f.idle }

type weightedAction struct{ fakeAction }

func (w *weightedAction) Weight() float64 { return w.weight }
func (f *fakeAction) Handle(time.Duration, float64) (float64, error) {
	atomic.AddInt32(&f.handled, 1)
	return 0, f.err
}
func (f *fakeAction) Settle() error {
	atomic.AddInt32(&f.settled, 1)
	return nil
}

func TestProgressErrors(t *testing.T) {
	actions := []Action{
		&fakeAction{progress: 1.0},
		&fakeAction{progress: 2.0},
		&fakeAction{progress: 99, idle: true},
	}
	got := progressErrors(actions)
	want := []float64{-0.5, 0.5, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("error[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// a crawling wheel barely moves the weighted mean
	weighted := progressErrors([]Action{
		&weightedAction{fakeAction{progress: 1.0, weight: 99}},
		&weightedAction{fakeAction{progress: 0.0, weight: 1}},
	})
	if math.Abs(weighted[0]-0.01) > 1e-12 || math.Abs(weighted[1]+0.99) > 1e-12 {
		t.Errorf("weighted errors = %v, want [0.01 -0.99]", weighted)
	}

	allIdle := progressErrors([]Action{&fakeAction{idle: true}})
	if allIdle[0] != 0 {
		t.Errorf("idle-only error = %v, want 0", allIdle[0])
	}
}

func newWheels(effs ...float64) ([]*simulation.Motor, []Action) {
	motors := make([]*simulation.Motor, len(effs))
	actions := make([]Action, len(effs))
	offsets := []float64{-6.5, 6.5}
	for i, e := range effs {
		motors[i] = simulation.NewMotor("m", simulation.WithEfficiency(e))
		actions[i] = NewWheelAction(motors[i], 5*testUnitRatio, WheelConfig{
			UnitRatio: testUnitRatio,
			Offset:    offsets[i%2],
			SyncGain:  1,
			P:         1, I: 0.1, D: 2,
		})
	}
	return motors, actions
}

func testConfig(stop StopCondition) Config {
	return Config{Cycle: 20 * time.Millisecond, Stop: stop, Logger: logging.Discard()}
}

func TestCoordinatorStopsAtDistance(t *testing.T) {
	motors, actions := newWheels(1, 0.7)
	var ticks int32
	cfg := testConfig(StopAtDistance(3))
	cfg.Observers = []Observer{ObserverFunc(func(Tick) { atomic.AddInt32(&ticks, 1) })}

	c, err := Start(context.Background(), actions, cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	a, b := actions[0].Traveled(), actions[1].Traveled()
	if (a+b)/2 < 3 {
		t.Errorf("mean traveled %v, want >= 3", (a+b)/2)
	}
	if math.Abs(a-b) > 0.5 {
		t.Errorf("wheels out of sync: %v vs %v", a, b)
	}
	for i, m := range motors {
		if m.LastDuty() != 0 {
			t.Errorf("motor %d final duty %v, want 0", i, m.LastDuty())
		}
		if m.Mode() != simulation.ModeStopped {
			t.Errorf("motor %d mode %v, want stopped", i, m.Mode())
		}
	}
	if int(atomic.LoadInt32(&ticks)) != c.Steps() {
		t.Errorf("observer saw %d ticks, coordinator ran %d", ticks, c.Steps())
	}
	if c.Running() || c.Cancelled() {
		t.Error("finished move should be neither running nor cancelled")
	}
}

func TestTightArcDoesNotSaturate(t *testing.T) {
	// radius 6.4 with offsets ±6.5: the inner wheel crawls backwards
	const radius, speed = 6.4, 10.0
	offsets := []float64{-6.5, 6.5}
	peak := radius + offsets[1]
	actions := make([]Action, len(offsets))
	for i, off := range offsets {
		m := simulation.NewMotor("m")
		actions[i] = NewWheelAction(m, speed*(radius+off)/peak*testUnitRatio, WheelConfig{
			UnitRatio: testUnitRatio,
			Offset:    off,
			SyncGain:  1,
			P:         1, I: 0.1, D: 2,
		})
	}

	var saturated int32
	cfg := testConfig(StopAtAngle(90))
	cfg.Observers = []Observer{ObserverFunc(func(tk Tick) {
		if math.Abs(tk.Commands[1]) >= 100 {
			atomic.AddInt32(&saturated, 1)
		}
	})}
	c, err := Start(context.Background(), actions, cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n := atomic.LoadInt32(&saturated); n != 0 {
		t.Errorf("outer wheel saturated on %d ticks", n)
	}
}

func TestCoordinatorZeroDistanceIssuesNoCommand(t *testing.T) {
	motors, actions := newWheels(1, 1)
	c, err := Start(context.Background(), actions, testConfig(StopAtDistance(0)))
	if err != nil {
		t.Fatal(err)
	}
	<-c.Done()
	if c.Steps() != 0 {
		t.Errorf("steps = %d, want 0", c.Steps())
	}
	for _, m := range motors {
		if m.Position() != 0 || m.LastDuty() != 0 {
			t.Errorf("motor moved: pos %d duty %v", m.Position(), m.LastDuty())
		}
	}
}

func TestCoordinatorCancel(t *testing.T) {
	motors, actions := newWheels(1, 1)
	c, err := Start(context.Background(), actions, testConfig(Never()))
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	c.Cancel()

	if c.Running() {
		t.Error("cancelled coordinator still running")
	}
	if !c.Cancelled() {
		t.Error("Cancelled() = false")
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v", c.Err())
	}
	for _, m := range motors {
		if m.LastDuty() != 0 || m.Mode() != simulation.ModeStopped {
			t.Errorf("motor not settled: duty %v mode %v", m.LastDuty(), m.Mode())
		}
	}
}

func TestCoordinatorParentContext(t *testing.T) {
	_, actions := newWheels(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	c, err := Start(ctx, actions, testConfig(Never()))
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator ignored parent cancellation")
	}
}

func TestCoordinatorActionError(t *testing.T) {
	broken := errors.New("tacho read failed")
	fa := &fakeAction{err: broken}
	c, err := Start(context.Background(), []Action{fa}, testConfig(Never()))
	if err != nil {
		t.Fatal(err)
	}
	<-c.Done()
	if !errors.Is(c.Err(), broken) {
		t.Errorf("Err() = %v, want %v", c.Err(), broken)
	}
	if atomic.LoadInt32(&fa.settled) != 1 {
		t.Errorf("settled %d times, want 1", fa.settled)
	}
}

func TestCoordinatorDisconnectedMotor(t *testing.T) {
	m := simulation.NewMotor("gone", simulation.Disconnected())
	a := NewWheelAction(m, 100, WheelConfig{P: 1})
	c, err := Start(context.Background(), []Action{a}, testConfig(StopAfter(time.Second)))
	if err != nil {
		t.Fatal(err)
	}
	<-c.Done()
	if !errors.Is(c.Err(), device.ErrNotConnected) {
		t.Errorf("Err() = %v, want not connected", c.Err())
	}
}

func TestStartValidation(t *testing.T) {
	if _, err := Start(context.Background(), nil, testConfig(Never())); !errors.Is(err, device.ErrConfiguration) {
		t.Errorf("no actions: %v", err)
	}
	_, err := Start(context.Background(), []Action{&fakeAction{}}, testConfig(StopAtAngle(90)))
	if !errors.Is(err, device.ErrConfiguration) {
		t.Errorf("angle stop without offsets: %v", err)
	}
}

func TestPacerCadence(t *testing.T) {
	p := NewPacer(10*time.Millisecond, logging.Discard())
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < 95*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Errorf("10 cycles took %v", elapsed)
	}
}

func TestPacerAbsorbsOverrun(t *testing.T) {
	p := NewPacer(10*time.Millisecond, logging.Discard())
	time.Sleep(80 * time.Millisecond)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Overruns() != 1 {
		t.Errorf("overruns = %d, want 1", p.Overruns())
	}
}

func TestPacerCancelled(t *testing.T) {
	p := NewPacer(time.Hour, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}
