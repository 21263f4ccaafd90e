package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/rover/internal/behaviour"
	"github.com/san-kum/rover/internal/config"
	"github.com/san-kum/rover/internal/device"
	"github.com/san-kum/rover/internal/metrics"
	"github.com/san-kum/rover/internal/pilot"
	"github.com/san-kum/rover/internal/scanner"
	"github.com/san-kum/rover/internal/simulation"
	"github.com/san-kum/rover/internal/storage"
	"github.com/san-kum/rover/internal/viz"
)

const (
	arenaSide     = 300.0
	trackInterval = 20 * time.Millisecond
	sensorPoll    = 20 * time.Millisecond
)

// rig is a simulated robot built from a config: drive motors, odometry,
// an optional scanner looking into a walled arena, and the observers that
// record every closed-loop move.
type rig struct {
	cfg      *config.Config
	motors   []*simulation.Motor
	pilot    *pilot.Pilot
	odo      *pilot.Odometry
	scanner  *scanner.Scanner
	reader   *device.ValueReader
	arena    simulation.Arena
	recorder *storage.Recorder
	metrics  []metrics.Metric
	started  time.Time
	ctrl     *behaviour.Controller

	mu  sync.Mutex
	err error
}

func newRig(cfg *config.Config) (*rig, error) {
	r := &rig{
		cfg:      cfg,
		arena:    simulation.Square(arenaSide),
		recorder: storage.NewRecorder(),
		metrics:  metrics.Standard(cfg.DutyLimit),
		started:  time.Now(),
	}

	wheels := make([]pilot.Wheel, len(cfg.Wheels))
	for i, w := range cfg.Wheels {
		name := w.Name
		if name == "" {
			name = fmt.Sprintf("wheel%d", i)
		}
		var opts []simulation.MotorOption
		if w.MaxSpeed > 0 {
			opts = append(opts, simulation.WithMaxSpeed(w.MaxSpeed))
		}
		if w.Efficiency > 0 {
			opts = append(opts, simulation.WithEfficiency(w.Efficiency))
		}
		m := simulation.NewMotor(name, opts...)
		r.motors = append(r.motors, m)
		wheels[i] = pilot.NewWheel(m, w.GearRatio, w.Diameter, w.Width, w.Offset)
	}

	opts := []pilot.Option{
		pilot.WithCycle(cfg.Cycle()),
		pilot.WithGains(pilot.Gains{P: cfg.Regulator.P, I: cfg.Regulator.I, D: cfg.Regulator.D}),
		pilot.WithSyncGain(cfg.SyncGain),
		pilot.WithDutyLimit(cfg.DutyLimit),
		pilot.WithObserver(r.recorder),
	}
	for _, o := range metrics.Observers(r.metrics) {
		opts = append(opts, pilot.WithObserver(o))
	}
	p, err := pilot.New(wheels, opts...)
	if err != nil {
		return nil, err
	}
	r.pilot = p
	r.odo = pilot.NewOdometry(p)

	var head scanner.Head
	var sensor device.Sensor
	if cfg.Scanner.Enabled {
		head = scanner.Head{Motor: simulation.NewMotor("scanner"), GearRatio: cfg.Scanner.GearRatio}
		r.reader = device.NewValueReader(simulation.NewSensor(
			map[string]int{"US-DIST-CM": 1, "US-LISTEN": 1},
			r.sense,
		), sensorPoll)
		sensor = r.reader
	}
	r.scanner = scanner.New(head, sensor, cfg.Scanner.MaxDistance)
	return r, nil
}

// sense is the simulated ultrasonic sensor: range to the arena wall along
// the robot heading plus the scanner head angle.
func (r *rig) sense(mode string, _ int) float64 {
	if mode != "US-DIST-CM" {
		return 0
	}
	pose := r.odo.Pose()
	d := r.arena.Distance(pose.X, pose.Y, pose.HeadingDeg+r.scanner.Angle())
	if limit := r.cfg.Scanner.MaxDistance; limit > 0 && d > limit {
		d = limit
	}
	return d
}

// start runs odometry and the sensor poller until ctx is done.
func (r *rig) start(ctx context.Context) {
	if r.reader != nil {
		r.reader.Fresh(0)
		r.reader.Start(ctx)
	}
	go func() {
		t := time.NewTicker(trackInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.odo.Update()
			}
		}
	}()
}

func (r *rig) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Frame feeds the live monitor.
func (r *rig) Frame() viz.Frame {
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	var active string
	if r.ctrl != nil {
		if n, ok := r.ctrl.Active().(behaviour.Named); ok {
			active = n.Name()
		}
	}
	return viz.Frame{
		Elapsed: time.Since(r.started),
		Pose:    r.odo.Pose(),
		Wheels:  r.pilot.States(),
		Active:  active,
		Running: r.pilot.IsRunning(),
		Metrics: metrics.Snapshot(r.metrics),
		Err:     err,
	}
}

// finish stops the drivetrain and stores the recording when asked to.
func (r *rig) finish(command string, runErr error) error {
	if r.reader != nil {
		r.reader.Stop()
	}
	stopErr := r.pilot.Stop()
	if runErr == nil {
		runErr = stopErr
	}

	pose := r.odo.Update()
	fmt.Printf("pose: x=%.1f y=%.1f heading=%.1f\n", pose.X, pose.Y, pose.HeadingDeg)
	snap := metrics.Snapshot(r.metrics)
	for _, name := range sortedKeys(snap) {
		fmt.Printf("  %s: %.4f\n", name, snap[name])
	}

	if !record || r.recorder.Len() == 0 {
		return runErr
	}
	st := storage.New(r.cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	meta := storage.RunMetadata{
		Command: command,
		Preset:  r.cfg.Name,
		CycleMS: r.cfg.CycleMS,
		Metrics: snap,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	id, err := st.Save(meta, r.recorder.Trace())
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", id)
	return runErr
}
