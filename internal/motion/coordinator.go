package motion

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/san-kum/rover/internal/device"
	"github.com/san-kum/rover/internal/logging"
)

// Coordinator runs a set of actions in lockstep on its own goroutine until
// the stop condition holds or it is cancelled. Every action is settled on
// exit either way.
type Coordinator struct {
	actions []Action
	cfg     Config
	offsets []float64
	log     *log.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	err       error
	cancelled bool
	steps     int
	start     time.Time
}

// Start validates the configuration and launches the control loop.
func Start(ctx context.Context, actions []Action, cfg Config) (*Coordinator, error) {
	if len(actions) == 0 {
		return nil, device.Configurationf("motion.Start", "no actions")
	}
	if cfg.Cycle <= 0 {
		cfg.Cycle = DefaultCycle
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New("motion")
	}

	c := &Coordinator{
		actions: actions,
		cfg:     cfg,
		log:     cfg.Logger,
		done:    make(chan struct{}),
	}
	if offs, ok := offsetsOf(actions); ok {
		c.offsets = offs
	} else if cfg.Stop.needsAngle() {
		return nil, device.Configurationf("motion.Start", "angle stop needs offset actions")
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.start = time.Now()
	go c.run(ctx)
	return c, nil
}

func offsetsOf(actions []Action) ([]float64, bool) {
	offs := make([]float64, len(actions))
	for i, a := range actions {
		o, ok := a.(Offsetter)
		if !ok {
			return nil, false
		}
		offs[i] = o.Offset()
	}
	return offs, true
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	defer c.settle()

	c.log.Debug("move started", "actions", len(c.actions), "stop", c.cfg.Stop, "cycle", c.cfg.Cycle)
	pacer := NewPacer(c.cfg.Cycle, c.log)
	n := len(c.actions)

	for step := 0; ; step++ {
		st := Status{Step: step, Elapsed: time.Since(c.start), Traveled: make([]float64, n)}
		for i, a := range c.actions {
			st.Traveled[i] = a.Traveled()
		}
		if c.offsets != nil {
			st.Angle = TurnedAngle(c.offsets, st.Traveled)
			st.HasAngle = true
		}
		if c.cfg.Stop.Reached(st) {
			c.log.Debug("move complete", "steps", step, "elapsed", st.Elapsed, "angle", st.Angle)
			return
		}

		progErr := progressErrors(c.actions)
		commands := make([]float64, n)
		for i, a := range c.actions {
			cmd, err := a.Handle(st.Elapsed, progErr[i])
			if err != nil {
				c.fail(err)
				return
			}
			commands[i] = cmd
		}

		c.mu.Lock()
		c.steps = step + 1
		c.mu.Unlock()

		tick := Tick{
			Step:           step,
			Elapsed:        st.Elapsed,
			Traveled:       st.Traveled,
			Commands:       commands,
			ProgressErrors: progErr,
			Angle:          st.Angle,
		}
		for _, obs := range c.cfg.Observers {
			obs.OnTick(tick)
		}

		if err := pacer.Wait(ctx); err != nil {
			c.mu.Lock()
			c.cancelled = true
			c.mu.Unlock()
			return
		}
	}
}

// progressErrors returns each action's progress minus the mean progress of
// the moving actions, weighted by Weight. Idle actions get 0.
func progressErrors(actions []Action) []float64 {
	out := make([]float64, len(actions))
	progress := make([]float64, len(actions))
	var sum, total float64
	for i, a := range actions {
		if idle, ok := a.(Idler); ok && idle.Idle() {
			continue
		}
		weight := 1.0
		if w, ok := a.(Weighted); ok {
			weight = w.Weight()
		}
		progress[i] = a.Progress()
		sum += weight * progress[i]
		total += weight
	}
	if total == 0 {
		return out
	}
	avg := sum / total
	for i, a := range actions {
		if idle, ok := a.(Idler); ok && idle.Idle() {
			continue
		}
		out[i] = progress[i] - avg
	}
	return out
}

func (c *Coordinator) fail(err error) {
	c.log.Error("move aborted", "err", err)
	c.mu.Lock()
	c.err = multierr.Append(c.err, err)
	c.mu.Unlock()
}

func (c *Coordinator) settle() {
	var err error
	for _, a := range c.actions {
		err = multierr.Append(err, a.Settle())
	}
	if err != nil {
		c.fail(err)
	}
}

// Cancel stops the loop and waits until every action has settled.
func (c *Coordinator) Cancel() {
	c.cancel()
	<-c.done
}

// Wait blocks until the move ends or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) Done() <-chan struct{} { return c.done }

func (c *Coordinator) Running() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Err returns the action failures of a finished move, joined.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Cancelled reports whether the move ended by cancellation.
func (c *Coordinator) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Steps counts completed cycles.
func (c *Coordinator) Steps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps
}

func (c *Coordinator) Actions() []Action { return c.actions }
