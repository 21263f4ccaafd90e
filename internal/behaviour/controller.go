package behaviour

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/rover/internal/logging"
)

var ErrAlreadyStarted = errors.New("behaviour: controller already started")

const DefaultIdleInterval = 10 * time.Millisecond

// StopFunc decides whether the control loop should end. It sees whether an
// exit was requested and which behaviour is in control, so a program can
// finish what it is doing before stopping.
type StopFunc func(exitRequested bool, active Behaviour) bool

type ControllerOption func(*Controller)

func WithOnStart(fn func()) ControllerOption { return func(c *Controller) { c.onStart = fn } }

func WithOnExit(fn func()) ControllerOption { return func(c *Controller) { c.onExit = fn } }

// WithStopLoop replaces the default stop predicate, which ends the loop as
// soon as an exit is requested.
func WithStopLoop(fn StopFunc) ControllerOption { return func(c *Controller) { c.stopLoop = fn } }

// WithIdleInterval sets the pause between loops in which no behaviour ran.
func WithIdleInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.idle = d }
}

func WithLogger(l *log.Logger) ControllerOption { return func(c *Controller) { c.log = l } }

// Controller runs an Arbiter on its own goroutine.
type Controller struct {
	arb      *Arbiter
	onStart  func()
	onExit   func()
	stopLoop StopFunc
	idle     time.Duration
	log      *log.Logger

	exit  atomic.Bool
	loops atomic.Int64

	mu     sync.Mutex
	active Behaviour
	done   chan struct{}
}

func NewController(behaviours []Behaviour, opts ...ControllerOption) *Controller {
	c := &Controller{
		arb:  NewArbiter(behaviours),
		idle: DefaultIdleInterval,
		stopLoop: func(exitRequested bool, _ Behaviour) bool {
			return exitRequested
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.New("behaviour")
	}
	return c
}

// Start launches the control loop. HandleLoop calls receive ctx; when it is
// done the loop ends regardless of the stop predicate.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return ErrAlreadyStarted
	}
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)
	if c.onStart != nil {
		c.onStart()
	}

	var idle *time.Timer
	for ctx.Err() == nil && !c.stopLoop(c.exit.Load(), c.Active()) {
		prev, prevIdx := c.arb.Active(), c.arb.ActiveIndex()
		ran := c.arb.Step(ctx)
		c.loops.Add(1)
		// Behaviours may be uncomparable values, so handoffs are detected by index.
		if c.arb.ActiveIndex() != prevIdx {
			cur := c.arb.Active()
			c.log.Debug("control handoff", "from", nameOf(prev), "to", nameOf(cur))
			c.setActive(cur)
		}
		if ran {
			continue
		}

		if idle == nil {
			idle = time.NewTimer(c.idle)
			defer idle.Stop()
		} else {
			idle.Reset(c.idle)
		}
		select {
		case <-ctx.Done():
		case <-idle.C:
		}
	}

	c.arb.ForceLooseControl()
	c.setActive(nil)
	if c.onExit != nil {
		c.onExit()
	}
	c.log.Debug("control loop ended", "loops", c.loops.Load(), "exit_requested", c.exit.Load())
}

func (c *Controller) setActive(b Behaviour) {
	c.mu.Lock()
	c.active = b
	c.mu.Unlock()
}

// Active returns the behaviour in control, nil when idle.
func (c *Controller) Active() Behaviour {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// RequestExit asks the loop to end. With the default stop predicate it ends
// after the current loop.
func (c *Controller) RequestExit() { c.exit.Store(true) }

func (c *Controller) ExitRequested() bool { return c.exit.Load() }

// Done is closed once OnExit has returned. It is nil before Start.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// WaitToExit blocks until the loop has ended or ctx is done.
func (c *Controller) WaitToExit(ctx context.Context) error {
	done := c.Done()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loops counts arbitration loops run so far.
func (c *Controller) Loops() int64 { return c.loops.Load() }
