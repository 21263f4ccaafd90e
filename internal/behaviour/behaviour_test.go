package behaviour

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rover/internal/logging"
)

type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type stub struct {
	name    string
	wants   atomic.Bool
	loops   atomic.Int32
	journal *journal
}

func newStub(name string, j *journal) *stub { return &stub{name: name, journal: j} }

func (p *stub) Name() string            { return p.name }
func (p *stub) ShouldTakeControl() bool { return p.wants.Load() }
func (p *stub) OnTakeControl()          { p.journal.add("take %s", p.name) }
func (p *stub) OnLooseControl()         { p.journal.add("loose %s", p.name) }
func (p *stub) HandleLoop(context.Context) {
	p.loops.Add(1)
	p.journal.add("loop %s", p.name)
}

// hookBehaviour is a value type with func fields, so interface values
// holding it cannot be compared with ==.
type hookBehaviour struct {
	name  string
	wants func() bool
	loop  func()
}

func (h hookBehaviour) Name() string               { return h.name }
func (h hookBehaviour) ShouldTakeControl() bool    { return h.wants() }
func (h hookBehaviour) OnTakeControl()             {}
func (h hookBehaviour) OnLooseControl()            {}
func (h hookBehaviour) HandleLoop(context.Context) { h.loop() }

var _ = Describe("Arbiter", func() {
	var (
		j         *journal
		low, high *stub
		arb       *Arbiter
		ctx       context.Context
	)

	BeforeEach(func() {
		j = &journal{}
		high = newStub("high", j)
		low = newStub("low", j)
		arb = NewArbiter([]Behaviour{high, low})
		ctx = context.Background()
	})

	It("stays idle when nobody wants control", func() {
		Expect(arb.Step(ctx)).To(BeFalse())
		Expect(arb.Active()).To(BeNil())
		Expect(arb.ActiveIndex()).To(Equal(-1))
		Expect(j.Events()).To(BeEmpty())
	})

	It("gives control to the first claimant and keeps it without new callbacks", func() {
		low.wants.Store(true)
		Expect(arb.Step(ctx)).To(BeTrue())
		Expect(arb.Step(ctx)).To(BeTrue())
		Expect(arb.Active()).To(Equal(Behaviour(low)))
		Expect(j.Events()).To(Equal([]string{"take low", "loop low", "loop low"}))
	})

	It("hands over to a higher priority behaviour, loosing before taking", func() {
		low.wants.Store(true)
		arb.Step(ctx)
		high.wants.Store(true)
		arb.Step(ctx)

		Expect(arb.ActiveIndex()).To(Equal(0))
		Expect(j.Events()).To(Equal([]string{"take low", "loop low", "loose low", "take high", "loop high"}))
	})

	It("drops control when the owner stops claiming", func() {
		high.wants.Store(true)
		arb.Step(ctx)
		high.wants.Store(false)
		Expect(arb.Step(ctx)).To(BeFalse())
		Expect(j.Events()).To(Equal([]string{"take high", "loop high", "loose high"}))
	})

	It("forces the owner to loose control once", func() {
		high.wants.Store(true)
		arb.Step(ctx)
		arb.ForceLooseControl()
		arb.ForceLooseControl()
		Expect(arb.Active()).To(BeNil())
		Expect(j.Events()).To(Equal([]string{"take high", "loop high", "loose high"}))
	})
})

var _ = Describe("Set", func() {
	var (
		j    *journal
		a, b *stub
		ctx  context.Context
	)

	BeforeEach(func() {
		j = &journal{}
		a = newStub("a", j)
		b = newStub("b", j)
		ctx = context.Background()
	})

	It("claims when any member claims by default", func() {
		s := NewSet("pair", []Behaviour{a, b})
		Expect(s.ShouldTakeControl()).To(BeFalse())
		b.wants.Store(true)
		Expect(s.ShouldTakeControl()).To(BeTrue())
	})

	It("claims only when all members claim in ClaimAll mode", func() {
		s := NewSet("pair", []Behaviour{a, b}, WithClaimMode(ClaimAll))
		a.wants.Store(true)
		Expect(s.ShouldTakeControl()).To(BeFalse())
		b.wants.Store(true)
		Expect(s.ShouldTakeControl()).To(BeTrue())
	})

	It("never claims with no members", func() {
		Expect(NewSet("empty", nil, WithClaimMode(ClaimAll)).ShouldTakeControl()).To(BeFalse())
	})

	It("requires the umbrella predicate", func() {
		allowed := false
		s := NewSet("pair", []Behaviour{a}, WithUmbrella(func() bool { return allowed }))
		a.wants.Store(true)
		Expect(s.ShouldTakeControl()).To(BeFalse())
		allowed = true
		Expect(s.ShouldTakeControl()).To(BeTrue())
	})

	It("arbitrates its members and passes on loss of control", func() {
		s := NewSet("pair", []Behaviour{a, b})
		b.wants.Store(true)
		outer := NewArbiter([]Behaviour{s})

		outer.Step(ctx)
		Expect(s.Active()).To(Equal(Behaviour(b)))
		outer.ForceLooseControl()
		Expect(s.Active()).To(BeNil())
		Expect(j.Events()).To(Equal([]string{"take b", "loop b", "loose b"}))
	})
})

var _ = Describe("Controller", func() {
	var (
		j         *journal
		cruise    *stub
		avoid     *stub
		ctx       context.Context
		cancel    context.CancelFunc
		lifecycle *journal
	)

	BeforeEach(func() {
		j = &journal{}
		lifecycle = &journal{}
		avoid = newStub("avoid", j)
		cruise = newStub("cruise", j)
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)
	})

	newController := func(opts ...ControllerOption) *Controller {
		opts = append([]ControllerOption{
			WithLogger(logging.Discard()),
			WithIdleInterval(time.Millisecond),
			WithOnStart(func() { lifecycle.add("start") }),
			WithOnExit(func() { lifecycle.add("exit") }),
		}, opts...)
		return NewController([]Behaviour{avoid, cruise}, opts...)
	}

	It("runs the behaviour in control until exit is requested", func() {
		cruise.wants.Store(true)
		c := newController()
		Expect(c.Start(ctx)).To(Succeed())

		Eventually(c.Active).Should(Equal(Behaviour(cruise)))
		avoid.wants.Store(true)
		Eventually(c.Active).Should(Equal(Behaviour(avoid)))

		c.RequestExit()
		Expect(c.WaitToExit(ctx)).To(Succeed())
		Expect(c.ExitRequested()).To(BeTrue())
		Expect(c.Active()).To(BeNil())
		Expect(lifecycle.Events()).To(Equal([]string{"start", "exit"}))

		events := j.Events()
		Expect(events[0]).To(Equal("take cruise"))
		Expect(events).To(ContainElements("loose cruise", "take avoid"))
		Expect(events[len(events)-1]).To(Equal("loose avoid"))
	})

	It("idles without calling behaviours when nobody claims", func() {
		c := newController()
		Expect(c.Start(ctx)).To(Succeed())
		Eventually(c.Loops).Should(BeNumerically(">", 3))
		c.RequestExit()
		Expect(c.WaitToExit(ctx)).To(Succeed())
		Expect(j.Events()).To(BeEmpty())
	})

	It("keeps looping after an exit request until the stop predicate agrees", func() {
		var settled atomic.Bool
		cruise.wants.Store(true)
		c := newController(WithStopLoop(func(exitRequested bool, active Behaviour) bool {
			return exitRequested && settled.Load()
		}))
		Expect(c.Start(ctx)).To(Succeed())

		c.RequestExit()
		before := cruise.loops.Load()
		Eventually(cruise.loops.Load).Should(BeNumerically(">", before+3))
		Consistently(c.Done(), 50*time.Millisecond).ShouldNot(BeClosed())

		settled.Store(true)
		Expect(c.WaitToExit(ctx)).To(Succeed())
		Expect(lifecycle.Events()).To(Equal([]string{"start", "exit"}))
	})

	It("ends when the parent context is cancelled", func() {
		cruise.wants.Store(true)
		c := newController(WithStopLoop(func(bool, Behaviour) bool { return false }))
		loopCtx, stop := context.WithCancel(ctx)
		Expect(c.Start(loopCtx)).To(Succeed())
		Eventually(c.Active).Should(Equal(Behaviour(cruise)))

		stop()
		Expect(c.WaitToExit(ctx)).To(Succeed())
		Expect(j.Events()).To(ContainElement("loose cruise"))
	})

	It("refuses to start twice", func() {
		c := newController()
		Expect(c.Start(ctx)).To(Succeed())
		Expect(c.Start(ctx)).To(MatchError(ErrAlreadyStarted))
		c.RequestExit()
		Expect(c.WaitToExit(ctx)).To(Succeed())
	})

	It("returns immediately from WaitToExit before Start", func() {
		Expect(newController().WaitToExit(ctx)).To(Succeed())
	})
	It("hands control between behaviours that are not comparable", func() {
		var lowWants, highWants atomic.Bool
		var lowLoops, highLoops atomic.Int32
		lowWants.Store(true)
		low := hookBehaviour{name: "low", wants: lowWants.Load, loop: func() { lowLoops.Add(1) }}
		high := hookBehaviour{name: "high", wants: highWants.Load, loop: func() { highLoops.Add(1) }}
		c := NewController([]Behaviour{high, low},
			WithLogger(logging.Discard()),
			WithIdleInterval(time.Millisecond))
		Expect(c.Start(ctx)).To(Succeed())

		Eventually(lowLoops.Load).Should(BeNumerically(">", 2))
		highWants.Store(true)
		Eventually(highLoops.Load).Should(BeNumerically(">", 2))
		Eventually(func() string { return nameOf(c.Active()) }).Should(Equal("high"))

		c.RequestExit()
		Expect(c.WaitToExit(ctx)).To(Succeed())
		Expect(c.Active()).To(BeNil())
	})
})
