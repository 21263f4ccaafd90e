package behaviour

import "context"

// ClaimMode decides when a Set's members, taken together, claim control.
type ClaimMode int

const (
	// ClaimAny claims control when at least one member wants it.
	ClaimAny ClaimMode = iota
	// ClaimAll claims control only when every member wants it.
	ClaimAll
)

type SetOption func(*Set)

// WithUmbrella adds a predicate that must also hold for the set to claim
// control.
func WithUmbrella(pred func() bool) SetOption {
	return func(s *Set) { s.umbrella = pred }
}

func WithClaimMode(m ClaimMode) SetOption {
	return func(s *Set) { s.mode = m }
}

// Set is a Behaviour made of member behaviours arbitrated among themselves
// while the set is in control.
type Set struct {
	name     string
	members  []Behaviour
	arb      *Arbiter
	umbrella func() bool
	mode     ClaimMode
}

var _ Behaviour = (*Set)(nil)

func NewSet(name string, members []Behaviour, opts ...SetOption) *Set {
	s := &Set{name: name, members: members, arb: NewArbiter(members)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Set) Name() string { return s.name }

func (s *Set) ShouldTakeControl() bool {
	if s.umbrella != nil && !s.umbrella() {
		return false
	}
	if len(s.members) == 0 {
		return false
	}
	for _, m := range s.members {
		wants := m.ShouldTakeControl()
		if s.mode == ClaimAll && !wants {
			return false
		}
		if s.mode == ClaimAny && wants {
			return true
		}
	}
	return s.mode == ClaimAll
}

func (s *Set) OnTakeControl() {}

func (s *Set) HandleLoop(ctx context.Context) {
	s.arb.Step(ctx)
}

// OnLooseControl passes the loss on to the member in control.
func (s *Set) OnLooseControl() {
	s.arb.ForceLooseControl()
}

// Active returns the member in control.
func (s *Set) Active() Behaviour { return s.arb.Active() }
