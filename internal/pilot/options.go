package pilot

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/rover/internal/motion"
)

// Gains are the per-wheel position regulator constants.
type Gains struct {
	P, I, D float64
}

// DefaultGains suit an EV3 large motor at a 50 ms cycle.
var DefaultGains = Gains{P: 1, I: 0.1, D: 2}

const (
	DefaultSyncGain  = 1.0
	DefaultDutyLimit = 100.0
	pollInterval     = 10 * time.Millisecond
)

type Option func(*Pilot)

func WithCycle(d time.Duration) Option { return func(p *Pilot) { p.cycle = d } }

func WithGains(g Gains) Option { return func(p *Pilot) { p.gains = g } }

// WithSyncGain sets how strongly wheels are pulled back to the group's
// progress. 0 disables synchronization.
func WithSyncGain(g float64) Option { return func(p *Pilot) { p.syncGain = g } }

func WithDutyLimit(v float64) Option { return func(p *Pilot) { p.dutyLimit = v } }

func WithLogger(l *log.Logger) Option { return func(p *Pilot) { p.log = l } }

// WithObserver attaches an observer to every closed-loop move.
func WithObserver(o motion.Observer) Option {
	return func(p *Pilot) { p.observers = append(p.observers, o) }
}
