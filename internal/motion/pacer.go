package motion

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// lateCycles is the overrun, in cycles, past which drift is logged as a
// warning instead of at debug level.
const lateCycles = 5

// Pacer holds a loop to a fixed cadence. The schedule advances by exactly
// one cycle per Wait, so short overruns are absorbed by later cycles
// instead of accumulating.
type Pacer struct {
	cycle time.Duration
	next  time.Time
	log   *log.Logger
	warn  rate.Sometimes
	late  int
}

func NewPacer(cycle time.Duration, logger *log.Logger) *Pacer {
	return &Pacer{
		cycle: cycle,
		next:  time.Now(),
		log:   logger,
		warn:  rate.Sometimes{First: 1, Interval: time.Second},
	}
}

// Wait sleeps until the next cycle boundary. It returns early with the
// context's error when ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	p.next = p.next.Add(p.cycle)
	d := time.Until(p.next)
	if d <= 0 {
		p.drift(-d)
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Pacer) drift(late time.Duration) {
	p.late++
	if late > lateCycles*p.cycle {
		p.warn.Do(func() {
			p.log.Warn("cycle overrun", "late", late, "cycle", p.cycle, "overruns", p.late)
		})
		return
	}
	p.log.Debug("cycle overrun", "late", late)
}

// Overruns counts cycles that started late.
func (p *Pacer) Overruns() int { return p.late }
