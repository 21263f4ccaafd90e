package metrics

import (
	"math"

	"github.com/san-kum/rover/internal/motion"
)

// ControlEffort is the mean absolute duty command per wheel and tick.
type ControlEffort struct {
	name string
	acc  accumulator
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) OnTick(t motion.Tick) {
	c.acc.mu.Lock()
	defer c.acc.mu.Unlock()
	for _, cmd := range t.Commands {
		c.acc.sum += math.Abs(cmd)
		c.acc.samples++
	}
}

func (c *ControlEffort) Value() float64 {
	return c.acc.mean()
}

func (c *ControlEffort) Reset() {
	c.acc.reset()
}
