package pilot

import (
	"math"
	"sync"

	"github.com/san-kum/rover/internal/motion"
)

// Pose is a position and heading relative to where odometry started. X
// points forward at heading 0 and headings grow counterclockwise.
type Pose struct {
	X, Y       float64
	HeadingDeg float64
}

// OffsetBy adds o component-wise.
func (p Pose) OffsetBy(o Pose) Pose {
	return Pose{X: p.X + o.X, Y: p.Y + o.Y, HeadingDeg: p.HeadingDeg + o.HeadingDeg}
}

// Odometry integrates wheel travel into a relative pose. It only sees
// what the tacho counters report, so slip accumulates as drift.
type Odometry struct {
	pilot *Pilot

	mu   sync.Mutex
	last []int
	pose Pose
}

func NewOdometry(p *Pilot) *Odometry {
	return &Odometry{pilot: p, last: p.Positions()}
}

// Update folds the travel since the previous call into the pose.
func (o *Odometry) Update() Pose {
	wheels := o.pilot.Wheels()
	pos := o.pilot.Positions()

	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.last) != len(pos) {
		o.last = pos
		return o.pose
	}

	offsets := make([]float64, len(wheels))
	traveled := make([]float64, len(wheels))
	for i, w := range wheels {
		offsets[i] = w.offset
		traveled[i] = float64(pos[i]-o.last[i]) / w.UnitRatio()
	}
	o.last = pos

	dHeading := motion.TurnedAngle(offsets, traveled)
	ds := centerTravel(offsets, traveled)

	mid := (o.pose.HeadingDeg + dHeading/2) * math.Pi / 180
	o.pose.X += ds * math.Cos(mid)
	o.pose.Y += ds * math.Sin(mid)
	o.pose.HeadingDeg += dHeading
	return o.pose
}

// centerTravel interpolates wheel travel, linear in the offset for a rigid
// drivetrain, at offset 0.
func centerTravel(offsets, traveled []float64) float64 {
	lo, hi := 0, 0
	for i, off := range offsets {
		if off < offsets[lo] {
			lo = i
		}
		if off > offsets[hi] {
			hi = i
		}
	}
	if offsets[hi] == offsets[lo] {
		var sum float64
		for _, t := range traveled {
			sum += t
		}
		return sum / float64(len(traveled))
	}
	frac := -offsets[lo] / (offsets[hi] - offsets[lo])
	return traveled[lo] + (traveled[hi]-traveled[lo])*frac
}

func (o *Odometry) Pose() Pose {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pose
}

// Reset sets the pose and restarts integration from the current positions.
func (o *Odometry) Reset(p Pose) {
	pos := o.pilot.Positions()
	o.mu.Lock()
	o.pose = p
	o.last = pos
	o.mu.Unlock()
}
