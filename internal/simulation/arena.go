package simulation

import "math"

// Arena is a walled rectangle. A simulated distance sensor reads the
// distance from a pose to the first wall along its line of sight.
type Arena struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Square returns an arena of the given side centred on the origin.
func Square(side float64) Arena {
	h := side / 2
	return Arena{MinX: -h, MinY: -h, MaxX: h, MaxY: h}
}

// Contains reports whether (x, y) is strictly inside the walls.
func (a Arena) Contains(x, y float64) bool {
	return x > a.MinX && x < a.MaxX && y > a.MinY && y < a.MaxY
}

// Distance is the range from (x, y) to the nearest wall looking along
// headingDeg, measured counterclockwise from +X. It is 0 outside the arena.
func (a Arena) Distance(x, y, headingDeg float64) float64 {
	if !a.Contains(x, y) {
		return 0
	}
	rad := headingDeg * math.Pi / 180
	dx, dy := math.Cos(rad), math.Sin(rad)

	best := math.Inf(1)
	hit := func(t float64) {
		if t > 0 && t < best {
			best = t
		}
	}
	if dx > 1e-12 {
		hit((a.MaxX - x) / dx)
	} else if dx < -1e-12 {
		hit((a.MinX - x) / dx)
	}
	if dy > 1e-12 {
		hit((a.MaxY - y) / dy)
	} else if dy < -1e-12 {
		hit((a.MinY - y) / dy)
	}
	return best
}
