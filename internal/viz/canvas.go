package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Track draws a top-down path on a Braille grid. Points are in world units
// and the view is rescaled to fit all of them.
type Track struct {
	Width, Height int
	points        [][2]float64
	limit         int
}

// NewTrack sizes the map in terminal cells and keeps at most limit points.
func NewTrack(w, h, limit int) *Track {
	return &Track{Width: w, Height: h, limit: limit}
}

func (t *Track) Add(x, y float64) {
	t.points = append(t.points, [2]float64{x, y})
	if t.limit > 0 && len(t.points) > t.limit {
		t.points = t.points[len(t.points)-t.limit:]
	}
}

func (t *Track) Len() int { return len(t.points) }

func (t *Track) Reset() { t.points = t.points[:0] }

// Render returns the map with the heading marker drawn at the last point.
func (t *Track) Render() string {
	grid := make([][]rune, t.Height)
	for i := range grid {
		grid[i] = make([]rune, t.Width)
		for j := range grid[i] {
			grid[i][j] = brailleBlank
		}
	}
	if len(t.points) == 0 {
		return join(grid)
	}

	minX, maxX, minY, maxY := bounds(t.points)
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	pw, ph := t.Width*2-1, t.Height*4-1
	scale := float64(min(pw, ph)) / span

	set := func(x, y int) {
		if x < 0 || y < 0 {
			return
		}
		col, row := x/2, y/4
		if col >= t.Width || row >= t.Height {
			return
		}
		grid[row][col] |= rune(pixelMap[y%4][x%2])
	}
	project := func(p [2]float64) (int, int) {
		// world Y grows up, rows grow down
		return int((p[0] - minX) * scale), ph - int((p[1]-minY)*scale)
	}

	px, py := project(t.points[0])
	for _, p := range t.points[1:] {
		x, y := project(p)
		line(px, py, x, y, set)
		px, py = x, y
	}
	set(px, py)
	return join(grid)
}

func bounds(pts [][2]float64) (minX, maxX, minY, maxY float64) {
	minX, maxX = pts[0][0], pts[0][0]
	minY, maxY = pts[0][1], pts[0][1]
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	return
}

// line draws with Bresenham's algorithm.
func line(x0, y0, x1, y1 int, set func(x, y int)) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func join(grid [][]rune) string {
	var b strings.Builder
	for i, row := range grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
