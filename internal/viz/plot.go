package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rover/internal/storage"
)

// Series names accepted by Plot.
const (
	SeriesTraveled = "traveled"
	SeriesCommand  = "command"
	SeriesAngle    = "angle"
)

var wheelColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Magenta,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Blue,
}

// PlotOptions controls chart size. Zero values fall back to 60x12.
type PlotOptions struct {
	Width  int
	Height int
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = 60
	}
	if o.Height <= 0 {
		o.Height = 12
	}
	return o
}

// Plot charts one series of a trace. Per-wheel series get one line per wheel.
func Plot(tr *storage.Trace, series string, opts PlotOptions) (string, error) {
	if tr == nil || len(tr.Samples) == 0 {
		return "", fmt.Errorf("plot %s: empty trace", series)
	}
	opts = opts.withDefaults()

	switch series {
	case SeriesAngle:
		return asciigraph.Plot(tr.Column(SeriesAngle, 0),
			asciigraph.Height(opts.Height),
			asciigraph.Width(opts.Width),
			asciigraph.Caption("turned angle (deg)"),
		), nil
	case SeriesTraveled, SeriesCommand:
		n := tr.Wheels()
		data := make([][]float64, 0, n)
		colors := make([]asciigraph.AnsiColor, 0, n)
		for i := 0; i < n; i++ {
			data = append(data, tr.Column(series, i))
			colors = append(colors, wheelColors[i%len(wheelColors)])
		}
		caption := "traveled per wheel (units)"
		if series == SeriesCommand {
			caption = "duty cycle per wheel (%)"
		}
		return asciigraph.PlotMany(data,
			asciigraph.Height(opts.Height),
			asciigraph.Width(opts.Width),
			asciigraph.Caption(caption),
			asciigraph.SeriesColors(colors...),
		), nil
	default:
		return "", fmt.Errorf("plot: unknown series %q", series)
	}
}
