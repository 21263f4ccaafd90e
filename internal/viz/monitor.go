package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rover/internal/pilot"
)

const (
	refreshRate     = time.Second / 20
	historyCapacity = 300
	tuneStep        = 0.05
)

// Frame is what the monitor shows for one refresh.
type Frame struct {
	Elapsed time.Duration
	Pose    pilot.Pose
	Wheels  []pilot.WheelState
	Active  string
	Running bool
	Metrics map[string]float64
	Err     error
}

// Source is polled on every refresh.
type Source interface {
	Frame() Frame
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Frame

func (f SourceFunc) Frame() Frame { return f() }

// Tunable exposes parameters the monitor can change at runtime.
type Tunable interface {
	Params() map[string]float64
	SetParam(name string, v float64) error
}

type TickMsg time.Time

// Monitor is a Bubble Tea model over a running drivetrain program.
type Monitor struct {
	src      Source
	tun      Tunable
	frame    Frame
	track    *Track
	heading  []float64
	keys     []string
	selected int
	status   string
	quitting bool
}

// NewMonitor builds a monitor. tun may be nil to disable tuning.
func NewMonitor(src Source, tun Tunable) Monitor {
	m := Monitor{
		src:   src,
		tun:   tun,
		track: NewTrack(32, 10, 2000),
	}
	if tun != nil {
		for k := range tun.Params() {
			m.keys = append(m.keys, k)
		}
		sort.Strings(m.keys)
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Monitor) Init() tea.Cmd { return tick() }

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			if len(m.keys) > 0 {
				m.selected = (m.selected + 1) % len(m.keys)
			}
		case "up", "k":
			m.adjust(1 + tuneStep)
		case "down", "j":
			m.adjust(1 - tuneStep)
		}
		return m, nil
	case TickMsg:
		m.refresh()
		return m, tick()
	}
	return m, nil
}

func (m *Monitor) refresh() {
	m.frame = m.src.Frame()
	m.track.Add(m.frame.Pose.X, m.frame.Pose.Y)
	m.heading = append(m.heading, m.frame.Pose.HeadingDeg)
	if len(m.heading) > historyCapacity {
		m.heading = m.heading[len(m.heading)-historyCapacity:]
	}
}

func (m *Monitor) adjust(factor float64) {
	if m.tun == nil || len(m.keys) == 0 {
		return
	}
	key := m.keys[m.selected]
	v := m.tun.Params()[key] * factor
	if v == 0 && factor > 1 {
		v = tuneStep
	}
	if err := m.tun.SetParam(key, v); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("%s = %.4g", key, v)
}

// Selected returns the tunable the arrow keys act on.
func (m Monitor) Selected() string {
	if len(m.keys) == 0 {
		return ""
	}
	return m.keys[m.selected]
}

func (m Monitor) View() string {
	if m.quitting {
		return ""
	}

	var state string
	switch {
	case m.frame.Err != nil:
		state = statusError.Render("ERROR " + m.frame.Err.Error())
	case m.frame.Running:
		state = statusRunning.Render("RUNNING")
	default:
		state = statusIdle.Render("IDLE")
	}

	var left strings.Builder
	left.WriteString(titleStyle.Render("rover") + "  " + state + "\n\n")
	row := func(label, value string) {
		left.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("elapsed", m.frame.Elapsed.Truncate(time.Millisecond).String())
	if m.frame.Active != "" {
		row("behaviour", m.frame.Active)
	}
	row("pose", fmt.Sprintf("x=%.1f y=%.1f", m.frame.Pose.X, m.frame.Pose.Y))
	row("heading", fmt.Sprintf("%.1f°", m.frame.Pose.HeadingDeg))
	for i, w := range m.frame.Wheels {
		row(fmt.Sprintf("wheel %d", i), fmt.Sprintf("pos=%d speed=%d", w.Position, w.Speed))
	}

	if len(m.frame.Metrics) > 0 {
		left.WriteString("\n")
		names := make([]string, 0, len(m.frame.Metrics))
		for k := range m.frame.Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			row(k, fmt.Sprintf("%.3f", m.frame.Metrics[k]))
		}
	}

	if len(m.keys) > 0 {
		left.WriteString("\n")
		params := m.tun.Params()
		for i, k := range m.keys {
			line := fmt.Sprintf("%-10s %.4g", k, params[k])
			if i == m.selected {
				left.WriteString(activeParamStyle.Render("> "+line) + "\n")
			} else {
				left.WriteString(valueStyle.Render("  "+line) + "\n")
			}
		}
	}
	if m.status != "" {
		left.WriteString("\n" + helpStyle.Render(m.status) + "\n")
	}

	right := titleStyle.Render("track") + "\n" + m.track.Render()
	if len(m.heading) > 1 {
		right += "\n\n" + graphStyle.Render(asciigraph.Plot(m.heading,
			asciigraph.Height(6),
			asciigraph.Width(40),
			asciigraph.Caption("heading (deg)"),
		))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(left.String()),
		panelStyle.Render(right),
	)
	return body + "\n" + helpStyle.Render("tab: select  up/down: tune  q: quit")
}

// RunMonitor blocks until the user quits or ctx is cancelled.
func RunMonitor(ctx context.Context, src Source, tun Tunable) error {
	p := tea.NewProgram(NewMonitor(src, tun), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
