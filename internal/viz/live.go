// Package viz renders the running experiment in the terminal: an
// ASCII canvas of the apparatus layout and in-flight particles, a
// stats panel, and a trailing rate graph.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/spinlab/internal/apparatus"
	"github.com/san-kum/spinlab/internal/geom"
	"github.com/san-kum/spinlab/internal/sim"
	"github.com/san-kum/spinlab/internal/spin"
)

const (
	canvasWidth     = 88
	canvasHeight    = 22
	frameRate       = 60
	historyCapacity = 150
)

// Apparatus half extents in world units, matching the anchor offsets.
const (
	appHalfWidth  = 0.5
	appHalfHeight = 0.4
)

type TickMsg time.Time

// Model owns the orchestrator and the render state of the live view.
type Model struct {
	orch    *sim.Orchestrator
	dt      float64
	canvas  *Canvas
	history []float64
	paused  bool
	help    bool
}

func NewModel(orch *sim.Orchestrator, dt float64) Model {
	return Model{
		orch:    orch,
		dt:      dt,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		history: make([]float64, 0, historyCapacity),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.orch.ShootSingleParticle()
		case "b":
			m.orch.SetBeam(!m.orch.BeamOn())
		case "+", "=":
			m.orch.SetBeamRate(m.orch.BeamRate() + 2)
		case "-", "_":
			m.orch.SetBeamRate(m.orch.BeamRate() - 2)
		case "p":
			m.paused = !m.paused
		case "r":
			m.orch.Reset()
			m.history = m.history[:0]
		case "z":
			m.orch.SetPreparation(spin.FromOrientation(spin.ZPlus))
		case "Z":
			m.orch.SetPreparation(spin.FromOrientation(spin.ZMinus))
		case "x":
			m.orch.SetPreparation(spin.FromOrientation(spin.XPlus))
		case "1", "2", "3":
			idx := int(msg.String()[0] - '1')
			if idx < m.orch.Configuration().Len() {
				m.cycleBlocking(idx)
			}
		case "?":
			m.help = !m.help
		}
	case TickMsg:
		if !m.paused {
			m.orch.Step(m.dt)
		}
		m.recordRate()
		return m, tick()
	}
	return m, nil
}

func (m *Model) cycleBlocking(idx int) {
	app := m.orch.Apparatus(idx)
	switch app.Blocking() {
	case apparatus.BlockNone:
		m.orch.SetBlockingMode(idx, apparatus.BlockUpExit)
	case apparatus.BlockUpExit:
		m.orch.SetBlockingMode(idx, apparatus.BlockDownExit)
	default:
		m.orch.SetBlockingMode(idx, apparatus.BlockNone)
	}
}

func (m *Model) recordRate() {
	r := m.orch.Apparatus(0).UpRate()
	m.history = append(m.history, r)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func (m Model) View() string {
	m.draw()

	left := canvasStyle.Render(m.canvas.String())
	right := statsStyle.Render(m.stats())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	graph := ""
	if len(m.history) > 1 {
		graph = graphStyle.Render(asciigraph.Plot(m.history,
			asciigraph.Height(5),
			asciigraph.Caption("stage 0 up rate (1/s)")))
	}

	help := helpStyle.Render("space shoot · b beam · +/- rate · z/Z/x prepare · 1-3 block · p pause · r reset · q quit")
	if m.help {
		help = helpStyle.Render(strings.Join([]string{
			"space  fire one particle",
			"b      toggle continuous beam",
			"+/-    beam rate",
			"z Z x  prepare Z+ / Z- / X+",
			"1-3    cycle blocking on apparatus",
			"p      pause, r reset, q quit",
		}, "\n"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, graph, help)
}

func (m Model) draw() {
	m.canvas.Clear()

	src := m.orch.SourcePosition()
	m.canvas.Label(src.Add(geom.Vec2{X: -0.6, Y: 0}), "S▶")

	cfg := m.orch.Configuration()
	for i := 0; i < cfg.Len(); i++ {
		app := m.orch.Apparatus(i)
		pos := app.Position()
		m.canvas.Box(
			pos.Add(geom.Vec2{X: -appHalfWidth, Y: -appHalfHeight}),
			pos.Add(geom.Vec2{X: appHalfWidth, Y: appHalfHeight}),
		)
		label := "Z"
		if !app.ZOriented() {
			label = "X"
		}
		m.canvas.Label(pos.Add(geom.Vec2{X: -0.1, Y: 0}), label)

		switch app.Blocking() {
		case apparatus.BlockUpExit:
			m.canvas.SetWorld(app.TopExit().Add(geom.Vec2{X: 0.3, Y: 0}), '▌')
		case apparatus.BlockDownExit:
			m.canvas.SetWorld(app.BottomExit().Add(geom.Vec2{X: 0.3, Y: 0}), '▌')
		}
	}

	m.orch.EachActive(func(slot sim.Slot, pos geom.Vec2) {
		r := '·'
		if slot.Source == sim.SourceSingle {
			r = '●'
		}
		m.canvas.SetWorld(pos, r)
	})
}

func (m Model) stats() string {
	var b strings.Builder
	cfg := m.orch.Configuration()

	b.WriteString(headerStyle.Render("spinlab") + "\n\n")
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("arrangement", cfg.String())
	row("prepared", m.orch.Preparation().String())
	row("time", fmt.Sprintf("%.1fs", m.orch.Time()))
	row("active", fmt.Sprintf("%d", m.orch.ActiveCount()))

	beam := "off"
	if m.orch.BeamOn() {
		beam = fmt.Sprintf("%.0f/s", m.orch.BeamRate())
	}
	row("beam", beam)
	b.WriteString("\n")

	for i := 0; i < cfg.Len(); i++ {
		app := m.orch.Apparatus(i)
		up, down := app.Counts()
		upPct, downPct := 0.0, 0.0
		if total := up + down; total > 0 {
			upPct = 100 * float64(up) / float64(total)
			downPct = 100 - upPct
		}
		orient := "Z"
		if !app.ZOriented() {
			orient = "X"
		}
		b.WriteString(headerStyle.Render(fmt.Sprintf("stage %d (%s)", i, orient)))
		if app.Blocking() != apparatus.BlockNone {
			b.WriteString(valueStyle.Render("  " + app.Blocking().String()))
		}
		b.WriteString("\n")
		b.WriteString(upStyle.Render(fmt.Sprintf("  ↑ %-6d %5.1f%%  %.1f/s", up, upPct, app.UpRate())) + "\n")
		b.WriteString(downStyle.Render(fmt.Sprintf("  ↓ %-6d %5.1f%%  %.1f/s", down, downPct, app.DownRate())) + "\n")
	}

	return b.String()
}

// Run starts the live view and blocks until the user quits.
func Run(orch *sim.Orchestrator, dt float64) error {
	p := tea.NewProgram(NewModel(orch, dt))
	_, err := p.Run()
	return err
}
