package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/jakecoffman/cp"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/environment"
	"github.com/san-kum/humperdink/internal/genome"
	"github.com/san-kum/humperdink/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	frameRate       = time.Second / 60
	maxSpeed        = 64
)

type TickMsg time.Time

// Model is a bubbletea model that steps one creature and draws it on a
// braille canvas that follows the root.
type Model struct {
	world    *environment.World
	genome   *genome.Node
	params   creature.Params
	sim      *sim.Simulator
	name     string
	speed    int
	running  bool
	follow   bool
	showHelp bool
	frame    int
	err      error

	canvas *Canvas
	view   View
	theme  Theme
	styles Styles

	last    sim.Sample
	heights []float64
	impulse []float64
}

// NewModel spawns g into world and returns a model that advances speed
// steps per frame.
func NewModel(world *environment.World, g *genome.Node, params creature.Params, name string, speed int) (Model, error) {
	tree, err := world.Spawn(g, params)
	if err != nil {
		return Model{}, err
	}
	if speed < 1 {
		speed = 1
	}

	theme := ThemeCyberpunk
	s := sim.New(world, tree)
	return Model{
		world:   world,
		genome:  g,
		params:  params,
		sim:     s,
		name:    name,
		speed:   speed,
		running: true,
		follow:  true,
		canvas:  NewCanvas(width, height),
		view:    View{Center: tree.RootPosition(), Scale: 1},
		theme:   theme,
		styles:  NewStyles(theme),
		last:    s.Sample(false),
		heights: make([]float64, 0, historyCapacity),
		impulse: make([]float64, 0, historyCapacity),
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "n":
			if !m.running {
				m.step(1)
			}
		case "+", "=":
			m.speed = min(m.speed*2, maxSpeed)
		case "-", "_":
			m.speed = max(m.speed/2, 1)
		case "up", "k":
			m.view.Scale *= 1.25
		case "down", "j":
			m.view.Scale /= 1.25
		case "f":
			m.follow = !m.follow
		case "t":
			m.theme = m.theme.Next()
			m.styles = NewStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		m.frame++
		if m.running {
			m.step(m.speed)
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step(n int) {
	if m.err != nil {
		return
	}
	for i := 0; i < n; i++ {
		if err := m.world.Step(); err != nil {
			m.err = err
			m.running = false
			return
		}
		m.last = m.sim.Sample(false)
		if !m.last.IsValid() {
			m.err = sim.SimError{Time: m.last.Time, Step: m.last.Step, Message: "invalid state (NaN/Inf)"}
			m.running = false
			return
		}
	}

	m.heights = appendCapped(m.heights, m.last.Root.Y)
	m.impulse = appendCapped(m.impulse, m.last.MotorImpulse)
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// reset rebuilds the creature at its starting pose. The world clock keeps
// running.
func (m *Model) reset() {
	if err := m.sim.Creature().Destroy(); err != nil {
		m.err = err
		return
	}
	tree, err := m.world.Spawn(m.genome, m.params)
	if err != nil {
		m.err = err
		return
	}
	m.sim = sim.New(m.world, tree)
	m.err = nil
	m.last = m.sim.Sample(false)
	m.heights = m.heights[:0]
	m.impulse = m.impulse[:0]
	m.running = true
}

// Steps reports how many steps the world has taken.
func (m Model) Steps() int { return m.world.Steps() }

func (m Model) Running() bool { return m.running }

func (m Model) Speed() int { return m.speed }

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := m.styles.Canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(m.styles.Header.Render(strings.ToUpper(m.name)) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(m.styles.Failed.Render("FAILED") + "\n" + m.err.Error() + "\n\n")
	case m.running:
		s.WriteString(m.styles.Running.Render(AnimatedSpinner(m.frame)+" RUNNING") + "\n\n")
	default:
		s.WriteString(m.styles.Paused.Render("PAUSED") + "\n\n")
	}

	if len(m.heights) > 1 {
		chart := asciigraph.Plot(m.heights, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Root height"))
		s.WriteString(m.styles.Graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(m.styles.Label.Render(label) + m.styles.Value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.last.Time))
	row("Step", fmt.Sprintf("%d", m.last.Step))
	row("Speed", fmt.Sprintf("%dx", m.speed))
	row("Root", fmt.Sprintf("(%.1f, %.1f)", m.last.Root.X, m.last.Root.Y))
	row("Energy", fmt.Sprintf("%.1f", m.last.KineticEnergy))
	row("Limbs", fmt.Sprintf("%d", m.sim.Creature().NumLimbs()))
	row("Impulse", m.styles.Sparkline(m.impulse, 24))

	s.WriteString(m.styles.Help.Render("SP:Pause N:Step R:Reset Q:Quit\n+/-:Speed ↑↓:Zoom F:Follow T:Theme ?:Help"))
	statsView := m.styles.Stats.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  N        - Single step when paused  ║
║  R        - Rebuild the creature     ║
║  Q        - Quit                     ║
║  + / -    - Steps per frame          ║
║  Up/Down  - Zoom                     ║
║  F        - Follow the root          ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// draw renders the ground and every limb segment.
func (m *Model) draw() {
	m.canvas.Clear()

	tree := m.sim.Creature()
	if m.follow && tree.Root() != nil && sim.Finite(tree.RootPosition()) {
		m.view.Center = tree.RootPosition()
	}

	m.view.HLine(m.canvas, m.world.GroundTop())

	tree.Walk(func(_ int, l *creature.Limb) {
		m.view.Segment(m.canvas, l.Body.Position(), l.TipPosition())
	})
}

// DrawFrame draws a tree and its ground onto a fresh canvas, centred on
// the root.
func DrawFrame(tree *creature.Tree, groundTop float64, w, h int, scale float64) *Canvas {
	c := NewCanvas(w, h)
	v := View{Center: tree.RootPosition(), Scale: scale}
	if !sim.Finite(v.Center) {
		v.Center = cp.Vector{}
	}
	v.HLine(c, groundTop)
	tree.Walk(func(_ int, l *creature.Limb) {
		v.Segment(c, l.Body.Position(), l.TipPosition())
	})
	return c
}

func RenderFrame(tree *creature.Tree, groundTop float64, w, h int, scale float64) string {
	return DrawFrame(tree, groundTop, w, h, scale).String()
}
