package viz

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jakecoffman/cp"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/environment"
	"github.com/san-kum/humperdink/internal/genome"
	"github.com/san-kum/humperdink/internal/sim"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)

	if !c.IsSet(0, 0) || !c.IsSet(3, 3) {
		t.Error("expected pixels to be set")
	}
	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected braille dot 1, got %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != 0x2880 {
		t.Errorf("expected braille dot 8, got %U", c.Grid[0][1])
	}

	c.Clear()
	if c.IsSet(0, 0) {
		t.Error("expected clear canvas")
	}
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)

	for i := 0; i < 20; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("diagonal pixel (%d,%d) not set", i, i)
		}
	}
	if lines := strings.Count(c.String(), "\n"); lines != 5 {
		t.Errorf("expected 5 rows, got %d", lines)
	}
}

func TestViewProject(t *testing.T) {
	c := NewCanvas(10, 5)
	v := View{Center: cp.Vector{X: 100, Y: 50}, Scale: 2}

	x, y := v.Project(c, cp.Vector{X: 100, Y: 50})
	if x != 10 || y != 10 {
		t.Errorf("center should map to (10,10), got (%d,%d)", x, y)
	}

	x, y = v.Project(c, cp.Vector{X: 101, Y: 51})
	if x != 12 || y != 8 {
		t.Errorf("expected y to flip, got (%d,%d)", x, y)
	}
}

func TestViewSegmentSkipsNonFinite(t *testing.T) {
	c := NewCanvas(10, 5)
	v := View{Scale: 1}
	v.Segment(c, cp.Vector{X: 0, Y: 0}, cp.Vector{X: 1e300, Y: 0})
	v.Segment(c, cp.Vector{X: 0, Y: 0}, cp.Vector{X: math.NaN(), Y: 0})
	if strings.ContainsFunc(c.String(), func(r rune) bool { return r != 0x2800 && r != '\n' }) {
		t.Error("far segment should not be drawn")
	}
}

func newModel(t *testing.T, preset string) Model {
	t.Helper()
	world := environment.New(environment.DefaultConfig())
	t.Cleanup(func() { _ = world.Destroy() })

	m, err := NewModel(world, genome.GetPreset(preset), creature.DefaultParams(), preset, 2)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelTick(t *testing.T) {
	m := newModel(t, "walker")

	m, cmd := update(m, TickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next frame")
	}
	if m.Steps() != 2 {
		t.Errorf("expected 2 steps per frame, got %d", m.Steps())
	}

	m, _ = update(m, key(" "))
	if m.Running() {
		t.Fatal("space should pause")
	}
	m, _ = update(m, TickMsg{})
	if m.Steps() != 2 {
		t.Errorf("paused model should not step, got %d", m.Steps())
	}

	m, _ = update(m, key("n"))
	if m.Steps() != 3 {
		t.Errorf("n should single step, got %d", m.Steps())
	}
}

func TestModelSpeed(t *testing.T) {
	m := newModel(t, "stick")

	m, _ = update(m, key("+"))
	if m.Speed() != 4 {
		t.Errorf("expected speed 4, got %d", m.Speed())
	}
	for i := 0; i < 10; i++ {
		m, _ = update(m, key("-"))
	}
	if m.Speed() != 1 {
		t.Errorf("expected speed floor of 1, got %d", m.Speed())
	}
}

func TestModelQuit(t *testing.T) {
	m := newModel(t, "stick")
	_, cmd := update(m, key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModelReset(t *testing.T) {
	m := newModel(t, "worm")
	for i := 0; i < 5; i++ {
		m, _ = update(m, TickMsg{})
	}

	m, _ = update(m, key("r"))
	if got := m.sim.Creature().RootPosition(); got != (cp.Vector{}) {
		t.Errorf("reset should rebuild at the origin, got %v", got)
	}
	n := 0
	m.world.Space().EachBody(func(b *cp.Body) {
		if b != m.world.Space().StaticBody {
			n++
		}
	})
	if n != 3 {
		t.Errorf("expected only the rebuilt worm's 3 bodies, got %d", n)
	}
}

func TestModelView(t *testing.T) {
	m := newModel(t, "walker")
	for i := 0; i < 3; i++ {
		m, _ = update(m, TickMsg{})
	}

	out := m.View()
	for _, want := range []string{"WALKER", "Time", "Limbs", "RUNNING"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = update(m, key("?"))
	if !strings.Contains(m.View(), "KEYBOARD SHORTCUTS") {
		t.Error("help overlay not shown")
	}
}

func TestModelRejectsBadGenome(t *testing.T) {
	world := environment.New(environment.DefaultConfig())
	defer world.Destroy()

	if _, err := NewModel(world, nil, creature.DefaultParams(), "none", 1); err == nil {
		t.Error("expected error for nil genome")
	}
}

func TestRenderFrame(t *testing.T) {
	world := environment.New(environment.DefaultConfig())
	defer world.Destroy()

	tree, err := world.Spawn(genome.GetPreset("star"), creature.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}

	out := RenderFrame(tree, world.GroundTop(), 40, 20, 1)
	if strings.Count(out, "\n") != 20 {
		t.Errorf("expected 20 rows")
	}
	if !strings.ContainsFunc(out, func(r rune) bool { return r > 0x2800 && r <= 0x28ff }) {
		t.Error("expected limbs to be drawn")
	}
}

func TestPlot(t *testing.T) {
	if Plot(nil, "empty", 20, 5) != "" {
		t.Error("expected empty plot")
	}

	samples := make([]sim.Sample, 200)
	for i := range samples {
		samples[i] = sim.Sample{Root: cp.Vector{X: float64(i), Y: -float64(i) / 2}}
	}
	out := PlotRoot(samples, 40, 5)
	if !strings.Contains(out, "root x") || !strings.Contains(out, "root y") {
		t.Errorf("missing captions in %q", out)
	}
}

func TestDownsample(t *testing.T) {
	series := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := downsample(series, 4)
	want := []float64{0, 3, 6, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(downsample(series, 20)) != 10 {
		t.Error("short series should be unchanged")
	}
}

func TestThemeNext(t *testing.T) {
	th := ThemeCyberpunk
	seen := map[string]bool{}
	for range Themes {
		seen[th.Name] = true
		th = th.Next()
	}
	if len(seen) != len(Themes) || th.Name != ThemeCyberpunk.Name {
		t.Errorf("Next should cycle through every theme, saw %v", seen)
	}
	if GetTheme("nope").Name != "cyberpunk" {
		t.Error("unknown theme should fall back to cyberpunk")
	}
}

func TestCanvasSVG(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	var sb strings.Builder
	if err := c.WriteSVG(&sb, 2, ThemeMinimal); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, `width="8" height="8"`) {
		t.Errorf("unexpected size in %q", out)
	}
	if strings.Count(out, "<circle") != 2 {
		t.Errorf("expected 2 dots, got %d", strings.Count(out, "<circle"))
	}
	if !strings.Contains(out, `cx="1.0" cy="1.0"`) || !strings.Contains(out, `cx="7.0" cy="7.0"`) {
		t.Errorf("unexpected dot positions in %q", out)
	}
}

func TestTrajectorySVG(t *testing.T) {
	samples := []sim.Sample{
		{Root: cp.Vector{X: 0, Y: 0}},
		{Root: cp.Vector{X: math.NaN(), Y: 0}},
		{Root: cp.Vector{X: 10, Y: 5}},
	}

	var sb strings.Builder
	if err := TrajectorySVG(&sb, samples, 120, 60, ThemeOcean); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "M10.0,55.0 L110.0,5.0") {
		t.Errorf("unexpected path in %q", out)
	}

	sb.Reset()
	if err := TrajectorySVG(&sb, samples[:2], 120, 60, ThemeOcean); err == nil {
		t.Error("expected error for a single finite sample")
	}
}
