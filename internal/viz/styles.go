package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles of the live view, derived from a Theme.
type Styles struct {
	Canvas  lipgloss.Style
	Stats   lipgloss.Style
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Graph   lipgloss.Style
	Help    lipgloss.Style
	Running lipgloss.Style
	Paused  lipgloss.Style
	Failed  lipgloss.Style

	sparkHigh lipgloss.Style
	sparkMid  lipgloss.Style
	sparkLow  lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Canvas: lipgloss.NewStyle().Foreground(t.Secondary).Padding(1, 2),
		Stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(40),
		Header:    lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		Label:     lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		Value:     lipgloss.NewStyle().Foreground(t.Text),
		Graph:     lipgloss.NewStyle().Foreground(t.Accent).Padding(1, 0),
		Help:      lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		Running:   lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		Paused:    lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		Failed:    lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		sparkHigh: lipgloss.NewStyle().Foreground(t.Success),
		sparkMid:  lipgloss.NewStyle().Foreground(t.Warning),
		sparkLow:  lipgloss.NewStyle().Foreground(t.Error),
	}
}

// Sparkline renders the last width values as block characters.
func (s Styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var result strings.Builder
	for _, v := range values {
		norm := (v - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(s.sparkHigh.Render(c))
		case norm > 0.3:
			result.WriteString(s.sparkMid.Render(c))
		default:
			result.WriteString(s.sparkLow.Render(c))
		}
	}
	return result.String()
}

// AnimatedSpinner returns frame of animated spinner
func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}
