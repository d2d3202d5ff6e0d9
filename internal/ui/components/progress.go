package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lexiz/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar.
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

// View renders the progress bar. With styling off the bar is drawn with
// block characters instead of background colors.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += theme.Render(theme.Body, p.Label) + "  "
	}

	labelWidth := lipgloss.Width(result)
	percentWidth := 0
	if p.ShowPercent {
		percentWidth = 6 // "  100%"
	}

	barWidth := p.Width - labelWidth - percentWidth
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * p.Percent)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	empty := barWidth - filled

	if theme.Plain() {
		result += strings.Repeat("█", filled) + strings.Repeat("░", empty)
	} else {
		result += lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled))
		result += lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", empty))
	}

	if p.ShowPercent {
		result += theme.Render(theme.Hint.Italic(false), fmt.Sprintf("  %3d%%", int(p.Percent*100)))
	}

	return result
}
