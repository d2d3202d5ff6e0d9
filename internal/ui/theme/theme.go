package theme

import (
	"os"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Warning   = lipgloss.Color("#EAB308") // Amber
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// States
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Weak = lipgloss.NewStyle().
		Foreground(Error)

	Learning = lipgloss.NewStyle().
			Foreground(Warning)

	Strong = lipgloss.NewStyle().
		Foreground(Success)

	New = lipgloss.NewStyle().
		Foreground(TextDim)
)

var plain = os.Getenv("NO_COLOR") != ""

// SetPlain turns styling off, for pipes and NO_COLOR terminals.
func SetPlain(on bool) {
	plain = on
}

// Plain reports whether styling is off.
func Plain() bool {
	return plain
}

// Render applies s to text unless styling is off.
func Render(s lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return s.Render(text)
}
