package reporter

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Status colors
var (
	colorFailed = lipgloss.Color("#FF0000")
	colorError  = lipgloss.Color("#FF8800")
	colorReview = lipgloss.Color("#FFFF00")
	colorPassed = lipgloss.Color("#00FF00")
	colorMuted  = lipgloss.Color("#888888")
	colorAccent = lipgloss.Color("#7B68EE")
)

var styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

// statusStyle returns the lipgloss style for a control status label.
func statusStyle(label string) lipgloss.Style {
	switch label {
	case "Passed":
		return lipgloss.NewStyle().Foreground(colorPassed)
	case "Failed":
		return lipgloss.NewStyle().Foreground(colorFailed).Bold(true)
	case "Profile Error":
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	case "Not Reviewed":
		return lipgloss.NewStyle().Foreground(colorReview)
	case "Not Applicable":
		return lipgloss.NewStyle().Foreground(colorMuted)
	default:
		return lipgloss.NewStyle()
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
