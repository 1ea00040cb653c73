package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ppiankov/hdfhub/internal/models"
)

// TextReporter writes human-readable summaries
type TextReporter struct {
	writer io.Writer
	color  bool
}

// NewTextReporter creates a new text reporter. Colors are enabled only when
// writer is a terminal.
func NewTextReporter(writer io.Writer) *TextReporter {
	return &TextReporter{
		writer: writer,
		color:  isTerminal(writer),
	}
}

// Generate prints per-profile control status counts for each summary
func (r *TextReporter) Generate(summaries []Summary) error {
	for i, s := range summaries {
		if i > 0 {
			r.printf("\n")
		}
		r.printSummary(s)
	}
	return nil
}

func (r *TextReporter) printSummary(s Summary) {
	header := s.Source
	if s.Target != "" {
		header = fmt.Sprintf("%s (target: %s)", s.Source, s.Target)
	}
	r.printf("%s\n", r.style(styleTitle, header))
	r.printf("%s\n", strings.Repeat("-", 50))

	for _, p := range s.Profiles {
		name := p.Name
		if p.ParentProfile != "" {
			name = "  " + name
		}
		r.printf("%s: %d controls\n", name, p.Counts.Total())
		r.printCounts(p.Counts, "    ")
	}

	if len(s.Profiles) > 1 {
		r.printf("Total: %d controls\n", s.Totals.Total())
		r.printCounts(s.Totals, "    ")
	}
}

func (r *TextReporter) printCounts(c StatusCounts, indent string) {
	rows := []struct {
		label string
		count int
	}{
		{models.ControlPassed, c.Passed},
		{models.ControlFailed, c.Failed},
		{models.ControlNotApplicable, c.NotApplicable},
		{models.ControlNotReviewed, c.NotReviewed},
		{models.ControlProfileError, c.ProfileError},
	}
	for _, row := range rows {
		if row.count == 0 {
			continue
		}
		label := fmt.Sprintf("%-15s", row.label+":")
		r.printf("%s%s %d\n", indent, r.style(statusStyle(row.label), label), row.count)
	}
}

func (r *TextReporter) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// printf is a helper for formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.writer, format, args...)
}
