package api

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jackzampolin/folio/internal/outline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// BatchSummary tallies the documents of a batch run.
type BatchSummary struct {
	Total         int            `json:"total" yaml:"total"`
	WithOutline   int            `json:"with_outline" yaml:"with_outline"`
	NoOutline     int            `json:"no_outline" yaml:"no_outline"`
	LowConfidence int            `json:"low_confidence" yaml:"low_confidence"`
	Skipped       int            `json:"skipped" yaml:"skipped"`
	Failed        int            `json:"failed" yaml:"failed"`
	Methods       map[string]int `json:"methods" yaml:"methods"`
	Errors        []string       `json:"errors,omitempty" yaml:"errors,omitempty"`
	Duration      time.Duration  `json:"duration" yaml:"duration"`
}

// NewBatchSummary creates an empty summary.
func NewBatchSummary() *BatchSummary {
	return &BatchSummary{Methods: make(map[string]int)}
}

// Add counts one processed document. A nil doc with a nil error is a
// skipped document.
func (s *BatchSummary) Add(id string, doc *outline.Document, err error) {
	s.Total++
	switch {
	case err != nil:
		s.Failed++
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", id, err))
	case doc == nil:
		s.Skipped++
	case doc.HasOutline():
		s.WithOutline++
		s.Methods[doc.Method]++
		if doc.LowConfidence {
			s.LowConfidence++
		}
	default:
		s.NoOutline++
	}
}

// FormatBatchSummary renders the summary box.
func FormatBatchSummary(w io.Writer, s *BatchSummary) {
	status := successStyle.Render("OK")
	if s.Failed > 0 {
		status = errorStyle.Render(fmt.Sprintf("%d FAILED", s.Failed))
	}

	line1 := fmt.Sprintf("%s %d  %s %s  %s %d  %s %d  %s",
		dimStyle.Render("Documents:"), s.Total,
		dimStyle.Render("Outlines:"), successStyle.Render(fmt.Sprint(s.WithOutline)),
		dimStyle.Render("None:"), s.NoOutline,
		dimStyle.Render("Skipped:"), s.Skipped,
		status,
	)

	low := fmt.Sprint(s.LowConfidence)
	if s.LowConfidence > 0 {
		low = warnStyle.Render(low)
	}
	line2 := fmt.Sprintf("%s %s  %s %.1fs",
		dimStyle.Render("Low confidence:"), low,
		dimStyle.Render("Duration:"), s.Duration.Seconds(),
	)

	lines := []string{titleStyle.Render("Batch Complete"), line1, line2}
	if len(s.Methods) > 0 {
		methods := make([]string, 0, len(s.Methods))
		for m := range s.Methods {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		parts := make([]string, len(methods))
		for i, m := range methods {
			parts[i] = fmt.Sprintf("%s=%d", m, s.Methods[m])
		}
		lines = append(lines, dimStyle.Render("Methods:")+" "+strings.Join(parts, " "))
	}
	for _, e := range s.Errors {
		lines = append(lines, errorStyle.Render(e))
	}

	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}
