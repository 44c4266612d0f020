package textsource

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"rsc.io/pdf"
)

// RawPDF reads text straight from the content streams with rsc.io/pdf.
// It sees a different linearization than pdftotext, which is what makes it
// useful as a second opinion on documents where the layout pass fails.
type RawPDF struct {
	// LineTolerance is how far apart, in points, two runs may sit
	// vertically and still share a line.
	LineTolerance float64
}

// NewRawPDF returns a RawPDF source with a 2pt line tolerance.
func NewRawPDF() *RawPDF {
	return &RawPDF{LineTolerance: 2}
}

// PageTexts implements Source. The reader panics on some malformed files;
// those panics are returned as errors.
func (r *RawPDF) PageTexts(ctx context.Context, path string, first, last int) (pages []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			pages, err = nil, fmt.Errorf("read %s: malformed pdf: %v", path, p)
		}
	}()

	doc, err := pdf.NewReader(f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	first, last = clampRange(first, last, doc.NumPage())
	for n := first; n <= last; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := doc.Page(n)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, r.layout(page.Content().Text))
	}
	return pages, nil
}

// Text implements Source.
func (r *RawPDF) Text(ctx context.Context, path string, first, last int) (string, error) {
	pages, err := r.PageTexts(ctx, path, first, last)
	if err != nil {
		return "", err
	}
	return JoinPages(pages), nil
}

// layout groups text runs into lines top to bottom, ordering runs left to
// right and separating distant runs with spaces.
func (r *RawPDF) layout(runs []pdf.Text) string {
	if len(runs) == 0 {
		return ""
	}
	tol := r.LineTolerance
	if tol <= 0 {
		tol = 2
	}

	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > tol {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []string
	var line strings.Builder
	lineY := sorted[0].Y
	lastEnd := sorted[0].X
	for i, t := range sorted {
		if i > 0 && math.Abs(t.Y-lineY) > tol {
			lines = append(lines, strings.TrimRight(line.String(), " "))
			line.Reset()
			lineY = t.Y
			lastEnd = t.X
		}
		if line.Len() > 0 {
			// Roughly one space per half em of horizontal gap.
			if gap := t.X - lastEnd; gap > t.FontSize*0.2 {
				spaces := 1
				if t.FontSize > 0 {
					spaces = max(1, int(gap/(t.FontSize*0.5)))
				}
				line.WriteString(strings.Repeat(" ", min(spaces, 40)))
			}
		}
		line.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	lines = append(lines, strings.TrimRight(line.String(), " "))
	return strings.Join(lines, "\n")
}

var _ Source = (*RawPDF)(nil)
