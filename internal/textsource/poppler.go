package textsource

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackzampolin/folio/internal/pdfutil"
)

// Poppler extracts text with pdftotext -layout, which keeps column
// alignment and dot leaders intact.
type Poppler struct {
	Runner pdfutil.Runner
	Binary string
}

// NewPoppler returns a Poppler source using the system pdftotext.
func NewPoppler() *Poppler {
	return &Poppler{Runner: pdfutil.ExecRunner{}, Binary: "pdftotext"}
}

// PageTexts implements Source. pdftotext separates pages with form feeds.
func (p *Poppler) PageTexts(ctx context.Context, path string, first, last int) ([]string, error) {
	first, last = clampRange(first, last, 0)
	if first > last {
		return nil, nil
	}
	bin := p.Binary
	if bin == "" {
		bin = "pdftotext"
	}
	runner := p.Runner
	if runner == nil {
		runner = pdfutil.ExecRunner{}
	}

	out, err := runner.Run(ctx, bin,
		"-layout",
		"-f", strconv.Itoa(first),
		"-l", strconv.Itoa(last),
		"-enc", "UTF-8",
		path,
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("pdftotext %s: %w (output: %s)", path, err, strings.TrimSpace(string(out)))
	}

	pages := strings.Split(string(out), "\f")
	// pdftotext terminates every page with a form feed.
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	if want := last - first + 1; len(pages) > want {
		pages = pages[:want]
	}
	return pages, nil
}

// Text implements Source.
func (p *Poppler) Text(ctx context.Context, path string, first, last int) (string, error) {
	pages, err := p.PageTexts(ctx, path, first, last)
	if err != nil {
		return "", err
	}
	return JoinPages(pages), nil
}

var _ Source = (*Poppler)(nil)
