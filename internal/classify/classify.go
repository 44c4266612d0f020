// Package classify decides whether a document carries a native text layer
// or is image-only and needs OCR.
package classify

import (
	"context"
	"fmt"
	"unicode"

	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/textsource"
)

// Classifier samples the leading pages of a document.
type Classifier struct {
	SamplePages  int // 1..3
	ScannedChars int // per-page non-space character threshold
}

// New returns a classifier configured from thresholds.
func New(t outline.Thresholds) *Classifier {
	t = t.Normalize()
	return &Classifier{SamplePages: t.SamplePages, ScannedChars: t.ScannedChars}
}

// Classify reports whether doc is scanned. A document is scanned when every
// sampled page yields fewer than ScannedChars non-space characters. Any
// extraction error makes the document unreadable.
func (c *Classifier) Classify(ctx context.Context, doc *outline.Document, src textsource.Source) (bool, error) {
	sample := c.SamplePages
	if sample <= 0 {
		sample = outline.ClassifierSamplePages
	}
	if doc.TotalPages > 0 && sample > doc.TotalPages {
		sample = doc.TotalPages
	}
	threshold := c.ScannedChars
	if threshold <= 0 {
		threshold = outline.ScannedCharThreshold
	}

	pages, err := src.PageTexts(ctx, doc.Path, 1, sample)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", outline.ErrUnreadable, doc.ID, err)
	}
	if len(pages) == 0 {
		return true, nil
	}
	for _, p := range pages {
		if CountChars(p) >= threshold {
			return false, nil
		}
	}
	return true, nil
}

// CountChars counts non-space characters.
func CountChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
