// Package textsource extracts per-page text from PDF files.
//
// Three sources are provided: Poppler (pdftotext -layout), the primary
// layout-preserving extractor; RawPDF, a pure Go reader over the content
// streams used as the secondary source; and OCR, which renders pages and
// sends them to an OCR provider for image-only documents.
package textsource

import (
	"context"
	"strings"
)

// Source extracts text from a range of 1-based pages.
type Source interface {
	// PageTexts returns one string per page in first..last.
	PageTexts(ctx context.Context, path string, first, last int) ([]string, error)
	// Text returns the pages joined by newlines.
	Text(ctx context.Context, path string, first, last int) (string, error)
}

// JoinPages concatenates page texts the way every Source's Text does.
func JoinPages(pages []string) string {
	return strings.Join(pages, "\n")
}

func clampRange(first, last, total int) (int, int) {
	if first < 1 {
		first = 1
	}
	if total > 0 && last > total {
		last = total
	}
	return first, last
}
