// Package vision extracts outlines from scanned documents by sending the
// outline pages to a vision model and parsing the markdown it returns.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/pdfutil"
	"github.com/jackzampolin/folio/internal/providers"
)

// SubDocRenderer produces a standalone PDF from a page range.
type SubDocRenderer interface {
	SubDocument(ctx context.Context, path string, first, last int) ([]byte, error)
}

// Trimmer renders sub-documents with pdfcpu.
type Trimmer struct{}

// SubDocument implements SubDocRenderer.
func (Trimmer) SubDocument(ctx context.Context, path string, first, last int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pdfutil.TrimPages(path, first, last)
}

// Extractor runs the vision tier.
type Extractor struct {
	Renderer    SubDocRenderer
	Converter   providers.VisionProvider
	Timeout     time.Duration
	PageCeiling int
	Logger      *slog.Logger
}

// New creates an Extractor that trims pages with pdfcpu.
func New(converter providers.VisionProvider, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		Renderer:    Trimmer{},
		Converter:   converter,
		Timeout:     outline.TierTimeout,
		PageCeiling: outline.PageCeiling,
		Logger:      logger,
	}
}

// Extract renders page and the page after it (clamped to the document) as a
// two-page PDF, converts it to markdown and parses the outline table.
// Acceptance is left to the caller.
func (x *Extractor) Extract(ctx context.Context, doc *outline.Document, page int) (outline.ExtractionResult, error) {
	if x.Converter == nil {
		return outline.ExtractionResult{}, errors.New("vision: no converter configured")
	}
	renderer := x.Renderer
	if renderer == nil {
		renderer = Trimmer{}
	}

	first, last := page, page+1
	if doc.TotalPages > 0 {
		first, last = pdfutil.ClampPages(first, last, doc.TotalPages)
		if first > last {
			first = last
		}
	}

	if x.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}

	pdf, err := renderer.SubDocument(ctx, doc.Path, first, last)
	if err != nil {
		return outline.ExtractionResult{}, fmt.Errorf("vision: render pages %d-%d: %w", first, last, err)
	}

	md, err := x.Converter.Convert(ctx, pdf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return outline.ExtractionResult{}, fmt.Errorf("vision: %w", outline.ErrTierTimeout)
		}
		return outline.ExtractionResult{}, fmt.Errorf("vision: convert with %s: %w", x.Converter.Name(), err)
	}

	entries := ParseMarkdownTable(md, x.PageCeiling)
	if x.Logger != nil {
		x.Logger.Debug("vision tier parsed markdown",
			"doc_id", doc.ID, "pages", fmt.Sprintf("%d-%d", first, last),
			"markdown_bytes", len(md), "entries", len(entries))
	}
	return outline.ExtractionResult{
		Entries:    entries,
		Method:     outline.MethodVision,
		Confidence: outline.Confidence(entries),
	}, nil
}
