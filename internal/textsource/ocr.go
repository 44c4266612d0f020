package textsource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/folio/internal/pdfutil"
	"github.com/jackzampolin/folio/internal/providers"
)

// PageRenderer renders one page of a PDF to an image.
type PageRenderer interface {
	RenderPage(ctx context.Context, path string, page int) ([]byte, error)
}

// OCR renders pages and reads them back through an OCR provider.
type OCR struct {
	Renderer PageRenderer
	Provider providers.OCRProvider
	Limiter  *providers.RateLimiter // Optional
	Logger   *slog.Logger
}

// NewOCR creates an OCR source rate limited to the provider's declared rate.
func NewOCR(provider providers.OCRProvider, logger *slog.Logger) *OCR {
	if logger == nil {
		logger = slog.Default()
	}
	o := &OCR{
		Renderer: pdfutil.NewRenderer(),
		Provider: provider,
		Logger:   logger,
	}
	if rps := provider.RequestsPerSecond(); rps > 0 {
		o.Limiter = providers.NewRateLimiter(rps)
	}
	return o
}

// PageTexts implements Source.
func (o *OCR) PageTexts(ctx context.Context, path string, first, last int) ([]string, error) {
	if o.Provider == nil {
		return nil, fmt.Errorf("ocr source: no provider configured")
	}
	first, last = clampRange(first, last, 0)

	var pages []string
	for n := first; n <= last; n++ {
		img, err := o.Renderer.RenderPage(ctx, path, n)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", n, err)
		}
		if o.Limiter != nil {
			if err := o.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		res, err := o.Provider.ProcessImage(ctx, img, n)
		if err != nil {
			if rle, ok := providers.IsRateLimitError(err); ok && o.Limiter != nil {
				o.Limiter.Record429(rle.RetryAfter)
			}
			return nil, fmt.Errorf("ocr page %d with %s: %w", n, o.Provider.Name(), err)
		}
		if o.Logger != nil {
			o.Logger.Debug("ocr page", "path", path, "page", n, "chars", len(res.Text), "provider", o.Provider.Name())
		}
		pages = append(pages, res.Text)
	}
	return pages, nil
}

// Text implements Source.
func (o *OCR) Text(ctx context.Context, path string, first, last int) (string, error) {
	pages, err := o.PageTexts(ctx, path, first, last)
	if err != nil {
		return "", err
	}
	return JoinPages(pages), nil
}

var _ Source = (*OCR)(nil)
