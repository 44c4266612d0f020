//go:build ocr

package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// TesseractAvailable reports whether the binary was built with the ocr tag.
const TesseractAvailable = true

// TesseractOCR runs OCR locally through libtesseract.
type TesseractOCR struct {
	languages []string
}

// NewTesseractOCR creates a local OCR provider. Languages default to eng.
func NewTesseractOCR(languages ...string) *TesseractOCR {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractOCR{languages: languages}
}

// Name returns the provider identifier.
func (t *TesseractOCR) Name() string { return TesseractName }

// RequestsPerSecond returns 0; callers skip rate limiting for local OCR.
func (t *TesseractOCR) RequestsPerSecond() float64 { return 0 }

// MaxRetries returns 1: local failures are not transient.
func (t *TesseractOCR) MaxRetries() int { return 1 }

// RetryDelayBase returns 0.
func (t *TesseractOCR) RetryDelayBase() time.Duration { return 0 }

// ProcessImage implements OCRProvider.
func (t *TesseractOCR) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return &OCRResult{ErrorMessage: err.Error()}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return &OCRResult{ErrorMessage: err.Error()}, fmt.Errorf("tesseract: set language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return &OCRResult{ErrorMessage: err.Error()}, fmt.Errorf("tesseract: load page %d: %w", pageNum, err)
	}
	text, err := client.Text()
	if err != nil {
		return &OCRResult{ErrorMessage: err.Error()}, fmt.Errorf("tesseract: page %d: %w", pageNum, err)
	}

	return &OCRResult{
		Success:       true,
		Text:          text,
		Metadata:      map[string]any{"page_num": pageNum, "languages": t.languages},
		ExecutionTime: time.Since(start),
	}, nil
}

var _ OCRProvider = (*TesseractOCR)(nil)
