//go:build !ocr

package providers

import (
	"context"
	"errors"
	"time"
)

// TesseractAvailable reports whether the binary was built with the ocr tag.
const TesseractAvailable = false

// ErrTesseractUnavailable is returned when local OCR is requested from a
// binary built without the ocr tag.
var ErrTesseractUnavailable = errors.New("tesseract support not compiled in (build with -tags ocr)")

// TesseractOCR is a placeholder that fails every request.
type TesseractOCR struct{}

// NewTesseractOCR returns the placeholder provider.
func NewTesseractOCR(languages ...string) *TesseractOCR { return &TesseractOCR{} }

func (t *TesseractOCR) Name() string                  { return TesseractName }
func (t *TesseractOCR) RequestsPerSecond() float64    { return 0 }
func (t *TesseractOCR) MaxRetries() int               { return 1 }
func (t *TesseractOCR) RetryDelayBase() time.Duration { return 0 }

// ProcessImage always returns ErrTesseractUnavailable.
func (t *TesseractOCR) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	return &OCRResult{ErrorMessage: ErrTesseractUnavailable.Error()}, ErrTesseractUnavailable
}

var _ OCRProvider = (*TesseractOCR)(nil)
