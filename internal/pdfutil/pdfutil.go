// Package pdfutil wraps the PDF tooling folio needs outside of text
// extraction: page counting, page trimming and page rendering.
package pdfutil

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// relaxedConfig tolerates the minor structural defects common in scanned
// report PDFs.
func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, relaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("page count %s: %w", path, err)
	}
	return n, nil
}

// TrimPages returns a standalone PDF holding pages first..last of the
// document at path. Pages are 1-based and clamped to the document.
func TrimPages(path string, first, last int) ([]byte, error) {
	total, err := PageCount(path)
	if err != nil {
		return nil, err
	}
	first, last = ClampPages(first, last, total)
	if first > last {
		return nil, fmt.Errorf("trim %s: empty page range", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	sel := []string{fmt.Sprintf("%d-%d", first, last)}
	if err := api.Trim(f, &buf, sel, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("trim %s pages %d-%d: %w", path, first, last, err)
	}
	return buf.Bytes(), nil
}

// ClampPages clamps a 1-based inclusive page range to [1, total].
func ClampPages(first, last, total int) (int, int) {
	if first < 1 {
		first = 1
	}
	if last > total {
		last = total
	}
	return first, last
}
