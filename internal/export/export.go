// Package export writes extracted outlines to spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/repository"
)

// Sheet names.
const (
	SheetDocuments = "Documents"
	SheetOutline   = "Outline"
)

var (
	documentHeaders = []string{
		"Document", "Collection", "Filename", "Pages", "Scanned", "Method",
		"Confidence", "Low Confidence", "Entries", "Publication Date", "Extracted At",
	}
	outlineHeaders = []string{
		"Document", "Number", "Title", "Page", "Page Kind", "Category", "Provenance",
	}
)

// Service produces XLSX workbooks from the document repository.
type Service struct {
	repo   repository.Repository
	logger *slog.Logger
}

// NewService creates an export service over repo.
func NewService(repo repository.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CollectionXLSX returns a workbook for every document in collection. An
// empty collection exports everything.
func (s *Service) CollectionXLSX(ctx context.Context, collection string) ([]byte, error) {
	start := time.Now()
	docs, err := s.repo.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	data, err := WriteXLSX(docs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("exported outlines",
		"collection", collection,
		"documents", len(docs),
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds())
	return data, nil
}

// WriteXLSX renders docs as a two-sheet workbook: one row per document and
// one row per outline entry. Exact pages are written as numbers, ranges as
// "lo-hi" text and unknown pages as empty cells.
func WriteXLSX(docs []*outline.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDocuments); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetOutline); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	writeRow(f, SheetDocuments, 1, toAny(documentHeaders))
	writeRow(f, SheetOutline, 1, toAny(outlineHeaders))

	docRow, entryRow := 2, 2
	for _, d := range docs {
		published := ""
		if d.PublicationDate != nil {
			published = d.PublicationDate.Format("2006-01-02")
		}
		extracted := ""
		if !d.ExtractedAt.IsZero() {
			extracted = d.ExtractedAt.UTC().Format(time.RFC3339)
		}
		writeRow(f, SheetDocuments, docRow, []any{
			d.ID, d.CollectionID, d.Filename, d.TotalPages, d.Scanned, d.Method,
			d.Confidence, d.LowConfidence, len(d.Entries), published, extracted,
		})
		docRow++

		for _, e := range d.Entries {
			writeRow(f, SheetOutline, entryRow, []any{
				d.ID, e.Number, e.Title, pageCell(e.Page), pageKind(e.Page), e.Category, string(e.Provenance),
			})
			entryRow++
		}
	}

	_ = f.SetColWidth(SheetDocuments, "A", "A", 36)
	_ = f.SetColWidth(SheetDocuments, "B", "C", 22)
	_ = f.SetColWidth(SheetDocuments, "J", "K", 22)
	_ = f.SetColWidth(SheetOutline, "A", "A", 36)
	_ = f.SetColWidth(SheetOutline, "C", "C", 48)
	_ = f.SetPanes(SheetOutline, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func pageCell(p outline.Page) any {
	switch p.Kind {
	case outline.PageExact:
		n, _ := p.Value()
		return n
	case outline.PageRange:
		return p.String()
	default:
		return ""
	}
}

func pageKind(p outline.Page) string {
	switch p.Kind {
	case outline.PageExact:
		return "exact"
	case outline.PageRange:
		return "range"
	default:
		return "unknown"
	}
}
