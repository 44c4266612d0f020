package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/repository"
)

func testDoc(id, collection string) *outline.Document {
	published := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	return &outline.Document{
		ID:              id,
		CollectionID:    collection,
		Filename:        id,
		TotalPages:      20,
		Method:          outline.MethodSingleLineDotted,
		Confidence:      2.0 / 3,
		LowConfidence:   false,
		PublicationDate: &published,
		Entries: []outline.TOCEntry{
			outline.NewEntry("1", "Introduction", outline.Exact(3)),
			outline.NewEntry("1.1", "Scope", outline.Range(3, 4)),
			outline.NewEntry("2", "Geology", outline.Unknown()),
		},
		ExtractedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteXLSX(t *testing.T) {
	data, err := WriteXLSX([]*outline.Document{testDoc("a.pdf", "W-1")})
	if err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}
	f := openWorkbook(t, data)

	docs, err := f.GetRows(SheetDocuments)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", SheetDocuments, err)
	}
	if len(docs) != 2 {
		t.Fatalf("document rows = %d, want 2", len(docs))
	}
	if docs[0][0] != "Document" || docs[1][0] != "a.pdf" || docs[1][1] != "W-1" {
		t.Errorf("document rows = %v", docs)
	}
	if docs[1][8] != "3" || docs[1][9] != "2019-03-01" {
		t.Errorf("entries/publication = %q/%q", docs[1][8], docs[1][9])
	}

	rows, err := f.GetRows(SheetOutline)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", SheetOutline, err)
	}
	if len(rows) != 4 {
		t.Fatalf("outline rows = %d, want 4", len(rows))
	}
	tests := []struct {
		row  int
		page string
		kind string
	}{
		{1, "3", "exact"},
		{2, "3-4", "range"},
		{3, "", "unknown"},
	}
	for _, tt := range tests {
		if got := rows[tt.row][3]; got != tt.page {
			t.Errorf("row %d page = %q, want %q", tt.row, got, tt.page)
		}
		if got := rows[tt.row][4]; got != tt.kind {
			t.Errorf("row %d kind = %q, want %q", tt.row, got, tt.kind)
		}
	}
	if rows[2][2] != "Scope" || rows[2][6] != "direct" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestWriteXLSX_Empty(t *testing.T) {
	data, err := WriteXLSX(nil)
	if err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}
	f := openWorkbook(t, data)
	rows, _ := f.GetRows(SheetOutline)
	if len(rows) != 1 {
		t.Errorf("outline rows = %d, want header only", len(rows))
	}
}

func TestService_CollectionXLSX(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	for _, d := range []*outline.Document{testDoc("a.pdf", "W-1"), testDoc("b.pdf", "W-2")} {
		if err := repo.Put(ctx, d); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	data, err := NewService(repo, nil).CollectionXLSX(ctx, "W-2")
	if err != nil {
		t.Fatalf("CollectionXLSX() error = %v", err)
	}
	rows, _ := openWorkbook(t, data).GetRows(SheetDocuments)
	if len(rows) != 2 || rows[1][0] != "b.pdf" {
		t.Errorf("rows = %v, want only b.pdf", rows)
	}
}
