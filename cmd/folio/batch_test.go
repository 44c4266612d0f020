package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackzampolin/folio/internal/outline"
)

func TestFindPDFs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"W-2/final.PDF",
		"W-1/completion.pdf",
		"W-1/notes.txt",
		".cache/skip.pdf",
		"top.pdf",
	} {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := findPDFs(root)
	if err != nil {
		t.Fatalf("findPDFs() error = %v", err)
	}
	want := []string{"W-1/completion.pdf", "W-2/final.PDF", "top.pdf"}
	if len(paths) != len(want) {
		t.Fatalf("found %v, want %v", paths, want)
	}
	for i, p := range paths {
		if got := outline.NewDocument(root, p, 0).ID; got != want[i] {
			t.Errorf("paths[%d] id = %s, want %s", i, got, want[i])
		}
	}

	if _, err := findPDFs(filepath.Join(root, "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestCollectionFor(t *testing.T) {
	tests := []struct {
		name, flag, root, id, want string
	}{
		{"flag wins", "W-9", "/data/reports", "W-1/a.pdf", "W-9"},
		{"first directory", "", "/data/reports", "W-1/sub/a.pdf", "W-1"},
		{"root name for top-level files", "", "/data/W-3", "a.pdf", "W-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collectionFor(tt.flag, tt.root, tt.id); got != tt.want {
				t.Errorf("collectionFor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToListEntries(t *testing.T) {
	doc := outline.NewDocument("", "a.pdf", 1)
	doc.CollectionID = "W-1"
	doc.TotalPages = 12
	doc.Accept(outline.ExtractionResult{
		Method:     outline.MethodVision,
		Confidence: 1,
		Entries:    []outline.TOCEntry{outline.NewEntry("1", "Intro", outline.Exact(2))},
	})

	rows := toListEntries([]*outline.Document{doc})
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	r := rows[0]
	if r.ID != "a.pdf" || r.Collection != "W-1" || r.Method != outline.MethodVision || r.Entries != 1 || r.Pages != 12 {
		t.Errorf("row = %+v", r)
	}
}

func TestExtractFile_Unreadable(t *testing.T) {
	_, err := extractFile(t.Context(), nil, "", filepath.Join(t.TempDir(), "nope.pdf"), "")
	if !errors.Is(err, outline.ErrUnreadable) {
		t.Fatalf("err = %v, want ErrUnreadable", err)
	}
}
