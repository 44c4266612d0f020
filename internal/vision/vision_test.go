package vision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/providers"
)

const tableMarkdown = `# CONTENTS

| No. | Section | Page |
|-----|---------|------|
| 1 | Introduction | 3 |
| 1.1 | Location and Access | 4 |
| 2 | Regional Geology | 1998 |
|  | continued from previous | 7 |
| 3 | **Exploration** | 9 |
| Appendix 1 | Drill logs | |

Some trailing prose.`

func TestParseMarkdownTable(t *testing.T) {
	entries := ParseMarkdownTable(tableMarkdown, outline.PageCeiling)

	want := []outline.TOCEntry{
		outline.NewEntry("1", "Introduction", outline.Exact(3)),
		outline.NewEntry("1.1", "Location and Access", outline.Exact(4)),
		outline.NewEntry("2", "Regional Geology", outline.Unknown()),
		outline.NewEntry("3", "Exploration", outline.Exact(9)),
		outline.NewEntry("Appendix 1", "Drill logs", outline.Unknown()),
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestParseMarkdownTable_PageColumn(t *testing.T) {
	md := "| 4 | Results | p. | 21 | 22 |\n| 5 | Summary | n/a | 30 |\n| 6 | Well logs | 1998 | 14 |"
	entries := ParseMarkdownTable(md, 0)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Page != outline.Exact(21) || entries[1].Page != outline.Exact(30) {
		t.Errorf("pages = %v, %v", entries[0].Page, entries[1].Page)
	}
	// The first integer cell is the page column even when it is out of range.
	if !entries[2].Page.IsUnknown() {
		t.Errorf("6 page = %v, want unknown", entries[2].Page)
	}
}

func TestParseMarkdownTable_NoTable(t *testing.T) {
	if got := ParseMarkdownTable("no tables here\njust text", 0); len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}

type fakeRenderer struct {
	first, last int
	err         error
}

func (f *fakeRenderer) SubDocument(ctx context.Context, path string, first, last int) ([]byte, error) {
	f.first, f.last = first, last
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-sub"), nil
}

func TestExtract(t *testing.T) {
	doc := &outline.Document{ID: "r", Path: "r.pdf", TotalPages: 40}

	t.Run("renders two pages and parses", func(t *testing.T) {
		conv := providers.NewMockVisionProvider(tableMarkdown)
		rend := &fakeRenderer{}
		x := New(conv, nil)
		x.Renderer = rend

		res, err := x.Extract(context.Background(), doc, 2)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if rend.first != 2 || rend.last != 3 {
			t.Errorf("rendered pages %d-%d, want 2-3", rend.first, rend.last)
		}
		if string(conv.LastDocument()) != "%PDF-sub" {
			t.Errorf("converter got %q", conv.LastDocument())
		}
		if res.Method != outline.MethodVision || len(res.Entries) != 5 {
			t.Errorf("result = %s with %d entries", res.Method, len(res.Entries))
		}
		if res.Confidence != 0.6 {
			t.Errorf("Confidence = %v, want 0.6", res.Confidence)
		}
	})

	t.Run("last page is clamped", func(t *testing.T) {
		rend := &fakeRenderer{}
		x := New(providers.NewMockVisionProvider(""), nil)
		x.Renderer = rend

		if _, err := x.Extract(context.Background(), doc, 40); err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if rend.first != 40 || rend.last != 40 {
			t.Errorf("rendered pages %d-%d, want 40-40", rend.first, rend.last)
		}
	})

	t.Run("render failure", func(t *testing.T) {
		x := New(providers.NewMockVisionProvider(""), nil)
		x.Renderer = &fakeRenderer{err: errors.New("encrypted")}
		if _, err := x.Extract(context.Background(), doc, 1); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		conv := providers.NewMockVisionProvider(tableMarkdown)
		conv.Latency = time.Second
		x := New(conv, nil)
		x.Renderer = &fakeRenderer{}
		x.Timeout = 10 * time.Millisecond

		_, err := x.Extract(context.Background(), doc, 1)
		if !errors.Is(err, outline.ErrTierTimeout) {
			t.Errorf("error = %v, want ErrTierTimeout", err)
		}
	})

	t.Run("no converter", func(t *testing.T) {
		x := &Extractor{Renderer: &fakeRenderer{}}
		if _, err := x.Extract(context.Background(), doc, 1); err == nil {
			t.Error("expected error")
		}
	})
}
