package patterns

import (
	"reflect"
	"testing"

	"github.com/jackzampolin/folio/internal/outline"
)

func TestTabularAdaptive(t *testing.T) {
	t.Run("two row table", func(t *testing.T) {
		lines := []string{"| 1 | Intro | 3 |", "| 1.1 | Scope | 4 |"}
		entries, name := NewCascade(0).Extract(lines)
		if name != outline.MethodTabularAdaptive {
			t.Errorf("name = %q, want %q", name, outline.MethodTabularAdaptive)
		}
		if len(entries) != 2 {
			t.Fatalf("len(entries) = %d, want 2", len(entries))
		}
		want := []struct {
			number string
			title  string
			page   int
		}{{"1", "Intro", 3}, {"1.1", "Scope", 4}}
		for i, w := range want {
			if entries[i].Number != w.number || entries[i].Title != w.title {
				t.Errorf("entry %d = %+v, want %s %s", i, entries[i], w.number, w.title)
			}
			if p, ok := entries[i].Page.Value(); !ok || p != w.page {
				t.Errorf("entry %d page = %v, want %d", i, entries[i].Page, w.page)
			}
		}
	})

	t.Run("column independent cells", func(t *testing.T) {
		lines := []string{
			"| No. | Title | Page |",
			"|-----|-------|------|",
			"| 1 | Introduction | 3 |",
			"| Geology ....... 7 | 2 |",
			"| 3 | Results |",
			"| Appendlx 1 | Logs | 45 |",
			"| 4 | Costs | 1998 |",
		}
		entries := TabularAdaptive{}.Parse(lines)
		if len(entries) != 4 {
			t.Fatalf("len(entries) = %d, want 4: %+v", len(entries), entries)
		}
		if entries[0].Number != "1" || entries[0].Title != "Introduction" {
			t.Errorf("entry 0 = %+v", entries[0])
		}
		if !entries[1].Page.IsUnknown() || entries[1].Number != "3" {
			t.Errorf("entry without page = %+v", entries[1])
		}
		if entries[2].Number != "Appendix 1" || entries[2].Page != outline.Exact(45) {
			t.Errorf("appendix entry = %+v", entries[2])
		}
		if entries[3].Number != "4" || !entries[3].Page.IsUnknown() {
			t.Errorf("page past ceiling should be unknown: %+v", entries[3])
		}
	})

	t.Run("dot leader inside title cell", func(t *testing.T) {
		lines := []string{
			"1 | Introduction ........ 3",
			"2 | Geology ........ 7",
			"3 | Drilling ........ 12",
		}
		entries := TabularAdaptive{}.Parse(lines)
		if len(entries) != 3 {
			t.Fatalf("len(entries) = %d, want 3", len(entries))
		}
		if entries[1].Title != "Geology" || entries[1].Page != outline.Exact(7) {
			t.Errorf("entry 1 = %+v", entries[1])
		}
	})

	t.Run("plain text is not tabular", func(t *testing.T) {
		lines := []string{"1 Intro ..... 3", "2 Body ..... 5", "3 End ..... 9", "note | aside"}
		if got := (TabularAdaptive{}).Parse(lines); got != nil {
			t.Errorf("Parse() = %+v, want nil", got)
		}
	})
}

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2.1", "2.1", true},
		{"3.", "3", true},
		{"Appendix 1", "Appendix 1", true},
		{"APPENDIX 4", "Appendix 4", true},
		{"Apendix 2", "Appendix 2", true},
		{"Appendlx 3", "Appendix 3", true},
		{"Appendixx 5", "Appendix 5", true},
		{"Append1x B", "Appendix B", true},
		{"Chapter 1", "", false},
		{"Intro", "", false},
		{"1.a", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeNumber(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("NormalizeNumber(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMultilineDotted(t *testing.T) {
	lines := []string{
		"CONTENTS",
		"1",
		"Introduction and",
		"background ........ 3",
		"",
		"2",
		"Regional geology ........ 7",
		"2.1",
		"",
		"Stratigraphy ..... 8",
		"3",
		"Lost title with no leader",
	}
	entries := MultilineDotted{}.Parse(lines)
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3: %+v", len(entries), entries)
	}
	if entries[0].Title != "Introduction and background" || entries[0].Page != outline.Exact(3) {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[2].Number != "2.1" || entries[2].Page != outline.Exact(8) {
		t.Errorf("entry 2 = %+v", entries[2])
	}
}

func TestMultilineDottedLookahead(t *testing.T) {
	lines := []string{"1", "a", "b", "c", "d", "e", "Too far ..... 9"}
	if got := (MultilineDotted{}).Parse(lines); len(got) != 0 {
		t.Errorf("Parse() = %+v, want none past lookahead", got)
	}
}

func TestSingleLineDotted(t *testing.T) {
	lines := []string{
		"Table of Contents",
		"1 Introduction ............ 1",
		"1.1 Purpose . . . . . . . . 2",
		"2 Well history …… 5",
		"Appendix 1 Logs ......... 40",
		"Figure list",
	}
	entries := SingleLineDotted{}.Parse(lines)
	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4: %+v", len(entries), entries)
	}
	if entries[1].Number != "1.1" || entries[1].Title != "Purpose" || entries[1].Page != outline.Exact(2) {
		t.Errorf("entry 1 = %+v", entries[1])
	}
	if entries[2].Page != outline.Exact(5) {
		t.Errorf("ellipsis leader page = %v", entries[2].Page)
	}
	if entries[3].Number != "Appendix 1" || entries[3].Title != "Logs" {
		t.Errorf("appendix = %+v", entries[3])
	}
}

func TestSingleLineSpaced(t *testing.T) {
	lines := []string{
		"1   Introduction        1",
		"2   Drilling summary    4",
		"2.1 Bit record   6",
		"3 Results 9",
	}
	entries := SingleLineSpaced{}.Parse(lines)
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3: %+v", len(entries), entries)
	}
	if entries[1].Title != "Drilling summary" || entries[1].Page != outline.Exact(4) {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestCascade(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		lines := []string{
			"Contents",
			"1 Introduction ..... 3",
			"2 Geology ..... 5",
			"2.1 Structure ..... 6",
			"3 Drilling ..... 9",
		}
		c := NewCascade(0)
		e1, n1 := c.Extract(lines)
		e2, n2 := c.Extract(lines)
		if n1 != n2 || !reflect.DeepEqual(e1, e2) {
			t.Errorf("Extract() not idempotent: %s %v vs %s %v", n1, e1, n2, e2)
		}
		if n1 != outline.MethodSingleLineDotted {
			t.Errorf("name = %q, want %q", n1, outline.MethodSingleLineDotted)
		}
	})

	t.Run("higher priority parser is kept", func(t *testing.T) {
		first := stubParser{name: "first", n: 3}
		second := stubParser{name: "second", n: 10}
		c := &Cascade{Parsers: []Parser{first, second}, MinEntries: 3}
		entries, name := c.Extract(nil)
		if name != "first" || len(entries) != 3 {
			t.Errorf("Extract() = %d entries from %q, want 3 from first", len(entries), name)
		}
	})

	t.Run("best under threshold", func(t *testing.T) {
		c := &Cascade{Parsers: []Parser{stubParser{name: "a", n: 1}, stubParser{name: "b", n: 2}}, MinEntries: 3}
		entries, name := c.Extract(nil)
		if name != "b" || len(entries) != 2 {
			t.Errorf("Extract() = %d entries from %q, want 2 from b", len(entries), name)
		}
	})

	t.Run("nothing parses", func(t *testing.T) {
		entries, name := NewCascade(0).Extract([]string{"just prose", "more prose"})
		if len(entries) != 0 || name != "" {
			t.Errorf("Extract() = %v, %q", entries, name)
		}
	})
}

type stubParser struct {
	name string
	n    int
}

func (s stubParser) Name() string { return s.name }

func (s stubParser) Parse([]string) []outline.TOCEntry {
	out := make([]outline.TOCEntry, s.n)
	for i := range out {
		out[i] = outline.NewEntry("1", "x", outline.Exact(i+1))
	}
	return out
}
