package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/folio/internal/outline"
)

func sampleDoc() *outline.Document {
	doc := outline.NewDocument("", "/data/W-1/report.pdf", 1024)
	doc.TotalPages = 20
	doc.Accept(outline.ExtractionResult{
		Method:     outline.MethodSingleLineDotted,
		Confidence: 0.5,
		Entries: []outline.TOCEntry{
			outline.NewEntry("1", "Introduction", outline.Exact(3)),
			outline.NewEntry("1.1", "Scope", outline.Range(3, 4)),
		},
	})
	return doc
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"yaml", OutputFormatYAML, false},
		{"YML", OutputFormatYAML, false},
		{"", OutputFormatYAML, false},
		{"json", OutputFormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutputTo(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatJSON, sampleDoc()); err != nil {
			t.Fatal(err)
		}
		var back outline.Document
		if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(back.Entries) != 2 || !back.Entries[1].Page.IsRange() {
			t.Errorf("entries = %+v", back.Entries)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatYAML, sampleDoc()); err != nil {
			t.Fatal(err)
		}
		var back outline.Document
		if err := yaml.Unmarshal(buf.Bytes(), &back); err != nil {
			t.Fatalf("invalid yaml: %v", err)
		}
		if back.Method != outline.MethodSingleLineDotted || back.Entries[0].Page != outline.Exact(3) {
			t.Errorf("round trip = %+v", back)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := OutputTo(&bytes.Buffer{}, "xml", 1); err == nil {
			t.Error("expected error")
		}
	})
}

func TestBatchSummary(t *testing.T) {
	s := NewBatchSummary()

	low := sampleDoc()
	low.LowConfidence = true
	s.Add("a.pdf", sampleDoc(), nil)
	s.Add("b.pdf", low, nil)

	none := outline.NewDocument("", "c.pdf", 1)
	none.MarkNoOutline()
	s.Add("c.pdf", none, nil)
	s.Add("d.pdf", nil, nil)
	s.Add("e.pdf", nil, errors.New("broken xref"))
	s.Duration = 1500 * time.Millisecond

	if s.Total != 5 || s.WithOutline != 2 || s.NoOutline != 1 || s.Skipped != 1 || s.Failed != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.LowConfidence != 1 {
		t.Errorf("LowConfidence = %d, want 1", s.LowConfidence)
	}
	if s.Methods[outline.MethodSingleLineDotted] != 2 {
		t.Errorf("methods = %v", s.Methods)
	}

	var buf bytes.Buffer
	FormatBatchSummary(&buf, s)
	out := buf.String()
	for _, want := range []string{"Batch Complete", "single_line_dotted=2", "e.pdf: broken xref", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}
