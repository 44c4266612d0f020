// Package scramble reconstructs outlines from OCR text whose layout is too
// disordered for the structural parsers, using a generative text model.
package scramble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/providers"
)

// Reconstructor asks an LLM to rebuild an outline block.
type Reconstructor struct {
	LLM         providers.LLMClient
	Model       string // Optional; the client default is used when empty
	Timeout     time.Duration
	MinEntries  int
	PageCeiling int
	Logger      *slog.Logger

	schema *jsonschema.Schema
}

// New creates a Reconstructor with default thresholds.
func New(llm providers.LLMClient, model string, logger *slog.Logger) (*Reconstructor, error) {
	schema, err := providers.CompileSchema(json.RawMessage(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("scramble: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{
		LLM:         llm,
		Model:       model,
		Timeout:     outline.TierTimeout,
		MinEntries:  outline.MinEntries,
		PageCeiling: outline.PageCeiling,
		Logger:      logger,
		schema:      schema,
	}, nil
}

// Reconstruct sends the block to the model and parses its reply. When any
// entry lacks a page, the whole result is returned structure-only with every
// page Unknown.
func (r *Reconstructor) Reconstruct(ctx context.Context, block []string) (outline.ExtractionResult, error) {
	if r.LLM == nil {
		return outline.ExtractionResult{}, errors.New("scramble: no LLM client configured")
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	res, err := r.LLM.Chat(ctx, &providers.ChatRequest{
		Model: r.Model,
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildUserPrompt(block)},
		},
		Temperature: 0,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return outline.ExtractionResult{}, fmt.Errorf("scramble: %w", outline.ErrTierTimeout)
		}
		return outline.ExtractionResult{}, fmt.Errorf("scramble: %w", err)
	}

	entries, dropped := r.Parse(res.Content)
	if dropped > 0 {
		r.logger().Debug("dropped invalid scramble records", "dropped", dropped, "kept", len(entries))
	}
	return r.result(entries)
}

func (r *Reconstructor) result(entries []outline.TOCEntry) (outline.ExtractionResult, error) {
	need := r.MinEntries
	if need <= 0 {
		need = outline.MinEntries
	}
	if len(entries) < need {
		return outline.ExtractionResult{}, fmt.Errorf("scramble: %d entries: %w", len(entries), outline.ErrTooFewEntries)
	}

	method := outline.MethodScramble
	for _, e := range entries {
		if e.Page.IsUnknown() {
			method = outline.MethodScrambleStructureOnly
			break
		}
	}
	if method == outline.MethodScrambleStructureOnly {
		for i := range entries {
			entries[i].Page = outline.Unknown()
		}
	}
	return outline.ExtractionResult{
		Entries:    entries,
		Method:     method,
		Confidence: outline.Confidence(entries),
	}, nil
}

func (r *Reconstructor) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

var (
	fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	lineRe   = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)*|appendix\s+\w+)\.?\s+(.+?)\s+[-–—]\s+page\s+(\S+)\s*$`)
)

// Parse extracts entries from a model reply. It tries, in order, the first
// JSON array found in the reply (bare, fenced or after leading prose), the
// body of any fenced block, and finally lines of the form
// "N. Title - page P". Records failing the schema are dropped and counted.
func (r *Reconstructor) Parse(content string) (entries []outline.TOCEntry, dropped int) {
	if raw, err := providers.ParseStructuredJSON(content); err == nil {
		if items, ok := jsonArray(string(raw)); ok {
			return r.fromItems(items)
		}
	}
	if m := fencedRe.FindStringSubmatch(content); m != nil {
		if items, ok := jsonArray(m[1]); ok {
			return r.fromItems(items)
		}
	}
	return r.fromLines(content), 0
}

func jsonArray(s string) ([]any, bool) {
	s = strings.TrimSpace(s)
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err == nil {
		return items, true
	}
	var wrapped struct {
		Entries []any `json:"entries"`
	}
	if err := json.Unmarshal([]byte(s), &wrapped); err == nil && wrapped.Entries != nil {
		return wrapped.Entries, true
	}
	return nil, false
}

func (r *Reconstructor) fromItems(items []any) ([]outline.TOCEntry, int) {
	var entries []outline.TOCEntry
	dropped := 0
	for _, item := range items {
		if r.schema != nil {
			if err := r.schema.Validate(item); err != nil {
				dropped++
				continue
			}
		}
		m, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		number := numberString(m["number"])
		title := outline.CleanTitle(fmt.Sprint(m["title"]))
		if number == "" || title == "" {
			dropped++
			continue
		}
		entries = append(entries, outline.NewEntry(number, title, r.page(m["page"])))
	}
	return entries, dropped
}

func (r *Reconstructor) fromLines(content string) []outline.TOCEntry {
	var entries []outline.TOCEntry
	for _, line := range strings.Split(content, "\n") {
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, outline.NewEntry(m[1], m[2], r.page(m[3])))
	}
	return entries
}

func numberString(v any) string {
	switch n := v.(type) {
	case string:
		return strings.TrimSuffix(strings.TrimSpace(n), ".")
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return ""
	}
}

func (r *Reconstructor) page(v any) outline.Page {
	ceiling := r.PageCeiling
	if ceiling <= 0 {
		ceiling = outline.PageCeiling
	}
	var n int
	switch p := v.(type) {
	case float64:
		if p != float64(int(p)) {
			return outline.Unknown()
		}
		n = int(p)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return outline.Unknown()
		}
		n = parsed
	default:
		return outline.Unknown()
	}
	if n < 1 || n >= ceiling {
		return outline.Unknown()
	}
	return outline.Exact(n)
}
