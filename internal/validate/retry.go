package validate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/providers"
)

const retrySystemPrompt = `You correct page numbers in a document's table of contents.
You are given the outline text, one entry whose page is wrong, and the page
interval the entry must fall in. Reply with the corrected page number only.
If the outline text does not support any page in the interval, reply NONE.`

var replyIntRe = regexp.MustCompile(`\b(\d{1,4})\b`)

// LLMRetrier asks a generative text model for a corrected page inside the
// interval implied by the entry's parent section.
type LLMRetrier struct {
	Client providers.LLMClient
	Model  string
	Source []string
}

// NewLLMRetrier creates a retrier over client.
func NewLLMRetrier(client providers.LLMClient, model string) *LLMRetrier {
	return &LLMRetrier{Client: client, Model: model}
}

// WithSource implements SourceRetrier.
func (r *LLMRetrier) WithSource(lines []string) Retrier {
	cp := *r
	cp.Source = lines
	return &cp
}

// Retry implements Retrier.
func (r *LLMRetrier) Retry(ctx context.Context, entry outline.TOCEntry, lo, hi int) (int, bool, error) {
	if r.Client == nil {
		return 0, false, fmt.Errorf("retrier has no client")
	}
	req := &providers.ChatRequest{
		Model:       r.Model,
		Temperature: 0,
		MaxTokens:   16,
		Messages: []providers.Message{
			{Role: "system", Content: retrySystemPrompt},
			{Role: "user", Content: r.prompt(entry, lo, hi)},
		},
	}
	res, err := r.Client.Chat(ctx, req)
	if err != nil {
		return 0, false, fmt.Errorf("constrained retry for %s: %w", entry.Number, err)
	}
	page, ok := ParseRetryReply(res.Content)
	return page, ok, nil
}

func (r *LLMRetrier) prompt(entry outline.TOCEntry, lo, hi int) string {
	var b strings.Builder
	if len(r.Source) > 0 {
		b.WriteString("Outline text:\n")
		b.WriteString(strings.Join(r.Source, "\n"))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Entry: %s %s\n", entry.Number, entry.Title)
	fmt.Fprintf(&b, "Extracted page: %s\n", entry.Page)
	fmt.Fprintf(&b, "The page must be between %d and %d inclusive.\n", lo, hi)
	return b.String()
}

// ParseRetryReply extracts the first integer from a model reply.
func ParseRetryReply(reply string) (int, bool) {
	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, "none") {
		return 0, false
	}
	m := replyIntRe.FindStringSubmatch(reply)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

var _ SourceRetrier = (*LLMRetrier)(nil)
