// Package patterns holds the pure layout parsers that turn a bounded block
// of outline text into TOC entries, and the ordered cascade that runs them.
package patterns

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackzampolin/folio/internal/outline"
)

// Parser turns outline lines into entries. Implementations are pure: the
// same lines always give the same entries.
type Parser interface {
	Name() string
	Parse(lines []string) []outline.TOCEntry
}

// Cascade runs parsers in priority order and keeps the first output that
// reaches MinEntries.
type Cascade struct {
	Parsers    []Parser
	MinEntries int
}

// NewCascade returns the standard parser order: tabular, multi-line dotted,
// single-line dotted, single-line spaced.
func NewCascade(pageCeiling int) *Cascade {
	if pageCeiling <= 0 {
		pageCeiling = outline.PageCeiling
	}
	return &Cascade{
		Parsers: []Parser{
			TabularAdaptive{PageCeiling: pageCeiling},
			MultilineDotted{PageCeiling: pageCeiling},
			SingleLineDotted{PageCeiling: pageCeiling},
			SingleLineSpaced{PageCeiling: pageCeiling},
		},
		MinEntries: outline.MinEntries,
	}
}

// Extract returns the winning parser's entries and name. When no parser
// reaches the threshold, the largest under-threshold output is returned so
// callers can record it; acceptance is the caller's decision.
func (c *Cascade) Extract(lines []string) ([]outline.TOCEntry, string) {
	minEntries := c.MinEntries
	if minEntries <= 0 {
		minEntries = outline.MinEntries
	}
	var best []outline.TOCEntry
	bestName := ""
	for _, p := range c.Parsers {
		entries := p.Parse(lines)
		if len(entries) >= minEntries {
			return entries, p.Name()
		}
		if len(entries) > len(best) {
			best, bestName = entries, p.Name()
		}
	}
	return best, bestName
}

var (
	sectionNumberRe = regexp.MustCompile(`^\d+(?:\.\d+)*\.?$`)
	appendixRe      = regexp.MustCompile(`^([A-Za-z][A-Za-z01|!]{3,10})[\s.:\-]*(\d{1,2}|[A-Z])$`)

	// numberToken matches the number at the start of a line: a dotted
	// numeric token or a word followed by an ordinal, checked later by
	// NormalizeNumber.
	numberToken = `(\d+(?:\.\d+)*\.?|[A-Za-z][A-Za-z01|!]{3,10}\s+(?:\d{1,2}|[A-Z]))`

	leaderSuffixRe = regexp.MustCompile(`^(.*?)\s*(?:[.·_]\s?){2,}\s*(\d{1,4})\s*$`)
)

// NormalizeNumber returns the canonical form of a section-number token:
// dotted numbers lose their trailing dot and appendix forms, including
// OCR-garbled ones like "Appendlx 3" or "Apendix 2", become "Appendix N".
func NormalizeNumber(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if sectionNumberRe.MatchString(token) {
		return strings.TrimSuffix(token, "."), true
	}
	m := appendixRe.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	word := strings.NewReplacer("1", "i", "|", "i", "!", "i", "0", "o").Replace(strings.ToLower(m[1]))
	if levenshtein(word, "appendix") > 2 {
		return "", false
	}
	return "Appendix " + strings.ToUpper(m[2]), true
}

// pageValue parses a bare page token, rejecting values at or above the
// ceiling.
func pageValue(token string, ceiling int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil || n <= 0 || n >= ceiling {
		return 0, false
	}
	return n, true
}

// pageOrUnknown returns an exact page for valid tokens and Unknown for
// values past the ceiling.
func pageOrUnknown(token string, ceiling int) outline.Page {
	if n, ok := pageValue(token, ceiling); ok {
		return outline.Exact(n)
	}
	return outline.Unknown()
}

// splitLeader splits "Title ....... 12" into its title and page token.
func splitLeader(s string) (title, page string, ok bool) {
	m := leaderSuffixRe.FindStringSubmatch(normalizeLeaders(s))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func normalizeLeaders(s string) string {
	return strings.NewReplacer("…", "...", "․", ".", "‧", ".").Replace(s)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
