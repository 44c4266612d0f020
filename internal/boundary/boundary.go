// Package boundary finds the line range of a document's outline within the
// linearized text of its front matter.
package boundary

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jackzampolin/folio/internal/outline"
)

// Keywords are outline headings in the languages reports commonly arrive in.
// Longer phrases come first so alternation prefers them.
var Keywords = []string{
	"table of contents",
	"table des matières",
	"table des matieres",
	"inhaltsverzeichnis",
	"inhoudsopgave",
	"indice generale",
	"índice general",
	"contents",
	"sommaire",
	"inhalt",
	"inhoud",
	"contenido",
	"contenidos",
	"sumário",
	"sumario",
	"conteúdo",
	"índice",
	"indice",
	"index",
}

var (
	keywordRe = buildKeywordRe(Keywords)

	// numberedLineRe matches a line opening with a plausible section token
	// followed by a title.
	numberedLineRe = regexp.MustCompile(`^\s*(?:\d{1,2}(?:\.\d{1,3})*\.?|(?i:appendix)\s+\d{1,2})\s+\S*\p{L}`)

	bareNumberRe   = regexp.MustCompile(`^\s*\d{1,2}(?:\.\d{1,3})*\.?\s*$`)
	trailingPageRe = regexp.MustCompile(`\d{1,3}\s*$`)
	dotLeaderRe    = regexp.MustCompile(`(?:\.\s?){3,}|…`)
)

func buildKeywordRe(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`)
}

// maxKeywordWords bounds the length of a line accepted as an outline
// heading, so prose that mentions "contents" is not taken for one.
const maxKeywordWords = 8

// HasKeyword reports whether the line contains an outline keyword as a
// whole word.
func HasKeyword(line string) bool {
	return keywordRe.MatchString(line)
}

// IsNumberedLine reports whether the line starts with a section-number token.
func IsNumberedLine(line string) bool {
	return numberedLineRe.MatchString(line)
}

// Locate returns the outline's [start, end) line range, or (-1, -1) when no
// outline can be found.
func Locate(lines []string) (start, end int) {
	start = findKeyword(lines)
	if start < 0 {
		start = findNumberedWindow(lines)
	}
	if start < 0 {
		return -1, -1
	}
	return start, findEnd(lines, start)
}

func findKeyword(lines []string) int {
	limit := min(len(lines), outline.BoundaryScanLines)
	for i := 0; i < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || len(strings.Fields(line)) > maxKeywordWords {
			continue
		}
		if HasKeyword(line) {
			return i
		}
	}
	return -1
}

// findNumberedWindow counts bare section numbers too, since multiline
// layouts put the number and the title on separate lines.
func findNumberedWindow(lines []string) int {
	limit := min(len(lines), outline.BoundaryScanLines)
	for i := 0; i+outline.BoundaryWindow <= limit; i++ {
		hits := 0
		first := -1
		for j := i; j < i+outline.BoundaryWindow; j++ {
			if IsNumberedLine(lines[j]) || bareNumberRe.MatchString(lines[j]) {
				hits++
				if first < 0 {
					first = j
				}
			}
		}
		if hits >= outline.BoundaryWindowHits {
			return first
		}
	}
	return -1
}

func findEnd(lines []string, start int) int {
	limit := min(len(lines), start+outline.BoundaryScanLines)
	for i := start + 1; i < limit; i++ {
		if isSectionHeading(lines[i]) && !isSplitRow(lines, i) {
			return i
		}
	}
	return limit
}

// isSplitRow reports whether line i is the title part of a row split across
// lines: preceded by a bare section number or followed by a dot leader.
func isSplitRow(lines []string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		if strings.TrimSpace(lines[j]) == "" {
			continue
		}
		if bareNumberRe.MatchString(lines[j]) {
			return true
		}
		break
	}
	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == "" {
			continue
		}
		return dotLeaderRe.MatchString(lines[j])
	}
	return false
}

// isSectionHeading reports whether a line looks like a heading that opens
// new, non-outline content: an all-caps line with no digits, no dot leaders,
// no column delimiters and no outline keyword.
func isSectionHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || HasKeyword(line) {
		return false
	}
	if IsNumberedLine(line) || trailingPageRe.MatchString(line) || dotLeaderRe.MatchString(line) {
		return false
	}
	if strings.ContainsAny(line, "|\t│┃") {
		return false
	}
	letters := 0
	for _, r := range line {
		switch {
		case unicode.IsDigit(r):
			return false
		case unicode.IsLetter(r):
			if unicode.IsLower(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 4
}

// Block returns lines[start:end], or nil for a missing boundary.
func Block(lines []string, start, end int) []string {
	if start < 0 || end <= start || start >= len(lines) {
		return nil
	}
	return lines[start:min(end, len(lines))]
}

// Linearize flattens page-indexed text into lines, keeping the mapping back
// to pages available through PageOf.
func Linearize(pages []string) (lines []string, pageLines [][]string) {
	pageLines = make([][]string, len(pages))
	for i, p := range pages {
		pageLines[i] = strings.Split(strings.ReplaceAll(p, "\r\n", "\n"), "\n")
		lines = append(lines, pageLines[i]...)
	}
	return lines, pageLines
}

// PageOf maps a line index in the linearized text back to a 1-based page
// number. Returns 0 for an index outside the text.
func PageOf(pageLines [][]string, idx int) int {
	if idx < 0 {
		return 0
	}
	offset := 0
	for i, p := range pageLines {
		if idx < offset+len(p) {
			return i + 1
		}
		offset += len(p)
	}
	return 0
}
