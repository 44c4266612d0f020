package patterns

import (
	"regexp"
	"strings"

	"github.com/jackzampolin/folio/internal/outline"
)

var (
	singleDottedRe = regexp.MustCompile(`^\s*` + numberToken + `\s+(.+?)\s*(?:[.·_]\s?){2,}\s*(\d{1,4})\s*$`)
	bareNumberRe   = regexp.MustCompile(`^\s*` + numberToken + `\s*$`)
)

// SingleLineDotted parses "number title ......... page" rows.
type SingleLineDotted struct {
	PageCeiling int
}

// Name implements Parser.
func (SingleLineDotted) Name() string { return outline.MethodSingleLineDotted }

// Parse implements Parser.
func (p SingleLineDotted) Parse(lines []string) []outline.TOCEntry {
	ceiling := ceilingOrDefault(p.PageCeiling)
	var entries []outline.TOCEntry
	for _, line := range lines {
		m := singleDottedRe.FindStringSubmatch(normalizeLeaders(line))
		if m == nil {
			continue
		}
		number, ok := NormalizeNumber(m[1])
		if !ok {
			continue
		}
		e := outline.NewEntry(number, m[2], pageOrUnknown(m[3], ceiling))
		if e.Title == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// MultilineDotted parses layouts where the number sits on its own line and
// the title, dot leader and page follow within the next few non-blank lines.
type MultilineDotted struct {
	PageCeiling int
}

// Name implements Parser.
func (MultilineDotted) Name() string { return outline.MethodMultilineDotted }

// Parse implements Parser.
func (p MultilineDotted) Parse(lines []string) []outline.TOCEntry {
	ceiling := ceilingOrDefault(p.PageCeiling)
	var entries []outline.TOCEntry
	for i := 0; i < len(lines); i++ {
		m := bareNumberRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		number, ok := NormalizeNumber(m[1])
		if !ok {
			continue
		}
		e, next, ok := p.collect(lines, i+1, number, ceiling)
		if !ok {
			continue
		}
		entries = append(entries, e)
		i = next - 1
	}
	return entries
}

// collect gathers title lines after a number until a dot-leader line
// closes the row. It gives up at the next bare number or after
// MultilineLookahead non-blank lines.
func (p MultilineDotted) collect(lines []string, from int, number string, ceiling int) (outline.TOCEntry, int, bool) {
	var title []string
	seen := 0
	for j := from; j < len(lines) && seen < outline.MultilineLookahead; j++ {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			continue
		}
		seen++
		if m := singleDottedRe.FindStringSubmatch(normalizeLeaders(line)); m != nil {
			if _, ok := NormalizeNumber(m[1]); ok {
				return outline.TOCEntry{}, 0, false
			}
		}
		if bareNumberRe.MatchString(line) {
			if _, ok := NormalizeNumber(line); ok {
				return outline.TOCEntry{}, 0, false
			}
		}
		if t, pg, ok := splitLeader(line); ok {
			title = append(title, t)
			e := outline.NewEntry(number, strings.Join(title, " "), pageOrUnknown(pg, ceiling))
			if e.Title == "" {
				return outline.TOCEntry{}, 0, false
			}
			return e, j + 1, true
		}
		title = append(title, line)
	}
	return outline.TOCEntry{}, 0, false
}

func ceilingOrDefault(c int) int {
	if c <= 0 {
		return outline.PageCeiling
	}
	return c
}
