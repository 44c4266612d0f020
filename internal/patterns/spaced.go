package patterns

import (
	"regexp"

	"github.com/jackzampolin/folio/internal/outline"
)

var singleSpacedRe = regexp.MustCompile(`^\s*` + numberToken + `\s+(.+?)\s{3,}(\d{1,4})\s*$`)

// SingleLineSpaced parses "number title   page" rows where a run of three
// or more spaces separates the title from the page.
type SingleLineSpaced struct {
	PageCeiling int
}

// Name implements Parser.
func (SingleLineSpaced) Name() string { return outline.MethodSingleLineSpaced }

// Parse implements Parser.
func (p SingleLineSpaced) Parse(lines []string) []outline.TOCEntry {
	ceiling := ceilingOrDefault(p.PageCeiling)
	var entries []outline.TOCEntry
	for _, line := range lines {
		m := singleSpacedRe.FindStringSubmatch(line)
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
