package patterns

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jackzampolin/folio/internal/outline"
)

// TabularMinLines is how many delimited lines mark a block as tabular.
const TabularMinLines = 3

var cellDelimRe = regexp.MustCompile(`[|\t│┃]`)

// IsTabular reports whether the block is laid out as a table: at least
// TabularMinLines lines carry a column delimiter, or every non-blank line
// does.
func IsTabular(lines []string) bool {
	delimited, nonBlank := 0, 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		nonBlank++
		if cellDelimRe.MatchString(l) {
			delimited++
		}
	}
	return delimited >= TabularMinLines || (nonBlank > 0 && delimited == nonBlank)
}

// TabularAdaptive parses delimited rows by classifying each cell as number,
// page or title regardless of its column.
type TabularAdaptive struct {
	PageCeiling int
}

// Name implements Parser.
func (TabularAdaptive) Name() string { return outline.MethodTabularAdaptive }

// Parse implements Parser. Non-tabular blocks yield no entries.
func (p TabularAdaptive) Parse(lines []string) []outline.TOCEntry {
	if !IsTabular(lines) {
		return nil
	}
	ceiling := p.PageCeiling
	if ceiling <= 0 {
		ceiling = outline.PageCeiling
	}
	var entries []outline.TOCEntry
	for _, line := range lines {
		if !cellDelimRe.MatchString(line) {
			continue
		}
		if e, ok := parseRow(splitCells(line), ceiling); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func splitCells(line string) []string {
	raw := cellDelimRe.Split(line, -1)
	cells := make([]string, 0, len(raw))
	for _, c := range raw {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

func parseRow(cells []string, ceiling int) (outline.TOCEntry, bool) {
	var number, title string
	page := outline.Unknown()
	havePage := false

	for _, cell := range cells {
		if isSeparatorCell(cell) {
			continue
		}
		if number == "" && title == "" {
			if n, ok := NormalizeNumber(cell); ok {
				number = n
				continue
			}
		}
		if !havePage && number != "" {
			if n, ok := pageValue(cell, ceiling); ok {
				page, havePage = outline.Exact(n), true
				continue
			}
		}
		if title == "" && hasLetter(cell) {
			if t, pg, ok := splitLeader(cell); ok {
				title = t
				if !havePage {
					page, havePage = pageOrUnknown(pg, ceiling), true
				}
				continue
			}
			// Number and title fused in one cell: "1.2 Scope".
			if number == "" {
				if n, rest, ok := splitLeadingNumber(cell); ok {
					number, title = n, rest
					continue
				}
			}
			title = cell
		}
	}

	if number == "" || outline.CleanTitle(title) == "" {
		return outline.TOCEntry{}, false
	}
	return outline.NewEntry(number, title, page), true
}

func splitLeadingNumber(cell string) (number, rest string, ok bool) {
	head, tail, found := strings.Cut(cell, " ")
	if !found {
		return "", "", false
	}
	n, ok := NormalizeNumber(head)
	if !ok || !sectionNumberRe.MatchString(head) {
		return "", "", false
	}
	return n, strings.TrimSpace(tail), true
}

func isSeparatorCell(cell string) bool {
	return strings.Trim(cell, "-:=+ ") == ""
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
