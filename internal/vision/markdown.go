package vision

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackzampolin/folio/internal/outline"
)

var separatorCellRe = regexp.MustCompile(`^:?-{2,}:?$`)

// ParseMarkdownTable reads outline entries from the pipe tables in md.
// Column 0 is the number and column 1 the title; the page is the first later
// cell holding an integer, left Unknown when that integer is not below
// ceiling. Header rows, separator rows and rows
// without a number are skipped.
func ParseMarkdownTable(md string, ceiling int) []outline.TOCEntry {
	if ceiling <= 0 {
		ceiling = outline.PageCeiling
	}

	var rows [][]string
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			// A blank or prose line ends the current table.
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, splitRow(line))
	}

	var entries []outline.TOCEntry
	for i, cells := range rows {
		if cells == nil || isSeparator(cells) {
			continue
		}
		if i+1 < len(rows) && rows[i+1] != nil && isSeparator(rows[i+1]) {
			continue // header
		}
		if len(cells) < 2 {
			continue
		}
		number := strings.TrimSuffix(cells[0], ".")
		if number == "" {
			continue
		}
		page := outline.Unknown()
		for _, c := range cells[2:] {
			n, err := strconv.Atoi(c)
			if err != nil {
				continue
			}
			if n >= 1 && n < ceiling {
				page = outline.Exact(n)
			}
			break
		}
		entries = append(entries, outline.NewEntry(number, cells[1], page))
	}
	return entries
}

func splitRow(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(p), "*"))
	}
	return cells
}

func isSeparator(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !separatorCellRe.MatchString(strings.ReplaceAll(c, " ", "")) {
			return false
		}
	}
	return true
}
