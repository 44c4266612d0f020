// Package category assigns report categories to outline entries by keyword.
package category

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jackzampolin/folio/internal/outline"
)

// Table maps a category name to its keywords.
type Table map[string][]string

// DefaultTable covers the sections of a typical well completion report.
func DefaultTable() Table {
	return Table{
		"introduction": {"introduction", "summary", "abstract", "executive summary"},
		"geology":      {"geology", "geological", "stratigraphy", "lithology", "formation tops"},
		"drilling":     {"drilling", "casing", "cementing", "bit record", "mud"},
		"logging":      {"wireline", "logging", "log", "logs", "petrophysics"},
		"testing":      {"testing", "dst", "pressure", "fluid sampling"},
		"completion":   {"completion", "abandonment", "plug"},
		"appendix":     {"appendix", "enclosure", "attachment"},
	}
}

type rule struct {
	category string
	re       *regexp.Regexp
}

// Lookup classifies entries. It is read-only after construction and safe
// for concurrent use.
type Lookup struct {
	rules []rule
	wells map[string][]rule
}

// New builds a lookup from a default table and optional per-well tables.
// Well tables are consulted before the default table. Well ids match
// case-insensitively.
func New(table Table, wells map[string]Table) *Lookup {
	l := &Lookup{rules: compile(table), wells: make(map[string][]rule, len(wells))}
	for id, t := range wells {
		l.wells[strings.ToLower(id)] = compile(t)
	}
	return l
}

func compile(t Table) []rule {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	var rules []rule
	for _, name := range names {
		var words []string
		for _, w := range t[name] {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, regexp.QuoteMeta(strings.ToLower(w)))
			}
		}
		if len(words) == 0 {
			continue
		}
		// Longer keywords first so "executive summary" wins over "summary".
		sort.SliceStable(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
		rules = append(rules, rule{
			category: name,
			re:       regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(?:` + strings.Join(words, "|") + `)(?:$|[^\pL\pN])`),
		})
	}
	return rules
}

// Classify returns the category for an entry of the given well, matching
// keywords against the number and title.
func (l *Lookup) Classify(wellID, number, title string) (string, bool) {
	if l == nil {
		return "", false
	}
	text := strings.TrimSpace(number + " " + title)
	if rules, ok := l.wells[strings.ToLower(wellID)]; ok {
		if c, ok := match(rules, text); ok {
			return c, true
		}
	}
	return match(l.rules, text)
}

func match(rules []rule, text string) (string, bool) {
	for _, r := range rules {
		if r.re.MatchString(text) {
			return r.category, true
		}
	}
	return "", false
}

// Apply sets the category of every entry that matches.
func (l *Lookup) Apply(wellID string, entries []outline.TOCEntry) {
	for i := range entries {
		if c, ok := l.Classify(wellID, entries[i].Number, entries[i].Title); ok {
			entries[i].Category = c
		}
	}
}
