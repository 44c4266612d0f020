package outline

import (
	"strconv"
	"strings"
)

// Provenance records how an entry's page value was produced.
type Provenance string

const (
	ProvenanceDirect     Provenance = "direct"
	ProvenanceDowngraded Provenance = "downgraded"
	ProvenanceRetried    Provenance = "retried"
)

// TOCEntry is one outline row.
type TOCEntry struct {
	Number     string     `json:"number" yaml:"number"`
	Title      string     `json:"title" yaml:"title"`
	Page       Page       `json:"page" yaml:"page"`
	Category   string     `json:"category,omitempty" yaml:"category,omitempty"`
	Provenance Provenance `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// NewEntry builds a direct entry.
func NewEntry(number, title string, page Page) TOCEntry {
	return TOCEntry{
		Number:     strings.TrimSpace(number),
		Title:      CleanTitle(title),
		Page:       page,
		Provenance: ProvenanceDirect,
	}
}

// IsNumeric reports whether the number is a dotted numeric token like "2.1".
func (e TOCEntry) IsNumeric() bool {
	_, ok := numericParts(e.Number)
	return ok
}

// IsMain reports whether the entry is a main (non-dotted numeric) section.
func (e TOCEntry) IsMain() bool {
	parts, ok := numericParts(e.Number)
	return ok && len(parts) == 1
}

// IsSubsection reports whether the entry is a dotted numeric subsection.
func (e TOCEntry) IsSubsection() bool {
	parts, ok := numericParts(e.Number)
	return ok && len(parts) > 1
}

// Depth returns the hierarchy depth of a numeric entry (1 for main sections).
// Textual numbers report depth 1.
func (e TOCEntry) Depth() int {
	parts, ok := numericParts(e.Number)
	if !ok {
		return 1
	}
	return len(parts)
}

// MainNumber returns the main section number the entry belongs to.
func (e TOCEntry) MainNumber() (int, bool) {
	parts, ok := numericParts(e.Number)
	if !ok {
		return 0, false
	}
	return parts[0], true
}

// NumberParts returns the numeric components of the entry number.
func (e TOCEntry) NumberParts() ([]int, bool) {
	return numericParts(e.Number)
}

func numericParts(number string) ([]int, bool) {
	number = strings.TrimSuffix(strings.TrimSpace(number), ".")
	if number == "" {
		return nil, false
	}
	fields := strings.Split(number, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			return nil, false
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, false
		}
		parts = append(parts, n)
	}
	return parts, true
}

// CleanTitle collapses whitespace and strips dot leaders and separators
// left over from layout extraction.
func CleanTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	title = strings.TrimRight(title, ". …·-–_|")
	title = strings.TrimLeft(title, ". -–:|")
	return strings.TrimSpace(title)
}

// CloneEntries returns a copy of entries that can be mutated independently.
func CloneEntries(entries []TOCEntry) []TOCEntry {
	if entries == nil {
		return nil
	}
	out := make([]TOCEntry, len(entries))
	copy(out, entries)
	return out
}
