// Package validate repairs impossible page assignments in an extracted
// outline using the page bounds implied by its main sections.
//
// Three rules are checked for every entry carrying an exact page:
//
//	R1  1 <= page <= total
//	R2  a subsection's page is not before its parent section's page
//	R3  a subsection's page is before the next main section's page
//
// Violators are retried through an optional Retrier and otherwise
// downgraded to the page range their parent spans.
package validate

import (
	"context"
	"log/slog"
	"sort"

	"github.com/jackzampolin/folio/internal/outline"
)

// Retrier asks a backend for a corrected page inside [lo, hi].
type Retrier interface {
	Retry(ctx context.Context, entry outline.TOCEntry, lo, hi int) (page int, ok bool, err error)
}

// SourceRetrier is a Retrier that can be bound to the outline text the
// entries were extracted from.
type SourceRetrier interface {
	Retrier
	WithSource(lines []string) Retrier
}

// Report counts what a validation pass did.
type Report struct {
	Checked    int `json:"checked"`
	R1         int `json:"r1_violations"`
	R2         int `json:"r2_violations"`
	R3         int `json:"r3_violations"`
	Downgraded int `json:"downgraded"`
	Retried    int `json:"retried"`
	Unknown    int `json:"unknown"`
}

// Violations returns the total rule violations found.
func (r Report) Violations() int {
	return r.R1 + r.R2 + r.R3
}

// Validator applies the page rules to entry sets. The zero value validates
// without retries.
type Validator struct {
	Retrier Retrier
	Logger  *slog.Logger
}

// New creates a validator. retrier may be nil.
func New(retrier Retrier, logger *slog.Logger) *Validator {
	return &Validator{Retrier: retrier, Logger: logger}
}

// ForSource returns a copy whose retrier, if it accepts source text, is
// bound to lines.
func (v *Validator) ForSource(lines []string) *Validator {
	cp := *v
	if sr, ok := v.Retrier.(SourceRetrier); ok {
		cp.Retrier = sr.WithSource(lines)
	}
	return &cp
}

func (v *Validator) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.Default()
	}
	return v.Logger
}

// Validate returns a repaired copy of entries. The input is not modified.
// Validating an already validated set returns it unchanged.
func (v *Validator) Validate(ctx context.Context, entries []outline.TOCEntry, total int) ([]outline.TOCEntry, Report) {
	out := outline.CloneEntries(entries)
	var rep Report
	if total <= 0 {
		for i := range out {
			if !out[i].Page.IsUnknown() {
				out[i] = downgrade(out[i], outline.Unknown())
				rep.Downgraded++
			}
			rep.Unknown++
		}
		return out, rep
	}

	sections := BuildSectionMap(entries, total)
	for i := range out {
		rep.Checked++
		v.check(ctx, &out[i], sections, total, &rep)
		if out[i].Page.IsUnknown() {
			rep.Unknown++
		}
	}
	return out, rep
}

func (v *Validator) check(ctx context.Context, e *outline.TOCEntry, sections SectionMap, total int, rep *Report) {
	switch {
	case e.Page.IsUnknown():
		return
	case e.Page.IsRange():
		if clamped := clampRange(e.Page, total); clamped != e.Page {
			*e = downgrade(*e, clamped)
			rep.Downgraded++
		}
		return
	}

	page, _ := e.Page.Value()
	inBounds := page >= 1 && page <= total

	if !e.IsSubsection() {
		// Main sections and textual numbers are only checked against the
		// document bounds.
		if !inBounds {
			rep.R1++
			*e = downgrade(*e, outline.Unknown())
			rep.Downgraded++
		}
		return
	}

	parent, _ := e.MainNumber()
	parentPage, ok := sections.Page(parent)
	if !ok {
		// Without a parent page nothing can confirm the exact value.
		lo, hi := sections.Bracket(parent, total)
		if !inBounds {
			rep.R1++
		}
		*e = downgrade(*e, outline.Range(lo, hi))
		rep.Downgraded++
		return
	}

	nextPage, hasNext := sections.Next(parent)
	if !hasNext {
		// The last main section has no upper bound to check against.
		if !inBounds {
			rep.R1++
		} else if page < parentPage {
			rep.R2++
		}
		*e = downgrade(*e, outline.Range(parentPage, total))
		rep.Downgraded++
		return
	}

	hi := min(nextPage-1, total)
	r1, r2, r3 := !inBounds, page < parentPage, page >= nextPage
	if !r1 && !r2 && !r3 {
		return
	}
	if r1 {
		rep.R1++
	}
	if r2 {
		rep.R2++
	}
	if r3 {
		rep.R3++
	}

	if p, ok := v.retry(ctx, *e, parentPage, hi, total, nextPage); ok {
		e.Page = outline.Exact(p)
		e.Provenance = outline.ProvenanceRetried
		rep.Retried++
		return
	}
	*e = downgrade(*e, outline.Range(parentPage, hi))
	rep.Downgraded++
}

func (v *Validator) retry(ctx context.Context, e outline.TOCEntry, lo, hi, total, nextPage int) (int, bool) {
	if v.Retrier == nil || lo > hi {
		return 0, false
	}
	page, ok, err := v.Retrier.Retry(ctx, e, lo, hi)
	if err != nil {
		v.logger().Debug("constrained retry failed", "number", e.Number, "error", err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	if page < 1 || page > total || page < lo || page >= nextPage {
		v.logger().Debug("constrained retry rejected", "number", e.Number, "page", page, "lo", lo, "hi", hi)
		return 0, false
	}
	return page, true
}

func downgrade(e outline.TOCEntry, p outline.Page) outline.TOCEntry {
	e.Page = p
	e.Provenance = outline.ProvenanceDowngraded
	return e
}

func clampRange(p outline.Page, total int) outline.Page {
	lo, hi := max(p.Lo, 1), min(p.Hi, total)
	return outline.Range(lo, hi)
}

// SectionMap maps main section numbers to their exact pages.
type SectionMap struct {
	pages map[int]int
	keys  []int
}

// BuildSectionMap collects main numeric entries whose exact page lies
// inside [1, total]. The first occurrence of a number wins.
func BuildSectionMap(entries []outline.TOCEntry, total int) SectionMap {
	m := SectionMap{pages: make(map[int]int)}
	for _, e := range entries {
		if !e.IsMain() {
			continue
		}
		p, ok := e.Page.Value()
		if !ok || p < 1 || p > total {
			continue
		}
		n, _ := e.MainNumber()
		if _, seen := m.pages[n]; seen {
			continue
		}
		m.pages[n] = p
		m.keys = append(m.keys, n)
	}
	sort.Ints(m.keys)
	return m
}

// Len returns the number of main sections in the map.
func (m SectionMap) Len() int { return len(m.keys) }

// Page returns the page of main section n.
func (m SectionMap) Page(n int) (int, bool) {
	p, ok := m.pages[n]
	return p, ok
}

// Next returns the page of the smallest main section numbered above n.
func (m SectionMap) Next(n int) (int, bool) {
	i := sort.SearchInts(m.keys, n+1)
	if i >= len(m.keys) {
		return 0, false
	}
	return m.pages[m.keys[i]], true
}

// Bracket returns the page interval available to a section numbered n
// that is itself missing from the map: from the nearest smaller main
// section's page (or 1) up to the page before the nearest larger one (or
// total).
func (m SectionMap) Bracket(n, total int) (lo, hi int) {
	lo, hi = 1, total
	i := sort.SearchInts(m.keys, n)
	if i > 0 {
		lo = m.pages[m.keys[i-1]]
	}
	if j := sort.SearchInts(m.keys, n+1); j < len(m.keys) {
		hi = min(m.pages[m.keys[j]]-1, total)
	}
	return lo, hi
}
