package outline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PageKind identifies which variant a Page holds.
type PageKind int

const (
	PageUnknown PageKind = iota
	PageExact
	PageRange
)

// Page is the page assignment of a TOC entry: an exact page, an inclusive
// range of candidate pages, or unknown.
//
// Serialized form: Exact is an integer, Range is the string "lo-hi",
// Unknown is 0.
type Page struct {
	Kind PageKind
	Lo   int
	Hi   int
}

// Exact returns an exact page. Non-positive values yield Unknown.
func Exact(n int) Page {
	if n <= 0 {
		return Unknown()
	}
	return Page{Kind: PageExact, Lo: n, Hi: n}
}

// Range returns an inclusive page range. An empty or non-positive range
// yields Unknown.
func Range(lo, hi int) Page {
	if lo <= 0 || hi < lo {
		return Unknown()
	}
	return Page{Kind: PageRange, Lo: lo, Hi: hi}
}

// Unknown returns a page with no usable information.
func Unknown() Page {
	return Page{}
}

// IsExact reports whether p is an exact page.
func (p Page) IsExact() bool { return p.Kind == PageExact }

// IsRange reports whether p is a range.
func (p Page) IsRange() bool { return p.Kind == PageRange }

// IsUnknown reports whether p carries no page information.
func (p Page) IsUnknown() bool { return p.Kind == PageUnknown }

// Value returns the exact page number, if any.
func (p Page) Value() (int, bool) {
	if p.Kind != PageExact {
		return 0, false
	}
	return p.Lo, true
}

// String renders the page in its serialized text form.
func (p Page) String() string {
	switch p.Kind {
	case PageExact:
		return strconv.Itoa(p.Lo)
	case PageRange:
		return fmt.Sprintf("%d-%d", p.Lo, p.Hi)
	default:
		return "0"
	}
}

// ParsePage parses the serialized text form of a page.
func ParsePage(s string) (Page, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return Unknown(), nil
	}
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		l, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return Page{}, fmt.Errorf("invalid page range %q: %w", s, err)
		}
		h, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return Page{}, fmt.Errorf("invalid page range %q: %w", s, err)
		}
		return Range(l, h), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Page{}, fmt.Errorf("invalid page %q: %w", s, err)
	}
	return Exact(n), nil
}

// MarshalJSON implements json.Marshaler.
func (p Page) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PageExact:
		return []byte(strconv.Itoa(p.Lo)), nil
	case PageRange:
		return json.Marshal(p.String())
	default:
		return []byte("0"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Page) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*p = Unknown()
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParsePage(s)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid page %s: %w", raw, err)
	}
	*p = Exact(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Page) MarshalYAML() (any, error) {
	switch p.Kind {
	case PageExact:
		return p.Lo, nil
	case PageRange:
		return p.String(), nil
	default:
		return 0, nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Page) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*p = Unknown()
		return nil
	}
	parsed, err := ParsePage(node.Value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
