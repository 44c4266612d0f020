package outline

// OrderViolation marks an entry whose number sorts before its predecessor.
type OrderViolation struct {
	Index    int
	Number   string
	Previous string
}

// OrderViolations reports numeric entries that break depth-first numbering
// order. Only a soft signal: nothing is reordered or dropped because of it.
func OrderViolations(entries []TOCEntry) []OrderViolation {
	var out []OrderViolation
	var prev []int
	prevNumber := ""
	for i, e := range entries {
		parts, ok := e.NumberParts()
		if !ok {
			continue
		}
		if prev != nil && compareParts(parts, prev) < 0 {
			out = append(out, OrderViolation{Index: i, Number: e.Number, Previous: prevNumber})
		}
		prev = parts
		prevNumber = e.Number
	}
	return out
}

// compareParts orders dotted numbers depth-first: 1 < 1.1 < 1.2 < 2.
func compareParts(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
