package outline

// Confidence returns the share of entries with an exact page.
func Confidence(entries []TOCEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	exact := 0
	for _, e := range entries {
		if e.Page.IsExact() {
			exact++
		}
	}
	return float64(exact) / float64(len(entries))
}

// Summary counts entries by page variant.
type Summary struct {
	Total   int `json:"total" yaml:"total"`
	Exact   int `json:"exact" yaml:"exact"`
	Range   int `json:"range" yaml:"range"`
	Unknown int `json:"unknown" yaml:"unknown"`
}

// Summarize counts entries by page variant.
func Summarize(entries []TOCEntry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.Page.Kind {
		case PageExact:
			s.Exact++
		case PageRange:
			s.Range++
		default:
			s.Unknown++
		}
	}
	return s
}
