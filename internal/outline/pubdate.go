package outline

import (
	"regexp"
	"strings"
	"time"
)

var (
	isoDateRe   = regexp.MustCompile(`\b((?:19|20)\d{2})-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])\b`)
	monthYearRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+((?:19|20)\d{2})\b`)
)

// DetectPublicationDate looks for the first ISO date or "Month YYYY" phrase
// in the front matter. Month-year matches resolve to the first of the month.
func DetectPublicationDate(lines []string) *time.Time {
	for _, line := range lines {
		if m := isoDateRe.FindString(line); m != "" {
			if t, err := time.Parse("2006-01-02", m); err == nil {
				return &t
			}
		}
		if m := monthYearRe.FindStringSubmatch(line); m != nil {
			month := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
			if t, err := time.Parse("January 2006", month+" "+m[2]); err == nil {
				return &t
			}
		}
	}
	return nil
}
