package normalize

import (
	"regexp"
	"strings"
	"time"
)

// Day-first layouts tried in order; ISO comes last so that "03/04/2024"
// resolves to April 3rd, not March 4th.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006-01-02",
	"02/01/06",
}

var yearPattern = regexp.MustCompile(`(19\d{2}|20\d{2})`)

// ParseDate parses a date cell day-first. The zero time plus false signals
// an unparseable cell.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// Values rendered with a time component keep only the date part.
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InferPeriodFromTitle extracts (year, monthNum) from a sheet or file title
// like "Vendas Março 2024" using the Portuguese month lexicon and a
// four-digit year. Either part may come back empty.
func InferPeriodFromTitle(title string) (year, monthNum string) {
	t := Fold(title)
	if t == "" {
		return "", ""
	}
	for _, num := range monthOrder {
		for _, name := range ptMonths[num] {
			if strings.Contains(t, name) {
				if m := yearPattern.FindString(t); m != "" {
					return m, num
				}
				return "", num
			}
		}
	}
	return yearPattern.FindString(t), ""
}
