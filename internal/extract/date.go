package extract

import (
	"regexp"
	"strconv"
	"time"
)

var (
	isoDatePattern      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	europeanDatePattern = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})\b`)
)

// ExtractDate returns the first calendar date found in text. ISO dates are
// tried first, then the European day-first convention (DD/MM/YYYY, DD-MM-YY,
// DD.MM.YYYY). Impossible dates such as 31/02 are skipped.
func ExtractDate(text string) (time.Time, bool) {
	for _, m := range isoDatePattern.FindAllStringSubmatch(text, -1) {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	for _, m := range europeanDatePattern.FindAllStringSubmatch(text, -1) {
		if d, ok := buildDate(m[3], m[2], m[1]); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a single date string in ISO or European day-first form.
func ParseDate(s string) (time.Time, bool) {
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, true
	}
	if m := europeanDatePattern.FindStringSubmatch(s); m != nil && m[0] == s {
		return buildDate(m[3], m[2], m[1])
	}
	return time.Time{}, false
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	if len(year) == 2 {
		y += 2000
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}

	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31/02 -> 03/03), so a mismatch means the date was invalid
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, false
	}
	return t, true
}
