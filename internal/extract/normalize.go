// Package extract pulls structured fields (amount, date, merchant) out of
// recognized receipt text using deterministic regex heuristics.
package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold uppercases s and strips diacritics so that "Caffè" and "CAFFE" compare equal.
// Keyword matching and tokenizing both run on folded text.
func Fold(s string) string {
	// transform.Chain keeps state, so build a fresh one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}

// lines splits text into trimmed lines, dropping empty ones.
func lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
