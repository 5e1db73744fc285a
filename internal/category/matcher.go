package category

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/zombor/receipt-interpreter/internal/extract"
)

// Strength buckets a match score for the escalation decision.
type Strength int

const (
	StrengthNone Strength = iota
	StrengthWeak
	StrengthStrong
)

func (s Strength) String() string {
	switch s {
	case StrengthStrong:
		return "strong"
	case StrengthWeak:
		return "weak"
	default:
		return "none"
	}
}

// MarshalText renders the strength by name in JSON and logs.
func (s Strength) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MatcherConfig holds the tunable scoring constants.
type MatcherConfig struct {
	// StrongThreshold is the minimum score classified as a strong match.
	StrongThreshold int
	// UsageCap bounds how much a learned keyword's usage count can add.
	UsageCap int
}

// DefaultMatcherConfig returns the stock thresholds.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		StrongThreshold: 20,
		UsageCap:        5,
	}
}

// Match is the best category for a text. Category is empty when Score is 0.
type Match struct {
	Category string   `json:"category,omitempty"`
	Score    int      `json:"score"`
	Strength Strength `json:"strength"`
}

// Found reports whether any category scored.
func (m Match) Found() bool {
	return m.Category != ""
}

// Matcher scores text against the static keyword table plus learned keywords.
// It never writes to either.
type Matcher struct {
	store  *KeywordStore
	config MatcherConfig
}

// NewMatcher creates a Matcher over store. Non-positive config values fall back to defaults.
func NewMatcher(store *KeywordStore, config MatcherConfig) *Matcher {
	defaults := DefaultMatcherConfig()
	if config.StrongThreshold <= 0 {
		config.StrongThreshold = defaults.StrongThreshold
	}
	if config.UsageCap <= 0 {
		config.UsageCap = defaults.UsageCap
	}
	return &Matcher{store: store, config: config}
}

// Match scores every category. A static keyword found in the text adds its
// length; a learned keyword adds its length plus min(usage, UsageCap). The
// highest score wins and ties go to the alphabetically first category.
func (m *Matcher) Match(text string, learned []LearnedKeyword) Match {
	folded := extract.Fold(text)
	scores := m.Scores(folded, learned)

	var best Match
	for name, score := range scores {
		if score <= 0 {
			continue
		}
		if score > best.Score || (score == best.Score && name < best.Category) {
			best = Match{Category: name, Score: score}
		}
	}
	best.Strength = m.Classify(best.Score)

	if best.Found() {
		slog.Debug("Category matched", "category", best.Category, "score", best.Score, "strength", best.Strength.String())
	}
	return best
}

// Scores returns the aggregate score per category for already folded text.
func (m *Matcher) Scores(folded string, learned []LearnedKeyword) map[string]int {
	scores := make(map[string]int)
	for _, name := range m.store.Categories() {
		for _, kw := range m.store.keywords[name] {
			if strings.Contains(folded, kw) {
				scores[name] += utf8.RuneCountInString(kw)
			}
		}
	}

	for _, entry := range learned {
		kw := extract.Fold(entry.Keyword)
		if kw == "" || !strings.Contains(folded, kw) {
			continue
		}
		scores[entry.Category] += utf8.RuneCountInString(kw) + min(entry.UsageCount, m.config.UsageCap)
	}
	return scores
}

// Classify maps a score to its strength bucket.
func (m *Matcher) Classify(score int) Strength {
	switch {
	case score >= m.config.StrongThreshold:
		return StrengthStrong
	case score > 0:
		return StrengthWeak
	default:
		return StrengthNone
	}
}
