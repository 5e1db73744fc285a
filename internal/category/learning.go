package category

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/zombor/receipt-interpreter/internal/extract"
)

// Legal-entity suffixes, address words and receipt boilerplate that never
// identify a merchant.
var stopTokens = map[string]struct{}{
	"SRL": {}, "SRLS": {}, "SPA": {}, "SNC": {}, "SAS": {}, "SCARL": {},
	"SARL": {}, "EURL": {}, "SASU": {}, "GMBH": {}, "OHG": {}, "KG": {}, "AG": {}, "UG": {},
	"SLU": {}, "SL": {}, "SA": {}, "LTD": {}, "LLC": {}, "INC": {}, "CO": {},
	"IVA": {}, "PIVA": {}, "TVA": {}, "VAT": {}, "MWST": {}, "CIF": {}, "NIF": {},
	"VIA": {}, "VIALE": {}, "PIAZZA": {}, "CORSO": {}, "LARGO": {}, "RUE": {}, "AVENUE": {},
	"STRASSE": {}, "STR": {}, "CALLE": {}, "AVENIDA": {}, "PLAZA": {},
	"RICEVUTA": {}, "SCONTRINO": {}, "FISCALE": {}, "FATTURA": {}, "DOCUMENTO": {},
	"COMMERCIALE": {}, "RECEIPT": {}, "INVOICE": {}, "TICKET": {}, "FACTURE": {}, "RECHNUNG": {},
	"FACTURA": {}, "TEL": {}, "FAX": {}, "WWW": {}, "COM": {},
	"THE": {}, "AND": {}, "DEL": {}, "DELLA": {}, "DEI": {}, "DELLE": {}, "LES": {}, "DES": {},
	"UND": {}, "LOS": {}, "LAS": {},
}

// LearnerConfig bounds keyword extraction from merchant names.
type LearnerConfig struct {
	MinTokenLength int
	MaxTokens      int
}

// DefaultLearnerConfig returns the stock tokenizer limits.
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		MinTokenLength: 3,
		MaxTokens:      3,
	}
}

// Tokenize splits a merchant name into candidate keywords: folded
// alphanumeric tokens, at least MinTokenLength long, not stop tokens, not
// purely numeric, distinct, and at most MaxTokens in order of appearance.
func Tokenize(merchant string, config LearnerConfig) []string {
	fields := strings.FieldsFunc(extract.Fold(merchant), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, config.MaxTokens)
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(tokens) == config.MaxTokens {
			break
		}
		if len([]rune(f)) < config.MinTokenLength || isNumeric(f) {
			continue
		}
		if _, stop := stopTokens[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Learner turns confirmed (merchant, category) pairs into learned keywords.
// It is the only writer of the learned store.
type Learner struct {
	store  LearnedStore
	config LearnerConfig
	now    func() time.Time
}

// NewLearner creates a Learner. Non-positive config values fall back to defaults.
func NewLearner(store LearnedStore, config LearnerConfig) *Learner {
	defaults := DefaultLearnerConfig()
	if config.MinTokenLength <= 0 {
		config.MinTokenLength = defaults.MinTokenLength
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	return &Learner{store: store, config: config, now: time.Now}
}

// Learn reinforces every keyword extracted from merchant under category.
func (l *Learner) Learn(merchant, category string) ([]LearnedKeyword, error) {
	canonical, ok := Canonical(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	tokens := Tokenize(merchant, l.config)
	learned := make([]LearnedKeyword, 0, len(tokens))
	now := l.now()
	for _, token := range tokens {
		entry, err := l.store.Reinforce(token, canonical, now)
		if err != nil {
			return learned, fmt.Errorf("reinforcing keyword %q: %w", token, err)
		}
		learned = append(learned, entry)
	}

	slog.Info("Learned merchant keywords", "merchant", merchant, "category", canonical, "keywords", tokens)
	return learned, nil
}
