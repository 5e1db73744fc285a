package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Valid range for a receipt total. Anything outside is treated as OCR noise.
var (
	MinAmount = decimal.RequireFromString("0.10")
	MaxAmount = decimal.RequireFromString("9999.99")

	// fallbackFloor is the smallest currency-prefixed value the last tier accepts.
	fallbackFloor = decimal.NewFromInt(1)
)

// AmountTier records which rule of the cascade produced an amount.
type AmountTier int

const (
	TierPayment AmountTier = iota + 1
	TierTotal
	TierTrailingLabel
	TierLargestCurrency
)

func (t AmountTier) String() string {
	switch t {
	case TierPayment:
		return "payment"
	case TierTotal:
		return "total"
	case TierTrailingLabel:
		return "trailing_label"
	case TierLargestCurrency:
		return "largest_currency"
	default:
		return "unknown"
	}
}

// AmountCandidate is a monetary total found in receipt text.
type AmountCandidate struct {
	Value decimal.Decimal
	Tier  AmountTier
	Raw   string
}

// trailingWindow is how many lines from the bottom the label tier inspects.
const trailingWindow = 8

// number matches "45,50", "45.50", "1.234,56" and "1,234.56"; cents are mandatory.
// The numeral must not run on into another separator or digit, which keeps
// dates like 12.05.2024 and times like 10:30 out.
const number = `(\d{1,3}(?:[.,]\d{3})+[.,]\d{2}|\d+[.,]\d{2})(?:[^\d.,:]|$)`

var (
	paymentPattern = regexp.MustCompile(
		`\b(?:PAID|CASH|CARD|PAGATO|PAGAMENTO|CONTANTI|CONTANTE|CARTA|ELETTRONICO|BANCOMAT|` +
			`PAYE|REGLE|ESPECES|CARTE|BEZAHLT|BARGELD|BARZAHLUNG|KARTE|GEGEBEN|` +
			`PAGADO|EFECTIVO|TARJETA)\b[\s:]*(?:EUR|€|\$|£|CHF)?\s*` + number)

	totalPattern = regexp.MustCompile(
		`\b(?:TOTALE|TOTAL|GESAMT|GESAMTBETRAG|SUMME|IMPORTE)\b[^\d\n]{0,20}?` + number)

	subTotalPattern = regexp.MustCompile(`SUB[\s\-]?TOTAL`)
	taxTotalPattern = regexp.MustCompile(`\bTOTAL[E]?\s+(?:IVA|TAX|VAT|TVA|MWST|IMPOSTA)`)

	labelPattern = regexp.MustCompile(`\b([A-Z]{2,}(?:\s+[A-Z]+)*)\s*:\s*(?:EUR|€|\$|£|CHF)?\s*` + number)

	// Lines carrying these tokens hold partial sums, taxes, change, dates or
	// clock times, never the total.
	labelRejectPattern = regexp.MustCompile(
		`SUB[\s\-]?TOTAL|\bIVA\b|\bTAX\b|\bVAT\b|\bTVA\b|\bMWST\b|\bIMPONIBILE\b|\bRESTO\b|\bCHANGE\b|\bRENDU\b|\bCAMBIO\b|\bRUCKGELD\b|` +
			`\bDATA\b|\bDATE\b|\bDATUM\b|\bFECHA\b|\bORA\b|\bORE\b|\bTIME\b|\bHEURE\b|\bUHR\b|\bZEIT\b|\bHORA\b|` +
			`\bINGRESSO\b|\bUSCITA\b|\bENTRATA\b|\bENTREE\b|\bSORTIE\b|\bEINFAHRT\b|\bAUSFAHRT\b`)

	currencyPattern = regexp.MustCompile(`(?:€|EUR|\$|£|CHF)\s*` + number)
)

// ExtractAmount returns the receipt total using a strict priority cascade:
// payment keywords, then TOTAL lines (subtotals excluded), then "LABEL: n"
// lines near the bottom, then the largest currency-prefixed value >= 1.00.
// The first tier that yields an in-range value wins.
func ExtractAmount(text string) (AmountCandidate, bool) {
	folded := Fold(text)

	tiers := []struct {
		tier AmountTier
		find func(string) (string, bool)
	}{
		{TierPayment, findPayment},
		{TierTotal, findTotal},
		{TierTrailingLabel, findTrailingLabel},
	}
	for _, t := range tiers {
		raw, ok := t.find(folded)
		if !ok {
			continue
		}
		value, _ := ParseAmount(raw)
		slog.Debug("Amount extracted", "tier", t.tier.String(), "raw", raw, "value", value.StringFixed(2))
		return AmountCandidate{Value: value, Tier: t.tier, Raw: raw}, true
	}

	if c, ok := findLargestCurrency(folded); ok {
		slog.Debug("Amount extracted", "tier", c.Tier.String(), "raw", c.Raw, "value", c.Value.StringFixed(2))
		return c, true
	}
	return AmountCandidate{}, false
}

func findPayment(text string) (string, bool) {
	for _, m := range paymentPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := ParseAmount(m[1]); ok {
			return m[1], true
		}
	}
	return "", false
}

func findTotal(text string) (string, bool) {
	for _, line := range lines(text) {
		if subTotalPattern.MatchString(line) || taxTotalPattern.MatchString(line) {
			continue
		}
		for _, m := range totalPattern.FindAllStringSubmatch(line, -1) {
			if _, ok := ParseAmount(m[1]); ok {
				return m[1], true
			}
		}
	}
	return "", false
}

func findTrailingLabel(text string) (string, bool) {
	all := lines(text)
	start := len(all) - trailingWindow
	if start < 0 {
		start = 0
	}
	for _, line := range all[start:] {
		if labelRejectPattern.MatchString(line) {
			continue
		}
		m := labelPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, ok := ParseAmount(m[2]); ok {
			return m[2], true
		}
	}
	return "", false
}

func findLargestCurrency(text string) (AmountCandidate, bool) {
	var (
		best  AmountCandidate
		found bool
	)
	for _, m := range currencyPattern.FindAllStringSubmatch(text, -1) {
		v, ok := ParseAmount(m[1])
		if !ok || v.LessThan(fallbackFloor) {
			continue
		}
		if !found || v.GreaterThan(best.Value) {
			best = AmountCandidate{Value: v, Tier: TierLargestCurrency, Raw: m[1]}
			found = true
		}
	}
	return best, found
}

// ParseAmount parses a numeral that may use a comma or a dot as decimal
// separator. The last separator is the decimal point; earlier ones are
// thousands separators. Values outside [MinAmount, MaxAmount] are rejected.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Decimal{}, false
	}

	if sep := strings.LastIndexAny(s, ".,"); sep >= 0 {
		intPart := strings.NewReplacer(".", "", ",", "").Replace(s[:sep])
		s = intPart + "." + s[sep+1:]
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !InRange(v) {
		return decimal.Decimal{}, false
	}
	return v.Round(2), true
}

// InRange reports whether v is a plausible receipt total.
func InRange(v decimal.Decimal) bool {
	return !v.LessThan(MinAmount) && !v.GreaterThan(MaxAmount)
}
