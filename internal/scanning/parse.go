package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
	"github.com/zombor/receipt-interpreter/internal/category"
	"github.com/zombor/receipt-interpreter/internal/extract"
)

// extractionSchema accepts a null for any field the model could not read but
// requires at least one of the expected keys.
const extractionSchema = `{
  "type": "object",
  "properties": {
    "amount":   {"type": ["number", "string", "null"]},
    "date":     {"type": ["string", "null"]},
    "merchant": {"type": ["string", "null"]},
    "category": {"type": ["string", "null"]}
  },
  "anyOf": [
    {"required": ["amount"]},
    {"required": ["date"]},
    {"required": ["merchant"]},
    {"required": ["category"]}
  ]
}`

var extractionValidator = jsonschema.MustCompileString("extraction.json", extractionSchema)

type rawExtraction struct {
	Amount   json.RawMessage `json:"amount"`
	Date     *string         `json:"date"`
	Merchant *string         `json:"merchant"`
	Category *string         `json:"category"`
}

// stripCodeFence removes a surrounding markdown code block and anything
// outside the outermost JSON object.
func stripCodeFence(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON object in response")
	}
	return text[startIdx : endIdx+1], nil
}

// parseExtraction turns the model's reply into an Extraction. A reply that is
// not a JSON object with the expected fields is an error; individual fields
// that are unreadable or invalid are dropped.
func parseExtraction(text string) (*Extraction, error) {
	body, err := stripCodeFence(text)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := extractionValidator.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating response: %w", err)
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	ext := &Extraction{}

	if amount, ok := parseRemoteAmount(raw.Amount); ok {
		ext.Amount = decimal.NewNullDecimal(amount)
	} else if len(raw.Amount) > 0 && !bytes.Equal(raw.Amount, []byte("null")) {
		slog.Warn("Discarding remote amount", "amount", string(raw.Amount))
	}

	if raw.Date != nil && strings.TrimSpace(*raw.Date) != "" {
		if d, ok := extract.ParseDate(strings.TrimSpace(*raw.Date)); ok {
			ext.Date = &d
		} else {
			slog.Warn("Discarding remote date", "date", *raw.Date)
		}
	}

	if raw.Merchant != nil {
		ext.Merchant = strings.Join(strings.Fields(*raw.Merchant), " ")
	}

	if raw.Category != nil && strings.TrimSpace(*raw.Category) != "" {
		if name, ok := category.Canonical(*raw.Category); ok {
			ext.Category = name
		} else {
			slog.Warn("Discarding remote category outside the vocabulary", "category", *raw.Category)
		}
	}

	return ext, nil
}

// parseRemoteAmount accepts a JSON number or a string such as "€ 45,50".
func parseRemoteAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		// A minus before the first digit survives so negative totals fail the range check
		negative := false
		if first := strings.IndexFunc(s, unicode.IsDigit); first > 0 {
			negative = strings.ContainsAny(s[:first], "-−")
		}
		s = strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) || r == '.' || r == ',' {
				return r
			}
			return -1
		}, s)
		if negative {
			s = "-" + s
		}
		return extract.ParseAmount(s)
	}

	v, err := decimal.NewFromString(string(raw))
	if err != nil || !extract.InRange(v) {
		return decimal.Decimal{}, false
	}
	return v.Round(2), true
}
