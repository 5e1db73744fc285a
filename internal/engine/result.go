package engine

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-interpreter/internal/scanning"
)

// Source records which pipeline produced the fields of a Result.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceMerged Source = "merged"
)

// Result is the engine's only output. Empty strings and a nil Date mean the
// field was not found.
type Result struct {
	Amount     decimal.NullDecimal
	Date       *time.Time
	Merchant   string
	Category   string
	Confidence Confidence
	Source     Source
}

type resultJSON struct {
	Amount     *string    `json:"amount"`
	Date       *string    `json:"date"`
	Merchant   *string    `json:"merchant"`
	Category   *string    `json:"category"`
	Confidence Confidence `json:"confidence"`
	Source     Source     `json:"source"`
}

// MarshalJSON writes missing fields as null, the amount with two decimals
// and the date as YYYY-MM-DD.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Confidence: r.Confidence, Source: r.Source}
	if r.Amount.Valid {
		s := r.Amount.Decimal.StringFixed(2)
		out.Amount = &s
	}
	if r.Date != nil {
		s := r.Date.Format(time.DateOnly)
		out.Date = &s
	}
	if r.Merchant != "" {
		out.Merchant = &r.Merchant
	}
	if r.Category != "" {
		out.Category = &r.Category
	}
	return json.Marshal(out)
}

// merge prefers each remote field that is present and falls back to the
// local one. Confidence is recomputed from the merged fields.
func merge(local Result, remote *scanning.Extraction) Result {
	var fromLocal, fromRemote bool
	out := Result{}

	switch {
	case remote.Amount.Valid:
		out.Amount, fromRemote = remote.Amount, true
	case local.Amount.Valid:
		out.Amount, fromLocal = local.Amount, true
	}

	switch {
	case remote.Date != nil:
		out.Date, fromRemote = remote.Date, true
	case local.Date != nil:
		out.Date, fromLocal = local.Date, true
	}

	switch {
	case remote.Merchant != "":
		out.Merchant, fromRemote = remote.Merchant, true
	case local.Merchant != "":
		out.Merchant, fromLocal = local.Merchant, true
	}

	switch {
	case remote.Category != "":
		out.Category, fromRemote = remote.Category, true
	case local.Category != "":
		out.Category, fromLocal = local.Category, true
	}

	switch {
	case fromRemote && fromLocal:
		out.Source = SourceMerged
	case fromRemote:
		out.Source = SourceRemote
	default:
		out.Source = SourceLocal
	}
	out.Confidence = ClassifyConfidence(out.Amount.Valid, out.Category != "")
	return out
}
