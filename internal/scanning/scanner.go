package scanning

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Page is one uploaded receipt or invoice file (image or PDF).
type Page struct {
	Data        []byte
	ContentType string
}

// Extraction is what a remote vision model read from the pages. Fields the
// model could not read, or returned in an invalid form, are left empty.
type Extraction struct {
	Amount   decimal.NullDecimal
	Date     *time.Time
	Merchant string
	Category string
}

// Empty reports whether the model contributed nothing usable.
func (e *Extraction) Empty() bool {
	return e == nil || (!e.Amount.Valid && e.Date == nil && e.Merchant == "" && e.Category == "")
}

// Scanner defines the interface for remote receipt reading
type Scanner interface {
	// Scan sends the pages to the vision model and parses its answer
	Scan(ctx context.Context, pages []Page) (*Extraction, error)
	// Close releases the client
	Close() error
}
