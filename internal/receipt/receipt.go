package receipt

import (
	"time"

	"github.com/zombor/receipt-interpreter/internal/engine"
)

// File is one uploaded page of a receipt, stored under Name.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// Receipt represents an interpreted expense
type Receipt struct {
	ID         string            `json:"id"`
	Merchant   string            `json:"merchant,omitempty"`
	Date       *time.Time        `json:"date,omitempty"`
	Amount     *int64            `json:"amount"` // Amount in cents, nil when not found
	Category   string            `json:"category,omitempty"`
	Confidence engine.Confidence `json:"confidence"`
	Source     engine.Source     `json:"source"`
	Text       string            `json:"text,omitempty"`
	Files      []File            `json:"files,omitempty"`
	Confirmed  bool              `json:"confirmed"` // Category confirmed by the user
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
