// Package category holds the expense category vocabulary, the static and
// learned keyword dictionaries, and the matcher that scores receipt text
// against them.
package category

import (
	"errors"
	"slices"
	"strings"
)

// Valid expense categories. The local keyword table and the remote vision
// prompt both draw from this list.
const (
	Food        = "Food"
	Supermarket = "Supermarket"
	Fuel        = "Fuel"
	Pharmacy    = "Pharmacy"
	Chandlery   = "Chandlery"
	Parking     = "Parking"
	TenderFuel  = "Tender Fuel"
	Fly         = "Fly"
	Crew        = "Crew"
)

// ErrInvalidCategory is returned when a name is not part of the vocabulary.
var ErrInvalidCategory = errors.New("invalid category")

var vocabulary = []string{
	Food,
	Supermarket,
	Fuel,
	Pharmacy,
	Chandlery,
	Parking,
	TenderFuel,
	Fly,
	Crew,
}

// Names returns the vocabulary in its canonical order.
func Names() []string {
	return slices.Clone(vocabulary)
}

// Canonical maps name to its vocabulary spelling, ignoring case and
// surrounding whitespace.
func Canonical(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, v := range vocabulary {
		if strings.EqualFold(v, name) {
			return v, true
		}
	}
	return "", false
}
