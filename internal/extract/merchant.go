package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// headerWindow is how many leading lines may hold the merchant name.
const headerWindow = 5

// Header lines that name the document rather than the issuer.
var boilerplatePattern = regexp.MustCompile(
	`\b(?:RICEVUTA|SCONTRINO|DOCUMENTO COMMERCIALE|FATTURA|RECEIPT|INVOICE|TICKET|QUITTUNG|RECHNUNG|` +
		`FACTURA|RECIBO|FACTURE|BENVENUTI|WELCOME|BIENVENUE|WILLKOMMEN|BIENVENIDO|P\.?\s?IVA|PARTITA IVA|` +
		`C\.?F\.?|TEL|FAX|WWW)\b`)

var spaces = regexp.MustCompile(`\s+`)

// ExtractMerchant guesses the issuer name from the receipt header: the first
// of the leading lines that is mostly letters and is not boilerplate.
func ExtractMerchant(text string) (string, bool) {
	all := lines(text)
	if len(all) > headerWindow {
		all = all[:headerWindow]
	}
	for _, line := range all {
		if boilerplatePattern.MatchString(Fold(line)) {
			continue
		}
		if !mostlyLetters(line) {
			continue
		}
		name := spaces.ReplaceAllString(line, " ")
		return cases.Title(language.Und).String(strings.ToLower(name)), true
	}
	return "", false
}

// mostlyLetters rejects lines such as dates, amounts and separator rows.
func mostlyLetters(line string) bool {
	var letters, other int
	for _, r := range line {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r):
		default:
			other++
		}
	}
	return letters >= 3 && letters*10 >= (letters+other)*6
}
