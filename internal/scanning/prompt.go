package scanning

import (
	"fmt"
	"strings"
)

// receiptScanPrompt is shared by every vision backend. The %s verb receives
// the category vocabulary.
const receiptScanPrompt = `You are reading a receipt or invoice. The images are the pages of a single document, in order. Carefully read all text and extract:

1. **Amount**: the FINAL amount actually paid. Prefer the value next to "PAGATO", "PAID", "CONTANTI", "CARTA", "PAYÉ", "BEZAHLT", "PAGADO" or the grand total ("TOTALE", "TOTAL", "GESAMT"). Never return a subtotal, a tax amount (IVA, VAT, TVA, MwSt) or the change given back. Return a number using a dot as decimal separator (e.g. 45.50).

2. **Date**: the transaction or invoice date. Dates are written in the European convention DD/MM/YYYY (day first), so 03/04/2024 is the 3rd of April. Return it as YYYY-MM-DD.

3. **Merchant**: the business that ISSUED the document (the seller, usually in the header with its VAT number). On invoices, never return the customer or recipient ("Cliente", "Destinatario", "Bill to").

4. **Category**: exactly one of: %s. If none fits, use null. Do not invent other categories.

Return ONLY valid JSON in this exact format:
{
  "amount": 0.00,
  "date": "YYYY-MM-DD",
  "merchant": "Business Name",
  "category": "Category"
}

Important:
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// buildPrompt renders the instruction for the given category vocabulary.
func buildPrompt(categories []string) string {
	return fmt.Sprintf(receiptScanPrompt, strings.Join(categories, ", "))
}
