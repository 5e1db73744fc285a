package engine

// Confidence summarizes whether the amount and the category were found.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ClassifyConfidence is high when both were found, medium when exactly one
// was and low when neither was.
func ClassifyConfidence(amountFound, categoryFound bool) Confidence {
	switch {
	case amountFound && categoryFound:
		return ConfidenceHigh
	case amountFound || categoryFound:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
