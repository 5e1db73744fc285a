package engine

import "github.com/zombor/receipt-interpreter/internal/category"

// EscalationState is the outcome of deciding whether a receipt needs the
// remote vision fallback.
type EscalationState int

const (
	// LocalOnly means escalation was wanted but no remote is available for
	// this receipt, or the remote call contributed nothing.
	LocalOnly EscalationState = iota
	NeedsRemote
	Resolved
)

func (s EscalationState) String() string {
	switch s {
	case NeedsRemote:
		return "needs_remote"
	case Resolved:
		return "resolved"
	default:
		return "local_only"
	}
}

// Decide is evaluated once per receipt. A missing amount always escalates;
// a found amount with a strong category match is final.
func Decide(amountFound bool, strength category.Strength) EscalationState {
	if !amountFound {
		return NeedsRemote
	}
	if strength == category.StrengthStrong {
		return Resolved
	}
	return NeedsRemote
}
