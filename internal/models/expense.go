package models

import "github.com/shopspring/decimal"

// SplitEntry is one participant's share of an expense.
type SplitEntry struct {
	Participant ParticipantRef
	Amount      decimal.Decimal
}

// Expense represents a shared cost inside a group.
// Expenses are immutable once created; the only lifecycle transition is a
// hard delete, after which the expense stops contributing to balances.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Title is a short human-readable description ("Dinner", "Cab").
	Title string

	// Amount is the full expense amount paid by the payer.
	Amount decimal.Decimal

	// PaidBy is the participant who fronted the money.
	PaidBy ParticipantRef

	// SplitBetween lists each participant's share. Shares are non-negative
	// and sum to Amount within the split tolerance.
	SplitBetween []SplitEntry

	// HasPendingParticipants is true while any split entry or the payer
	// references a pending member. Cleared by reconciliation.
	HasPendingParticipants bool

	// Category groups expenses for display ("food", "travel", "other").
	Category string

	// Notes is optional free text.
	Notes string

	// CreatedBy is the user who recorded the expense.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the expense was created.
	CreatedAt int64
}

// SplitTolerance is the maximum allowed gap between the sum of split shares
// and the expense amount. With exact decimal arithmetic callers are expected
// to hit the amount exactly; the tolerance absorbs uneven equal-splits
// (e.g. 100 three ways) that clients round to two decimals.
var SplitTolerance = decimal.NewFromFloat(0.01)
