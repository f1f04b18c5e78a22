package models

import "github.com/shopspring/decimal"

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	// SettlementPending is an acknowledged debt that has not been paid yet.
	// Pending settlements age and accrue delay penalties.
	SettlementPending SettlementStatus = "pending"

	// SettlementCompleted is a paid settlement. Completed settlements stop
	// aging and count toward balances.
	SettlementCompleted SettlementStatus = "completed"
)

// Settlement records a debt payment between two users in a group.
// It is the trigger event for credit score changes.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromUserID is the debtor settling up.
	FromUserID string

	// ToUserID is the creditor being paid.
	ToUserID string

	// Amount is the payment amount, always positive.
	Amount decimal.Decimal

	// ExpenseID optionally links the settlement to the expense that created
	// the debt; used to derive the delay when the settlement completes.
	ExpenseID string

	// Method is how the payment was made: cash, upi, bank or other.
	Method string

	// Note is an optional description, capped at 300 characters.
	Note string

	// Status is pending or completed.
	Status SettlementStatus

	// CreditScoreProcessed is set once the completion scoring event ran.
	CreditScoreProcessed bool

	// LastPenaltyTier is the highest delay-penalty tier already applied:
	// 0 = none, 3, 7 or 15. Monotonically non-decreasing for the life of
	// the settlement; this is what prevents double-penalizing the same
	// aging debt.
	LastPenaltyTier int

	// ReminderCount tracks how many payment reminders were sent.
	ReminderCount int

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CompletedAt is the Unix timestamp of completion, 0 while pending.
	CompletedAt int64
}

// DaysDelayed computes whole days elapsed between the settlement's creation
// and the given Unix timestamp.
func (s *Settlement) DaysDelayed(nowUnix int64) int {
	if nowUnix <= s.CreatedAt {
		return 0
	}
	return int((nowUnix - s.CreatedAt) / 86400)
}

// MinTransfer is the smallest amount worth moving between two participants.
// Balances within this threshold of zero are considered settled.
var MinTransfer = decimal.NewFromFloat(0.01)
