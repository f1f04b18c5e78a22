// Package ledger implements the pure balance computations: folding expenses
// and completed settlements into per-participant net balances, and greedily
// matching those balances into a minimal set of suggested transfers.
//
// Nothing in this package touches storage or mutates its inputs; both entry
// points are safe to run concurrently across groups. Within one group the
// caller should fetch expenses and settlements together so the fold sees a
// consistent snapshot.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/models"
)

// Participant is a labeled entry in a group's directory.
type Participant struct {
	Ref  models.ParticipantRef
	Name string

	// PhoneNumber is carried through for display; empty if unknown.
	PhoneNumber string
}

// Balance is one participant's net position in a group.
// Positive means the participant is owed money, negative means they owe.
type Balance struct {
	Participant Participant
	Amount      decimal.Decimal

	// Current is false for participants referenced by historical expenses
	// or settlements but no longer present in the group's member lists.
	// Their balance is still computed; they just never enter matching.
	Current bool
}

// BalanceSheet holds computed balances in a stable order: group members
// first, then pending members, then any historical participants discovered
// while folding, each in first-seen order. The stable order is what makes
// matching deterministic under equal amounts.
type BalanceSheet struct {
	order   []models.ParticipantRef
	entries map[models.ParticipantRef]*Balance
}

func newBalanceSheet() *BalanceSheet {
	return &BalanceSheet{entries: make(map[models.ParticipantRef]*Balance)}
}

func (s *BalanceSheet) add(p Participant, current bool) *Balance {
	if b, ok := s.entries[p.Ref]; ok {
		return b
	}
	b := &Balance{Participant: p, Amount: decimal.Zero, Current: current}
	s.order = append(s.order, p.Ref)
	s.entries[p.Ref] = b
	return b
}

// credit adds amount to the participant's balance, registering the
// participant as non-current if it was never declared.
func (s *BalanceSheet) credit(ref models.ParticipantRef, amount decimal.Decimal) {
	b, ok := s.entries[ref]
	if !ok {
		b = s.add(Participant{Ref: ref}, false)
	}
	b.Amount = b.Amount.Add(amount)
}

func (s *BalanceSheet) debit(ref models.ParticipantRef, amount decimal.Decimal) {
	s.credit(ref, amount.Neg())
}

// Entries returns all balances in the sheet's stable order.
func (s *BalanceSheet) Entries() []Balance {
	out := make([]Balance, 0, len(s.order))
	for _, ref := range s.order {
		out = append(out, *s.entries[ref])
	}
	return out
}

// Get returns the balance for ref, or a zero balance if the participant is
// unknown to the sheet.
func (s *BalanceSheet) Get(ref models.ParticipantRef) decimal.Decimal {
	if b, ok := s.entries[ref]; ok {
		return b.Amount
	}
	return decimal.Zero
}

// ComputeBalances folds a group's expenses and completed settlements into a
// net balance per participant.
//
// Every declared participant starts at exactly zero, so members untouched by
// any expense come out "settled" rather than missing. For each expense the
// payer is credited the full amount and each split participant is debited
// their share. For each completed settlement the debtor is credited (less
// debt) and the creditor debited (less owed). Settlements that are still
// pending are ignored by the caller's query and must not be passed in.
//
// Accumulation is exact decimal arithmetic; round only for display.
func ComputeBalances(participants []Participant, expenses []models.Expense, completed []models.Settlement) *BalanceSheet {
	sheet := newBalanceSheet()

	for _, p := range participants {
		sheet.add(p, true)
	}

	for _, exp := range expenses {
		sheet.credit(exp.PaidBy, exp.Amount)
		for _, split := range exp.SplitBetween {
			sheet.debit(split.Participant, split.Amount)
		}
	}

	for _, s := range completed {
		sheet.credit(models.UserRef(s.FromUserID), s.Amount)
		sheet.debit(models.UserRef(s.ToUserID), s.Amount)
	}

	return sheet
}
