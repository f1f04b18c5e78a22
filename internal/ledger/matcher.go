package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/models"
)

// Transfer is a suggested payment between two registered users.
type Transfer struct {
	FromID   string
	FromName string
	ToID     string
	ToName   string
	Amount   decimal.Decimal
}

// ClaimDirection tells which way money will flow once a pending member
// registers.
type ClaimDirection string

const (
	ToReceive ClaimDirection = "to_receive"
	ToPay     ClaimDirection = "to_pay"
)

// PendingClaim is a pending member's non-zero balance. No transfer can be
// suggested until the member registers, so the claim is informational.
type PendingClaim struct {
	ParticipantID string
	Name          string
	Amount        decimal.Decimal
	Direction     ClaimDirection
	Reason        string
}

// Plan is the matcher output: transfers that can happen now, and claims
// blocked on a pending member registering.
type Plan struct {
	Ready   []Transfer
	Blocked []PendingClaim
}

type side struct {
	participant Participant
	remaining   decimal.Decimal
}

// MatchSettlements pairs debtors with creditors into a small set of
// transfers using a greedy largest-against-largest walk.
//
// Only current registered users enter matching. Pending members' balances are
// reported as blocked claims; historical (non-current) participants are
// skipped entirely. Both sides are stable-sorted descending by amount, so
// equal amounts keep the balance sheet's insertion order and the plan is
// reproducible for the same inputs.
//
// The walk emits at most min(#debtors, #creditors) transfers. That is minimal
// under the usual simplification that any debtor may pay any creditor; it
// makes no attempt to preserve who originally owed whom.
func MatchSettlements(sheet *BalanceSheet) Plan {
	var creditors, debtors []side
	var blocked []PendingClaim

	for _, b := range sheet.Entries() {
		if b.Participant.Ref.IsPending() {
			if b.Amount.Abs().LessThanOrEqual(models.MinTransfer) {
				continue
			}
			claim := PendingClaim{
				ParticipantID: b.Participant.Ref.ID,
				Name:          b.Participant.Name,
				Amount:        b.Amount.Abs(),
				Direction:     ToPay,
				Reason:        fmt.Sprintf("Waiting for %s to register", b.Participant.Name),
			}
			if b.Amount.Sign() > 0 {
				claim.Direction = ToReceive
			}
			blocked = append(blocked, claim)
			continue
		}
		if !b.Current {
			continue
		}
		switch {
		case b.Amount.GreaterThan(models.MinTransfer):
			creditors = append(creditors, side{b.Participant, b.Amount})
		case b.Amount.LessThan(models.MinTransfer.Neg()):
			debtors = append(debtors, side{b.Participant, b.Amount.Neg()})
		}
	}

	// Stable keeps insertion order for equal amounts.
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].remaining.GreaterThan(debtors[j].remaining)
	})
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].remaining.GreaterThan(creditors[j].remaining)
	})

	var ready []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]

		amount := decimal.Min(debtor.remaining, creditor.remaining)
		if amount.GreaterThan(models.MinTransfer) {
			ready = append(ready, Transfer{
				FromID:   debtor.participant.Ref.ID,
				FromName: debtor.participant.Name,
				ToID:     creditor.participant.Ref.ID,
				ToName:   creditor.participant.Name,
				Amount:   amount,
			})
		}

		debtor.remaining = debtor.remaining.Sub(amount)
		creditor.remaining = creditor.remaining.Sub(amount)

		if debtor.remaining.LessThan(models.MinTransfer) {
			i++
		}
		if creditor.remaining.LessThan(models.MinTransfer) {
			j++
		}
	}

	return Plan{Ready: ready, Blocked: blocked}
}
