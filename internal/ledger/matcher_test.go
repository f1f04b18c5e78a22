package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/models"
)

func TestMatchSettlements(t *testing.T) {
	a, b, c, d := models.UserRef("a"), models.UserRef("b"), models.UserRef("c"), models.UserRef("d")
	participants := []Participant{user("a", "Alice"), user("b", "Bob"), user("c", "Carol"), user("d", "Dan")}

	tests := []struct {
		name     string
		expenses []models.Expense
		want     []Transfer
	}{
		{
			name: "one payer three way split",
			expenses: []models.Expense{
				{PaidBy: a, Amount: dec("1200"), SplitBetween: evenSplit("1200", a, b, c)},
			},
			want: []Transfer{
				{FromID: "b", ToID: "a", Amount: dec("400")},
				{FromID: "c", ToID: "a", Amount: dec("400")},
			},
		},
		{
			name: "largest debtor pays largest creditor first",
			expenses: []models.Expense{
				{PaidBy: a, Amount: dec("300"), SplitBetween: []models.SplitEntry{
					{Participant: b, Amount: dec("200")},
					{Participant: c, Amount: dec("100")},
				}},
				{PaidBy: d, Amount: dec("50"), SplitBetween: []models.SplitEntry{
					{Participant: b, Amount: dec("50")},
				}},
			},
			want: []Transfer{
				{FromID: "b", ToID: "a", Amount: dec("250")},
				{FromID: "c", ToID: "a", Amount: dec("50")},
				{FromID: "c", ToID: "d", Amount: dec("50")},
			},
		},
		{
			name: "already settled yields no transfers",
			expenses: []models.Expense{
				{PaidBy: a, Amount: dec("100"), SplitBetween: []models.SplitEntry{
					{Participant: a, Amount: dec("100")},
				}},
			},
			want: nil,
		},
		{
			name: "sub-tolerance residue is dropped",
			expenses: []models.Expense{
				{PaidBy: a, Amount: dec("0.005"), SplitBetween: []models.SplitEntry{
					{Participant: b, Amount: dec("0.005")},
				}},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := ComputeBalances(participants, tt.expenses, nil)
			plan := MatchSettlements(sheet)

			if len(plan.Ready) != len(tt.want) {
				t.Fatalf("got %d transfers, want %d: %+v", len(plan.Ready), len(tt.want), plan.Ready)
			}
			for i, want := range tt.want {
				got := plan.Ready[i]
				if got.FromID != want.FromID || got.ToID != want.ToID || !got.Amount.Equal(want.Amount) {
					t.Errorf("transfer[%d] = %s->%s %s, want %s->%s %s",
						i, got.FromID, got.ToID, got.Amount, want.FromID, want.ToID, want.Amount)
				}
			}
		})
	}
}

func TestMatchSettlementsMinimality(t *testing.T) {
	// n debtors and one creditor must produce exactly n transfers,
	// regardless of how the debts are spread.
	a := models.UserRef("a")
	participants := []Participant{user("a", "Alice"), user("b", "Bob"), user("c", "Carol"), user("d", "Dan")}
	expenses := []models.Expense{
		{PaidBy: a, Amount: dec("900"), SplitBetween: evenSplit("900", models.UserRef("b"), models.UserRef("c"), models.UserRef("d"))},
	}

	plan := MatchSettlements(ComputeBalances(participants, expenses, nil))
	if len(plan.Ready) != 3 {
		t.Fatalf("got %d transfers, want 3", len(plan.Ready))
	}
}

func TestMatchSettlementsDeterministic(t *testing.T) {
	// Equal balances: ordering must follow the sheet's insertion order on
	// every run.
	a, b, c, d := models.UserRef("a"), models.UserRef("b"), models.UserRef("c"), models.UserRef("d")
	participants := []Participant{user("a", "Alice"), user("b", "Bob"), user("c", "Carol"), user("d", "Dan")}
	expenses := []models.Expense{
		{PaidBy: a, Amount: dec("100"), SplitBetween: []models.SplitEntry{{Participant: c, Amount: dec("100")}}},
		{PaidBy: b, Amount: dec("100"), SplitBetween: []models.SplitEntry{{Participant: d, Amount: dec("100")}}},
	}

	first := MatchSettlements(ComputeBalances(participants, expenses, nil))
	for i := 0; i < 10; i++ {
		again := MatchSettlements(ComputeBalances(participants, expenses, nil))
		if len(again.Ready) != len(first.Ready) {
			t.Fatalf("run %d: got %d transfers, want %d", i, len(again.Ready), len(first.Ready))
		}
		for j := range first.Ready {
			if !again.Ready[j].Amount.Equal(first.Ready[j].Amount) ||
				again.Ready[j].FromID != first.Ready[j].FromID ||
				again.Ready[j].ToID != first.Ready[j].ToID {
				t.Fatalf("run %d: transfer[%d] differs from first run", i, j)
			}
		}
	}
	if first.Ready[0].FromID != "c" || first.Ready[0].ToID != "a" {
		t.Errorf("first transfer = %s->%s, want c->a (insertion order)", first.Ready[0].FromID, first.Ready[0].ToID)
	}
}

func TestMatchSettlementsBlockedClaims(t *testing.T) {
	a := models.UserRef("a")
	p := models.PendingRef("pm1")
	participants := []Participant{user("a", "Alice"), pending("pm1", "Dana")}
	expenses := []models.Expense{
		{PaidBy: a, Amount: dec("300"), SplitBetween: []models.SplitEntry{
			{Participant: a, Amount: dec("150")},
			{Participant: p, Amount: dec("150")},
		}},
	}

	plan := MatchSettlements(ComputeBalances(participants, expenses, nil))

	if len(plan.Ready) != 0 {
		t.Errorf("got %d ready transfers, want 0", len(plan.Ready))
	}
	if len(plan.Blocked) != 1 {
		t.Fatalf("got %d blocked claims, want 1", len(plan.Blocked))
	}
	claim := plan.Blocked[0]
	if claim.ParticipantID != "pm1" || claim.Direction != ToPay || !claim.Amount.Equal(dec("150")) {
		t.Errorf("claim = %+v, want pm1 to_pay 150", claim)
	}
	if claim.Reason == "" {
		t.Error("claim reason should explain what is blocking")
	}
}

func TestMatchSettlementsSkipsNonCurrent(t *testing.T) {
	// A participant only known from history never enters matching even
	// with a balance.
	a := models.UserRef("a")
	ghost := models.UserRef("ghost")
	participants := []Participant{user("a", "Alice")}
	expenses := []models.Expense{
		{PaidBy: ghost, Amount: dec("100"), SplitBetween: []models.SplitEntry{{Participant: a, Amount: dec("100")}}},
	}

	plan := MatchSettlements(ComputeBalances(participants, expenses, nil))
	if len(plan.Ready) != 0 {
		t.Errorf("got %d transfers, want 0 (non-current creditor)", len(plan.Ready))
	}
}

func TestMatchSettlementsConservation(t *testing.T) {
	a, b, c, d := models.UserRef("a"), models.UserRef("b"), models.UserRef("c"), models.UserRef("d")
	participants := []Participant{user("a", "Alice"), user("b", "Bob"), user("c", "Carol"), user("d", "Dan")}
	expenses := []models.Expense{
		{PaidBy: a, Amount: dec("173.40"), SplitBetween: evenSplit("173.40", a, b, c, d)},
		{PaidBy: b, Amount: dec("99.99"), SplitBetween: evenSplit("99.99", b, c, d)},
		{PaidBy: c, Amount: dec("42"), SplitBetween: evenSplit("42", a, c)},
	}

	sheet := ComputeBalances(participants, expenses, nil)
	plan := MatchSettlements(sheet)

	// Applying every suggested transfer must bring every balance within
	// the transfer tolerance of zero.
	after := map[models.ParticipantRef]decimal.Decimal{}
	for _, bal := range sheet.Entries() {
		after[bal.Participant.Ref] = bal.Amount
	}
	for _, tr := range plan.Ready {
		after[models.UserRef(tr.FromID)] = after[models.UserRef(tr.FromID)].Add(tr.Amount)
		after[models.UserRef(tr.ToID)] = after[models.UserRef(tr.ToID)].Sub(tr.Amount)
	}
	for ref, amt := range after {
		if amt.Abs().GreaterThan(models.MinTransfer) {
			t.Errorf("after settling, balance[%s] = %s, want within %s of 0", ref, amt, models.MinTransfer)
		}
	}
}
