package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func user(id, name string) Participant {
	return Participant{Ref: models.UserRef(id), Name: name}
}

func pending(id, name string) Participant {
	return Participant{Ref: models.PendingRef(id), Name: name}
}

func evenSplit(amount string, refs ...models.ParticipantRef) []models.SplitEntry {
	share := dec(amount).Div(decimal.NewFromInt(int64(len(refs))))
	splits := make([]models.SplitEntry, len(refs))
	for i, ref := range refs {
		splits[i] = models.SplitEntry{Participant: ref, Amount: share}
	}
	return splits
}

func TestComputeBalances(t *testing.T) {
	a, b, c := models.UserRef("a"), models.UserRef("b"), models.UserRef("c")

	tests := []struct {
		name     string
		expenses []models.Expense
		settled  []models.Settlement
		want     map[models.ParticipantRef]string
	}{
		{
			name: "single expense split three ways",
			expenses: []models.Expense{
				{PaidBy: a, Amount: dec("1200"), SplitBetween: evenSplit("1200", a, b, c)},
			},
			want: map[models.ParticipantRef]string{a: "800", b: "-400", c: "-400"},
		},
		{
			name: "offsetting expenses cancel out",
			expenses: []models.Expense{
				{PaidBy: a, Amount: dec("100"), SplitBetween: evenSplit("100", a, b)},
				{PaidBy: b, Amount: dec("100"), SplitBetween: evenSplit("100", a, b)},
			},
			want: map[models.ParticipantRef]string{a: "0", b: "0", c: "0"},
		},
		{
			name: "completed settlement reduces debt",
			expenses: []models.Expense{
				{PaidBy: a, Amount: dec("1200"), SplitBetween: evenSplit("1200", a, b, c)},
			},
			settled: []models.Settlement{
				{FromUserID: "b", ToUserID: "a", Amount: dec("400")},
			},
			want: map[models.ParticipantRef]string{a: "400", b: "0", c: "-400"},
		},
		{
			name: "no expenses leaves everyone at zero",
			want: map[models.ParticipantRef]string{a: "0", b: "0", c: "0"},
		},
	}

	participants := []Participant{user("a", "Alice"), user("b", "Bob"), user("c", "Carol")}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := ComputeBalances(participants, tt.expenses, tt.settled)

			total := decimal.Zero
			for ref, want := range tt.want {
				got := sheet.Get(ref)
				if !got.Equal(dec(want)) {
					t.Errorf("balance[%s] = %s, want %s", ref, got, want)
				}
			}
			for _, b := range sheet.Entries() {
				total = total.Add(b.Amount)
			}
			if !total.IsZero() {
				t.Errorf("balances sum to %s, want 0", total)
			}
		})
	}
}

func TestComputeBalancesPendingShare(t *testing.T) {
	a := models.UserRef("a")
	p := models.PendingRef("pm1")

	participants := []Participant{user("a", "Alice"), pending("pm1", "Dana")}
	expenses := []models.Expense{
		{PaidBy: a, Amount: dec("300"), SplitBetween: evenSplit("300", a, p)},
	}

	sheet := ComputeBalances(participants, expenses, nil)

	if got := sheet.Get(a); !got.Equal(dec("150")) {
		t.Errorf("Alice balance = %s, want 150", got)
	}
	if got := sheet.Get(p); !got.Equal(dec("-150")) {
		t.Errorf("pending balance = %s, want -150", got)
	}
}

func TestComputeBalancesUnknownParticipant(t *testing.T) {
	// Historical expense references someone no longer in the group. The
	// fold still accounts for them, marked non-current.
	a, ghost := models.UserRef("a"), models.UserRef("ghost")

	sheet := ComputeBalances(
		[]Participant{user("a", "Alice")},
		[]models.Expense{{PaidBy: ghost, Amount: dec("50"), SplitBetween: evenSplit("50", a)}},
		nil,
	)

	if got := sheet.Get(ghost); !got.Equal(dec("50")) {
		t.Errorf("ghost balance = %s, want 50", got)
	}
	for _, b := range sheet.Entries() {
		if b.Participant.Ref == ghost && b.Current {
			t.Error("undeclared participant should not be current")
		}
	}
}

func TestBalanceSheetStableOrder(t *testing.T) {
	participants := []Participant{user("a", "Alice"), user("b", "Bob"), pending("pm1", "Dana")}
	sheet := ComputeBalances(participants, nil, nil)

	entries := sheet.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	wantOrder := []models.ParticipantRef{
		models.UserRef("a"), models.UserRef("b"), models.PendingRef("pm1"),
	}
	for i, want := range wantOrder {
		if entries[i].Participant.Ref != want {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].Participant.Ref, want)
		}
	}
}
