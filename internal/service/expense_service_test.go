package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsettle/splitsettle/internal/models"
)

func TestAddExpenseValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "Alice", "+911")
	bob := env.user(t, "Bob", "+912")
	outsider := env.user(t, "Mallory", "+913")
	group := env.group(t, alice.ID, bob.ID)

	tests := []struct {
		name string
		req  AddExpenseRequest
	}{
		{
			name: "missing title",
			req: AddExpenseRequest{
				GroupID: group.ID, Amount: dec("100"),
				Splits: evenUserSplit("100", alice.ID), CreatedBy: alice.ID,
			},
		},
		{
			name: "zero amount",
			req: AddExpenseRequest{
				GroupID: group.ID, Title: "Dinner", Amount: dec("0"),
				Splits: evenUserSplit("100", alice.ID), CreatedBy: alice.ID,
			},
		},
		{
			name: "no splits",
			req: AddExpenseRequest{
				GroupID: group.ID, Title: "Dinner", Amount: dec("100"), CreatedBy: alice.ID,
			},
		},
		{
			name: "creator not a member",
			req: AddExpenseRequest{
				GroupID: group.ID, Title: "Dinner", Amount: dec("100"),
				Splits: evenUserSplit("100", alice.ID), CreatedBy: outsider.ID,
			},
		},
		{
			name: "split participant not a member",
			req: AddExpenseRequest{
				GroupID: group.ID, Title: "Dinner", Amount: dec("100"),
				Splits: evenUserSplit("100", outsider.ID), CreatedBy: alice.ID,
			},
		},
		{
			name: "negative share",
			req: AddExpenseRequest{
				GroupID: group.ID, Title: "Dinner", Amount: dec("100"),
				Splits: []SplitInput{
					{ParticipantID: alice.ID, Kind: models.KindUser, Amount: dec("150")},
					{ParticipantID: bob.ID, Kind: models.KindUser, Amount: dec("-50")},
				},
				CreatedBy: alice.ID,
			},
		},
		{
			name: "splits do not sum to amount",
			req: AddExpenseRequest{
				GroupID: group.ID, Title: "Dinner", Amount: dec("100"),
				Splits: evenUserSplit("90", alice.ID, bob.ID), CreatedBy: alice.ID,
			},
		},
		{
			name: "bad participant kind",
			req: AddExpenseRequest{
				GroupID: group.ID, Title: "Dinner", Amount: dec("100"),
				Splits:    []SplitInput{{ParticipantID: alice.ID, Kind: "robot", Amount: dec("100")}},
				CreatedBy: alice.ID,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.AddExpense(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, models.IsValidation(err), "want validation error, got %v", err)
		})
	}
}

func TestAddExpenseWithinTolerance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "Alice", "+911")
	bob := env.user(t, "Bob", "+912")
	group := env.group(t, alice.ID, bob.ID)

	// 0.01 off is accepted; rounding remainders are a fact of life.
	_, err := env.expenses.AddExpense(ctx, AddExpenseRequest{
		GroupID: group.ID, Title: "Dinner", Amount: dec("100"),
		Splits: []SplitInput{
			{ParticipantID: alice.ID, Kind: models.KindUser, Amount: dec("50.00")},
			{ParticipantID: bob.ID, Kind: models.KindUser, Amount: dec("49.99")},
		},
		CreatedBy: alice.ID,
	})
	assert.NoError(t, err)
}

func TestAddExpenseWithPendingMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "Alice", "+911")
	group := env.group(t, alice.ID)

	pm, err := env.groups.InvitePendingMember(ctx, group.ID, InviteRequest{
		PhoneNumber: "+919999", DisplayName: "Dana", AddedBy: alice.ID,
	})
	require.NoError(t, err)

	expense, err := env.expenses.AddExpense(ctx, AddExpenseRequest{
		GroupID: group.ID, Title: "Dinner", Amount: dec("300"),
		Splits: []SplitInput{
			{ParticipantID: alice.ID, Kind: models.KindUser, Amount: dec("150")},
			{ParticipantID: pm.ID, Kind: models.KindPending, Amount: dec("150")},
		},
		CreatedBy: alice.ID,
	})
	require.NoError(t, err)
	assert.True(t, expense.HasPendingParticipants)

	// A pending member from another phone number that was never invited to
	// this group is rejected.
	other := env.group(t, alice.ID)
	pm2, err := env.groups.InvitePendingMember(ctx, other.ID, InviteRequest{
		PhoneNumber: "+918888", DisplayName: "Eli", AddedBy: alice.ID,
	})
	require.NoError(t, err)
	_, err = env.expenses.AddExpense(ctx, AddExpenseRequest{
		GroupID: group.ID, Title: "Cab", Amount: dec("100"),
		Splits: []SplitInput{
			{ParticipantID: pm2.ID, Kind: models.KindPending, Amount: dec("100")},
		},
		CreatedBy: alice.ID,
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestDeleteExpense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "Alice", "+911")
	bob := env.user(t, "Bob", "+912")
	group := env.group(t, alice.ID, bob.ID)

	expense, err := env.expenses.AddExpense(ctx, AddExpenseRequest{
		GroupID: group.ID, Title: "Dinner", Amount: dec("100"),
		Splits: evenUserSplit("100", alice.ID, bob.ID), CreatedBy: alice.ID,
	})
	require.NoError(t, err)

	err = env.expenses.DeleteExpense(ctx, expense.ID, bob.ID)
	require.Error(t, err)
	assert.True(t, models.IsValidation(err), "only payer or creator may delete")

	require.NoError(t, env.expenses.DeleteExpense(ctx, expense.ID, alice.ID))

	balances, err := env.expenses.GroupBalances(ctx, group.ID)
	require.NoError(t, err)
	for _, entry := range balances.Active {
		assert.Equal(t, "settled", entry.Status)
	}
}

func TestGroupBalancesAndSuggestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "Alice", "+911")
	bob := env.user(t, "Bob", "+912")
	carol := env.user(t, "Carol", "+913")
	group := env.group(t, alice.ID, bob.ID, carol.ID)

	_, err := env.expenses.AddExpense(ctx, AddExpenseRequest{
		GroupID: group.ID, Title: "Villa", Amount: dec("1200"),
		Splits: evenUserSplit("1200", alice.ID, bob.ID, carol.ID), CreatedBy: alice.ID,
	})
	require.NoError(t, err)

	balances, err := env.expenses.GroupBalances(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, balances.Active, 3)
	byID := map[string]BalanceEntry{}
	for _, entry := range balances.Active {
		byID[entry.ParticipantID] = entry
	}
	assert.True(t, byID[alice.ID].Balance.Equal(dec("800")))
	assert.Equal(t, "owed", byID[alice.ID].Status)
	assert.True(t, byID[bob.ID].Balance.Equal(dec("-400")))
	assert.Equal(t, "owes", byID[bob.ID].Status)
	assert.True(t, balances.Summary.TotalExpenses.Equal(dec("1200")))

	plan, err := env.expenses.SuggestedSettlements(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, plan.Ready, 2)
	assert.Equal(t, bob.ID, plan.Ready[0].FromID)
	assert.Equal(t, alice.ID, plan.Ready[0].ToID)
	assert.True(t, plan.Ready[0].Amount.Equal(dec("400")))
	assert.Equal(t, carol.ID, plan.Ready[1].FromID)
	assert.Empty(t, plan.Blocked)
}

func TestGroupBalancesPendingMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "Alice", "+911")
	group := env.group(t, alice.ID)
	pm, err := env.groups.InvitePendingMember(ctx, group.ID, InviteRequest{
		PhoneNumber: "+919999", DisplayName: "Dana", AddedBy: alice.ID,
	})
	require.NoError(t, err)

	_, err = env.expenses.AddExpense(ctx, AddExpenseRequest{
		GroupID: group.ID, Title: "Dinner", Amount: dec("300"),
		Splits: []SplitInput{
			{ParticipantID: alice.ID, Kind: models.KindUser, Amount: dec("150")},
			{ParticipantID: pm.ID, Kind: models.KindPending, Amount: dec("150")},
		},
		CreatedBy: alice.ID,
	})
	require.NoError(t, err)

	balances, err := env.expenses.GroupBalances(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, balances.Pending, 1)
	entry := balances.Pending[0]
	assert.Equal(t, pm.ID, entry.ParticipantID)
	assert.True(t, entry.Balance.Equal(dec("-150")))
	assert.NotEmpty(t, entry.Note)
	assert.True(t, balances.Summary.PendingAmount.Equal(dec("150")))

	// No transfer can involve the pending member yet.
	plan, err := env.expenses.SuggestedSettlements(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, plan.Ready)
	require.Len(t, plan.Blocked, 1)
	assert.Equal(t, pm.ID, plan.Blocked[0].ParticipantID)
}
