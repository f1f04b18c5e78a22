package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsettle/splitsettle/internal/models"
)

// seedInvite builds a group where Dana (+919999) is invited and owes 150
// from a shared dinner.
func seedInvite(t *testing.T, env *testEnv) (alice *models.User, group *models.Group, pm *models.PendingMember) {
	t.Helper()
	ctx := context.Background()

	alice = env.user(t, "Alice", "+911")
	group = env.group(t, alice.ID)

	var err error
	pm, err = env.groups.InvitePendingMember(ctx, group.ID, InviteRequest{
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
	return alice, group, pm
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, grp, _ := seedInvite(t, env)

	preview, err := env.reconcile.Preview(ctx, "+919999")
	require.NoError(t, err)
	assert.Equal(t, "Dana", preview.DisplayName)
	assert.Equal(t, 1, preview.GroupCount)
	assert.Equal(t, []string{grp.ID}, preview.GroupIDs)
	assert.True(t, preview.PendingBalance.Equal(dec("-150")), "pending balance = %s", preview.PendingBalance)

	_, err = env.reconcile.Preview(ctx, "+910000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRegisterReconciles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, group, _ := seedInvite(t, env)

	resp, err := env.reconcile.Register(ctx, RegisterRequest{
		Name: "Dana R", PhoneNumber: "+919999",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	require.NotNil(t, resp.Reconciliation)
	assert.True(t, resp.Reconciliation.Reconciled)
	assert.Equal(t, 1, resp.Reconciliation.GroupsJoined)
	assert.Equal(t, 1, resp.Reconciliation.ExpensesUpdated)
	assert.True(t, resp.Reconciliation.NetBalance.Equal(dec("-150")))

	// Dana is now a full member and the matcher can route her debt.
	plan, err := env.expenses.SuggestedSettlements(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, plan.Ready, 1)
	assert.Equal(t, resp.User.ID, plan.Ready[0].FromID)
	assert.Equal(t, alice.ID, plan.Ready[0].ToID)
	assert.True(t, plan.Ready[0].Amount.Equal(dec("150")))
	assert.Empty(t, plan.Blocked)

	// New users start at the default score regardless of inherited debt.
	score, err := env.credit.Score(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScoreDefault, score.CreditScore)
}

func TestRegisterWithoutInvite(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.reconcile.Register(context.Background(), RegisterRequest{
		Name: "Eve", PhoneNumber: "+915555",
	})
	require.NoError(t, err)
	assert.False(t, resp.Reconciliation.Reconciled)
	assert.NotEmpty(t, resp.Reconciliation.Message)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.reconcile.Register(ctx, RegisterRequest{PhoneNumber: "+911"})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	_, err = env.reconcile.Register(ctx, RegisterRequest{Name: "Eve"})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}
