package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/splitsettle/splitsettle/internal/credit"
	"github.com/splitsettle/splitsettle/internal/models"
	"github.com/splitsettle/splitsettle/internal/storage"
	"github.com/splitsettle/splitsettle/internal/storage/sqlite"
)

// testEnv bundles a fresh SQLite store with every service wired the way
// cmd/server does it.
type testEnv struct {
	store       storage.Store
	groups      *GroupService
	expenses    *ExpenseService
	settlements *SettlementService
	credit      *CreditService
	reconcile   *ReconciliationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := credit.NewEngine(store)
	return &testEnv{
		store:       store,
		groups:      NewGroupService(store),
		expenses:    NewExpenseService(store),
		settlements: NewSettlementService(store, engine),
		credit:      NewCreditService(store, engine),
		reconcile:   NewReconciliationService(store),
	}
}

func (e *testEnv) user(t *testing.T, name, phone string) *models.User {
	t.Helper()
	user := &models.User{Name: name, PhoneNumber: phone}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) group(t *testing.T, createdBy string, memberIDs ...string) *models.Group {
	t.Helper()
	group, err := e.groups.CreateGroup(context.Background(), CreateGroupRequest{
		Name: "Goa Trip", CreatedBy: createdBy,
	})
	require.NoError(t, err)
	for _, id := range memberIDs {
		require.NoError(t, e.groups.AddMember(context.Background(), group.ID, id))
	}
	got, err := e.groups.GetGroup(context.Background(), group.ID)
	require.NoError(t, err)
	return got
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func evenUserSplit(amount string, userIDs ...string) []SplitInput {
	share := dec(amount).Div(decimal.NewFromInt(int64(len(userIDs))))
	splits := make([]SplitInput, len(userIDs))
	for i, id := range userIDs {
		splits[i] = SplitInput{ParticipantID: id, Kind: models.KindUser, Amount: share}
	}
	return splits
}
