package credit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsettle/splitsettle/internal/models"
)

func pendingSettlement(id string, ageDays int, lastTier int, now time.Time) *models.Settlement {
	return &models.Settlement{
		ID:              id,
		Status:          models.SettlementPending,
		LastPenaltyTier: lastTier,
		CreatedAt:       now.Add(-time.Duration(ageDays) * 24 * time.Hour).Unix(),
	}
}

func TestScanPendingDelays(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		ageDays   int
		lastTier  int
		wantTier  int
		wantScore int
	}{
		{name: "under 3 days no penalty", ageDays: 2, wantTier: 0, wantScore: 500},
		{name: "4 days crosses 3-day tier", ageDays: 4, wantTier: 3, wantScore: 485},
		{name: "10 days takes 7-day tier only", ageDays: 10, wantTier: 7, wantScore: 475},
		{name: "20 days takes 15-day tier only", ageDays: 20, wantTier: 15, wantScore: 460},
		{name: "10 days after 7-day tier applied", ageDays: 10, lastTier: 7, wantTier: 0, wantScore: 500},
		{name: "25 days after 15-day tier applied", ageDays: 25, lastTier: 15, wantTier: 0, wantScore: 500},
		{name: "20 days after 7-day tier escalates", ageDays: 20, lastTier: 7, wantTier: 15, wantScore: 460},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.addUser("u1", 500, 0)
			store.pending["u1"] = []*models.Settlement{pendingSettlement("s1", tt.ageDays, tt.lastTier, now)}
			engine := newTestEngine(store, now)

			results, err := engine.ScanPendingDelays(context.Background(), "u1")
			require.NoError(t, err)

			if tt.wantTier == 0 {
				assert.Empty(t, results)
			} else {
				require.Len(t, results, 1)
				assert.Equal(t, tt.wantTier, results[0].Tier)
				assert.Equal(t, "s1", results[0].SettlementID)
				assert.Equal(t, tt.wantTier, store.tiers["s1"])
			}
			assert.Equal(t, tt.wantScore, store.users["u1"].Score)
		})
	}
}

func TestScanPendingDelaysDuplicatePersistsTier(t *testing.T) {
	// An audit row without a persisted tier (a crash between the score
	// write and the tier write) must not make later scans loop on the
	// same no-op: the duplicate advances the tier and emits nothing.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addUser("u1", 485, 0)
	store.pending["u1"] = []*models.Settlement{pendingSettlement("s1", 4, 0, now)}
	store.dedupeKeys["u1|s1|"+string(models.ReasonDelayedOver3)] = true
	engine := newTestEngine(store, now)
	ctx := context.Background()

	results, err := engine.ScanPendingDelays(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 3, store.tiers["s1"])
	assert.Equal(t, 485, store.users["u1"].Score)

	// The settlement no longer matches the 3-day tier.
	results, err = engine.ScanPendingDelays(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Len(t, store.records, 0)
}

func TestScanPendingDelaysOneTierPerScan(t *testing.T) {
	// A settlement aging from 4 to 20 days across scans takes each tier
	// once, one per scan.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addUser("u1", 500, 0)
	s := pendingSettlement("s1", 4, 0, now)
	store.pending["u1"] = []*models.Settlement{s}
	engine := newTestEngine(store, now)
	ctx := context.Background()

	results, err := engine.ScanPendingDelays(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Tier)

	// Same day again: tier already recorded, nothing fires.
	results, err = engine.ScanPendingDelays(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, results)

	// Age to 8 days.
	s.CreatedAt = now.Add(-8 * 24 * time.Hour).Unix()
	results, err = engine.ScanPendingDelays(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 7, results[0].Tier)

	// Age to 20 days.
	s.CreatedAt = now.Add(-20 * 24 * time.Hour).Unix()
	results, err = engine.ScanPendingDelays(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 15, results[0].Tier)

	// 500 − 15 − 25 − 40.
	assert.Equal(t, 420, store.users["u1"].Score)
}

func TestScanPendingDelaysMultipleSettlements(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addUser("u1", 500, 0)
	store.pending["u1"] = []*models.Settlement{
		pendingSettlement("s1", 4, 0, now),
		pendingSettlement("s2", 1, 0, now),
		pendingSettlement("s3", 16, 0, now),
	}
	engine := newTestEngine(store, now)

	results, err := engine.ScanPendingDelays(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].Tier)
	assert.Equal(t, 15, results[1].Tier)
	// 500 − 15 − 40
	assert.Equal(t, 445, store.users["u1"].Score)
}

type fakeDebtorLister struct {
	*fakeStore
}

func (f fakeDebtorLister) ListDebtorsWithPendingSettlements(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.pending))
	for id := range f.pending {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestScanAllPendingDelaysSkipsFailingUser(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addUser("good", 500, 0)
	// "missing" has pending settlements but no credit row; its scan fails.
	store.pending["good"] = []*models.Settlement{pendingSettlement("s1", 4, 0, now)}
	store.pending["missing"] = []*models.Settlement{pendingSettlement("s2", 4, 0, now)}
	engine := newTestEngine(store, now)

	results, err := engine.ScanAllPendingDelays(context.Background(), fakeDebtorLister{store})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].SettlementID)
	assert.Equal(t, 485, store.users["good"].Score)
}
