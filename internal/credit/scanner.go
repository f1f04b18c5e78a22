package credit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/splitsettle/splitsettle/internal/metrics"
	"github.com/splitsettle/splitsettle/internal/models"
)

// delayTiers in descending order: a scan applies only the highest
// newly-crossed tier per settlement.
var delayTiers = []struct {
	MinDays int
	Tier    int
	Reason  models.CreditReason
}{
	{MinDays: 15, Tier: 15, Reason: models.ReasonDelayedOver15},
	{MinDays: 7, Tier: 7, Reason: models.ReasonDelayedOver7},
	{MinDays: 3, Tier: 3, Reason: models.ReasonDelayedOver3},
}

// PenaltyResult is one delay penalty applied by a scan.
type PenaltyResult struct {
	SettlementID string `json:"settlementId"`
	DaysDelayed  int    `json:"daysDelayed"`
	Tier         int    `json:"tier"`
	Result
}

// ScanPendingDelays sweeps the user's pending settlements and applies delay
// penalties for newly crossed tiers.
//
// Per settlement, at most one tier fires per scan: the highest tier with
// daysDelayed ≥ its threshold and lastPenaltyTier below it. That is a
// deliberate debounce — a settlement discovered at day 20 takes the 15-day
// penalty only, not all three. On a non-duplicate application the
// settlement's lastPenaltyTier advances so later scans skip the same
// threshold.
func (e *Engine) ScanPendingDelays(ctx context.Context, userID string) ([]PenaltyResult, error) {
	pending, err := e.store.ListPendingSettlementsByDebtor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list pending settlements: %w", err)
	}

	nowUnix := e.now().Unix()
	results := []PenaltyResult{}
	for _, s := range pending {
		days := s.DaysDelayed(nowUnix)

		for _, t := range delayTiers {
			if days < t.MinDays || s.LastPenaltyTier >= t.Tier {
				continue
			}

			res, err := e.ApplyScoreEvent(ctx, userID, t.Reason, s.ID)
			if err != nil {
				return results, fmt.Errorf("apply %s for settlement %s: %w", t.Reason, s.ID, err)
			}
			// Advance the tier even on a duplicate: the audit row proves
			// this threshold was already charged, and an unpersisted tier
			// would make every later scan re-match it.
			if err := e.store.SetSettlementPenaltyTier(ctx, s.ID, t.Tier); err != nil {
				return results, fmt.Errorf("persist penalty tier: %w", err)
			}
			if res.Duplicate {
				break
			}
			metrics.DelayPenaltiesTotal.WithLabelValues(strconv.Itoa(t.Tier)).Inc()
			results = append(results, PenaltyResult{
				SettlementID: s.ID,
				DaysDelayed:  days,
				Tier:         t.Tier,
				Result:       *res,
			})
			break
		}
	}
	return results, nil
}

// DebtorLister is implemented by stores that can enumerate users with
// outstanding pending settlements, for the periodic sweep.
type DebtorLister interface {
	ListDebtorsWithPendingSettlements(ctx context.Context) ([]string, error)
}

// ScanAllPendingDelays runs ScanPendingDelays for every debtor with pending
// settlements. A failing user is logged and skipped so one bad record cannot
// stall the whole sweep.
func (e *Engine) ScanAllPendingDelays(ctx context.Context, lister DebtorLister) ([]PenaltyResult, error) {
	debtors, err := lister.ListDebtorsWithPendingSettlements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list debtors: %w", err)
	}

	var all []PenaltyResult
	for _, userID := range debtors {
		results, err := e.ScanPendingDelays(ctx, userID)
		if err != nil {
			slog.Error("Delay scan failed for user", "user_id", userID, "error", err)
			continue
		}
		all = append(all, results...)
	}
	return all, nil
}
