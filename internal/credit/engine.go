// Package credit implements the credit score state machine and the delay
// penalty scanner.
//
// Scoring rules:
//
//	on_time_settlement   (≤24h)        → +10
//	settlement_within_3d (≤3 days)     → +5
//	consecutive_bonus    (5 in a row)  → +20
//	delayed_gt3          (>3 days)     → −15
//	delayed_gt7          (>7 days)     → −25
//	delayed_gt15         (>15 days)    → −40
//	reminder_ignored                   → −10
//
// Scores are clamped to [300, 900]. Events carrying a settlement ID are
// applied at most once per (user, settlement, reason); re-application is a
// defined successful outcome with Duplicate set, not an error. The one
// exception is reminder_ignored: every ignored reminder is a fresh penalty.
package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/splitsettle/splitsettle/internal/metrics"
	"github.com/splitsettle/splitsettle/internal/models"
)

// Store is the persistence the engine needs. The audit append and the score
// update must share one transaction, and the duplicate check must be enforced
// by a storage uniqueness constraint rather than a read-then-write.
type Store interface {
	// GetUserCredit returns the user's current score state.
	GetUserCredit(ctx context.Context, userID string) (*models.UserCredit, error)

	// ApplyCreditEvent atomically appends rec and updates the user's score
	// and streak, conditional on the stored score still being
	// expectScore (compare-and-swap; models.ErrConflict on mismatch).
	// With dedupe set, a pre-existing record for the same
	// (user, settlement, reason) makes the call a no-op returning
	// duplicate=true.
	ApplyCreditEvent(ctx context.Context, rec *models.CreditRecord, newConsecutive, expectScore int, dedupe bool) (duplicate bool, err error)

	// ListPendingSettlementsByDebtor returns the user's settlements still
	// awaiting payment.
	ListPendingSettlementsByDebtor(ctx context.Context, userID string) ([]*models.Settlement, error)

	// SetSettlementPenaltyTier raises a settlement's lastPenaltyTier.
	// The tier never decreases; lower values are ignored.
	SetSettlementPenaltyTier(ctx context.Context, settlementID string, tier int) error
}

// Result reports what a scoring event did to a user's score.
type Result struct {
	UserID       string              `json:"userId"`
	OldScore     int                 `json:"oldScore"`
	NewScore     int                 `json:"newScore"`
	ChangeAmount int                 `json:"changeAmount"`
	Reason       models.CreditReason `json:"reason"`

	// Duplicate is true when the same (user, settlement, reason) event was
	// already recorded; the score did not move.
	Duplicate bool `json:"duplicate"`

	// BonusAwarded is true when this event completed a streak of five and
	// a consecutive_bonus was applied on top. ChangeAmount then includes
	// the bonus.
	BonusAwarded bool `json:"bonusAwarded"`
}

// casRetries bounds the compare-and-swap retry loop on concurrent score
// updates for the same user.
const casRetries = 3

// Engine mutates user credit state. All methods are safe for concurrent use;
// per-user serialization comes from the store's conditional update.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine creates an Engine backed by store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// ApplyScoreEvent applies one scoring event to a user.
//
// Streak handling: positive non-bonus events extend consecutiveOnTime, any
// penalty resets it. When the streak reaches five it resets and a single
// consecutive_bonus event is applied in the same call, tagged with the same
// settlement ID. The bonus is one extra loop pass, never more — a bonus
// cannot trigger another bonus.
func (e *Engine) ApplyScoreEvent(ctx context.Context, userID string, reason models.CreditReason, settlementID string) (*Result, error) {
	if _, ok := reason.Delta(); !ok {
		return nil, models.Validationf("invalid credit score reason: %s", reason)
	}

	res, streakHit, err := e.applyOnce(ctx, userID, reason, settlementID)
	if err != nil {
		return nil, err
	}
	if res.Duplicate || !streakHit {
		return res, nil
	}

	bonus, _, err := e.applyOnce(ctx, userID, models.ReasonConsecutiveBonus, settlementID)
	if err != nil {
		return nil, fmt.Errorf("consecutive bonus: %w", err)
	}
	if !bonus.Duplicate {
		res.NewScore = bonus.NewScore
		res.ChangeAmount += bonus.ChangeAmount
		res.BonusAwarded = true
	}
	return res, nil
}

// ApplySettlementCompletion chooses the single delay reason for a completed
// settlement and applies it.
func (e *Engine) ApplySettlementCompletion(ctx context.Context, debtorID string, daysDelayed int, settlementID string) (*Result, error) {
	return e.ApplyScoreEvent(ctx, debtorID, models.ReasonFromDelay(daysDelayed), settlementID)
}

// applyOnce runs a single scoring event with bounded CAS retries. The second
// return value reports whether this event completed a streak of five.
func (e *Engine) applyOnce(ctx context.Context, userID string, reason models.CreditReason, settlementID string) (*Result, bool, error) {
	delta, _ := reason.Delta()

	// reminder_ignored deliberately skips duplicate suppression: each
	// reminder send is a distinct audit record.
	dedupe := settlementID != "" && reason != models.ReasonReminderIgnored

	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		uc, err := e.store.GetUserCredit(ctx, userID)
		if err != nil {
			return nil, false, err
		}

		oldScore := uc.Score
		newScore := clampScore(oldScore + delta)

		consecutive := uc.ConsecutiveOnTime
		streakHit := false
		switch {
		case delta > 0 && reason != models.ReasonConsecutiveBonus:
			consecutive++
			if consecutive >= models.StreakBonusThreshold {
				consecutive = 0
				streakHit = true
			}
		case delta < 0:
			consecutive = 0
		}

		rec := &models.CreditRecord{
			UserID:              userID,
			OldScore:            oldScore,
			NewScore:            newScore,
			ChangeAmount:        newScore - oldScore,
			Reason:              reason,
			RelatedSettlementID: settlementID,
			CreatedAt:           e.now().Unix(),
		}

		duplicate, err := e.store.ApplyCreditEvent(ctx, rec, consecutive, oldScore, dedupe)
		if errors.Is(err, models.ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if duplicate {
			return &Result{
				UserID:    userID,
				OldScore:  oldScore,
				NewScore:  oldScore,
				Reason:    reason,
				Duplicate: true,
			}, false, nil
		}

		metrics.CreditEventsTotal.WithLabelValues(string(reason)).Inc()
		return &Result{
			UserID:       userID,
			OldScore:     oldScore,
			NewScore:     newScore,
			ChangeAmount: newScore - oldScore,
			Reason:       reason,
		}, streakHit, nil
	}
	return nil, false, fmt.Errorf("score update for user %s: %w", userID, lastErr)
}

func clampScore(score int) int {
	if score < models.ScoreMin {
		return models.ScoreMin
	}
	if score > models.ScoreMax {
		return models.ScoreMax
	}
	return score
}
