package service

import (
	"context"

	"github.com/splitsettle/splitsettle/internal/credit"
	"github.com/splitsettle/splitsettle/internal/models"
	"github.com/splitsettle/splitsettle/internal/storage"
)

// CreditService exposes credit score reads and the penalty operations.
type CreditService struct {
	store  storage.Store
	engine *credit.Engine
}

// NewCreditService creates a CreditService.
func NewCreditService(store storage.Store, engine *credit.Engine) *CreditService {
	return &CreditService{store: store, engine: engine}
}

// ScoreResponse is a user's current credit standing.
type ScoreResponse struct {
	UserID            string            `json:"userId"`
	CreditScore       int               `json:"creditScore"`
	ConsecutiveOnTime int               `json:"consecutiveOnTime"`
	Tier              models.CreditTier `json:"tier"`
}

// Score returns the user's score, streak and display tier.
func (s *CreditService) Score(ctx context.Context, userID string) (*ScoreResponse, error) {
	uc, err := s.store.GetUserCredit(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ScoreResponse{
		UserID:            userID,
		CreditScore:       uc.Score,
		ConsecutiveOnTime: uc.ConsecutiveOnTime,
		Tier:              models.TierForScore(uc.Score),
	}, nil
}

// HistoryResponse is one page of a user's credit audit trail.
type HistoryResponse struct {
	History []*models.CreditRecord `json:"history"`
	Total   int                    `json:"total"`
	HasMore bool                   `json:"hasMore"`
}

// History returns the user's audit records newest first.
func (s *CreditService) History(ctx context.Context, userID string, limit, offset int) (*HistoryResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	records, total, err := s.store.ListCreditHistory(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.CreditRecord{}
	}
	return &HistoryResponse{
		History: records,
		Total:   total,
		HasMore: offset+len(records) < total,
	}, nil
}

// ReminderIgnored applies the −10 penalty for a payment reminder the debtor
// did not act on, bumping the settlement's reminder counter.
//
// Unlike delay-tier penalties, repeated ignored reminders on the same
// settlement each score: every reminder send is its own audit record.
func (s *CreditService) ReminderIgnored(ctx context.Context, userID, settlementID string) (*credit.Result, error) {
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.FromUserID != userID {
		return nil, models.Validationf("user is not the debtor on this settlement")
	}

	if _, err := s.store.IncrementReminderCount(ctx, settlementID); err != nil {
		return nil, err
	}
	return s.engine.ApplyScoreEvent(ctx, userID, models.ReasonReminderIgnored, settlementID)
}

// ScanPendingDelays applies newly crossed delay-tier penalties across the
// user's pending settlements.
func (s *CreditService) ScanPendingDelays(ctx context.Context, userID string) ([]credit.PenaltyResult, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.engine.ScanPendingDelays(ctx, userID)
}

// ScanAllPendingDelays sweeps every debtor; used by the periodic job.
func (s *CreditService) ScanAllPendingDelays(ctx context.Context) ([]credit.PenaltyResult, error) {
	return s.engine.ScanAllPendingDelays(ctx, s.store)
}
