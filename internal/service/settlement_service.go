package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/credit"
	"github.com/splitsettle/splitsettle/internal/ledger"
	"github.com/splitsettle/splitsettle/internal/metrics"
	"github.com/splitsettle/splitsettle/internal/models"
	"github.com/splitsettle/splitsettle/internal/storage"
)

// SettlementService records and completes settlements and triggers the
// debtor's credit scoring.
type SettlementService struct {
	store  storage.Store
	engine *credit.Engine
	now    func() time.Time
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(store storage.Store, engine *credit.Engine) *SettlementService {
	return &SettlementService{store: store, engine: engine, now: time.Now}
}

// RecordSettlementRequest carries a manual "I paid them" settlement.
type RecordSettlementRequest struct {
	GroupID    string          `json:"groupId"`
	FromUserID string          `json:"-"`
	ToUserID   string          `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Note       string          `json:"note"`

	// ExpenseID optionally links the debt's origin; when set and
	// DaysDelayed is nil, the delay is derived from the expense age.
	ExpenseID string `json:"expenseId"`

	// DaysDelayed overrides delay derivation when non-nil.
	DaysDelayed *int `json:"daysDelayed"`
}

// SettlementOutcome pairs the stored settlement with the credit result.
type SettlementOutcome struct {
	Settlement *models.Settlement `json:"settlement"`
	Credit     *credit.Result     `json:"creditScore"`
}

// RecordSettlement validates and stores a completed settlement, then scores
// the debtor.
//
// Direction and amount are checked against the live balance sheet: the payer
// must actually owe, the payee must actually be owed, and the amount may not
// exceed min(|payer balance|, payee balance) beyond the transfer tolerance.
// This blocks overpayment and backwards settlements rather than trusting the
// client.
func (s *SettlementService) RecordSettlement(ctx context.Context, req RecordSettlementRequest) (*SettlementOutcome, error) {
	if err := s.validateSettlement(ctx, req.GroupID, req.FromUserID, req.ToUserID, req.Amount, true); err != nil {
		return nil, err
	}
	if len(req.Note) > 300 {
		return nil, models.Validationf("note must be at most 300 characters")
	}

	daysDelayed := 0
	if req.DaysDelayed != nil {
		if *req.DaysDelayed < 0 {
			return nil, models.Validationf("daysDelayed cannot be negative")
		}
		daysDelayed = *req.DaysDelayed
	} else if req.ExpenseID != "" {
		expense, err := s.store.GetExpense(ctx, req.ExpenseID)
		if err != nil {
			return nil, err
		}
		daysDelayed = int((s.now().Unix() - expense.CreatedAt) / 86400)
		if daysDelayed < 0 {
			daysDelayed = 0
		}
	}

	now := s.now().Unix()
	settlement := &models.Settlement{
		GroupID:     req.GroupID,
		FromUserID:  req.FromUserID,
		ToUserID:    req.ToUserID,
		Amount:      req.Amount,
		ExpenseID:   req.ExpenseID,
		Method:      req.Method,
		Note:        req.Note,
		Status:      models.SettlementCompleted,
		CreatedAt:   now,
		CompletedAt: now,
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("RecordSettlement failed", "group_id", req.GroupID, "error", err)
		return nil, err
	}
	metrics.SettlementsRecordedTotal.WithLabelValues(string(models.SettlementCompleted)).Inc()

	return s.scoreCompletion(ctx, settlement, daysDelayed)
}

// RequestSettlement records an acknowledged but unpaid debt. Pending
// settlements age and accrue delay penalties until completed.
func (s *SettlementService) RequestSettlement(ctx context.Context, req RecordSettlementRequest) (*models.Settlement, error) {
	if err := s.validateSettlement(ctx, req.GroupID, req.FromUserID, req.ToUserID, req.Amount, false); err != nil {
		return nil, err
	}

	settlement := &models.Settlement{
		GroupID:    req.GroupID,
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
		ExpenseID:  req.ExpenseID,
		Method:     req.Method,
		Note:       req.Note,
		Status:     models.SettlementPending,
		CreatedAt:  s.now().Unix(),
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("RequestSettlement failed", "group_id", req.GroupID, "error", err)
		return nil, err
	}
	metrics.SettlementsRecordedTotal.WithLabelValues(string(models.SettlementPending)).Inc()
	return settlement, nil
}

// CompleteSettlement marks a pending settlement paid and scores the debtor
// based on how long the settlement sat pending. Only the two parties to the
// settlement may complete it.
func (s *SettlementService) CompleteSettlement(ctx context.Context, settlementID, requestedBy string) (*SettlementOutcome, error) {
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if requestedBy != settlement.FromUserID && requestedBy != settlement.ToUserID {
		return nil, models.Validationf("only the payer or payee can complete a settlement")
	}

	now := s.now().Unix()
	if err := s.store.CompleteSettlement(ctx, settlementID, now); err != nil {
		return nil, err
	}
	settlement.Status = models.SettlementCompleted
	settlement.CompletedAt = now

	return s.scoreCompletion(ctx, settlement, settlement.DaysDelayed(now))
}

// scoreCompletion applies the single delay-derived scoring event for a
// completed settlement and marks the settlement processed.
func (s *SettlementService) scoreCompletion(ctx context.Context, settlement *models.Settlement, daysDelayed int) (*SettlementOutcome, error) {
	result, err := s.engine.ApplySettlementCompletion(ctx, settlement.FromUserID, daysDelayed, settlement.ID)
	if err != nil {
		slog.Error("Credit score update failed", "settlement_id", settlement.ID, "error", err)
		return nil, err
	}

	if err := s.store.MarkCreditScoreProcessed(ctx, settlement.ID); err != nil {
		// The score landed; losing the processed flag only risks a
		// duplicate attempt, which suppression absorbs.
		slog.Warn("Failed to mark settlement processed", "settlement_id", settlement.ID, "error", err)
		metrics.AuditDropsTotal.Inc()
	} else {
		settlement.CreditScoreProcessed = true
	}

	return &SettlementOutcome{Settlement: settlement, Credit: result}, nil
}

// HistoryEntry is one completed settlement with display names resolved.
type HistoryEntry struct {
	ID          string          `json:"id"`
	FromUserID  string          `json:"fromUserId"`
	FromName    string          `json:"fromName"`
	ToUserID    string          `json:"toUserId"`
	ToName      string          `json:"toName"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Note        string          `json:"note,omitempty"`
	CompletedAt int64           `json:"completedAt"`
}

// historyLimit caps a group's settlement history page.
const historyLimit = 50

// GroupHistory returns the group's most recent completed settlements.
func (s *SettlementService) GroupHistory(ctx context.Context, groupID string) ([]HistoryEntry, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	settlements, err := s.store.ListSettlementsByGroup(ctx, groupID, models.SettlementCompleted, historyLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(settlements)*2)
	for _, st := range settlements {
		ids = append(ids, st.FromUserID, st.ToUserID)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(settlements))
	for _, st := range settlements {
		entry := HistoryEntry{
			ID:          st.ID,
			FromUserID:  st.FromUserID,
			ToUserID:    st.ToUserID,
			Amount:      st.Amount,
			Method:      st.Method,
			Note:        st.Note,
			CompletedAt: st.CompletedAt,
		}
		if u, ok := users[st.FromUserID]; ok {
			entry.FromName = u.Name
		}
		if u, ok := users[st.ToUserID]; ok {
			entry.ToName = u.Name
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// validateSettlement runs the shared checks for recording or requesting a
// settlement. checkBalance additionally enforces direction and overpayment
// against the current balance sheet.
func (s *SettlementService) validateSettlement(ctx context.Context, groupID, fromUserID, toUserID string, amount decimal.Decimal, checkBalance bool) error {
	if !amount.IsPositive() {
		return models.Validationf("amount must be greater than 0")
	}
	if fromUserID == toUserID {
		return models.Validationf("cannot settle with yourself")
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(fromUserID) {
		return models.Validationf("you are not a member of this group")
	}
	if !group.HasMember(toUserID) {
		return models.Validationf("payee is not a member of this group")
	}

	if !checkBalance {
		return nil
	}

	sheet, err := s.groupSheet(ctx, groupID)
	if err != nil {
		return err
	}
	fromBalance := sheet.Get(models.UserRef(fromUserID))
	toBalance := sheet.Get(models.UserRef(toUserID))

	if fromBalance.GreaterThan(models.MinTransfer) {
		return models.Validationf("you don't owe anything in this group")
	}
	if toBalance.LessThan(models.MinTransfer.Neg()) {
		return models.Validationf("this person is not owed anything in this group")
	}

	maxSettlement := decimal.Min(fromBalance.Abs(), toBalance)
	if amount.GreaterThan(maxSettlement.Add(models.MinTransfer)) {
		return models.Validationf("amount exceeds the due balance of %s", maxSettlement.Round(2).String())
	}
	return nil
}

func (s *SettlementService) groupSheet(ctx context.Context, groupID string) (*ledger.BalanceSheet, error) {
	participants, err := groupDirectory(ctx, s.store, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	completed, err := s.store.ListSettlementsByGroup(ctx, groupID, models.SettlementCompleted, 0)
	if err != nil {
		return nil, err
	}

	expVals := make([]models.Expense, len(expenses))
	for i, e := range expenses {
		expVals[i] = *e
	}
	setVals := make([]models.Settlement, len(completed))
	for i, st := range completed {
		setVals[i] = *st
	}
	return ledger.ComputeBalances(participants, expVals, setVals), nil
}
