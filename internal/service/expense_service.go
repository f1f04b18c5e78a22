// Package service wires the pure ledger and credit computations to storage
// and exposes the operations the transport layer calls.
package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/ledger"
	"github.com/splitsettle/splitsettle/internal/models"
	"github.com/splitsettle/splitsettle/internal/storage"
)

// ExpenseService records expenses and computes balances and settlement
// suggestions for a group.
type ExpenseService struct {
	store storage.Store
}

// NewExpenseService creates an ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// SplitInput is one participant's share in an AddExpense request.
type SplitInput struct {
	ParticipantID string                 `json:"participantId"`
	Kind          models.ParticipantKind `json:"participantType"`
	Amount        decimal.Decimal        `json:"amount"`
}

// AddExpenseRequest carries everything needed to record an expense.
type AddExpenseRequest struct {
	GroupID   string          `json:"groupId"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Splits    []SplitInput    `json:"splitBetween"`
	Category  string          `json:"category"`
	Notes     string          `json:"notes"`
	CreatedBy string          `json:"-"`
}

// AddExpense validates and persists a new expense. The creating user is the
// payer and must be a group member; every split participant must be a
// current member (registered) or a still-invited pending member, shares must
// be non-negative, and the shares must sum to the amount within the split
// tolerance.
func (s *ExpenseService) AddExpense(ctx context.Context, req AddExpenseRequest) (*models.Expense, error) {
	if req.Title == "" {
		return nil, models.Validationf("title is required")
	}
	if !req.Amount.IsPositive() {
		return nil, models.Validationf("amount must be greater than 0")
	}
	if len(req.Splits) == 0 {
		return nil, models.Validationf("splitBetween is required")
	}

	group, err := s.store.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(req.CreatedBy) {
		return nil, models.Validationf("you are not a member of this group")
	}

	totalSplit := decimal.Zero
	hasPending := false
	splits := make([]models.SplitEntry, 0, len(req.Splits))
	for _, in := range req.Splits {
		if !in.Kind.Valid() {
			return nil, models.Validationf("participantType must be %q or %q", models.KindUser, models.KindPending)
		}
		if in.Amount.IsNegative() {
			return nil, models.Validationf("split amounts cannot be negative")
		}

		switch in.Kind {
		case models.KindUser:
			if !group.HasMember(in.ParticipantID) {
				return nil, models.Validationf("user %s is not a member of this group", in.ParticipantID)
			}
		case models.KindPending:
			pm, err := s.store.GetPendingMember(ctx, in.ParticipantID)
			if err != nil {
				return nil, err
			}
			if pm.Status != models.PendingInvited {
				return nil, models.Validationf("pending member %s is no longer invited", in.ParticipantID)
			}
			if !group.HasPendingMember(in.ParticipantID) {
				return nil, models.Validationf("pending member is not in this group")
			}
			hasPending = true
		}

		totalSplit = totalSplit.Add(in.Amount)
		splits = append(splits, models.SplitEntry{
			Participant: models.ParticipantRef{ID: in.ParticipantID, Kind: in.Kind},
			Amount:      in.Amount,
		})
	}

	if totalSplit.Sub(req.Amount).Abs().GreaterThan(models.SplitTolerance) {
		return nil, models.Validationf("split amounts (%s) must equal total amount (%s)",
			totalSplit.String(), req.Amount.String())
	}

	expense := &models.Expense{
		GroupID:                req.GroupID,
		Title:                  req.Title,
		Amount:                 req.Amount,
		PaidBy:                 models.UserRef(req.CreatedBy),
		SplitBetween:           splits,
		HasPendingParticipants: hasPending,
		Category:               req.Category,
		Notes:                  req.Notes,
		CreatedBy:              req.CreatedBy,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("AddExpense failed", "group_id", req.GroupID, "error", err)
		return nil, err
	}
	return expense, nil
}

// DeleteExpense hard-deletes an expense. Only the payer or creator may
// delete; the expense stops contributing to balances immediately.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID, requestedBy string) error {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if expense.PaidBy.ID != requestedBy && expense.CreatedBy != requestedBy {
		return models.Validationf("only the payer or creator can delete this expense")
	}
	return s.store.DeleteExpense(ctx, expenseID)
}

// BalanceEntry is one participant's position in a group's balance report.
type BalanceEntry struct {
	ParticipantID string          `json:"participantId"`
	Name          string          `json:"name"`
	PhoneNumber   string          `json:"phoneNumber,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"` // owed, owes or settled
	Note          string          `json:"note,omitempty"`
}

// BalancesResponse is the group balance report: active members, pending
// members, and totals.
type BalancesResponse struct {
	GroupID  string         `json:"groupId"`
	Currency string         `json:"currency"`
	Active   []BalanceEntry `json:"active"`
	Pending  []BalanceEntry `json:"pending"`
	Summary  BalanceSummary `json:"summary"`
}

// BalanceSummary aggregates the report.
type BalanceSummary struct {
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
}

// GroupBalances folds the group's expenses and completed settlements into
// per-participant net balances. Balances are exact internally and rounded to
// two decimals for the report.
func (s *ExpenseService) GroupBalances(ctx context.Context, groupID string) (*BalancesResponse, error) {
	group, sheet, expenses, err := s.balanceSheet(ctx, groupID)
	if err != nil {
		return nil, err
	}

	resp := &BalancesResponse{
		GroupID:  groupID,
		Currency: group.Currency,
		Active:   []BalanceEntry{},
		Pending:  []BalanceEntry{},
		Summary:  BalanceSummary{TotalExpenses: decimal.Zero, PendingAmount: decimal.Zero},
	}
	for _, exp := range expenses {
		resp.Summary.TotalExpenses = resp.Summary.TotalExpenses.Add(exp.Amount)
	}

	for _, b := range sheet.Entries() {
		if !b.Current {
			continue
		}
		entry := BalanceEntry{
			ParticipantID: b.Participant.Ref.ID,
			Name:          b.Participant.Name,
			PhoneNumber:   b.Participant.PhoneNumber,
			Balance:       b.Amount.Round(2),
			Status:        balanceStatus(b.Amount),
		}
		if b.Participant.Ref.IsPending() {
			entry.Note = "Balance will be confirmed when member registers"
			resp.Pending = append(resp.Pending, entry)
			resp.Summary.PendingAmount = resp.Summary.PendingAmount.Add(b.Amount.Abs().Round(2))
		} else {
			resp.Active = append(resp.Active, entry)
		}
	}
	return resp, nil
}

// SuggestedSettlements runs the greedy matcher over the group's current
// balances: ready transfers between registered members, blocked claims for
// pending members.
func (s *ExpenseService) SuggestedSettlements(ctx context.Context, groupID string) (*ledger.Plan, error) {
	_, sheet, _, err := s.balanceSheet(ctx, groupID)
	if err != nil {
		return nil, err
	}
	plan := ledger.MatchSettlements(sheet)
	return &plan, nil
}

// balanceSheet fetches a consistent snapshot of the group's directory,
// expenses and completed settlements and folds it.
func (s *ExpenseService) balanceSheet(ctx context.Context, groupID string) (*models.Group, *ledger.BalanceSheet, []*models.Expense, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, nil, err
	}

	participants, err := groupDirectory(ctx, s.store, groupID)
	if err != nil {
		return nil, nil, nil, err
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, nil, err
	}
	completed, err := s.store.ListSettlementsByGroup(ctx, groupID, models.SettlementCompleted, 0)
	if err != nil {
		return nil, nil, nil, err
	}

	expVals := make([]models.Expense, len(expenses))
	for i, e := range expenses {
		expVals[i] = *e
	}
	setVals := make([]models.Settlement, len(completed))
	for i, st := range completed {
		setVals[i] = *st
	}

	return group, ledger.ComputeBalances(participants, expVals, setVals), expenses, nil
}

// groupDirectory assembles the labeled participant list: registered members
// first, then pending members, preserving store order.
func groupDirectory(ctx context.Context, store storage.Store, groupID string) ([]ledger.Participant, error) {
	members, err := store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	pendings, err := store.ListGroupPendingMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	participants := make([]ledger.Participant, 0, len(members)+len(pendings))
	for _, m := range members {
		participants = append(participants, ledger.Participant{
			Ref:         models.UserRef(m.ID),
			Name:        m.Name,
			PhoneNumber: m.PhoneNumber,
		})
	}
	for _, pm := range pendings {
		participants = append(participants, ledger.Participant{
			Ref:         models.PendingRef(pm.ID),
			Name:        pm.DisplayName,
			PhoneNumber: pm.PhoneNumber,
		})
	}
	return participants, nil
}

func balanceStatus(amount decimal.Decimal) string {
	switch {
	case amount.GreaterThan(models.MinTransfer):
		return "owed"
	case amount.LessThan(models.MinTransfer.Neg()):
		return "owes"
	default:
		return "settled"
	}
}
