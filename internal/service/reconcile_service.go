package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/metrics"
	"github.com/splitsettle/splitsettle/internal/models"
	"github.com/splitsettle/splitsettle/internal/storage"
)

// ReconciliationService migrates pending members onto registered users once
// their phone number completes registration.
type ReconciliationService struct {
	store storage.Store
}

// NewReconciliationService creates a ReconciliationService.
func NewReconciliationService(store storage.Store) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// RegisterRequest carries a new user signup.
type RegisterRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// RegisterResponse pairs the created user with whatever pending history the
// phone number inherited.
type RegisterResponse struct {
	User           *models.User          `json:"user"`
	Reconciliation *ReconciliationResult `json:"reconciliation"`
}

// Register creates a user and immediately reconciles any pending member
// carrying the same phone number. User creation and reconciliation are
// separate transactions: a reconciliation failure leaves the account usable
// and is reported alongside the user rather than hidden.
func (s *ReconciliationService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if req.Name == "" {
		return nil, models.Validationf("name is required")
	}
	if req.PhoneNumber == "" {
		return nil, models.Validationf("phoneNumber is required")
	}

	user := &models.User{Name: req.Name, PhoneNumber: req.PhoneNumber}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("User registered", "user_id", user.ID, "name", user.Name)

	rec, err := s.Reconcile(ctx, req.PhoneNumber, user.ID)
	if err != nil {
		if errors.Is(err, models.ErrTransactionFailed) {
			return &RegisterResponse{
				User: user,
				Reconciliation: &ReconciliationResult{
					Reconciled: false,
					NetBalance: decimal.Zero,
					Message:    "Your account was created but linking past expenses failed; contact support",
				},
			}, nil
		}
		return nil, err
	}
	return &RegisterResponse{User: user, Reconciliation: rec}, nil
}

// ReconciliationResult reports what a reconciliation migrated.
type ReconciliationResult struct {
	Reconciled      bool            `json:"reconciled"`
	GroupsJoined    int             `json:"groupsJoined"`
	ExpensesUpdated int             `json:"expensesUpdated"`
	NetBalance      decimal.Decimal `json:"netBalance"`
	Message         string          `json:"message,omitempty"`
}

// Reconcile moves the pending member identified by phoneNumber onto
// newUserID: group memberships, expense references and the resolved marker,
// all in one storage transaction. A phone number with no invited pending
// member succeeds with Reconciled=false.
//
// A TransactionFailure here means registration itself succeeded but history
// linking did not; the caller should tell the user to contact support rather
// than silently dropping balances.
func (s *ReconciliationService) Reconcile(ctx context.Context, phoneNumber, newUserID string) (*ReconciliationResult, error) {
	if phoneNumber == "" {
		return nil, models.Validationf("phoneNumber is required")
	}
	if _, err := s.store.GetUser(ctx, newUserID); err != nil {
		return nil, err
	}

	stats, err := s.store.ReconcilePendingMember(ctx, phoneNumber, newUserID)
	if err != nil {
		if errors.Is(err, models.ErrTransactionFailed) {
			// Money accounting is affected; loud log for manual follow-up.
			slog.Error("Reconciliation rolled back",
				"phone_number", phoneNumber, "user_id", newUserID, "error", err)
		}
		metrics.ReconciliationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	if !stats.Reconciled {
		metrics.ReconciliationsTotal.WithLabelValues("no_match").Inc()
		return &ReconciliationResult{
			Reconciled: false,
			NetBalance: decimal.Zero,
			Message:    "No pending member found for this phone number",
		}, nil
	}

	metrics.ReconciliationsTotal.WithLabelValues("reconciled").Inc()
	slog.Info("Pending member reconciled",
		"pending_member_id", stats.PendingMemberID,
		"user_id", newUserID,
		"groups_joined", stats.GroupsJoined,
		"expenses_updated", stats.ExpensesUpdated,
		"net_balance", stats.NetBalance.String(),
	)
	return &ReconciliationResult{
		Reconciled:      true,
		GroupsJoined:    stats.GroupsJoined,
		ExpensesUpdated: stats.ExpensesUpdated,
		NetBalance:      stats.NetBalance,
	}, nil
}

// PendingPreview summarizes what a phone number would inherit on
// registration: display name, groups, and the balance owed so far.
type PendingPreview struct {
	DisplayName    string          `json:"displayName"`
	GroupCount     int             `json:"groupCount"`
	GroupIDs       []string        `json:"groupIds"`
	PendingBalance decimal.Decimal `json:"pendingBalance"`
}

// Preview returns the pending member summary for a phone number, or
// models.ErrNotFound when no invite exists.
func (s *ReconciliationService) Preview(ctx context.Context, phoneNumber string) (*PendingPreview, error) {
	pm, err := s.store.GetInvitedByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	groupIDs, err := s.store.ListGroupIDsForPendingMember(ctx, pm.ID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesReferencing(ctx, pm.ID)
	if err != nil {
		return nil, err
	}

	// The preview shows what the invitee owes: split shares only, the
	// same accumulation the original onboarding screen displays.
	balance := decimal.Zero
	ref := models.PendingRef(pm.ID)
	for _, exp := range expenses {
		for _, split := range exp.SplitBetween {
			if split.Participant == ref {
				balance = balance.Sub(split.Amount)
			}
		}
	}

	return &PendingPreview{
		DisplayName:    pm.DisplayName,
		GroupCount:     len(groupIDs),
		GroupIDs:       groupIDs,
		PendingBalance: balance.Round(2),
	}, nil
}
