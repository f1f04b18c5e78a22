// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/models"
)

// Store is the full persistence surface, composed from the per-concern
// interfaces below. Services depend on the narrow interfaces; the SQLite
// implementation satisfies all of them.
type Store interface {
	UserStore
	GroupStore
	PendingMemberStore
	ExpenseStore
	SettlementStore
	CreditStore
	Reconciler

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists registered users.
type UserStore interface {
	// CreateUser persists a new user, generating ID and CreatedAt when
	// unset. The user starts at the default credit score.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by ID; models.ErrNotFound if absent.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// GetUsersByIDs returns the users that exist among ids, keyed by ID.
	// Missing IDs are simply absent from the map.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore persists groups and their membership lists.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// AddGroupMember adds a registered user to the group's active list.
	// Adding an existing member is a no-op.
	AddGroupMember(ctx context.Context, groupID, userID string) error

	// AddGroupPendingMember adds a pending member to the group's invite
	// list. Adding an existing entry is a no-op.
	AddGroupPendingMember(ctx context.Context, groupID, pendingID string) error

	// ListGroupMembers returns the group's registered members with
	// identity info for labeling.
	ListGroupMembers(ctx context.Context, groupID string) ([]*models.User, error)

	// ListGroupPendingMembers returns the group's invited members.
	ListGroupPendingMembers(ctx context.Context, groupID string) ([]*models.PendingMember, error)
}

// PendingMemberStore persists phone-number invitees.
type PendingMemberStore interface {
	CreatePendingMember(ctx context.Context, pm *models.PendingMember) error
	GetPendingMember(ctx context.Context, pendingID string) (*models.PendingMember, error)

	// GetInvitedByPhone returns the still-invited pending member for a
	// phone number; models.ErrNotFound if none.
	GetInvitedByPhone(ctx context.Context, phoneNumber string) (*models.PendingMember, error)

	// ListGroupIDsForPendingMember returns the groups the pending member
	// was invited into.
	ListGroupIDsForPendingMember(ctx context.Context, pendingID string) ([]string, error)

	// ListExpensesReferencing returns every expense where the pending
	// member appears as payer or in a split entry.
	ListExpensesReferencing(ctx context.Context, pendingID string) ([]*models.Expense, error)
}

// ExpenseStore persists expenses and their split entries.
type ExpenseStore interface {
	// CreateExpense persists a new expense with its splits, generating ID
	// and CreatedAt when unset.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// DeleteExpense hard-deletes an expense and its splits.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesByGroup returns a group's expenses, newest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
}

// SettlementStore persists settlements.
type SettlementStore interface {
	// CreateSettlement persists a new settlement, generating ID and
	// CreatedAt when unset.
	CreateSettlement(ctx context.Context, s *models.Settlement) error

	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// CompleteSettlement flips a pending settlement to completed. A
	// settlement that is already completed returns models.ErrConflict.
	CompleteSettlement(ctx context.Context, settlementID string, completedAt int64) error

	// MarkCreditScoreProcessed records that the completion scoring ran.
	MarkCreditScoreProcessed(ctx context.Context, settlementID string) error

	// IncrementReminderCount bumps the reminder counter, returning the new
	// value.
	IncrementReminderCount(ctx context.Context, settlementID string) (int, error)

	// ListSettlementsByGroup returns a group's settlements with the given
	// status, newest first, capped at limit (0 = no cap).
	ListSettlementsByGroup(ctx context.Context, groupID string, status models.SettlementStatus, limit int) ([]*models.Settlement, error)

	// ListPendingSettlementsByDebtor returns the user's unpaid settlements.
	ListPendingSettlementsByDebtor(ctx context.Context, userID string) ([]*models.Settlement, error)

	// SetSettlementPenaltyTier raises lastPenaltyTier; it never decreases.
	SetSettlementPenaltyTier(ctx context.Context, settlementID string, tier int) error

	// ListDebtorsWithPendingSettlements enumerates users owing on pending
	// settlements, for the periodic delay sweep.
	ListDebtorsWithPendingSettlements(ctx context.Context) ([]string, error)
}

// CreditStore persists credit score state and its append-only audit trail.
type CreditStore interface {
	// GetUserCredit returns the user's score state; models.ErrNotFound if
	// the user does not exist.
	GetUserCredit(ctx context.Context, userID string) (*models.UserCredit, error)

	// ApplyCreditEvent atomically appends the audit record and updates the
	// user's score and streak. The update is conditional on the stored
	// score still equaling expectScore; a mismatch returns
	// models.ErrConflict and writes nothing. With dedupe set, an existing
	// record for the same (user, settlement, reason) key makes the call a
	// no-op returning duplicate=true. The uniqueness is enforced by a
	// storage constraint, not an application-level check.
	ApplyCreditEvent(ctx context.Context, rec *models.CreditRecord, newConsecutive, expectScore int, dedupe bool) (duplicate bool, err error)

	// ListCreditHistory returns the user's audit records newest first,
	// plus the total count for pagination.
	ListCreditHistory(ctx context.Context, userID string, limit, offset int) ([]*models.CreditRecord, int, error)
}

// ReconcileStats summarizes what a reconciliation rewrote.
type ReconcileStats struct {
	// Reconciled is false when no invited pending member matched the
	// phone number; nothing was changed.
	Reconciled      bool
	PendingMemberID string
	DisplayName     string
	GroupsJoined    int
	ExpensesUpdated int

	// NetBalance is the migrated position over the rewritten expenses:
	// payer credits minus split debits.
	NetBalance decimal.Decimal
}

// Reconciler migrates a pending member's history onto a registered user.
type Reconciler interface {
	// ReconcilePendingMember executes the migration as a single atomic
	// transaction: group membership moves, expense reference rewrites,
	// and the resolved marker all land together or not at all. Failures
	// roll back fully and wrap models.ErrTransactionFailed.
	ReconcilePendingMember(ctx context.Context, phoneNumber, newUserID string) (*ReconcileStats, error)
}
