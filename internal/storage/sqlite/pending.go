package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitsettle/splitsettle/internal/models"
)

// CreatePendingMember persists a new phone-number invitee.
func (s *SQLiteStore) CreatePendingMember(ctx context.Context, pm *models.PendingMember) error {
	if pm.ID == "" {
		pm.ID = newID()
	}
	if pm.CreatedAt == 0 {
		pm.CreatedAt = nowUnix()
	}
	if pm.Status == "" {
		pm.Status = models.PendingInvited
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_members (id, phone_number, display_name, added_by, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		pm.ID, pm.PhoneNumber, pm.DisplayName, pm.AddedBy, pm.Status, pm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pending member: %w", err)
	}
	return nil
}

func scanPendingMember(row *sql.Row) (*models.PendingMember, error) {
	pm := &models.PendingMember{}
	err := row.Scan(&pm.ID, &pm.PhoneNumber, &pm.DisplayName, &pm.AddedBy,
		&pm.Status, &pm.ResolvedToUserID, &pm.ResolvedAt, &pm.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return pm, nil
}

const pendingMemberColumns = `id, phone_number, display_name, added_by, status,
	COALESCE(resolved_to_user, ''), resolved_at, created_at`

// GetPendingMember retrieves a pending member by ID.
func (s *SQLiteStore) GetPendingMember(ctx context.Context, pendingID string) (*models.PendingMember, error) {
	pm, err := scanPendingMember(s.db.QueryRowContext(ctx,
		"SELECT "+pendingMemberColumns+" FROM pending_members WHERE id = ?", pendingID))
	if err == models.ErrNotFound {
		return nil, fmt.Errorf("pending member %s: %w", pendingID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending member: %w", err)
	}
	return pm, nil
}

// GetInvitedByPhone returns the still-invited pending member for a phone
// number.
func (s *SQLiteStore) GetInvitedByPhone(ctx context.Context, phoneNumber string) (*models.PendingMember, error) {
	pm, err := scanPendingMember(s.db.QueryRowContext(ctx,
		"SELECT "+pendingMemberColumns+" FROM pending_members WHERE phone_number = ? AND status = ?",
		phoneNumber, models.PendingInvited))
	if err == models.ErrNotFound {
		return nil, fmt.Errorf("invited member for %s: %w", phoneNumber, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending member by phone: %w", err)
	}
	return pm, nil
}

// ListGroupIDsForPendingMember returns the groups the pending member was
// invited into.
func (s *SQLiteStore) ListGroupIDsForPendingMember(ctx context.Context, pendingID string) ([]string, error) {
	ids, err := s.stringColumn(ctx,
		"SELECT group_id FROM group_pending_members WHERE pending_member_id = ? ORDER BY rowid", pendingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for pending member: %w", err)
	}
	return ids, nil
}

// ListExpensesReferencing returns every expense where the pending member
// appears as payer or in a split entry.
func (s *SQLiteStore) ListExpensesReferencing(ctx context.Context, pendingID string) ([]*models.Expense, error) {
	ids, err := s.stringColumn(ctx,
		`SELECT DISTINCT e.id FROM expenses e
		 LEFT JOIN expense_splits es ON es.expense_id = e.id
		 WHERE (e.paid_by_id = ? AND e.paid_by_kind = ?)
		    OR (es.participant_id = ? AND es.participant_kind = ?)
		 ORDER BY e.id`,
		pendingID, models.KindPending, pendingID, models.KindPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find referencing expenses: %w", err)
	}

	expenses := make([]*models.Expense, 0, len(ids))
	for _, id := range ids {
		exp, err := s.GetExpense(ctx, id)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, exp)
	}
	return expenses, nil
}
