package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitsettle/splitsettle/internal/models"
)

// CreateSettlement persists a new settlement to the database.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = newID()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = nowUnix()
	}
	if settlement.Method == "" {
		settlement.Method = "cash"
	}
	if settlement.Status == "" {
		settlement.Status = models.SettlementCompleted
	}

	var expenseID any
	if settlement.ExpenseID != "" {
		expenseID = settlement.ExpenseID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_user_id, to_user_id, amount, expense_id,
		                          method, note, status, credit_score_processed, last_penalty_tier,
		                          reminder_count, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.FromUserID, settlement.ToUserID,
		settlement.Amount.String(), expenseID, settlement.Method, settlement.Note,
		settlement.Status, settlement.CreditScoreProcessed, settlement.LastPenaltyTier,
		settlement.ReminderCount, settlement.CreatedAt, settlement.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

const settlementColumns = `id, group_id, from_user_id, to_user_id, amount,
	COALESCE(expense_id, ''), method, note, status, credit_score_processed,
	last_penalty_tier, reminder_count, created_at, completed_at`

func scanSettlement(scan func(dest ...any) error) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var amount, status string
	err := scan(&settlement.ID, &settlement.GroupID, &settlement.FromUserID,
		&settlement.ToUserID, &amount, &settlement.ExpenseID, &settlement.Method,
		&settlement.Note, &status, &settlement.CreditScoreProcessed,
		&settlement.LastPenaltyTier, &settlement.ReminderCount,
		&settlement.CreatedAt, &settlement.CompletedAt)
	if err != nil {
		return nil, err
	}
	settlement.Status = models.SettlementStatus(status)
	if settlement.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	return settlement, nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE id = ?", settlementID)
	settlement, err := scanSettlement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// CompleteSettlement flips a pending settlement to completed. Completing an
// already-completed settlement reports a conflict so the caller does not
// double-score it.
func (s *SQLiteStore) CompleteSettlement(ctx context.Context, settlementID string, completedAt int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE settlements SET status = ?, completed_at = ? WHERE id = ? AND status = ?",
		models.SettlementCompleted, completedAt, settlementID, models.SettlementPending,
	)
	if err != nil {
		return fmt.Errorf("failed to complete settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetSettlement(ctx, settlementID); err != nil {
			return err
		}
		return fmt.Errorf("settlement %s already completed: %w", settlementID, models.ErrConflict)
	}
	return nil
}

// MarkCreditScoreProcessed records that the completion scoring event ran.
func (s *SQLiteStore) MarkCreditScoreProcessed(ctx context.Context, settlementID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE settlements SET credit_score_processed = 1 WHERE id = ?", settlementID)
	if err != nil {
		return fmt.Errorf("failed to mark settlement processed: %w", err)
	}
	return nil
}

// IncrementReminderCount bumps the reminder counter and returns the new value.
func (s *SQLiteStore) IncrementReminderCount(ctx context.Context, settlementID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE settlements SET reminder_count = reminder_count + 1 WHERE id = ?", settlementID)
	if err != nil {
		return 0, fmt.Errorf("failed to increment reminder count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("settlement %s: %w", settlementID, models.ErrNotFound)
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT reminder_count FROM settlements WHERE id = ?", settlementID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to read reminder count: %w", err)
	}
	return count, nil
}

// ListSettlementsByGroup returns a group's settlements with the given status,
// newest first.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string, status models.SettlementStatus, limit int) ([]*models.Settlement, error) {
	query := "SELECT " + settlementColumns + ` FROM settlements
		 WHERE group_id = ? AND status = ? ORDER BY created_at DESC, id`
	args := []any{groupID, status}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.querySettlements(ctx, query, args...)
}

// ListPendingSettlementsByDebtor returns the user's unpaid settlements,
// oldest first so penalties apply in debt order.
func (s *SQLiteStore) ListPendingSettlementsByDebtor(ctx context.Context, userID string) ([]*models.Settlement, error) {
	return s.querySettlements(ctx,
		"SELECT "+settlementColumns+` FROM settlements
		 WHERE from_user_id = ? AND status = ? ORDER BY created_at, id`,
		userID, models.SettlementPending,
	)
}

// SetSettlementPenaltyTier raises lastPenaltyTier. The guard keeps the tier
// monotonic even if two scans race.
func (s *SQLiteStore) SetSettlementPenaltyTier(ctx context.Context, settlementID string, tier int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE settlements SET last_penalty_tier = ? WHERE id = ? AND last_penalty_tier < ?",
		tier, settlementID, tier,
	)
	if err != nil {
		return fmt.Errorf("failed to set penalty tier: %w", err)
	}
	return nil
}

// ListDebtorsWithPendingSettlements enumerates users owing on pending
// settlements.
func (s *SQLiteStore) ListDebtorsWithPendingSettlements(ctx context.Context) ([]string, error) {
	ids, err := s.stringColumn(ctx,
		"SELECT DISTINCT from_user_id FROM settlements WHERE status = ? ORDER BY from_user_id",
		models.SettlementPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list debtors: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) querySettlements(ctx context.Context, query string, args ...any) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}
