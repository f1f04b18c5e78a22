package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitsettle/splitsettle/internal/models"
)

// CreateExpense persists a new expense with its split entries.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = newID()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = nowUnix()
	}
	if expense.Category == "" {
		expense.Category = "other"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, title, amount, paid_by_id, paid_by_kind,
		                       has_pending, category, notes, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Title, expense.Amount.String(),
		expense.PaidBy.ID, expense.PaidBy.Kind, expense.HasPendingParticipants,
		expense.Category, expense.Notes, expense.CreatedBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for _, split := range expense.SplitBetween {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, participant_id, participant_kind, amount)
			 VALUES (?, ?, ?, ?)`,
			expense.ID, split.Participant.ID, split.Participant.Kind, split.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including all split entries.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount, paidByKind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, title, amount, paid_by_id, paid_by_kind,
		        has_pending, category, notes, created_by, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.GroupID, &expense.Title, &amount,
		&expense.PaidBy.ID, &paidByKind, &expense.HasPendingParticipants,
		&expense.Category, &expense.Notes, &expense.CreatedBy, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.PaidBy.Kind = models.ParticipantKind(paidByKind)
	if expense.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}

	expense.SplitBetween, err = s.expenseSplits(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *SQLiteStore) expenseSplits(ctx context.Context, expenseID string) ([]models.SplitEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, participant_kind, amount FROM expense_splits
		 WHERE expense_id = ? ORDER BY rowid`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []models.SplitEntry
	for rows.Next() {
		var entry models.SplitEntry
		var kind, amount string
		if err := rows.Scan(&entry.Participant.ID, &kind, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		entry.Participant.Kind = models.ParticipantKind(kind)
		if entry.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		splits = append(splits, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return splits, nil
}

// DeleteExpense hard-deletes an expense; splits cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, models.ErrNotFound)
	}
	return nil
}

// ListExpensesByGroup returns a group's expenses, newest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	ids, err := s.stringColumn(ctx,
		"SELECT id FROM expenses WHERE group_id = ? ORDER BY created_at DESC, id", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
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
