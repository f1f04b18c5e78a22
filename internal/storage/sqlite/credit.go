package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitsettle/splitsettle/internal/models"
)

// GetUserCredit returns the user's score state.
func (s *SQLiteStore) GetUserCredit(ctx context.Context, userID string) (*models.UserCredit, error) {
	uc := &models.UserCredit{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		"SELECT credit_score, consecutive_on_time FROM users WHERE id = ?",
		userID,
	).Scan(&uc.Score, &uc.ConsecutiveOnTime)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user credit: %w", err)
	}
	return uc, nil
}

// ApplyCreditEvent appends the audit record and updates the user's score and
// streak in one transaction.
//
// Duplicate suppression is the partial unique index on
// (user_id, related_settlement_id, reason): two concurrent events for the
// same key both reach the INSERT and exactly one wins, closing the
// check-then-append race. The score UPDATE is conditional on the previously
// read score (compare-and-swap); a mismatch rolls everything back and
// reports models.ErrConflict for the caller to retry.
func (s *SQLiteStore) ApplyCreditEvent(ctx context.Context, rec *models.CreditRecord, newConsecutive, expectScore int, dedupe bool) (bool, error) {
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = nowUnix()
	}

	var related any
	if rec.RelatedSettlementID != "" {
		related = rec.RelatedSettlementID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credit_history (id, user_id, old_score, new_score, change_amount,
		                             reason, related_settlement_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.OldScore, rec.NewScore, rec.ChangeAmount,
		rec.Reason, related, rec.CreatedAt,
	)
	if err != nil {
		if dedupe && isUniqueViolation(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to append credit record: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET credit_score = ?, consecutive_on_time = ? WHERE id = ? AND credit_score = ?",
		rec.NewScore, newConsecutive, rec.UserID, expectScore,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update user score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM users WHERE id = ?", rec.UserID).Scan(&exists); err == sql.ErrNoRows {
			return false, fmt.Errorf("user %s: %w", rec.UserID, models.ErrNotFound)
		}
		return false, fmt.Errorf("score changed under user %s: %w", rec.UserID, models.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return false, nil
}

// ListCreditHistory returns the user's audit records newest first, plus the
// total count for pagination.
func (s *SQLiteStore) ListCreditHistory(ctx context.Context, userID string, limit, offset int) ([]*models.CreditRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, old_score, new_score, change_amount, reason,
		        COALESCE(related_settlement_id, ''), created_at
		 FROM credit_history WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query credit history: %w", err)
	}
	defer rows.Close()

	var records []*models.CreditRecord
	for rows.Next() {
		rec := &models.CreditRecord{}
		var reason string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.OldScore, &rec.NewScore,
			&rec.ChangeAmount, &reason, &rec.RelatedSettlementID, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan credit record: %w", err)
		}
		rec.Reason = models.CreditReason(reason)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate credit history: %w", err)
	}

	var total int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM credit_history WHERE user_id = ?", userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count credit history: %w", err)
	}

	return records, total, nil
}
