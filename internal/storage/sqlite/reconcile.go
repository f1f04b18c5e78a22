package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/splitsettle/splitsettle/internal/models"
	"github.com/splitsettle/splitsettle/internal/storage"
)

// ReconcilePendingMember migrates a pending member's history onto a newly
// registered user inside one transaction.
//
// Steps, in order: move group memberships from the pending list to the
// active list, rewrite every expense reference (payer and split entries) to
// the new user while recomputing each expense's hasPendingParticipants flag,
// accumulate the migrated net balance over the rewritten references, and
// finally mark the pending member resolved. Any failure rolls the whole
// thing back — a half-migrated member would silently orphan balance history.
func (s *SQLiteStore) ReconcilePendingMember(ctx context.Context, phoneNumber, newUserID string) (*storage.ReconcileStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", models.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	stats, err := s.reconcileInTx(ctx, tx, phoneNumber, newUserID)
	if err != nil {
		return nil, err
	}
	if !stats.Reconciled {
		// Nothing matched; nothing to commit.
		return stats, nil
	}

	if s.reconcileHook != nil {
		if err := s.reconcileHook(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", models.ErrTransactionFailed, err)
	}
	return stats, nil
}

func (s *SQLiteStore) reconcileInTx(ctx context.Context, tx *sql.Tx, phoneNumber, newUserID string) (*storage.ReconcileStats, error) {
	stats := &storage.ReconcileStats{NetBalance: decimal.Zero}

	var pendingID, displayName string
	err := tx.QueryRowContext(ctx,
		"SELECT id, display_name FROM pending_members WHERE phone_number = ? AND status = ?",
		phoneNumber, models.PendingInvited,
	).Scan(&pendingID, &displayName)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find pending member: %v", models.ErrTransactionFailed, err)
	}
	stats.Reconciled = true
	stats.PendingMemberID = pendingID
	stats.DisplayName = displayName

	// 1. Group memberships: pending list -> active list.
	groupIDs, err := txStringColumn(ctx, tx,
		"SELECT group_id FROM group_pending_members WHERE pending_member_id = ? ORDER BY rowid", pendingID)
	if err != nil {
		return nil, fmt.Errorf("%w: list memberships: %v", models.ErrTransactionFailed, err)
	}
	for _, groupID := range groupIDs {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM group_pending_members WHERE group_id = ? AND pending_member_id = ?",
			groupID, pendingID); err != nil {
			return nil, fmt.Errorf("%w: remove pending membership: %v", models.ErrTransactionFailed, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
			groupID, newUserID); err != nil {
			return nil, fmt.Errorf("%w: add member: %v", models.ErrTransactionFailed, err)
		}
		stats.GroupsJoined++
	}

	// 2. Expense references.
	expenseIDs, err := txStringColumn(ctx, tx,
		`SELECT DISTINCT e.id FROM expenses e
		 LEFT JOIN expense_splits es ON es.expense_id = e.id
		 WHERE (e.paid_by_id = ? AND e.paid_by_kind = ?)
		    OR (es.participant_id = ? AND es.participant_kind = ?)
		 ORDER BY e.id`,
		pendingID, models.KindPending, pendingID, models.KindPending)
	if err != nil {
		return nil, fmt.Errorf("%w: find expenses: %v", models.ErrTransactionFailed, err)
	}

	for _, expenseID := range expenseIDs {
		if err := s.rewriteExpense(ctx, tx, expenseID, pendingID, newUserID, stats); err != nil {
			return nil, err
		}
		stats.ExpensesUpdated++
	}

	// 3. Resolve the pending member.
	if _, err := tx.ExecContext(ctx,
		"UPDATE pending_members SET status = ?, resolved_to_user = ?, resolved_at = ? WHERE id = ?",
		models.PendingResolved, newUserID, nowUnix(), pendingID); err != nil {
		return nil, fmt.Errorf("%w: resolve pending member: %v", models.ErrTransactionFailed, err)
	}

	stats.NetBalance = stats.NetBalance.Round(2)
	return stats, nil
}

// rewriteExpense moves one expense's references from the pending member to
// the registered user and folds the balance impact into stats.
func (s *SQLiteStore) rewriteExpense(ctx context.Context, tx *sql.Tx, expenseID, pendingID, newUserID string, stats *storage.ReconcileStats) error {
	var payerID, payerKind, amountRaw string
	err := tx.QueryRowContext(ctx,
		"SELECT paid_by_id, paid_by_kind, amount FROM expenses WHERE id = ?",
		expenseID,
	).Scan(&payerID, &payerKind, &amountRaw)
	if err != nil {
		return fmt.Errorf("%w: load expense %s: %v", models.ErrTransactionFailed, expenseID, err)
	}

	// Split entries first: debit the migrated shares.
	rows, err := tx.QueryContext(ctx,
		"SELECT participant_id, participant_kind, amount FROM expense_splits WHERE expense_id = ? ORDER BY rowid",
		expenseID,
	)
	if err != nil {
		return fmt.Errorf("%w: load splits: %v", models.ErrTransactionFailed, err)
	}

	var migrated decimal.Decimal
	hasOtherPending := false
	matchedSplit := false
	for rows.Next() {
		var pid, kind, amt string
		if err := rows.Scan(&pid, &kind, &amt); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scan split: %v", models.ErrTransactionFailed, err)
		}
		if models.ParticipantKind(kind) != models.KindPending {
			continue
		}
		if pid == pendingID {
			share, err := parseAmount(amt)
			if err != nil {
				rows.Close()
				return fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
			}
			migrated = migrated.Sub(share)
			matchedSplit = true
		} else {
			hasOtherPending = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate splits: %v", models.ErrTransactionFailed, err)
	}

	if matchedSplit {
		if _, err := tx.ExecContext(ctx,
			`UPDATE expense_splits SET participant_id = ?, participant_kind = ?
			 WHERE expense_id = ? AND participant_id = ? AND participant_kind = ?`,
			newUserID, models.KindUser, expenseID, pendingID, models.KindPending); err != nil {
			return fmt.Errorf("%w: rewrite split: %v", models.ErrTransactionFailed, err)
		}
	}

	payerIsPending := models.ParticipantKind(payerKind) == models.KindPending && payerID == pendingID
	if payerIsPending {
		amount, err := parseAmount(amountRaw)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrTransactionFailed, err)
		}
		migrated = migrated.Add(amount)
	} else if models.ParticipantKind(payerKind) == models.KindPending {
		hasOtherPending = true
	}

	newPayerID, newPayerKind := payerID, payerKind
	if payerIsPending {
		newPayerID, newPayerKind = newUserID, string(models.KindUser)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE expenses SET paid_by_id = ?, paid_by_kind = ?, has_pending = ? WHERE id = ?",
		newPayerID, newPayerKind, hasOtherPending, expenseID); err != nil {
		return fmt.Errorf("%w: rewrite expense: %v", models.ErrTransactionFailed, err)
	}

	stats.NetBalance = stats.NetBalance.Add(migrated)
	return nil
}

func txStringColumn(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
