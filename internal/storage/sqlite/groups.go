package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitsettle/splitsettle/internal/models"
)

// CreateGroup persists a new group with its initial member lists.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = newID()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = nowUnix()
	}
	if group.Currency == "" {
		group.Currency = "INR"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, currency, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, group.Currency, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for _, userID := range group.MemberIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
			group.ID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	for _, pendingID := range group.PendingMemberIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_pending_members (group_id, pending_member_id) VALUES (?, ?)",
			group.ID, pendingID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group pending member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including both member lists in insertion
// order.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, currency, created_by, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.Currency, &group.CreatedBy, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.MemberIDs, err = s.stringColumn(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? ORDER BY rowid", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}

	group.PendingMemberIDs, err = s.stringColumn(ctx,
		"SELECT pending_member_id FROM group_pending_members WHERE group_id = ? ORDER BY rowid", groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group pending members: %w", err)
	}

	return group, nil
}

// AddGroupMember adds a registered user to the group's active list.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// AddGroupPendingMember adds a pending member to the group's invite list.
func (s *SQLiteStore) AddGroupPendingMember(ctx context.Context, groupID, pendingID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO group_pending_members (group_id, pending_member_id) VALUES (?, ?)",
		groupID, pendingID,
	)
	if err != nil {
		return fmt.Errorf("failed to add group pending member: %w", err)
	}
	return nil
}

// ListGroupMembers returns the group's registered members, ordered by join
// insertion (rowid) so balance output is stable.
func (s *SQLiteStore) ListGroupMembers(ctx context.Context, groupID string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.phone_number, u.created_at
		 FROM group_members gm JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = ? ORDER BY gm.rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Name, &user.PhoneNumber, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return users, nil
}

// ListGroupPendingMembers returns the group's invited members in insertion
// order.
func (s *SQLiteStore) ListGroupPendingMembers(ctx context.Context, groupID string) ([]*models.PendingMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pm.id, pm.phone_number, pm.display_name, pm.added_by, pm.status,
		        COALESCE(pm.resolved_to_user, ''), pm.resolved_at, pm.created_at
		 FROM group_pending_members gpm JOIN pending_members pm ON pm.id = gpm.pending_member_id
		 WHERE gpm.group_id = ? ORDER BY gpm.rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group pending members: %w", err)
	}
	defer rows.Close()

	var pms []*models.PendingMember
	for rows.Next() {
		pm := &models.PendingMember{}
		if err := rows.Scan(&pm.ID, &pm.PhoneNumber, &pm.DisplayName, &pm.AddedBy,
			&pm.Status, &pm.ResolvedToUserID, &pm.ResolvedAt, &pm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending member: %w", err)
		}
		pms = append(pms, pm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending members: %w", err)
	}
	return pms, nil
}

// stringColumn runs a single-column string query.
func (s *SQLiteStore) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
