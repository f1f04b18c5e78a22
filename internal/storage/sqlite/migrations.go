package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// Monetary amounts are stored as exact decimal strings, never REAL.
// The partial unique index on credit_history is load-bearing: it is the
// storage-enforced duplicate-suppression key for scoring events. It excludes
// reminder_ignored on purpose — repeated ignored reminders for one settlement
// are each their own penalty.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    phone_number TEXT NOT NULL UNIQUE,
    credit_score INTEGER NOT NULL DEFAULT 500,
    consecutive_on_time INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    currency TEXT NOT NULL DEFAULT 'INR',
    created_by TEXT NOT NULL REFERENCES users(id),
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id),
    PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS pending_members (
    id TEXT PRIMARY KEY,
    phone_number TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    added_by TEXT NOT NULL REFERENCES users(id),
    status TEXT NOT NULL DEFAULT 'invited',
    resolved_to_user TEXT REFERENCES users(id),
    resolved_at INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_pending_members (
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    pending_member_id TEXT NOT NULL REFERENCES pending_members(id),
    PRIMARY KEY (group_id, pending_member_id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    amount TEXT NOT NULL,
    paid_by_id TEXT NOT NULL,
    paid_by_kind TEXT NOT NULL,
    has_pending INTEGER NOT NULL DEFAULT 0,
    category TEXT NOT NULL DEFAULT 'other',
    notes TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
    participant_id TEXT NOT NULL,
    participant_kind TEXT NOT NULL,
    amount TEXT NOT NULL,
    PRIMARY KEY (expense_id, participant_id, participant_kind)
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    from_user_id TEXT NOT NULL REFERENCES users(id),
    to_user_id TEXT NOT NULL REFERENCES users(id),
    amount TEXT NOT NULL,
    expense_id TEXT,
    method TEXT NOT NULL DEFAULT 'cash',
    note TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'completed',
    credit_score_processed INTEGER NOT NULL DEFAULT 0,
    last_penalty_tier INTEGER NOT NULL DEFAULT 0,
    reminder_count INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    completed_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS credit_history (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    old_score INTEGER NOT NULL,
    new_score INTEGER NOT NULL,
    change_amount INTEGER NOT NULL,
    reason TEXT NOT NULL,
    related_settlement_id TEXT,
    created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_credit_history_dedup
    ON credit_history(user_id, related_settlement_id, reason)
    WHERE related_settlement_id IS NOT NULL AND reason != 'reminder_ignored';

CREATE INDEX IF NOT EXISTS idx_credit_history_user ON credit_history(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_expenses_group ON expenses(group_id);
CREATE INDEX IF NOT EXISTS idx_expense_splits_participant ON expense_splits(participant_id, participant_kind);
CREATE INDEX IF NOT EXISTS idx_settlements_group ON settlements(group_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_settlements_debtor ON settlements(from_user_id, status);
CREATE INDEX IF NOT EXISTS idx_group_members_group ON group_members(group_id);
CREATE INDEX IF NOT EXISTS idx_group_pending_members_group ON group_pending_members(group_id);
CREATE INDEX IF NOT EXISTS idx_pending_members_status ON pending_members(status);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
