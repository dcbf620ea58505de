package sqlite

import (
	"context"
	"database/sql"
)

// schema mirrors the Postgres migrations. Timestamps are unix milliseconds
// in UTC; group order is the rowid.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id           TEXT PRIMARY KEY,
    phone        TEXT NOT NULL UNIQUE,
    active       INTEGER NOT NULL DEFAULT 0,
    activated_at INTEGER,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS activation_codes (
    id         TEXT PRIMARY KEY,
    phone      TEXT NOT NULL UNIQUE,
    code       TEXT NOT NULL,
    used       INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_groups (
    seq      INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id TEXT NOT NULL UNIQUE,
    name     TEXT NOT NULL,
    added_by TEXT NOT NULL,
    added_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_active ON users(active, activated_at);
CREATE INDEX IF NOT EXISTS idx_activation_codes_expires_at ON activation_codes(expires_at);
CREATE INDEX IF NOT EXISTS idx_chat_groups_added_by ON chat_groups(added_by, seq);
`

func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
