// Package testfixtures provides a throwaway SQLite database and row
// builders for tests.  The repositories' SQL is portable between MySQL
// and SQLite (positional placeholders, DATETIME as UTC strings), so
// tests exercise the real queries without a running MySQL server.
package testfixtures

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'DRIVER',
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE lots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    capacity INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE reservations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    lot_id INTEGER NOT NULL,
    user_id INTEGER,
    device_identifier TEXT,
    vehicle_plate TEXT NOT NULL,
    status TEXT NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT,
    has_checked_in INTEGER NOT NULL DEFAULT 0,
    has_checked_out INTEGER NOT NULL DEFAULT 0,
    active_qr_token TEXT,
    qr_token_expiry TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE parking_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL UNIQUE,
    lot_id INTEGER NOT NULL,
    reservation_id INTEGER NOT NULL,
    entered_at TEXT NOT NULL
);
`

// OpenSQLite creates a fresh file-backed SQLite database under
// t.TempDir(), applies the schema and returns the handle.  The pool is
// capped at one connection so transactions never trip over SQLITE_BUSY.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "access_test.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
