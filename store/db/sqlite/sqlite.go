// Package sqlite implements the store driver on SQLite.
//
// SQLite is the default single local store. It has no vector extension,
// so semantic search loads the user's stored embeddings and ranks them
// in-process; fine at personal-assistant scale, PostgreSQL takes over
// beyond that.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/aikumi/companion/internal/profile"
	"github.com/aikumi/companion/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// WAL keeps overlapping short-lived operations from concurrent
	// callers from blocking each other; busy_timeout covers the rest.
	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// modernc sqlite serializes writes; a single write connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS reminder (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	remind_at_utc TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reminder_user_remind_at ON reminder (user_id, remind_at_utc);
CREATE INDEX IF NOT EXISTS idx_reminder_remind_at ON reminder (remind_at_utc);

CREATE TABLE IF NOT EXISTS anniversary (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	month INTEGER NOT NULL,
	day INTEGER NOT NULL,
	label TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (user_id, kind, label)
);

CREATE TABLE IF NOT EXISTS fact (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	importance INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fact_user_rank ON fact (user_id, importance DESC, created_at DESC);

CREATE TABLE IF NOT EXISTS fact_embedding (
	fact_id INTEGER PRIMARY KEY REFERENCES fact (id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	embedding BLOB NOT NULL,
	model TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fact_embedding_user ON fact_embedding (user_id);

CREATE TABLE IF NOT EXISTS user_setting (
	user_id TEXT PRIMARY KEY,
	role TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT ''
);
`

// Migrate creates the schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}
	return nil
}
