// Package postgres implements the store driver on PostgreSQL.
//
// PostgreSQL adds pgvector-backed semantic search; it is the reference
// driver when the companion outgrows the local SQLite file.
package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/aikumi/companion/internal/profile"
	"github.com/aikumi/companion/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection pool from profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Companion serves a handful of users from one process; keep the
	// pool small.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

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
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL,
	remind_at_utc TIMESTAMPTZ NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_reminder_user_remind_at ON reminder (user_id, remind_at_utc);
CREATE INDEX IF NOT EXISTS idx_reminder_remind_at ON reminder (remind_at_utc);

CREATE TABLE IF NOT EXISTS anniversary (
	id SERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	month INTEGER NOT NULL,
	day INTEGER NOT NULL,
	label TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, kind, label)
);

CREATE TABLE IF NOT EXISTS fact (
	id SERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	importance INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_fact_user_rank ON fact (user_id, importance DESC, created_at DESC);

CREATE TABLE IF NOT EXISTS user_setting (
	user_id TEXT PRIMARY KEY,
	role TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	timezone TEXT NOT NULL DEFAULT ''
);
`

const embeddingSchema = `
CREATE TABLE IF NOT EXISTS fact_embedding (
	fact_id INTEGER PRIMARY KEY REFERENCES fact (id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	embedding vector(1536) NOT NULL,
	model TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fact_embedding_user ON fact_embedding (user_id);
`

// Migrate creates the schema if it does not exist. The pgvector part is
// best-effort: without the extension, semantic recall is unavailable but
// everything else still works.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}

	if _, err := d.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil
	}
	if _, err := d.db.ExecContext(ctx, embeddingSchema); err != nil {
		return errors.Wrap(err, "failed to create embedding schema")
	}
	return nil
}
