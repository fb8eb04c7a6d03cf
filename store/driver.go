package store

import (
	"context"
	"database/sql"
	"time"
)

// Driver is the interface a database driver implements. Every operation
// is a single atomic statement or transaction; no long-held transaction
// ever spans a network call.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	// Reminder model related methods.
	CreateReminder(ctx context.Context, create *Reminder) (*Reminder, error)
	ListReminders(ctx context.Context, find *FindReminder) ([]*Reminder, error)
	PopDueReminders(ctx context.Context, now time.Time) ([]*Reminder, error)
	DeleteReminder(ctx context.Context, id int32) error

	// Anniversary model related methods.
	UpsertAnniversary(ctx context.Context, upsert *Anniversary) (*Anniversary, error)
	ListAnniversaries(ctx context.Context, find *FindAnniversary) ([]*Anniversary, error)

	// Fact model related methods.
	CreateFact(ctx context.Context, create *Fact) (*Fact, error)
	ListFacts(ctx context.Context, find *FindFact) ([]*Fact, error)
	UpsertFactEmbedding(ctx context.Context, upsert *FactEmbedding) error
	SearchFactsByVector(ctx context.Context, userID string, embedding []float32, limit int) ([]*Fact, []float32, error)

	// UserSetting model related methods.
	UpsertUserSetting(ctx context.Context, upsert *UpsertUserSetting) (*UserSetting, error)
	GetUserSetting(ctx context.Context, userID string) (*UserSetting, error)
	ListUserSettings(ctx context.Context) ([]*UserSetting, error)
}
