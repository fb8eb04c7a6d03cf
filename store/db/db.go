// Package db provides the database driver factory.
package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/aikumi/companion/internal/profile"
	"github.com/aikumi/companion/store"
	"github.com/aikumi/companion/store/db/postgres"
	"github.com/aikumi/companion/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on the profile and runs
// migrations.
//
// SQLite is the default single local store. PostgreSQL is optional and
// adds pgvector-backed semantic search; with SQLite, similarity ranking
// happens in-process over stored embeddings.
func NewDBDriver(ctx context.Context, profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}

	if err := driver.Migrate(ctx); err != nil {
		_ = driver.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return driver, nil
}
