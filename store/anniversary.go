package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// AnniversaryKind distinguishes birthdays from custom anniversaries.
type AnniversaryKind string

const (
	AnniversaryKindBirthday    AnniversaryKind = "birthday"
	AnniversaryKindAnniversary AnniversaryKind = "anniversary"
)

// Anniversary is a yearly-recurring calendar notice. The month/day pair
// carries no year.
type Anniversary struct {
	ID        int32
	UserID    string
	Kind      AnniversaryKind
	Month     int
	Day       int
	Label     string
	CreatedAt time.Time

	// Timezone is the owner's stored timezone, populated only by
	// ListAllAnniversaries for the dispatch loop.
	Timezone string
}

// FindAnniversary filters anniversary listings.
type FindAnniversary struct {
	UserID *string
}

// UpsertAnniversary stores an anniversary, replacing an existing entry of
// the same user and kind with the same label.
func (s *Store) UpsertAnniversary(ctx context.Context, upsert *Anniversary) (*Anniversary, error) {
	if upsert.UserID == "" {
		return nil, errors.New("anniversary requires a user id")
	}
	if upsert.Month < 1 || upsert.Month > 12 || upsert.Day < 1 || upsert.Day > 31 {
		return nil, errors.Errorf("invalid month/day %d/%d", upsert.Month, upsert.Day)
	}
	if upsert.Kind != AnniversaryKindBirthday && upsert.Kind != AnniversaryKindAnniversary {
		return nil, errors.Errorf("unknown anniversary kind %q", upsert.Kind)
	}
	return s.driver.UpsertAnniversary(ctx, upsert)
}

// ListAnniversaries returns a user's anniversaries.
func (s *Store) ListAnniversaries(ctx context.Context, userID string) ([]*Anniversary, error) {
	return s.driver.ListAnniversaries(ctx, &FindAnniversary{UserID: &userID})
}

// ListAllAnniversaries returns every anniversary joined with its owner's
// timezone, for the anniversary dispatch loop.
func (s *Store) ListAllAnniversaries(ctx context.Context) ([]*Anniversary, error) {
	return s.driver.ListAnniversaries(ctx, &FindAnniversary{})
}
