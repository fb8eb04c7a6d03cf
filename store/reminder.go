package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Reminder is a durable, one-shot, time-triggered notification owned by a
// single user. RemindAt is always stored in UTC; rendering re-localizes
// at read time.
type Reminder struct {
	ID        int32
	UID       string
	UserID    string
	RemindAt  time.Time
	Content   string
	CreatedAt time.Time
}

// FindReminder filters reminder listings. Results are always ordered by
// remind_at ascending.
type FindReminder struct {
	UserID *string
	// Start/End bound remind_at as [Start, End), both UTC.
	Start *time.Time
	End   *time.Time
}

// CreateReminder persists a reminder. A store failure here is fatal to the
// owning request: the caller must report scheduling as failed, never
// silently succeed.
func (s *Store) CreateReminder(ctx context.Context, create *Reminder) (*Reminder, error) {
	if create.UserID == "" {
		return nil, errors.New("reminder requires a user id")
	}
	create.RemindAt = create.RemindAt.UTC()
	return s.driver.CreateReminder(ctx, create)
}

// ListReminders returns a user's reminders ordered by remind_at ascending.
func (s *Store) ListReminders(ctx context.Context, userID string) ([]*Reminder, error) {
	return s.driver.ListReminders(ctx, &FindReminder{UserID: &userID})
}

// ListRemindersInRange returns a user's reminders with remind_at in
// [start, end), both UTC instants, ordered ascending.
func (s *Store) ListRemindersInRange(ctx context.Context, userID string, start, end time.Time) ([]*Reminder, error) {
	start, end = start.UTC(), end.UTC()
	return s.driver.ListReminders(ctx, &FindReminder{UserID: &userID, Start: &start, End: &end})
}

// PopDueReminders atomically removes and returns every reminder across all
// users with remind_at <= now. Delivery after a pop is at-most-once: a
// failed delivery is not re-queued.
func (s *Store) PopDueReminders(ctx context.Context, now time.Time) ([]*Reminder, error) {
	return s.driver.PopDueReminders(ctx, now.UTC())
}

// DeleteReminderByOrdinal deletes the reminder at the given 1-based
// position of listing, which must be the same ascending snapshot the
// caller used to pick the ordinal. Concurrent mutation by the same user
// between list and delete invalidates the ordinal; that hazard is
// documented, not remediated.
func (s *Store) DeleteReminderByOrdinal(ctx context.Context, userID string, ordinal int, listing []*Reminder) (*Reminder, error) {
	if ordinal < 1 || ordinal > len(listing) {
		return nil, errors.Errorf("ordinal %d out of range [1, %d]", ordinal, len(listing))
	}
	target := listing[ordinal-1]
	if target.UserID != userID {
		return nil, errors.Errorf("reminder %d does not belong to user %s", target.ID, userID)
	}
	if err := s.driver.DeleteReminder(ctx, target.ID); err != nil {
		return nil, err
	}
	return target, nil
}
