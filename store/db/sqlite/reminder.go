package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aikumi/companion/store"
)

func (d *DB) CreateReminder(ctx context.Context, create *store.Reminder) (*store.Reminder, error) {
	if create.CreatedAt.IsZero() {
		create.CreatedAt = time.Now().UTC()
	}

	stmt := `INSERT INTO reminder (uid, user_id, remind_at_utc, content, created_at)
		VALUES (` + placeholders(5) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		formatTime(create.RemindAt),
		create.Content,
		formatTime(create.CreatedAt),
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create reminder")
	}

	return create, nil
}

func (d *DB) ListReminders(ctx context.Context, find *store.FindReminder) ([]*store.Reminder, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Start; v != nil {
		where, args = append(where, "remind_at_utc >= "+placeholder(len(args)+1)), append(args, formatTime(*v))
	}
	if v := find.End; v != nil {
		where, args = append(where, "remind_at_utc < "+placeholder(len(args)+1)), append(args, formatTime(*v))
	}

	query := `
		SELECT id, uid, user_id, remind_at_utc, content, created_at
		FROM reminder
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY remind_at_utc ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminders")
	}
	defer rows.Close()

	return scanReminders(rows)
}

// PopDueReminders atomically removes and returns all reminders due at or
// before now, across all users.
func (d *DB) PopDueReminders(ctx context.Context, now time.Time) ([]*store.Reminder, error) {
	stmt := `
		DELETE FROM reminder
		WHERE remind_at_utc <= ` + placeholder(1) + `
		RETURNING id, uid, user_id, remind_at_utc, content, created_at`

	rows, err := d.db.QueryContext(ctx, stmt, formatTime(now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pop due reminders")
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (d *DB) DeleteReminder(ctx context.Context, id int32) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM reminder WHERE id = `+placeholder(1), id)
	if err != nil {
		return errors.Wrap(err, "failed to delete reminder")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.Errorf("reminder not found: %d", id)
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanReminders(rows rowScanner) ([]*store.Reminder, error) {
	list := []*store.Reminder{}
	for rows.Next() {
		var reminder store.Reminder
		var remindAt, createdAt string
		if err := rows.Scan(
			&reminder.ID,
			&reminder.UID,
			&reminder.UserID,
			&remindAt,
			&reminder.Content,
			&createdAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan reminder")
		}
		reminder.RemindAt = parseTime(remindAt)
		reminder.CreatedAt = parseTime(createdAt)
		list = append(list, &reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate reminders")
	}
	return list, nil
}
