package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aikumi/companion/store"
)

func (d *DB) CreateReminder(ctx context.Context, create *store.Reminder) (*store.Reminder, error) {
	fields := []string{"uid", "user_id", "remind_at_utc", "content"}
	values := []any{create.UID, create.UserID, create.RemindAt.UTC(), create.Content}

	if !create.CreatedAt.IsZero() {
		fields = append(fields, "created_at")
		values = append(values, create.CreatedAt.UTC())
	}

	stmt := `INSERT INTO reminder (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(values)) + `)
		RETURNING id, created_at`

	if err := d.db.QueryRowContext(ctx, stmt, values...).Scan(
		&create.ID,
		&create.CreatedAt,
	); err != nil {
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
		where, args = append(where, "remind_at_utc >= "+placeholder(len(args)+1)), append(args, v.UTC())
	}
	if v := find.End; v != nil {
		where, args = append(where, "remind_at_utc < "+placeholder(len(args)+1)), append(args, v.UTC())
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

	rows, err := d.db.QueryContext(ctx, stmt, now.UTC())
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

func scanReminders(rows *sql.Rows) ([]*store.Reminder, error) {
	list := []*store.Reminder{}
	for rows.Next() {
		var reminder store.Reminder
		if err := rows.Scan(
			&reminder.ID,
			&reminder.UID,
			&reminder.UserID,
			&reminder.RemindAt,
			&reminder.Content,
			&reminder.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan reminder")
		}
		reminder.RemindAt = reminder.RemindAt.UTC()
		reminder.CreatedAt = reminder.CreatedAt.UTC()
		list = append(list, &reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate reminders")
	}
	return list, nil
}
