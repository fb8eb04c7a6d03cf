package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/aikumi/companion/store"
)

func (d *DB) UpsertUserSetting(ctx context.Context, upsert *store.UpsertUserSetting) (*store.UserSetting, error) {
	// Partial upsert: COALESCE keeps stored values for nil fields.
	stmt := `INSERT INTO user_setting (user_id, role, gender, timezone)
		VALUES (?, COALESCE(?, ''), COALESCE(?, ''), COALESCE(?, ''))
		ON CONFLICT (user_id)
		DO UPDATE SET
			role = COALESCE(?, user_setting.role),
			gender = COALESCE(?, user_setting.gender),
			timezone = COALESCE(?, user_setting.timezone)
		RETURNING user_id, role, gender, timezone`

	setting := &store.UserSetting{}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.Role, upsert.Gender, upsert.Timezone,
		upsert.Role, upsert.Gender, upsert.Timezone,
	).Scan(
		&setting.UserID,
		&setting.Role,
		&setting.Gender,
		&setting.Timezone,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert user setting")
	}

	return setting, nil
}

func (d *DB) GetUserSetting(ctx context.Context, userID string) (*store.UserSetting, error) {
	query := `SELECT user_id, role, gender, timezone FROM user_setting WHERE user_id = ` + placeholder(1)

	setting := &store.UserSetting{}
	err := d.db.QueryRowContext(ctx, query, userID).Scan(
		&setting.UserID,
		&setting.Role,
		&setting.Gender,
		&setting.Timezone,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user setting")
	}
	return setting, nil
}

func (d *DB) ListUserSettings(ctx context.Context) ([]*store.UserSetting, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT user_id, role, gender, timezone FROM user_setting ORDER BY user_id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user settings")
	}
	defer rows.Close()

	list := []*store.UserSetting{}
	for rows.Next() {
		setting := &store.UserSetting{}
		if err := rows.Scan(
			&setting.UserID,
			&setting.Role,
			&setting.Gender,
			&setting.Timezone,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user setting")
		}
		list = append(list, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate user settings")
	}
	return list, nil
}
