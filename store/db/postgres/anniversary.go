package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/aikumi/companion/store"
)

func (d *DB) UpsertAnniversary(ctx context.Context, upsert *store.Anniversary) (*store.Anniversary, error) {
	stmt := `INSERT INTO anniversary (user_id, kind, month, day, label)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (user_id, kind, label)
		DO UPDATE SET month = EXCLUDED.month, day = EXCLUDED.day
		RETURNING id, created_at`

	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		string(upsert.Kind),
		upsert.Month,
		upsert.Day,
		upsert.Label,
	).Scan(&upsert.ID, &upsert.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "failed to upsert anniversary")
	}

	return upsert, nil
}

func (d *DB) ListAnniversaries(ctx context.Context, find *store.FindAnniversary) ([]*store.Anniversary, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "anniversary.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			anniversary.id, anniversary.user_id, anniversary.kind,
			anniversary.month, anniversary.day, anniversary.label,
			anniversary.created_at,
			COALESCE(user_setting.timezone, '')
		FROM anniversary
		LEFT JOIN user_setting ON user_setting.user_id = anniversary.user_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY anniversary.month ASC, anniversary.day ASC, anniversary.id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list anniversaries")
	}
	defer rows.Close()

	list := []*store.Anniversary{}
	for rows.Next() {
		var anniversary store.Anniversary
		var kind string
		if err := rows.Scan(
			&anniversary.ID,
			&anniversary.UserID,
			&kind,
			&anniversary.Month,
			&anniversary.Day,
			&anniversary.Label,
			&anniversary.CreatedAt,
			&anniversary.Timezone,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan anniversary")
		}
		anniversary.Kind = store.AnniversaryKind(kind)
		list = append(list, &anniversary)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate anniversaries")
	}
	return list, nil
}
