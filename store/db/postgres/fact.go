package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/aikumi/companion/store"
)

func (d *DB) CreateFact(ctx context.Context, create *store.Fact) (*store.Fact, error) {
	stmt := `INSERT INTO fact (user_id, category, content, importance)
		VALUES (` + placeholders(4) + `)
		RETURNING id, created_at`

	if err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.Category,
		create.Content,
		create.Importance,
	).Scan(&create.ID, &create.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "failed to create fact")
	}

	return create, nil
}

func (d *DB) ListFacts(ctx context.Context, find *store.FindFact) ([]*store.Fact, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, user_id, category, content, importance, created_at
		FROM fact
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY importance DESC, created_at DESC, id DESC`

	if v := find.Limit; v != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list facts")
	}
	defer rows.Close()

	list := []*store.Fact{}
	for rows.Next() {
		var fact store.Fact
		if err := rows.Scan(
			&fact.ID,
			&fact.UserID,
			&fact.Category,
			&fact.Content,
			&fact.Importance,
			&fact.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan fact")
		}
		list = append(list, &fact)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate facts")
	}
	return list, nil
}

func (d *DB) UpsertFactEmbedding(ctx context.Context, upsert *store.FactEmbedding) error {
	stmt := `INSERT INTO fact_embedding (fact_id, user_id, embedding, model)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (fact_id)
		DO UPDATE SET embedding = EXCLUDED.embedding, model = EXCLUDED.model`

	_, err := d.db.ExecContext(ctx, stmt,
		upsert.FactID,
		upsert.UserID,
		pgvector.NewVector(upsert.Embedding),
		upsert.Model,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert fact embedding")
	}
	return nil
}

// SearchFactsByVector ranks the user's facts by cosine similarity using
// the pgvector <=> operator.
func (d *DB) SearchFactsByVector(ctx context.Context, userID string, embedding []float32, limit int) ([]*store.Fact, []float32, error) {
	query := `
		SELECT
			f.id, f.user_id, f.category, f.content, f.importance, f.created_at,
			1 - (e.embedding <=> $1) AS score
		FROM fact_embedding e
		JOIN fact f ON f.id = e.fact_id
		WHERE e.user_id = $2
		ORDER BY e.embedding <=> $1
		LIMIT $3`

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(embedding), userID, limit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to search fact embeddings")
	}
	defer rows.Close()

	facts := []*store.Fact{}
	scores := []float32{}
	for rows.Next() {
		var fact store.Fact
		var score float32
		if err := rows.Scan(
			&fact.ID,
			&fact.UserID,
			&fact.Category,
			&fact.Content,
			&fact.Importance,
			&fact.CreatedAt,
			&score,
		); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan fact embedding")
		}
		facts = append(facts, &fact)
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to iterate fact embeddings")
	}
	return facts, scores, nil
}
