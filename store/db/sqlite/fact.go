package sqlite

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aikumi/companion/store"
)

func (d *DB) CreateFact(ctx context.Context, create *store.Fact) (*store.Fact, error) {
	if create.CreatedAt.IsZero() {
		create.CreatedAt = time.Now().UTC()
	}

	stmt := `INSERT INTO fact (user_id, category, content, importance, created_at)
		VALUES (` + placeholders(5) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.Category,
		create.Content,
		create.Importance,
		formatTime(create.CreatedAt),
	).Scan(&create.ID); err != nil {
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
		fact, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, fact)
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
		encodeVector(upsert.Embedding),
		upsert.Model,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert fact embedding")
	}
	return nil
}

// SearchFactsByVector ranks the user's facts by cosine similarity to the
// query embedding. SQLite has no vector extension, so the scan happens
// in-process over the user's stored embeddings.
func (d *DB) SearchFactsByVector(ctx context.Context, userID string, embedding []float32, limit int) ([]*store.Fact, []float32, error) {
	query := `
		SELECT f.id, f.user_id, f.category, f.content, f.importance, f.created_at, e.embedding
		FROM fact_embedding e
		JOIN fact f ON f.id = e.fact_id
		WHERE e.user_id = ` + placeholder(1)

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to search fact embeddings")
	}
	defer rows.Close()

	type scored struct {
		fact  *store.Fact
		score float32
	}
	var results []scored

	for rows.Next() {
		var fact store.Fact
		var createdAt string
		var blob []byte
		if err := rows.Scan(
			&fact.ID,
			&fact.UserID,
			&fact.Category,
			&fact.Content,
			&fact.Importance,
			&createdAt,
			&blob,
		); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan fact embedding")
		}
		fact.CreatedAt = parseTime(createdAt)
		results = append(results, scored{
			fact:  &fact,
			score: cosineSimilarity(embedding, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to iterate fact embeddings")
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	facts := make([]*store.Fact, len(results))
	scores := make([]float32, len(results))
	for i, r := range results {
		facts[i], scores[i] = r.fact, r.score
	}
	return facts, scores, nil
}

func scanFact(rows rowScanner) (*store.Fact, error) {
	var fact store.Fact
	var createdAt string
	if err := rows.Scan(
		&fact.ID,
		&fact.UserID,
		&fact.Category,
		&fact.Content,
		&fact.Importance,
		&createdAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan fact")
	}
	fact.CreatedAt = parseTime(createdAt)
	return &fact, nil
}
