package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Fact is a durable structured memory entry. Facts are append-only and
// never updated in place; read-time ranking is (importance desc,
// created_at desc).
type Fact struct {
	ID         int32
	UserID     string
	Category   string
	Content    string
	Importance int
	CreatedAt  time.Time
}

// FindFact filters fact listings.
type FindFact struct {
	UserID *string
	Limit  *int
}

// FactEmbedding is the vector-indexed duplicate of a fact's content, used
// for semantic recall. Written best-effort alongside fact creation.
type FactEmbedding struct {
	FactID    int32
	UserID    string
	Embedding []float32
	Model     string
}

// CreateFact appends a structured fact.
func (s *Store) CreateFact(ctx context.Context, create *Fact) (*Fact, error) {
	if create.UserID == "" {
		return nil, errors.New("fact requires a user id")
	}
	if create.Importance <= 0 {
		create.Importance = 1
	}
	return s.driver.CreateFact(ctx, create)
}

// ListTopFacts returns up to limit facts for the user ordered by
// (importance desc, created_at desc).
func (s *Store) ListTopFacts(ctx context.Context, userID string, limit int) ([]*Fact, error) {
	return s.driver.ListFacts(ctx, &FindFact{UserID: &userID, Limit: &limit})
}

// UpsertFactEmbedding stores the semantic index entry for a fact. Callers
// treat failures here as non-fatal; the structured fact is already
// retained.
func (s *Store) UpsertFactEmbedding(ctx context.Context, upsert *FactEmbedding) error {
	return s.driver.UpsertFactEmbedding(ctx, upsert)
}

// SearchFactsByVector returns up to limit facts for the user, nearest
// first by cosine similarity to the query embedding, with their scores.
func (s *Store) SearchFactsByVector(ctx context.Context, userID string, embedding []float32, limit int) ([]*Fact, []float32, error) {
	return s.driver.SearchFactsByVector(ctx, userID, embedding, limit)
}
