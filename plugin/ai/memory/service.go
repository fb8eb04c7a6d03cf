// Package memory manages long-term user facts: a structured store
// ranked by importance plus a best-effort semantic index over the same
// content.
package memory

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/aikumi/companion/store"
)

// Embedder produces embedding vectors for semantic indexing and recall.
type Embedder interface {
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// Service records and recalls user facts.
type Service struct {
	store    *store.Store
	embedder Embedder
	model    string
}

// NewService creates a memory service. embedder may be nil, in which
// case facts are stored without a semantic index and Recall always
// returns nothing.
func NewService(s *store.Store, embedder Embedder, model string) *Service {
	return &Service{store: s, embedder: embedder, model: model}
}

// RecordFact appends a structured fact and indexes its content for
// semantic recall. The structured write is authoritative; an embedding
// failure is logged and the fact is kept without an index entry.
func (s *Service) RecordFact(ctx context.Context, userID, category, content string, importance int) (*store.Fact, error) {
	fact, err := s.store.CreateFact(ctx, &store.Fact{
		UserID:     userID,
		Category:   category,
		Content:    content,
		Importance: importance,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to record fact")
	}

	if s.embedder == nil {
		return fact, nil
	}
	embedding, err := s.embedder.Embedding(ctx, content)
	if err != nil {
		slog.Warn("fact stored without semantic index",
			"user_id", userID, "fact_id", fact.ID, "error", err)
		return fact, nil
	}
	if err := s.store.UpsertFactEmbedding(ctx, &store.FactEmbedding{
		FactID:    fact.ID,
		UserID:    userID,
		Embedding: embedding,
		Model:     s.model,
	}); err != nil {
		slog.Warn("fact stored without semantic index",
			"user_id", userID, "fact_id", fact.ID, "error", err)
	}
	return fact, nil
}

// Recall returns up to k fact contents semantically nearest to the
// topic, scoped to one user.
func (s *Service) Recall(ctx context.Context, userID, topic string, k int) ([]string, error) {
	if s.embedder == nil || topic == "" || k <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embedding(ctx, topic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed recall topic")
	}

	facts, _, err := s.store.SearchFactsByVector(ctx, userID, embedding, k)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search facts")
	}

	contents := make([]string, 0, len(facts))
	for _, fact := range facts {
		contents = append(contents, fact.Content)
	}
	return contents, nil
}

// TopFacts returns up to k structured facts ordered by importance then
// recency.
func (s *Service) TopFacts(ctx context.Context, userID string, k int) ([]*store.Fact, error) {
	facts, err := s.store.ListTopFacts(ctx, userID, k)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list facts")
	}
	return facts, nil
}
