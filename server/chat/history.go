package chat

import (
	"sync"

	"github.com/aikumi/companion/server/ai"
)

// defaultHistoryLimit caps the per-user short-term conversation history.
const defaultHistoryLimit = 10

// HistoryStore keeps the short-term conversation history per user. It
// is an explicit, injected object created at process start and torn
// down with the orchestrator; nothing references it as ambient state.
type HistoryStore struct {
	mu      sync.Mutex
	entries map[string][]ai.Message
	limit   int
}

// NewHistoryStore creates an empty history store with the default cap.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		entries: make(map[string][]ai.Message),
		limit:   defaultHistoryLimit,
	}
}

// Append records one message, evicting the oldest entries beyond the
// cap.
func (h *HistoryStore) Append(userID, role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := append(h.entries[userID], ai.Message{Role: role, Content: content})
	if len(msgs) > h.limit {
		msgs = msgs[len(msgs)-h.limit:]
	}
	h.entries[userID] = msgs
}

// List returns a snapshot of the user's history, oldest first.
func (h *HistoryStore) List(userID string) []ai.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ai.Message(nil), h.entries[userID]...)
}

// Clear drops one user's history.
func (h *HistoryStore) Clear(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, userID)
}
