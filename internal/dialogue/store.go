package dialogue

import (
	"context"
	"sync"

	"github.com/NotJohn04/commitkeeper/internal/models"
)

// DraftStore holds at most one unconfirmed draft per user
type DraftStore interface {
	// Put stores a draft, replacing any existing one for the user
	Put(ctx context.Context, userID string, draft *models.Draft) error

	// Get returns the user's outstanding draft, or nil if there is none
	Get(ctx context.Context, userID string) (*models.Draft, error)

	// Delete discards the user's outstanding draft. Deleting when no draft
	// exists is not an error.
	Delete(ctx context.Context, userID string) error
}

// MemoryDraftStore is an in-process DraftStore used by tests
type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string]*models.Draft
}

// NewMemoryDraftStore creates an empty in-memory draft store
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]*models.Draft)}
}

// Put stores a draft for the user
func (s *MemoryDraftStore) Put(_ context.Context, userID string, draft *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = draft
	return nil
}

// Get returns the user's draft, or nil
func (s *MemoryDraftStore) Get(_ context.Context, userID string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[userID], nil
}

// Delete discards the user's draft
func (s *MemoryDraftStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
	return nil
}

var _ DraftStore = (*MemoryDraftStore)(nil)
