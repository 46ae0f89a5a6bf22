package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	draftKeyPrefix = "commitkeeper:drafts:"

	// DraftTTL is how long an unanswered draft survives before the
	// conversation is considered abandoned
	DraftTTL = 24 * time.Hour
)

// RedisDraftStore is a DraftStore backed by Redis so drafts survive server
// restarts and are visible to every API instance
type RedisDraftStore struct {
	client *redis.Client
}

// NewRedisDraftStore creates a draft store over an existing Redis client
func NewRedisDraftStore(client *redis.Client) *RedisDraftStore {
	return &RedisDraftStore{client: client}
}

// Put stores a draft with the abandonment TTL
func (s *RedisDraftStore) Put(ctx context.Context, userID string, draft *models.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKeyPrefix+userID, data, DraftTTL).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

// Get returns the user's draft, or nil if none is outstanding
func (s *RedisDraftStore) Get(ctx context.Context, userID string) (*models.Draft, error) {
	data, err := s.client.Get(ctx, draftKeyPrefix+userID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var draft models.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

// Delete discards the user's draft
func (s *RedisDraftStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, draftKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

var _ DraftStore = (*RedisDraftStore)(nil)
