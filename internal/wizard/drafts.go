package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Draft is a saved wizard, restorable while younger than the manager's
// max age.
type Draft struct {
	Kind        string          `json:"kind"`
	UserID      string          `json:"user_id"`
	CurrentStep int             `json:"current_step"`
	Values      json.RawMessage `json:"values"`
	SavedAt     time.Time       `json:"saved_at"`
}

// DraftStore persists drafts per user and wizard kind.
type DraftStore interface {
	Save(ctx context.Context, d Draft) error
	Load(ctx context.Context, kind, userID string) (*Draft, error)
	Delete(ctx context.Context, kind, userID string) error
}

// RedisDraftStore keeps one draft per user and kind as a JSON string that
// expires after ttl.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func draftKey(kind, userID string) string {
	return fmt.Sprintf("wizard_draft:%s:%s", kind, userID)
}

func (s *RedisDraftStore) Save(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.Kind, d.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Load returns nil, nil when no draft exists.
func (s *RedisDraftStore) Load(ctx context.Context, kind, userID string) (*Draft, error) {
	data, err := s.client.Get(ctx, draftKey(kind, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}
	return &d, nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, kind, userID string) error {
	if err := s.client.Del(ctx, draftKey(kind, userID)).Err(); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}
