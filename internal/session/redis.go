package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// RedisStore persists conversation contexts in Redis with a native TTL,
// so expiry needs no sweeper.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. A non-positive ttl defaults to 24h.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return "nlq:session:" + sessionID
}

// Get returns the stored context, or NotFound when absent or expired.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound("session %q not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var cc domain.ConversationContext
	if err := json.Unmarshal([]byte(raw), &cc); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", sessionID, err)
	}
	return &cc, nil
}

// Put stores the context and refreshes its TTL.
func (s *RedisStore) Put(ctx context.Context, cc *domain.ConversationContext) error {
	raw, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", cc.SessionID, err)
	}
	if err := s.client.Set(ctx, sessionKey(cc.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes the context. Deleting an unknown session is a no-op.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
