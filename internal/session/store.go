// Package session maintains per-session conversational state and resolves
// anaphoric references against prior turns.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// DefaultTTL bounds a session's lifetime in the store.
const DefaultTTL = 24 * time.Hour

// Store persists conversation contexts. Implementations must be safe for
// concurrent use; per-session write ordering is the Manager's job.
type Store interface {
	Get(ctx context.Context, sessionID string) (*domain.ConversationContext, error)
	Put(ctx context.Context, cc *domain.ConversationContext) error
	Delete(ctx context.Context, sessionID string) error
}

// memoryEntry pairs a context with its expiry.
type memoryEntry struct {
	cc        *domain.ConversationContext
	expiresAt time.Time
}

// MemoryStore is an in-process Store with TTL expiry. Suitable for
// single-instance deployments and tests; production multi-instance setups
// use the Redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]memoryEntry
}

// NewMemoryStore creates a MemoryStore. A non-positive ttl defaults to 24h.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, sessions: make(map[string]memoryEntry)}
}

// Get returns a copy of the stored context, or NotFound when absent or
// expired. Copying keeps readers isolated from concurrent AddMessage
// mutations, matching the Redis store's round-trip semantics.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.ConversationContext, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, domain.ErrNotFound("session %q not found", sessionID)
	}
	return cloneContext(entry.cc), nil
}

// Put stores a copy of the context and refreshes its TTL.
func (s *MemoryStore) Put(_ context.Context, cc *domain.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[cc.SessionID] = memoryEntry{cc: cloneContext(cc), expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func cloneContext(cc *domain.ConversationContext) *domain.ConversationContext {
	out := *cc
	out.Messages = make([]domain.Message, len(cc.Messages))
	for i, msg := range cc.Messages {
		out.Messages[i] = msg
		if msg.Metadata != nil {
			out.Messages[i].Metadata = make(map[string]string, len(msg.Metadata))
			for k, v := range msg.Metadata {
				out.Messages[i].Metadata[k] = v
			}
		}
	}
	if cc.ExtractedEntities != nil {
		out.ExtractedEntities = make(map[string]string, len(cc.ExtractedEntities))
		for k, v := range cc.ExtractedEntities {
			out.ExtractedEntities[k] = v
		}
	}
	return &out
}

// Delete removes the context. Deleting an unknown session is a no-op.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sweep drops expired entries. Wired to a cron schedule by the server.
func (s *MemoryStore) Sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries (expired-but-unswept included).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
