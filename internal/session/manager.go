package session

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

// Demonstratives that signal an anaphoric reference. CJK forms are matched
// by substring; English forms require word boundaries so "it" never fires
// inside "item".
var (
	cjkPronouns     = []string{"這個", "那個", "這筆", "那筆", "這支", "那支", "它", "此", "該"}
	englishPronouns = regexp.MustCompile(`(?i)\b(this|that|it|them|those)\b`)
)

// Manager owns session lifecycle and reference resolution. Writes to one
// session are serialized through a per-session lock so concurrent
// AddMessage calls never interleave partial updates.
type Manager struct {
	store  Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger, locks: make(map[string]*sync.Mutex)}
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	return l
}

// CreateSession creates a new conversation context and returns its id.
func (m *Manager) CreateSession(ctx context.Context, userID string) (string, error) {
	now := time.Now().UTC()
	cc := &domain.ConversationContext{
		SessionID:         uuid.NewString(),
		UserID:            userID,
		ExtractedEntities: map[string]string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.store.Put(ctx, cc); err != nil {
		return "", err
	}
	return cc.SessionID, nil
}

// AddMessage appends a turn to the session and promotes recognized entity
// keys from metadata into the context (last-write-wins). Returns false for
// an unknown session — callers treat that as "no context available".
func (m *Manager) AddMessage(ctx context.Context, sessionID, role, content string, metadata map[string]string) bool {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	cc, err := m.store.Get(ctx, sessionID)
	if err != nil {
		m.logger.Debug("add message to unknown session", "session_id", sessionID)
		return false
	}

	cc.Messages = append(cc.Messages, domain.Message{
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	})
	cc.UpdatedAt = time.Now().UTC()

	if cc.ExtractedEntities == nil {
		cc.ExtractedEntities = map[string]string{}
	}
	for _, key := range []string{domain.EntityPartNumber, domain.EntityWarehouse, domain.EntityTransactionType} {
		if v, ok := metadata[key]; ok && v != "" {
			cc.ExtractedEntities[key] = v
		}
	}
	if v, ok := metadata[domain.EntityTable]; ok && v != "" {
		cc.LastTable = v
	}
	if v, ok := metadata[domain.EntityIntent]; ok && v != "" {
		cc.LastIntent = v
	}

	if err := m.store.Put(ctx, cc); err != nil {
		m.logger.Warn("store session", "session_id", sessionID, "error", err)
		return false
	}
	return true
}

// ResolveReferences scans the query for demonstrative pronouns and, when
// present, merges forward whatever entities prior turns recorded. Partial
// resolution is expected; the caller re-prompts only if a required filter
// is still missing afterwards.
func (m *Manager) ResolveReferences(ctx context.Context, sessionID, query string) domain.Resolution {
	empty := domain.Resolution{Resolved: false, Entities: map[string]string{}}

	if !HasAnaphora(query) {
		return empty
	}

	cc, err := m.store.Get(ctx, sessionID)
	if err != nil {
		// Unknown session is "no context", never an error.
		return empty
	}

	entities := map[string]string{}
	for k, v := range cc.ExtractedEntities {
		if v != "" {
			entities[k] = v
		}
	}
	if cc.LastTable != "" {
		entities[domain.EntityTable] = cc.LastTable
	}
	if cc.LastIntent != "" {
		entities[domain.EntityIntent] = cc.LastIntent
	}

	if len(entities) == 0 {
		return empty
	}
	return domain.Resolution{Resolved: true, Entities: entities}
}

// Get returns the raw conversation context for a session.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	return m.store.Get(ctx, sessionID)
}

// ClearSession removes a session entirely.
func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	delete(m.locks, sessionID)
	m.mu.Unlock()

	return m.store.Delete(ctx, sessionID)
}

// HasAnaphora reports whether the query contains a demonstrative reference.
func HasAnaphora(query string) bool {
	for _, p := range cjkPronouns {
		if strings.Contains(query, p) {
			return true
		}
	}
	return englishPronouns.MatchString(query)
}
