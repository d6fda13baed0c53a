package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(NewMemoryStore(time.Minute), nil)
}

func TestCreateSessionAndAddMessage(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, "daniel")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ok := m.AddMessage(ctx, id, "user", "查詢料號 RM05-008 的庫存", map[string]string{
		domain.EntityPartNumber: "RM05-008",
		domain.EntityTable:      "INAG_T",
		domain.EntityIntent:     "QUERY_INVENTORY",
	})
	assert.True(t, ok)

	cc, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, cc.Messages, 1)
	assert.Equal(t, "RM05-008", cc.ExtractedEntities[domain.EntityPartNumber])
	assert.Equal(t, "INAG_T", cc.LastTable)
	assert.Equal(t, "QUERY_INVENTORY", cc.LastIntent)
	assert.Equal(t, "daniel", cc.UserID)
}

func TestAddMessage_UnknownSession(t *testing.T) {
	m := testManager(t)

	ok := m.AddMessage(context.Background(), "no-such-session", "user", "hi", nil)
	assert.False(t, ok)
}

func TestAddMessage_LastWriteWins(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, "")
	require.NoError(t, err)

	m.AddMessage(ctx, id, "user", "first", map[string]string{domain.EntityPartNumber: "RM01-001"})
	m.AddMessage(ctx, id, "user", "second", map[string]string{domain.EntityPartNumber: "RM05-008"})

	cc, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "RM05-008", cc.ExtractedEntities[domain.EntityPartNumber])
	assert.Len(t, cc.Messages, 2)
}

func TestResolveReferences_MergesPriorEntities(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, "")
	require.NoError(t, err)
	m.AddMessage(ctx, id, "user", "查詢料號 RM05-008", map[string]string{
		domain.EntityPartNumber: "RM05-008",
		domain.EntityIntent:     "QUERY_INVENTORY",
	})

	res := m.ResolveReferences(ctx, id, "那個料號在 W02 的庫存呢")
	assert.True(t, res.Resolved)
	assert.Equal(t, "RM05-008", res.Entities[domain.EntityPartNumber])
	assert.Equal(t, "QUERY_INVENTORY", res.Entities[domain.EntityIntent])
}

func TestResolveReferences_NoPronoun(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, "")
	require.NoError(t, err)
	m.AddMessage(ctx, id, "user", "x", map[string]string{domain.EntityPartNumber: "RM05-008"})

	res := m.ResolveReferences(ctx, id, "查詢 FG01-001 的庫存")
	assert.False(t, res.Resolved)
	assert.Empty(t, res.Entities)
}

func TestResolveReferences_NoPriorEntities(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, "")
	require.NoError(t, err)

	res := m.ResolveReferences(ctx, id, "它的庫存是多少")
	assert.False(t, res.Resolved)
}

func TestResolveReferences_UnknownSession(t *testing.T) {
	m := testManager(t)

	res := m.ResolveReferences(context.Background(), "missing", "它的庫存")
	assert.False(t, res.Resolved)
	assert.Empty(t, res.Entities)
}

func TestHasAnaphora(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"那個料號的庫存", true},
		{"它在哪裡", true},
		{"what about that one", true},
		{"show it again", true},
		{"查詢 RM01-005 的庫存", false},
		{"list items in W03", false}, // "it" inside "items" must not fire
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAnaphora(tt.query))
		})
	}
}

func TestClearSession(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, "")
	require.NoError(t, err)
	require.NoError(t, m.ClearSession(ctx, id))

	_, err = m.Get(ctx, id)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestMemoryStore_SweepExpired(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	m := NewManager(store, nil)
	ctx := context.Background()

	_, err := m.CreateSession(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	time.Sleep(20 * time.Millisecond)
	removed := store.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, store.Len())
}

func TestConcurrentAddMessageAndResolve(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, "daniel")
	require.NoError(t, err)
	require.True(t, m.AddMessage(ctx, id, "user", "RM01-005 的庫存", map[string]string{
		domain.EntityPartNumber: "RM01-005",
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if n%2 == 0 {
					m.AddMessage(ctx, id, "user", "它在 W03 的庫存", map[string]string{
						domain.EntityWarehouse: "W03",
					})
				} else {
					m.ResolveReferences(ctx, id, "它在 W03 的庫存")
				}
			}
		}(i)
	}
	wg.Wait()

	res := m.ResolveReferences(ctx, id, "它的異動")
	require.True(t, res.Resolved)
	assert.Equal(t, "RM01-005", res.Entities[domain.EntityPartNumber])
}

func TestMemoryStore_GetReturnsIsolatedCopy(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &domain.ConversationContext{
		SessionID:         "s1",
		ExtractedEntities: map[string]string{domain.EntityPartNumber: "RM01-005"},
	}))

	first, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	first.ExtractedEntities[domain.EntityPartNumber] = "mutated"
	first.Messages = append(first.Messages, domain.Message{Role: "user"})

	second, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "RM01-005", second.ExtractedEntities[domain.EntityPartNumber])
	assert.Empty(t, second.Messages)
}
