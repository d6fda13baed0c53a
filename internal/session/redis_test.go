package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
)

func testRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := testRedisStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	cc := &domain.ConversationContext{
		SessionID:         "s1",
		UserID:            "daniel",
		ExtractedEntities: map[string]string{domain.EntityPartNumber: "RM05-008"},
		LastIntent:        "QUERY_INVENTORY",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, store.Put(ctx, cc))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "RM05-008", got.ExtractedEntities[domain.EntityPartNumber])
	assert.Equal(t, "QUERY_INVENTORY", got.LastIntent)
	assert.Equal(t, "daniel", got.UserID)
}

func TestRedisStore_MissingIsNotFound(t *testing.T) {
	store, _ := testRedisStore(t)

	_, err := store.Get(context.Background(), "missing")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := testRedisStore(t)
	ctx := context.Background()

	cc := &domain.ConversationContext{SessionID: "s1", ExtractedEntities: map[string]string{}}
	require.NoError(t, store.Put(ctx, cc))

	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "s1")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := testRedisStore(t)
	ctx := context.Background()

	cc := &domain.ConversationContext{SessionID: "s1", ExtractedEntities: map[string]string{}}
	require.NoError(t, store.Put(ctx, cc))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Get(ctx, "s1")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, "s1"))
}

func TestManager_OverRedisStore(t *testing.T) {
	store, _ := testRedisStore(t)
	m := NewManager(store, nil)
	ctx := context.Background()

	id, err := m.CreateSession(ctx, "")
	require.NoError(t, err)

	ok := m.AddMessage(ctx, id, "user", "查詢 RM05-008", map[string]string{domain.EntityPartNumber: "RM05-008"})
	require.True(t, ok)

	res := m.ResolveReferences(ctx, id, "它的庫存")
	assert.True(t, res.Resolved)
	assert.Equal(t, "RM05-008", res.Entities[domain.EntityPartNumber])
}
