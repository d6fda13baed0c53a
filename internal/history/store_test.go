package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielChung520/AI-Box-sub013/internal/resolver"
)

func TestStore_RecordAndList(t *testing.T) {
	writeDB, readDB := OpenTestSQLite(t)
	store := NewStore(writeDB, readDB)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, resolver.QueryRecord{
		TaskID:   "t1",
		SystemID: "jp_tiptop_erp",
		Dialect:  "duckdb",
		Query:    "RM01-005 的庫存",
		Intent:   "QUERY_INVENTORY",
		SQL:      "SELECT 1",
		Success:  true,
		RowCount: 3,
		Duration: 42 * time.Millisecond,
	}))
	require.NoError(t, store.Record(ctx, resolver.QueryRecord{
		TaskID:    "t2",
		SessionID: "s1",
		SystemID:  "jp_tiptop_erp",
		Query:     "tell me a joke",
		Success:   false,
		ErrorCode: "PARSE_NLQ",
	}))

	entries, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "t2", entries[0].TaskID)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "PARSE_NLQ", entries[0].ErrorCode)

	assert.Equal(t, "t1", entries[1].TaskID)
	assert.True(t, entries[1].Success)
	assert.Equal(t, "QUERY_INVENTORY", entries[1].Intent)
	assert.Equal(t, int64(42), entries[1].DurationMS)
	assert.False(t, entries[1].CreatedAt.IsZero())
}

func TestStore_ListBySession(t *testing.T) {
	writeDB, readDB := OpenTestSQLite(t)
	store := NewStore(writeDB, readDB)
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2", "s1"} {
		require.NoError(t, store.Record(ctx, resolver.QueryRecord{
			TaskID:    "t-" + sid,
			SessionID: sid,
			SystemID:  "jp_tiptop_erp",
			Query:     "q",
			Success:   true,
		}))
	}

	entries, err := store.List(ctx, ListOptions{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "s1", e.SessionID)
	}
}

func TestStore_ListLimit(t *testing.T) {
	writeDB, readDB := OpenTestSQLite(t)
	store := NewStore(writeDB, readDB)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, resolver.QueryRecord{
			TaskID:   "t",
			SystemID: "jp_tiptop_erp",
			Query:    "q",
			Success:  true,
		}))
	}

	entries, err := store.List(ctx, ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
