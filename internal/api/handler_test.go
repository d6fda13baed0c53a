package api

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
	"github.com/DanielChung520/AI-Box-sub013/internal/events"
	"github.com/DanielChung520/AI-Box-sub013/internal/history"
	"github.com/DanielChung520/AI-Box-sub013/internal/resolver"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
	"github.com/DanielChung520/AI-Box-sub013/internal/session"
	"github.com/DanielChung520/AI-Box-sub013/internal/sqlgen"
)

type testEnv struct {
	router   http.Handler
	emitter  *events.Emitter
	resolver *resolver.Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry, err := schema.Load(filepath.Join("..", "..", "schemas"))
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE INAG_T (INAG001 TEXT, INAG002 TEXT, INAG008 REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO INAG_T VALUES ('RM01-005', 'W03', 80)`)
	require.NoError(t, err)

	provider := func(string) (sqlgen.SQLAdapter, error) {
		return sqlgen.NewMySQLAdapter(sqlgen.Config{DB: db}), nil
	}

	writeDB, readDB := history.OpenTestSQLite(t)
	store := history.NewStore(writeDB, readDB)

	emitter := events.NewEmitter(nil, 64)
	sessions := session.NewManager(session.NewMemoryStore(time.Hour), nil)
	res := resolver.New(registry, dict.New(), sessions, emitter, provider, nil,
		resolver.WithRecorder(store))

	h := NewHandler(res, registry, sessions, emitter, store, nil)
	router := NewRouter(h, RouterConfig{CORSAllowedOrigins: []string{"*"}})
	return &testEnv{router: router, emitter: emitter, resolver: res}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestResolveQuery_Success(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/v1/query/resolve", map[string]string{
		"system_id": "jp_tiptop_erp",
		"dialect":   "mysql",
		"query":     "RM01-005 在 W03 的庫存",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp resolver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "QUERY_INVENTORY", resp.Intent)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 1, resp.Result.RowCount)
}

func TestResolveQuery_BadRequests(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/query/resolve", map[string]string{
		"system_id": "jp_tiptop_erp",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/query/resolve", map[string]string{
		"query": "RM01-005 的庫存",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveQuery_UnknownSystemIs404(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/v1/query/resolve", map[string]string{
		"system_id": "nope",
		"query":     "RM01-005 的庫存",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SCHEMA_NOT_FOUND")
}

func TestResolveQuery_UnparseableIs400WithCode(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/v1/query/resolve", map[string]string{
		"system_id": "jp_tiptop_erp",
		"query":     "tell me a joke",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PARSE_NLQ", body.Error.Code)
}

func TestSessionLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/sessions", map[string]string{"user_id": "u1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	rec = e.do(t, http.MethodPost, "/v1/sessions/"+created.SessionID+"/messages", map[string]interface{}{
		"role":     "user",
		"content":  "RM01-005 的庫存",
		"metadata": map[string]string{"part_number": "RM01-005"},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "RM01-005")

	rec = e.do(t, http.MethodDelete, "/v1/sessions/"+created.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/sessions/"+created.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionMessage_UnknownSessionIs404(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/v1/sessions/ghost/messages", map[string]string{
		"role":    "user",
		"content": "hi",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/query/resolve", map[string]string{
		"system_id": "jp_tiptop_erp",
		"dialect":   "mysql",
		"query":     "RM01-005 的庫存",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/history?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []history.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "QUERY_INVENTORY", body.Entries[0].Intent)
	assert.True(t, body.Entries[0].Success)
}

func TestSystemsAndValidation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/v1/systems", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jp_tiptop_erp")

	rec = e.do(t, http.MethodGet, "/v1/systems/jp_tiptop_erp/validation?dialect=DUCKDB", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"complete":true`)

	rec = e.do(t, http.MethodGet, "/v1/systems/jp_tiptop_erp/validation", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchemaReload(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/v1/schemas/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jp_tiptop_erp")
}

func TestTaskEventsSSE(t *testing.T) {
	e := newTestEnv(t)
	server := httptest.NewServer(e.router)
	defer server.Close()

	taskID := "sse-task"
	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = e.resolver.Resolve(context.Background(), resolver.Request{
			TaskID:   taskID,
			SystemID: "jp_tiptop_erp",
			Dialect:  "mysql",
			Query:    "RM01-005 的庫存",
		})
	}()

	resp, err := http.Get(server.URL + "/v1/tasks/" + taskID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The stream closes itself after the terminal stage.
	var stages []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			stages = append(stages, strings.TrimPrefix(line, "event: "))
		}
	}
	require.NotEmpty(t, stages)
	assert.Equal(t, "request_received", stages[0])
	assert.Equal(t, "result_ready", stages[len(stages)-1])
}
