package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDFor(t *testing.T, headerID string) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/query/resolve", nil)
	if headerID != "" {
		req.Header.Set("X-Request-ID", headerID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return captured, rec
}

func TestRequestID_MintsWhenAbsent(t *testing.T) {
	id, rec := requestIDFor(t, "")
	require.NotEmpty(t, id)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_ReusesWellFormedID(t *testing.T) {
	id, rec := requestIDFor(t, "task-42_a")
	assert.Equal(t, "task-42_a", id)
	assert.Equal(t, "task-42_a", rec.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesMalformedID(t *testing.T) {
	for _, bad := range []string{
		"fake\nINJECTED: x",
		"id with spaces",
		"<script>",
		strings.Repeat("a", maxRequestIDLen+1),
	} {
		id, _ := requestIDFor(t, bad)
		require.NotEmpty(t, id)
		assert.NotEqual(t, bad, id)
	}
}

func TestRequestIDFromContext_EmptyWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, RequestIDFromContext(req.Context()))
}
