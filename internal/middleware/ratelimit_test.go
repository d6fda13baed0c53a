package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedHandler(cfg RateLimitConfig) http.Handler {
	return RateLimiter(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/query/resolve", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 100, Burst: 10})

	for i := 0; i < 5; i++ {
		rec := hit(handler, "10.0.0.1:1000")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1000").Code)
	}

	rec := hit(handler, "10.0.0.1:1000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestRateLimiter_IsolatesClients(t *testing.T) {
	handler := limitedHandler(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1000").Code)
	}
	// Port changes do not reset the bucket; a new address does.
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "10.0.0.1:2000").Code)
	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.2:1000").Code)
}

func TestClientAddr_StripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:4567"
	assert.Equal(t, "::1", clientAddr(req))

	req.RemoteAddr = "192.168.0.9:80"
	assert.Equal(t, "192.168.0.9", clientAddr(req))
}
