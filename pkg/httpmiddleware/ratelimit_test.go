package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_EnforcesBudget(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-Client") },
	})(okHandler())

	reqA := httptest.NewRequest(http.MethodGet, "/", nil)
	reqA.Header.Set("X-Client", "a")
	reqB := httptest.NewRequest(http.MethodGet, "/", nil)
	reqB.Header.Set("X-Client", "b")

	recA := httptest.NewRecorder()
	h.ServeHTTP(recA, reqA)
	require.Equal(t, http.StatusOK, recA.Code)

	recA2 := httptest.NewRecorder()
	h.ServeHTTP(recA2, reqA)
	assert.Equal(t, http.StatusTooManyRequests, recA2.Code)

	recB := httptest.NewRecorder()
	h.ServeHTTP(recB, reqB)
	assert.Equal(t, http.StatusOK, recB.Code, "another client has its own budget")
}

func TestRateLimit_Headers(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", clientIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", clientIP(r))

	r.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	assert.Equal(t, "10.0.0.3", clientIP(r))
}
