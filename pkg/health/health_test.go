package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing())

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_FlipsAfterThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failing("connection refused"))

	ctx := context.Background()
	p := h.liveness[0]

	// One failure is not enough to flip the probe.
	p.run(ctx)
	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	p.run(ctx)
	p.run(ctx)

	w = httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks["db"], "connection refused")
}

func TestReadyEndpoint_ManualGate(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passing())

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "not ready before SetReady")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestProbe_RecoversAfterSuccess(t *testing.T) {
	ctx := context.Background()
	healthy := false
	p := newProbe("flaky", time.Second, func(_ context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})

	for range failureThreshold {
		p.run(ctx)
	}
	_, failed := p.failure()
	require.True(t, failed)

	healthy = true
	p.run(ctx)
	_, failed = p.failure()
	assert.False(t, failed)
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
