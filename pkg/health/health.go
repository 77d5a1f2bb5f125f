// Package health provides liveness and readiness probes for the service.
//
// Checks run on background tickers. A check flips unhealthy only after
// three consecutive failures and recovers after one success, so a single
// slow probe does not bounce the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	failureThreshold = 3
	successThreshold = 1
)

// CheckFunc probes one component, returning nil when it is healthy.
type CheckFunc func(ctx context.Context) error

// probe is one registered check plus its runtime state. run is invoked
// from a single goroutine; healthy and lastErr are also read by HTTP
// handlers, so those use atomics. The consecutive counters stay confined
// to the runner goroutine.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.healthy.Store(true)
	return p
}

func (p *probe) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= failureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	if p.oks++; p.oks >= successThreshold {
		p.healthy.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "check failed", true
}

// Health manages the service's liveness and readiness probes.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New creates a Health. The service starts not ready; call SetReady(true)
// after initialization completes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process is
// alive at all (goroutine leaks, deadlocks).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a check that decides whether the service can
// take traffic (database connectivity, dependency availability).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, check))
}

// Start launches one goroutine per registered check, each ticking at the
// given interval until the context is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.liveness)+len(h.readiness))
	probes = append(probes, h.liveness...)
	probes = append(probes, h.readiness...)
	h.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.run(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate: true once initialization is
// done, false during graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	probes := h.readiness
	h.mu.RUnlock()
	for _, p := range probes {
		if _, failed := p.failure(); failed {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 when all liveness checks pass, 503 with
// failure details otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := make([]*probe, len(h.liveness))
	copy(probes, h.liveness)
	h.mu.RUnlock()

	writeStatus(w, failures(probes))
}

// ReadyEndpoint serves /readyz: 200 when the service is marked ready and
// all readiness checks pass, 503 with details otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := make([]*probe, len(h.readiness))
	copy(probes, h.readiness)
	h.mu.RUnlock()

	failed := failures(probes)
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		if msg, ok := p.failure(); ok {
			failed[p.name] = msg
		}
	}
	return failed
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	resp := statusResponse{Status: "ok"}
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failed
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
