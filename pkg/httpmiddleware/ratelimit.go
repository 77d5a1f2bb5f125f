package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Max is the request budget per window.
	Max int
	// Window is the window duration.
	Window time.Duration
	// KeyFunc derives the limiter key from a request; defaults to the
	// client IP.
	KeyFunc func(*http.Request) string
}

// window tracks request counts for one client across the current and
// previous window, for sliding-window weighting.
type window struct {
	start     time.Time
	count     float64
	prevCount float64
}

type limiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &limiter{cfg: cfg, clients: make(map[string]*window)}
}

// allow reports whether the keyed client is within budget at now, along
// with the remaining budget and the next window boundary.
func (l *limiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.clients[key]
	if !found {
		w = &window{start: now}
		l.clients[key] = w
	}

	if elapsed := now.Sub(w.start); elapsed >= l.cfg.Window {
		if elapsed >= 2*l.cfg.Window {
			w.prevCount = 0
		} else {
			w.prevCount = w.count
		}
		w.count = 0
		w.start = now.Truncate(l.cfg.Window)
	}

	// Weight the previous window by its remaining overlap with the
	// sliding window ending at now.
	overlap := 1 - now.Sub(w.start).Seconds()/l.cfg.Window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	effective := w.prevCount*overlap + w.count
	resetAt = w.start.Add(l.cfg.Window)

	if effective >= float64(l.cfg.Max) {
		return 0, resetAt, false
	}
	w.count++

	remaining = int(float64(l.cfg.Max) - effective - 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

// evict drops clients whose windows have fully expired.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.clients {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.clients, key)
		}
	}
}

// RateLimit returns a middleware enforcing a sliding-window limit per
// client. Rejections are 429 with a JSON body; every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining, and X-RateLimit-Reset.
func RateLimit(cfg RateLimitConfig) Middleware {
	return limitMiddleware(newLimiter(cfg))
}

// RateLimitWithCleanup is RateLimit plus a background goroutine that
// evicts stale clients until ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()
	return limitMiddleware(l)
}

func limitMiddleware(l *limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := l.allow(l.cfg.KeyFunc(r), time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retryAfter := int(time.Until(resetAt).Seconds()) + 1
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client address: X-Forwarded-For first entry, then
// X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
