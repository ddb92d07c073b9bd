// Package throttle limits how fast a single caller may hit a route.
package throttle

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/httputil"
	"hearth/pkg/requestcontext"
)

// KeyFunc picks the bucket for a request. An empty key bypasses the limit.
type KeyFunc func(r *http.Request) string

// ByPrincipal keys on the authorized caller. It must run after the guard.
func ByPrincipal(r *http.Request) string {
	if p := requestcontext.Principal(r.Context()); p != nil {
		return p.SubjectID.String()
	}
	return ""
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a token bucket per key. Idle buckets are dropped lazily once
// they have been unused for the idle TTL.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	lastGC  time.Time
}

func New(perSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow consumes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastGC) > l.idleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastGC = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
func (l *Limiter) Middleware(key KeyFunc) func(http.Handler) http.Handler {
	retryAfter := "1"
	if l.limit > 0 {
		retryAfter = strconv.Itoa(max(1, int(1/float64(l.limit))))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k != "" && !l.Allow(k) {
				w.Header().Set("Retry-After", retryAfter)
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
