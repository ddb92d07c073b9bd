package throttle

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_PerKeyBuckets(t *testing.T) {
	l := New(1, 2)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst exhausted")
	assert.True(t, l.Allow("b"), "other keys are independent")

	fixed = fixed.Add(time.Second)
	assert.True(t, l.Allow("a"), "one token refilled")
}

func TestLimiter_DropsIdleBuckets(t *testing.T) {
	l := New(1, 1)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Allow("a")
	fixed = fixed.Add(time.Hour)
	l.Allow("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "a")
	assert.Contains(t, l.buckets, "b")
}

func TestMiddleware(t *testing.T) {
	l := New(0.5, 1)
	h := l.Middleware(func(r *http.Request) string { return r.Header.Get("X-Actor") })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	send := func(actor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Actor", actor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("a").Code)
	rec := send("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, send("").Code, "unkeyed requests bypass")
	assert.Equal(t, http.StatusNoContent, send("").Code)
}
