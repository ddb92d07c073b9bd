package request

import (
	"log/slog"
	"mime"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"hearth/pkg/platform/privacy"
	"hearth/pkg/requestcontext"
)

// MaxRequestIDLength caps client supplied X-Request-ID values.
const MaxRequestIDLength = 128

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic recovered",
						"error", rec,
						"stack", string(debug.Stack()),
						"path", r.URL.Path,
						"method", r.Method,
						"request_id", requestcontext.RequestID(ctx),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal_error","error_description":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID propagates a valid client X-Request-ID or generates a UUID.
// Oversized or non [a-zA-Z0-9._-] values are replaced to keep logs clean.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if !isValidRequestID(requestID) {
			requestID = uuid.New().String()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isValidRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLength {
		return false
	}
	return validRequestID.MatchString(id)
}

// RequestTime pins one "now" for the whole request so audit timestamps and
// expiry checks agree with each other.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs one line per request. Client addresses are anonymized and
// successful probes are skipped.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := statusOf(ww)
			if isProbe(r.URL.Path) && status < http.StatusInternalServerError {
				return
			}
			ctx := r.Context()
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(ctx),
				"remote_addr_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
			)
		})
	}
}

func isProbe(path string) bool {
	switch path {
	case "/health", "/health/live", "/health/ready", "/metrics":
		return true
	}
	return false
}

// statusOf treats a handler that never wrote a header as 200.
func statusOf(ww chimw.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// ContentTypeJSON rejects POST/PUT/PATCH bodies that declare a non JSON media type.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnsupportedMediaType)
					_, _ = w.Write([]byte(`{"error":"invalid_content_type","error_description":"Content-Type must be application/json"}`)) //nolint:errcheck // headers already sent
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// LatencyMiddleware records latency by chi route pattern, not raw path, so
// ids in the URL do not explode label cardinality. Unmatched requests share
// one "unmatched" route label.
func LatencyMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.Observe(r.Method, route, statusOf(ww), time.Since(start))
		})
	}
}
