package request

import (
	"net/http"

	"hearth/pkg/platform/httputil"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is refused with 413 up front; an undeclared body is wrapped so reads
// past the cap fail and the decoder reports it as too large.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{
					Error:       "payload_too_large",
					Description: "request body too large",
				})
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
