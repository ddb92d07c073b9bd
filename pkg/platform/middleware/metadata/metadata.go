// Package metadata extracts client address and user agent for audit and
// access logging.
package metadata

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"hearth/pkg/requestcontext"
)

// MaxForwardedHeaderLength bounds X-Forwarded-For and X-Real-IP values.
const MaxForwardedHeaderLength = 500

// Middleware resolves the client IP. Forwarding headers are honored only when
// the direct peer is one of TrustedProxies.
type Middleware struct {
	trustedProxies []netip.Prefix
}

func NewMiddleware(trustedProxies []netip.Prefix) *Middleware {
	return &Middleware{trustedProxies: trustedProxies}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) clientIP(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !m.trusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if len(xff) > MaxForwardedHeaderLength {
			return peer.String()
		}
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
		return peer.String()
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" && len(xri) <= MaxForwardedHeaderLength {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.String()
		}
	}
	return peer.String()
}

func (m *Middleware) trusted(addr netip.Addr) bool {
	for _, prefix := range m.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func peerAddr(remoteAddr string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
