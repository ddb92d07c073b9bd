package metadata

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"hearth/pkg/requestcontext"
)

func TestMiddlewareHandler(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		proxies    []netip.Prefix
		expectedIP string
	}{
		{
			name:       "ignores XFF when peer is not a trusted proxy",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "uses first XFF hop from trusted proxy",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.2"},
			remoteAddr: "10.0.0.1:12345",
			proxies:    trusted,
			expectedIP: "203.0.113.1",
		},
		{
			name:       "uses X-Real-IP from trusted proxy",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			remoteAddr: "10.0.0.1:12345",
			proxies:    trusted,
			expectedIP: "198.51.100.7",
		},
		{
			name:       "falls back to peer on garbage XFF",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			remoteAddr: "10.0.0.1:12345",
			proxies:    trusted,
			expectedIP: "10.0.0.1",
		},
		{
			name:       "ipv6 peer",
			remoteAddr: "[2001:db8::1]:443",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "unparseable peer",
			remoteAddr: "",
			expectedIP: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ip, ua string
			handler := NewMiddleware(tt.proxies).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ip = requestcontext.ClientIP(r.Context())
				ua = requestcontext.UserAgent(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("User-Agent", "curl/8.4.0")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expectedIP, ip)
			assert.Equal(t, "curl/8.4.0", ua)
		})
	}
}
