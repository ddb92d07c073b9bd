// Package device turns a User-Agent header into the short labels recorded in
// audit details.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// DisplayName returns "Browser on OS", e.g. "Chrome on macOS".
func DisplayName(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if ua.Bot() {
		return strings.TrimSpace("Bot " + browser)
	}
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	os := ua.OS()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}

// Fingerprint hashes browser family, major version, OS and form factor.
// Minor versions are ignored.
func Fingerprint(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	parts := []string{
		orUnknown(strings.ToLower(browser)),
		orUnknown(major),
		orUnknown(strings.ToLower(ua.OS())),
		platform,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
