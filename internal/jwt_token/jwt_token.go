package jwttoken

import "strings"

const bearerPrefix = "Bearer "

// ExtractBearer returns the token from an Authorization header value.
// It reports false for a missing header, another scheme or an empty token.
func ExtractBearer(authHeader string) (string, bool) {
	token, ok := strings.CutPrefix(authHeader, bearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
