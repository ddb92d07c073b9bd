package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jwttoken "hearth/internal/jwt_token"
	"hearth/pkg/domain"
)

// TestContext holds state between steps of one scenario.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	Tokens           *jwttoken.JWTService
	Token            string
	Households       map[string]domain.TenantID
	LastResponse     *http.Response
	LastResponseBody []byte
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewTestContext mints tokens with the same key the server under test uses.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(os.Getenv("E2E_BASE_URL"), "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Tokens: jwttoken.NewJWTService(
			envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			envOr("JWT_ISSUER", "hearth"),
			envOr("JWT_AUDIENCE", "hearth-api"),
			15*time.Minute,
		),
		Households: map[string]domain.TenantID{},
	}
}

func (tc *TestContext) issue(p *domain.Principal) error {
	token, _, err := tc.Tokens.Issue(context.Background(), p)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	tc.Token = token
	return nil
}

// Do sends a request with the current token and records the response.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.Token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("make request: %w", err)
	}
	defer resp.Body.Close()

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

func (tc *TestContext) decode() (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w\nbody: %s", err, tc.LastResponseBody)
	}
	return data, nil
}

// expand replaces {household:Name} with the id saved for Name.
func (tc *TestContext) expand(path string) (string, error) {
	for name, id := range tc.Households {
		path = strings.ReplaceAll(path, "{household:"+name+"}", id.String())
	}
	if strings.Contains(path, "{household:") {
		return "", fmt.Errorf("unresolved household in %q", path)
	}
	return path, nil
}
