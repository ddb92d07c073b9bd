package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "hearth/internal/jwt_token"
	"hearth/internal/platform/config"
	"hearth/pkg/domain"
)

// buildApp registers process-wide prometheus collectors, so it runs once here.
func TestBuildApp_InMemory(t *testing.T) {
	cfg := config.Config{
		Server:         config.Server{Addr: ":0", Environment: "test", ShutdownTimeout: time.Second},
		JWT:            config.JWT{SigningKey: "wiring-test-key", Issuer: "hearth", Audience: "hearth-api", TokenTTL: time.Hour},
		AdminRateLimit: config.RateLimit{RPS: 100, Burst: 100},
		SeedDemoData:   true,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := buildApp(cfg, log, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, a.seeder)

	summary, err := a.seeder.SeedAll(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Households, 2)
	household := summary.Households[0]

	tokens := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TokenTTL)
	issue := func(p *domain.Principal) string {
		token, _, err := tokens.Issue(context.Background(), p)
		require.NoError(t, err)
		return token
	}
	superAdmin := issue(&domain.Principal{SubjectID: summary.SuperAdminID, Role: domain.RoleSuperAdmin})

	do := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("liveness needs no token", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/health/live", "").Code)
	})

	t.Run("admin overview for a seeded household", func(t *testing.T) {
		rec := do(http.MethodGet, "/admin/households/"+household.ID.String()+"/overview", superAdmin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Contains(t, body, "household")
		assert.Contains(t, body, "usage")
		assert.EqualValues(t, 0, body["active_impersonations"])
	})

	t.Run("household members cannot reach admin routes", func(t *testing.T) {
		var memberID domain.UserID
		var role domain.Role
		for r, id := range household.Members {
			memberID, role = id, r
			break
		}
		member := issue(&domain.Principal{
			SubjectID:    memberID,
			Role:         role,
			TenantID:     household.ID,
			TenantStatus: domain.TenantStatusActive,
		})
		assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/admin/households", member).Code)
	})

	t.Run("missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/admin/households", "").Code)
	})
}
