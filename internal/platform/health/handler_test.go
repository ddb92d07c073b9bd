package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	rec := serve(New("test"), "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness(t *testing.T) {
	h := New("test")
	h.RegisterCheck("database", func(context.Context) error { return nil })

	rec := serve(h, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	h.RegisterCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	rec = serve(h, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "up", body.Checks["database"])
	assert.Equal(t, "down: connection refused", body.Checks["redis"])

	h.RegisterCheck("redis", func(context.Context) error { return nil })
	assert.Equal(t, http.StatusOK, serve(h, "/health/ready").Code, "re-registering replaces the check")
}

func TestReadiness_SlowCheckHitsDeadline(t *testing.T) {
	h := New("test")
	h.RegisterCheck("kafka", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	rec := serve(h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatus(t *testing.T) {
	rec := serve(New("staging"), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "staging", body.Environment)
}
