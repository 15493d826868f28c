package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riskcalc/platform/internal/shared/auth"
	"github.com/riskcalc/platform/internal/shared/config"
)

func testApp() *App {
	cfg := config.Defaults()
	cfg.Database.Enabled = false
	cfg.KurrentDB.Enabled = false
	cfg.HIS.Enabled = false
	cfg.Redis.Addr = ""
	cfg.Extraction.APIKey = ""
	cfg.Speech.APIKey = ""
	cfg.Auth.Enabled = false
	return &App{Config: cfg, Logger: zap.NewNop()}
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthAndReady(t *testing.T) {
	h := newRouter(testApp())

	rec := serve(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "not configured", ready.Checks["database"])
	assert.Equal(t, "not configured", ready.Checks["his"])

	rec = serve(h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_LimitedMode(t *testing.T) {
	h := newRouter(testApp())

	rec := serve(h, http.MethodPost, "/api/v1/assessments", `{"age": 40, "sex": "male"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID     string `json:"id"`
		Stored bool   `json:"stored"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Stored)

	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/api/v1/assessments", "", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/reference/options", "", http.StatusOK},
		{http.MethodGet, "/api/v1/patients/MRN-1/prefill", "", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/v1/extraction", `{"transcript": "hello"}`, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/speech/token", "", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec := serve(h, tt.method, tt.path, tt.body, nil)
		assert.Equal(t, tt.status, rec.Code, tt.path)
	}
}

func TestRouter_SecurityHeadersAndCORS(t *testing.T) {
	h := newRouter(testApp())

	rec := serve(h, http.MethodOptions, "/api/v1/assessments", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Content-Type-Options"))
}

func signToken(t *testing.T, cfg config.AuthConfig, roles ...string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-1",
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	return token
}

func TestRouter_Auth(t *testing.T) {
	app := testApp()
	app.Config.Auth = config.AuthConfig{Enabled: true, Issuer: "riskcalc", JWTSecret: "test-secret"}
	h := newRouter(app)

	rec := serve(h, http.MethodGet, "/api/v1/reference/options", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/reference/options", "", map[string]string{
		"Authorization": "Bearer " + signToken(t, app.Config.Auth, "viewer"),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/reference/options", "", map[string]string{
		"Authorization": "Bearer " + signToken(t, app.Config.Auth, auth.RoleClinician),
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ProductionRequiresToken(t *testing.T) {
	app := testApp()
	app.Config.Server.Env = "production"
	app.Config.Auth.JWTSecret = "prod-secret"
	require.False(t, app.Config.Auth.Enabled)
	h := newRouter(app)

	rec := serve(h, http.MethodPost, "/api/v1/assessments", `{"age": 40, "sex": "male"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/reference/options", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/api/v1/reference/options", "", map[string]string{
		"Authorization": "Bearer " + signToken(t, app.Config.Auth, auth.RoleClinician),
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
