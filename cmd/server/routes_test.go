package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hacker-tracker.backend/internal/config"
	"hacker-tracker.backend/internal/interfaces/http/handlers"
	"hacker-tracker.backend/internal/interfaces/http/middleware"
	"hacker-tracker.backend/pkg/jwt"
	"hacker-tracker.backend/pkg/metrics"
	"hacker-tracker.backend/pkg/redis"
)

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string) (*redis.RateLimitResult, error) {
	return &redis.RateLimitResult{Allowed: false, ResetIn: time.Minute}, nil
}
func (denyAllLimiter) Limit() int { return 0 }

func testRouter(debug bool, limiter middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Server: config.ServerConfig{FrontendURL: "http://localhost:3050"}}
	jwtService := jwt.NewJWTService("secret", "hacker-tracker", time.Minute, time.Hour)
	return newRouter(cfg, metrics.New(), limiter, routeDeps{
		authHandler:    &handlers.AuthHandler{},
		adminHandler:   &handlers.AdminHandler{},
		authMiddleware: middleware.AuthMiddleware(jwtService),
		debugEndpoints: debug,
	})
}

func routeSet(r *gin.Engine) map[string]bool {
	set := make(map[string]bool)
	for _, route := range r.Routes() {
		set[route.Method+" "+route.Path] = true
	}
	return set
}

func TestRegisterAPIV1Routes_RegistersKeyRoutes(t *testing.T) {
	routes := routeSet(testRouter(true, nil))

	for _, want := range []string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/confirm-email",
		"POST /api/v1/auth/resend-confirmation",
		"POST /api/v1/auth/refresh",
		"POST /api/v1/auth/logout",
		"GET /api/v1/auth/me",
		"GET /api/v1/auth/test/confirmation-code/:userId",
		"GET /api/v1/admin/jobs",
		"GET /api/v1/admin/jobs/stats",
		"GET /api/v1/admin/jobs/:id",
		"PUT /api/v1/admin/users/:id/email-confirmed",
		"GET /health",
		"GET /metrics",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestRegisterAPIV1Routes_DebugRouteOnlyWhenEnabled(t *testing.T) {
	routes := routeSet(testRouter(false, nil))
	assert.False(t, routes["GET /api/v1/auth/test/confirmation-code/:userId"])
	assert.True(t, routes["POST /api/v1/auth/register"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := testRouter(true, nil)

	for _, path := range []string{"/api/v1/auth/me", "/api/v1/admin/jobs/stats"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	r := testRouter(true, nil)
	jwtService := jwt.NewJWTService("secret", "hacker-tracker", time.Minute, time.Hour)
	pair, err := jwtService.GenerateTokenPair(uuid.New(), "user@example.com", "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs/stats", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	r := testRouter(true, denyAllLimiter{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterHealthRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerHealthRoute(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, serviceName, body["service"])
}

func TestMetricsRoute(t *testing.T) {
	r := testRouter(false, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hacker_tracker_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	r := testRouter(false, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3050")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3050", w.Header().Get("Access-Control-Allow-Origin"))
}
