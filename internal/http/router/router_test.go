package router_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/design-orders-backend/internal/config"
	"github.com/ignatzorin/design-orders-backend/internal/http/handlers"
	"github.com/ignatzorin/design-orders-backend/internal/http/router"
	"github.com/ignatzorin/design-orders-backend/internal/interface/http/handler"
	"github.com/ignatzorin/design-orders-backend/internal/service"
	"github.com/ignatzorin/design-orders-backend/internal/usecase/designorder"
	"github.com/ignatzorin/design-orders-backend/internal/ws"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func setup(t *testing.T) (*gin.Engine, *service.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitLimit:  100,
		RateLimitPeriod: time.Minute,
	}
	tokens := service.NewTokenManager("router-test-secret-router-test-secret", time.Hour)
	hub := ws.NewHub(log)

	engine := router.SetupRouter(cfg, log, tokens, router.Handlers{
		Health:      handlers.NewHealthHandler(okPinger{}),
		WS:          handlers.NewWSHandler(hub, tokens, cfg.AllowedOrigins),
		DesignOrder: handler.NewDesignOrderHandler(designorder.Deps{Log: log}, nil, nil),
	})
	return engine, tokens
}

func TestRouter_PublicEndpoints(t *testing.T) {
	engine, _ := setup(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouter_ProtectedRequireToken(t *testing.T) {
	engine, _ := setup(t)

	for _, path := range []string{"/api/orders/my", "/api/ws", "/api/orders/" + uuid.NewString()} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_ValidatesOrderID(t *testing.T) {
	engine, tokens := setup(t)

	token, _, err := tokens.Issue(uuid.New(), "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/not-a-uuid/start", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_PaymentsOptional(t *testing.T) {
	engine, tokens := setup(t)

	token, _, err := tokens.Issue(uuid.New(), "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/payments/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
