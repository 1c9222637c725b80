package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nadungimhanalk/Gemini-Image/internal/config"
	"github.com/nadungimhanalk/Gemini-Image/internal/http/handlers"
	"github.com/nadungimhanalk/Gemini-Image/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	cfg := &config.Config{}

	r := NewRouter(
		handlers.NewImageHandler(nil, nil, nil, logger, cfg),
		handlers.NewBatchHandler(nil, nil, logger, cfg),
		handlers.NewHistoryHandler(nil, logger),
		handlers.NewHealthHandler(nil, nil, nil),
		logger,
	)
	return r.SetupRoutes()
}

func TestRoutesRegistered(t *testing.T) {
	engine := newTestRouter()

	registered := map[string]bool{}
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /api/v1/health",
		"POST /api/v1/images/generate",
		"POST /api/v1/images/edit",
		"POST /api/v1/images/variations",
		"POST /api/v1/images/process",
		"POST /api/v1/videos/generate",
		"POST /api/v1/batches",
		"GET /api/v1/batches/:id",
		"POST /api/v1/batches/:id/cancel",
		"GET /api/v1/batches/:id/export",
		"POST /api/v1/batches/:id/publish",
		"GET /api/v1/history",
		"GET /api/v1/history/:id",
		"DELETE /api/v1/history",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestHealthAndRoot(t *testing.T) {
	engine := newTestRouter()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContentTypeEnforced(t *testing.T) {
	engine := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/generate", strings.NewReader("prompt=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/images/process", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
