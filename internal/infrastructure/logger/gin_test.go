package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func requestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddleware_LevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusConflict, zapcore.WarnLevel},
		{http.StatusBadGateway, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := gin.New()
			router.Use(GinMiddleware(zap.New(core)))
			router.POST("/api/v1/sync", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync?force=true", nil))

			entry := requestLog(t, recorded)
			assert.Equal(t, tt.level, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, "force=true", fields["query"])
			assert.Equal(t, "/api/v1/sync", fields["path"])
		})
	}
}

func TestGinMiddleware_PropagatesRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-123")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/api/v1/shops", func(c *gin.Context) {
		ctx := c.Request.Context()
		assert.Equal(t, "req-123", GetRequestID(ctx))
		FromContext(ctx).Info("from service")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/shops", nil))

	serviceLogs := recorded.FilterMessage("from service").All()
	require.Len(t, serviceLogs, 1)
	assert.Equal(t, "req-123", serviceLogs[0].ContextMap()["request_id"])
	assert.Equal(t, "req-123", requestLog(t, recorded).ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_INTERNAL","message":"Internal server error","request_id":""}}`, w.Body.String())
	require.Len(t, recorded.FilterMessage("Panic recovered").All(), 1)
}

func TestGinMiddleware_QuietPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.DebugLevel)
	router := gin.New()
	router.Use(GinMiddleware(zap.New(core), WithQuietPaths("/health")))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/reports/sales/:month", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/reports/sales/2024-02", nil))

	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "/api/v1/reports/sales/:month", entries[1].ContextMap()["route"])
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	logger := GetGinLogger(c)

	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("test") })
}
