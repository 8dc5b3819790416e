package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"fulfillment/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(config.LogConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("order accepted", zap.String("order_id", "abc"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"order accepted"`)
	assert.Contains(t, string(data), `"order_id":"abc"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestFromContext(t *testing.T) {
	fallback := zap.NewNop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := zap.NewExample()
	assert.Same(t, scoped, FromContext(WithContext(context.Background(), scoped), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))
}

func TestGinMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)), GinMiddleware(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) {
		FromContext(c.Request.Context(), nil).Info("inside handler")
		c.Status(http.StatusOK)
	})
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	inside := logs.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "req-1", inside[0].ContextMap()["request_id"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
