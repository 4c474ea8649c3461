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

func newTestEngine(t *testing.T, skip ...string) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-42")
		c.Next()
	})
	engine.Use(Recovery(log), GinMiddleware(log, skip...))
	return engine, recorded
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestGinMiddleware_LogsRequest(t *testing.T) {
	engine, recorded := newTestEngine(t)
	engine.GET("/api/v1/jobs/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serve(engine, http.MethodGet, "/api/v1/jobs/7?verbose=1")
	assert.Equal(t, http.StatusOK, w.Code)

	entries := recorded.FilterMessage("request served").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/jobs/7", fields["path"])
	assert.Equal(t, "/api/v1/jobs/:id", fields["route"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, "verbose=1", fields["query"])
}

func TestGinMiddleware_LevelFollowsStatus(t *testing.T) {
	engine, recorded := newTestEngine(t)
	engine.GET("/bad", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })
	engine.GET("/down", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusBadGateway)
	})

	serve(engine, http.MethodGet, "/bad")
	serve(engine, http.MethodGet, "/down")

	rejected := recorded.FilterMessage("request rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zapcore.WarnLevel, rejected[0].Level)

	failed := recorded.FilterMessage("request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, []any{assert.AnError.Error()}, failed[0].ContextMap()["errors"])
}

func TestGinMiddleware_HandlersShareRequestLogger(t *testing.T) {
	engine, recorded := newTestEngine(t)
	engine.GET("/hook", func(c *gin.Context) {
		assert.Equal(t, "req-42", GetRequestID(c.Request.Context()))
		SetGinLogger(c, GetGinLogger(c).With(zap.String("subject", "erp")))
		FromContext(c.Request.Context()).Info("hook accepted")
		c.Status(http.StatusAccepted)
	})

	serve(engine, http.MethodGet, "/hook")

	hook := recorded.FilterMessage("hook accepted").All()
	require.Len(t, hook, 1)
	assert.Equal(t, "req-42", hook[0].ContextMap()["request_id"])
	assert.Equal(t, "erp", hook[0].ContextMap()["subject"])

	access := recorded.FilterMessage("request served").All()
	require.Len(t, access, 1)
	assert.Equal(t, "erp", access[0].ContextMap()["subject"])
}

func TestGinMiddleware_SkipPaths(t *testing.T) {
	engine, recorded := newTestEngine(t, "/health")
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(engine, http.MethodGet, "/health")
	assert.Zero(t, recorded.Len())
}

func TestRecovery(t *testing.T) {
	engine, recorded := newTestEngine(t)
	engine.GET("/panic", func(c *gin.Context) { panic("template exploded") })

	w := serve(engine, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := recorded.FilterMessage("handler panicked").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "template exploded", fields["panic"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/panic", fields["path"])
}

func TestGetGinLogger_FallsBackToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	l := zap.NewExample()
	c.Request = req.WithContext(WithContext(req.Context(), l))

	assert.Same(t, l, GetGinLogger(c))
}
