package http

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/api/project/status", func(c *gin.Context) { c.Status(200) })
	return r
}

func TestCORSMiddleware_SetsHeadersOnGet(t *testing.T) {
	r := newTestEngine(CORSMiddleware())

	req := httptest.NewRequest("GET", "/api/project/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSMiddleware_ShortCircuitsOptions(t *testing.T) {
	r := newTestEngine(CORSMiddleware())

	req := httptest.NewRequest("OPTIONS", "/api/project/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, 204, w.Code)
}

func TestRequestLogger_DoesNotAlterResponse(t *testing.T) {
	r := newTestEngine(RequestLogger())

	req := httptest.NewRequest("GET", "/api/project/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
}
