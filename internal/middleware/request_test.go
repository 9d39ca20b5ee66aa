package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(logger))
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})
	r.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	return r
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	r := newTestRouter(slog.New(slog.DiscardHandler))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, w.Body.String())
}

func TestRequestID_ReusesInbound(t *testing.T) {
	r := newTestRouter(slog.New(slog.DiscardHandler))
	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, inbound)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, inbound, w.Header().Get(RequestIDHeader))
}

func TestRequestID_ReplacesMalformed(t *testing.T) {
	r := newTestRouter(slog.New(slog.DiscardHandler))
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "not-an-id\nforged")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "not-an-id\nforged", w.Header().Get(RequestIDHeader))
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(slog.New(slog.NewJSONHandler(&buf, nil)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "http", line["component"])
	assert.Equal(t, "/missing", line["path"])
	assert.EqualValues(t, http.StatusNotFound, line["status"])
	assert.NotEmpty(t, line["request_id"])
}
