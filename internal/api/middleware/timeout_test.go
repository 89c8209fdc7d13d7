package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForCancel blocks until the request context ends and writes nothing.
func waitForCancel(c *gin.Context) {
	<-c.Request.Context().Done()
}

func TestRequestTimeout_Disabled(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		r := gin.New()
		r.Use(RequestTimeout(d))
		var hasDeadline bool
		r.GET("/records", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, hasDeadline, "no deadline for %s", d)
	}
}

func TestRequestTimeout_DeadlineReachesHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestTimeout(time.Minute))
	var cause error
	r.GET("/records", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		cause = context.Cause(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/records", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, cause)
}

func TestRequestTimeout_ExpiredAnswers504WithRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestTimeout(30 * time.Millisecond))
	var cause error
	r.POST("/records", func(c *gin.Context) {
		waitForCancel(c)
		cause = context.Cause(c.Request.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/records", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.ErrorIs(t, cause, ErrRequestTimeout)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "request timed out", body["error"])
	assert.Equal(t, "req-42", body["requestId"])
}

func TestRequestTimeout_CallerGoneIsNotAnswered(t *testing.T) {
	r := gin.New()
	r.Use(RequestTimeout(time.Minute))
	r.POST("/records", waitForCancel)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/records", nil).WithContext(ctx)
	cancel()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Body.String())
}

func TestRequestTimeout_WrittenResponseIsKept(t *testing.T) {
	r := gin.New()
	r.Use(RequestTimeout(20 * time.Millisecond))
	r.POST("/records", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"synced": false})
		waitForCancel(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/records", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"synced":false}`, w.Body.String())
}
