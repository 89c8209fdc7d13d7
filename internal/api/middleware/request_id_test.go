package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bassista/go_gym/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func TestRequestID_Generated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())

	var seen string
	r.GET("/test", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	header := w.Header().Get(RequestIDHeader)
	if header == "" || header != seen {
		t.Fatalf("expected generated id in header and context, got %q / %q", header, seen)
	}
	if _, err := uuid.Parse(header); err != nil {
		t.Errorf("expected a UUID, got %q", header)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get(RequestIDHeader) != "abc-123" || w.Body.String() != "abc-123" {
		t.Errorf("expected caller id to be kept, got header %q body %q", w.Header().Get(RequestIDHeader), w.Body.String())
	}
}

func TestRequestID_OversizedReplaced(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("expected a fresh UUID, got %q", w.Header().Get(RequestIDHeader))
	}
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.NewTestManager()
	r := gin.New()
	r.Use(RequestMetrics(m))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/accepted", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/accepted", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	if got := testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "200")); got != 2 {
		t.Errorf("expected 2 GET 200, got %v", got)
	}
	if got := testutil.ToFloat64(m.CounterRequests.WithLabelValues("POST", "202")); got != 1 {
		t.Errorf("expected 1 POST 202, got %v", got)
	}
	if got := testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "404")); got != 1 {
		t.Errorf("expected 1 GET 404, got %v", got)
	}
}

func TestHoneybadgerMiddleware_InactiveWithoutKey(t *testing.T) {
	t.Setenv("HONEYBADGER_API_KEY", "")

	r := gin.New()
	r.Use(HoneybadgerMiddleware(logrus.New()))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected handler status to pass through, got %d", w.Code)
	}
}
