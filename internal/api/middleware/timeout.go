package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bassista/go_gym/internal/logger"
	"github.com/gin-gonic/gin"
)

// ErrRequestTimeout is the cancellation cause of a request whose deadline expired.
var ErrRequestTimeout = errors.New("request deadline exceeded")

// RequestTimeout bounds every request with a deadline of d. Handlers are not
// interrupted; the progress repository and the remote client stop on ctx.Done().
// If the deadline expired and nothing was written, the client gets 504 with
// the request ID. A caller that hung up is not answered.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	log := logger.WithComponent("http")

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeoutCause(c.Request.Context(), d, ErrRequestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if c.Writer.Written() || !errors.Is(context.Cause(ctx), ErrRequestTimeout) {
			return
		}
		id := GetRequestID(c)
		log.Warnf("%s %s ran past its %s deadline (request %s)", c.Request.Method, c.Request.URL.Path, d, id)
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
			"error":     "request timed out",
			"requestId": id,
		})
	}
}
