package route

import (
	"net/http"

	"github.com/bassista/go_gym/internal/api/middleware"
	"github.com/bassista/go_gym/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SetupRoutes builds the engine with the middleware chain and every route.
// gatherer backs GET /metrics.
func SetupRoutes(appCtx *app.App, logger *logrus.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestMetrics(appCtx.Metrics))
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))
	r.Use(middleware.HoneybadgerMiddleware(logger))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":          "UP",
			"remoteConfigured": appCtx.Progress.RemoteConfigured(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	timeout := appCtx.Config.Server.RequestTimeout

	// appends may run the whole remote chain, whatever the configured deadline
	NewProgressRouter(max(timeout, appCtx.Config.Remote.AppendBudget()), api, appCtx.Progress)
	NewPlanRouter(timeout, api, appCtx.Plan, appCtx.Progress)
	NewConfigurationRouter(timeout, api, appCtx.Config)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}
