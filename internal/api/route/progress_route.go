package route

import (
	"time"

	"github.com/bassista/go_gym/internal/api/controller"
	"github.com/bassista/go_gym/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// NewProgressRouter sets up exercise record routes.
func NewProgressRouter(timeout time.Duration, group *gin.RouterGroup, service controller.ProgressService) {
	pc := controller.NewProgressController(service)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("exercises/:name/records", timeoutMiddleware, pc.GetRecords)
	group.POST("exercises/:name/records", timeoutMiddleware, pc.AddRecord)
	group.POST("refresh", timeoutMiddleware, pc.Refresh)
}
