package route

import (
	"time"

	"github.com/bassista/go_gym/internal/api/controller"
	"github.com/bassista/go_gym/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// NewPlanRouter sets up weekly plan routes.
func NewPlanRouter(timeout time.Duration, group *gin.RouterGroup, plans controller.PlanSource, service controller.ProgressService) {
	pc := controller.NewPlanController(plans, service)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("plan", timeoutMiddleware, pc.GetPlan)
	group.GET("plan/stats", timeoutMiddleware, pc.GetStats)
}
