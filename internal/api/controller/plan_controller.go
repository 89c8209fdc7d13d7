package controller

import (
	"net/http"
	"time"

	"github.com/bassista/go_gym/internal/logger"
	"github.com/bassista/go_gym/internal/plan"
	"github.com/bassista/go_gym/internal/repository"
	"github.com/gin-gonic/gin"
)

// PlanSource provides the active weekly plan. plan.Holder implements it.
type PlanSource interface {
	Current() *plan.Plan
}

type PlanResponse struct {
	Monday string           `json:"monday"`
	Sunday string           `json:"sunday"`
	Days   []plan.DayStatus `json:"days"`
}

type PlanController struct {
	plans   PlanSource
	service ProgressService
	now     func() time.Time
}

func NewPlanController(plans PlanSource, service ProgressService) *PlanController {
	return &PlanController{plans: plans, service: service, now: time.Now}
}

// GetPlan returns the weekly plan with this week's completion flags.
func (pc *PlanController) GetPlan(c *gin.Context) {
	doc, err := pc.service.Document(c.Request.Context())
	if err != nil {
		logger.WithComponent("plan-api").Errorf("load progress: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read progress"})
		return
	}

	now := pc.now()
	monday, sunday := plan.WeekRange(now)
	c.JSON(http.StatusOK, PlanResponse{
		Monday: monday.Format(repository.DateLayout),
		Sunday: sunday.Format(repository.DateLayout),
		Days:   plan.Annotate(pc.plans.Current(), doc.Records, now),
	})
}

// GetStats returns completed/total/percentage for the current week.
func (pc *PlanController) GetStats(c *gin.Context) {
	doc, err := pc.service.Document(c.Request.Context())
	if err != nil {
		logger.WithComponent("plan-api").Errorf("load progress: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read progress"})
		return
	}
	c.JSON(http.StatusOK, plan.WeekStats(pc.plans.Current(), doc.Records, pc.now()))
}
