package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bassista/go_gym/internal/logger"
	"github.com/bassista/go_gym/internal/progress"
	"github.com/bassista/go_gym/internal/repository"
	"github.com/gin-gonic/gin"
)

// ProgressService is the part of progress.Repository the HTTP layer uses.
type ProgressService interface {
	AppendRecord(ctx context.Context, exercise string, weight float64, date string) error
	QueryRecords(ctx context.Context, exercise string) ([]repository.ExerciseRecord, error)
	Document(ctx context.Context) (repository.ProgressDocument, error)
	ForceRefresh()
}

// AddRecordRequest is the payload of POST /api/exercises/:name/records.
// Date defaults to today when omitted.
type AddRecordRequest struct {
	Weight *float64 `json:"weight" binding:"required"`
	Date   string   `json:"date"`
}

// RecordsResponse carries an exercise history with its last/best/change summary.
type RecordsResponse struct {
	Exercise string                      `json:"exercise"`
	Records  []repository.ExerciseRecord `json:"records"`
	Summary  repository.Summary          `json:"summary"`
}

// AddRecordResponse tells the client whether the record reached the remote store.
type AddRecordResponse struct {
	Exercise string                    `json:"exercise"`
	Record   repository.ExerciseRecord `json:"record"`
	Synced   bool                      `json:"synced"`
	Warning  string                    `json:"warning,omitempty"`
}

type ProgressController struct {
	service ProgressService
	now     func() time.Time
}

func NewProgressController(service ProgressService) *ProgressController {
	return &ProgressController{service: service, now: time.Now}
}

// GetRecords returns the records of one exercise, oldest first.
func (pc *ProgressController) GetRecords(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing exercise name"})
		return
	}

	records, err := pc.service.QueryRecords(c.Request.Context(), name)
	if err != nil {
		logger.WithComponent("progress-api").Errorf("query %q: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read records"})
		return
	}
	c.JSON(http.StatusOK, RecordsResponse{
		Exercise: name,
		Records:  records,
		Summary:  repository.Summarize(records),
	})
}

// AddRecord appends a record. A record kept locally whose remote sync failed
// is answered with 202 and a warning instead of an error.
func (pc *ProgressController) AddRecord(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing exercise name"})
		return
	}

	var req AddRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = progress.Today(pc.now())
	}
	resp := AddRecordResponse{
		Exercise: name,
		Record:   repository.ExerciseRecord{Date: date, Weight: *req.Weight},
	}

	err := pc.service.AppendRecord(c.Request.Context(), name, *req.Weight, date)
	switch {
	case err == nil:
		resp.Synced = true
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, progress.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, progress.ErrSyncFailed):
		resp.Warning = "record saved locally, remote sync failed: " + err.Error()
		c.JSON(http.StatusAccepted, resp)
	default:
		logger.WithComponent("progress-api").Errorf("append %q: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save record"})
	}
}

// Refresh drops the session cache so the next read reloads from the stores.
func (pc *ProgressController) Refresh(c *gin.Context) {
	pc.service.ForceRefresh()
	c.Status(http.StatusNoContent)
}
