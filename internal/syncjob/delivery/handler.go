package delivery

import (
	"context"
	"net/http"

	"jobhunt-backend/internal/errs"
	"jobhunt-backend/internal/syncjob/domain"
	"jobhunt-backend/internal/syncjob/dto"
	"jobhunt-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// JobService is the part of the orchestrator the HTTP layer drives.
type JobService interface {
	Submit(ctx context.Context, req domain.Request) (string, error)
	SubmitAndWait(ctx context.Context, req domain.Request) (*domain.Job, error)
	Status(ctx context.Context, jobID string) (*domain.Job, error)
}

type SyncHandler struct {
	jobs JobService
}

func NewSyncHandler(jobs JobService) *SyncHandler {
	return &SyncHandler{jobs: jobs}
}

// TriggerSync starts a sync job for the caller. Async requests get the job
// id back right away; otherwise the response waits for the job to finish.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, errs.CodeInvalidRequest, err.Error())
		return
	}

	syncReq := domain.Request{
		Kind:     domain.Kind(req.SyncType),
		OwnerID:  userID,
		DaysBack: req.DaysBack,
	}

	if req.Async {
		jobID, err := h.jobs.Submit(c.Request.Context(), syncReq)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusAccepted, dto.TriggerSyncResponse{JobID: jobID, Status: domain.StatusPending})
		return
	}

	job, err := h.jobs.SubmitAndWait(c.Request.Context(), syncReq)
	if err != nil {
		response.Error(c, err)
		return
	}
	if job.Status == domain.StatusFailed {
		response.Fail(c, http.StatusBadGateway, errs.CodeSyncFailed, job.Error)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetSyncStatus reports a job's progress. Jobs of other owners are reported
// as missing.
func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	userID := c.GetString("userID")

	job, err := h.jobs.Status(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if job.OwnerID != userID {
		response.Fail(c, http.StatusNotFound, errs.CodeNotFound, "job not found")
		return
	}

	c.JSON(http.StatusOK, dto.NewSyncStatusResponse(job))
}
