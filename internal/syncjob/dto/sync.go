package dto

import (
	"time"

	"jobhunt-backend/internal/syncjob/domain"
)

// TriggerSyncRequest is the body of POST /api/sync/trigger.
type TriggerSyncRequest struct {
	SyncType string `json:"syncType" binding:"required,oneof=initial incremental"`
	DaysBack int    `json:"daysBack" binding:"min=0,max=365"`
	Async    bool   `json:"async"`
}

type TriggerSyncResponse struct {
	JobID  string        `json:"jobId"`
	Status domain.Status `json:"status"`
}

// SyncStatusResponse is what pollers of a job see.
type SyncStatusResponse struct {
	JobID       string          `json:"jobId"`
	Status      domain.Status   `json:"status"`
	Progress    int             `json:"progress"`
	Phase       string          `json:"phase"`
	StartedAt   *time.Time      `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Error       string          `json:"error,omitempty"`
	Summary     *domain.Summary `json:"summary,omitempty"`
}

func NewSyncStatusResponse(job *domain.Job) SyncStatusResponse {
	return SyncStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Phase:       job.Phase,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
		Summary:     job.Summary,
	}
}
