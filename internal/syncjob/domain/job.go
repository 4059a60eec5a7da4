package domain

import (
	"fmt"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/errs"
)

type Kind string

const (
	KindInitial     Kind = "initial"
	KindIncremental Kind = "incremental"
)

func (k Kind) Valid() bool { return k == KindInitial || k == KindIncremental }

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Phases a running job reports progress for.
const (
	PhaseQueued   = "queued"
	PhaseSync     = "sync"
	PhaseClassify = "classify"
	PhaseLink     = "link"
	PhaseDone     = "done"
)

// CanAppend reports whether an event with status next may follow the job's
// latest event status last. An empty last means the job has no events yet.
// Running may repeat to carry progress.
func CanAppend(last, next Status) bool {
	switch last {
	case "":
		return next == StatusPending
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusRunning || next.Terminal()
	default:
		return false
	}
}

// Summary is attached to the terminal event of a job.
type Summary struct {
	Sync       *emaildomain.SyncResult `json:"sync,omitempty"`
	Classified int                     `json:"classified"`
	Linked     int                     `json:"linked"`
}

// Event is one row of a job's append-only history.
type Event struct {
	Seq       int64     `json:"seq"`
	JobID     string    `json:"jobId"`
	OwnerID   string    `json:"ownerId"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Phase     string    `json:"phase"`
	Message   string    `json:"message,omitempty"`
	Summary   *Summary  `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Job is the current state of a job, folded from its events.
type Job struct {
	ID          string     `json:"jobId"`
	OwnerID     string     `json:"ownerId"`
	Kind        Kind       `json:"kind"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Phase       string     `json:"phase"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	Summary     *Summary   `json:"summary,omitempty"`
}

// Fold replays events in sequence order into a Job. It rejects histories
// that contain an illegal transition.
func Fold(events []Event) (*Job, error) {
	if len(events) == 0 {
		return nil, errs.ErrNotFound
	}

	job := &Job{ID: events[0].JobID, OwnerID: events[0].OwnerID, Kind: events[0].Kind}
	var last Status
	for i := range events {
		ev := &events[i]
		if !CanAppend(last, ev.Status) {
			return nil, fmt.Errorf("%w: %s -> %s at seq %d", errs.ErrIllegalTransition, last, ev.Status, ev.Seq)
		}
		last = ev.Status

		switch ev.Status {
		case StatusPending:
			job.CreatedAt = ev.CreatedAt
		case StatusRunning:
			if job.StartedAt == nil {
				at := ev.CreatedAt
				job.StartedAt = &at
			}
		case StatusCompleted, StatusFailed:
			at := ev.CreatedAt
			job.CompletedAt = &at
			job.Summary = ev.Summary
			if ev.Status == StatusFailed {
				job.Error = ev.Message
			}
		}
		job.Status = ev.Status
		job.Phase = ev.Phase
		// Progress never goes backwards for pollers.
		job.Progress = max(job.Progress, ev.Progress)
	}
	return job, nil
}

// Request asks for one sync job.
type Request struct {
	Kind    Kind
	OwnerID string
	// DaysBack bounds an initial sync's window; zero uses the default.
	DaysBack int
}
