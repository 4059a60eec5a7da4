package domain

import "time"

const (
	SyncModeFull        = "full"
	SyncModeIncremental = "incremental"
)

// SyncError is a non-fatal problem recorded while syncing.
type SyncError struct {
	MessageID string `json:"messageId,omitempty"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}

type SyncResult struct {
	Mode           string        `json:"mode"`
	MessagesSynced int           `json:"messagesSynced"`
	Errors         []SyncError   `json:"errors"`
	NewCursor      string        `json:"newCursor"`
	Duration       time.Duration `json:"-"`
	DurationMs     int64         `json:"durationMs"`
	// FellBack is set when an incremental sync degraded to a full sync.
	FellBack bool `json:"fellBack,omitempty"`
}

func (r *SyncResult) AddError(stage, messageID string, err error) {
	r.Errors = append(r.Errors, SyncError{Stage: stage, MessageID: messageID, Message: err.Error()})
}

func (r *SyncResult) Finish(started time.Time, now time.Time) {
	r.Duration = now.Sub(started)
	r.DurationMs = r.Duration.Milliseconds()
}
