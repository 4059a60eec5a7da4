package syncclient

import (
	"errors"
	"fmt"
)

// Strategy names the way a sync run was carried out.
type Strategy string

const (
	StrategyEnhanced Strategy = "enhanced"
	StrategyLegacy   Strategy = "legacy"
)

var (
	ErrNotAuthenticated = errors.New("mailbox not connected")
	ErrMaintenance      = errors.New("sync service under maintenance")
	ErrAlreadySyncing   = errors.New("sync already in progress")
	ErrThrottled        = errors.New("sync attempted too recently")
	ErrJobFailed        = errors.New("sync job failed")
	ErrPollTimeout      = errors.New("sync job did not finish in time")
)

// Outcome describes a finished sync run.
type Outcome struct {
	Strategy Strategy
	// JobID is empty for legacy runs.
	JobID string
	Job   *JobStatus
	// Cached is the number of messages written to the local cache.
	Cached int
	// Degraded is set when the enhanced strategy failed and this run fell
	// back to legacy.
	Degraded bool
}

// SyncError is a failed sync run.
type SyncError struct {
	Strategy Strategy
	JobID    string
	Err      error
}

func (e *SyncError) Error() string {
	if e.Strategy == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s sync: %v", e.Strategy, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Result holds exactly one of an Outcome or a SyncError.
type Result struct {
	outcome *Outcome
	err     *SyncError
}

func Succeeded(o Outcome) Result { return Result{outcome: &o} }

func Failed(strategy Strategy, jobID string, err error) Result {
	return Result{err: &SyncError{Strategy: strategy, JobID: jobID, Err: err}}
}

func (r Result) OK() bool { return r.outcome != nil }

// Outcome returns the run's outcome when it succeeded.
func (r Result) Outcome() (Outcome, bool) {
	if r.outcome == nil {
		return Outcome{}, false
	}
	return *r.outcome, true
}

// Err returns nil for successful runs.
func (r Result) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// JobID returns the server job the run created, if any.
func (r Result) JobID() string {
	switch {
	case r.outcome != nil:
		return r.outcome.JobID
	case r.err != nil:
		return r.err.JobID
	}
	return ""
}
