package domain

import (
	"testing"
	"time"

	"jobhunt-backend/internal/errs"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCanAppend(t *testing.T) {
	tests := []struct {
		last, next Status
		want       bool
	}{
		{"", StatusPending, true},
		{"", StatusRunning, false},
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusFailed, false},
		{StatusPending, StatusPending, false},
		{StatusRunning, StatusRunning, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusFailed, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CanAppend(tt.last, tt.next), "%q -> %q", tt.last, tt.next)
	}
}

func TestFold(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	summary := &Summary{Classified: 3, Linked: 1}
	events := []Event{
		{Seq: 1, JobID: "j1", OwnerID: "o1", Kind: KindIncremental, Status: StatusPending, Phase: PhaseQueued, CreatedAt: t0},
		{Seq: 2, JobID: "j1", OwnerID: "o1", Kind: KindIncremental, Status: StatusRunning, Progress: 5, Phase: PhaseSync, CreatedAt: t0.Add(time.Second)},
		{Seq: 3, JobID: "j1", OwnerID: "o1", Kind: KindIncremental, Status: StatusRunning, Progress: 50, Phase: PhaseClassify, CreatedAt: t0.Add(2 * time.Second)},
		{Seq: 4, JobID: "j1", OwnerID: "o1", Kind: KindIncremental, Status: StatusCompleted, Progress: 100, Phase: PhaseDone, Summary: summary, CreatedAt: t0.Add(3 * time.Second)},
	}

	job, err := Fold(events)
	require.NoError(t, err)

	started := t0.Add(time.Second)
	completed := t0.Add(3 * time.Second)
	want := &Job{
		ID:          "j1",
		OwnerID:     "o1",
		Kind:        KindIncremental,
		Status:      StatusCompleted,
		Progress:    100,
		Phase:       PhaseDone,
		CreatedAt:   t0,
		StartedAt:   &started,
		CompletedAt: &completed,
		Summary:     summary,
	}
	if diff := cmp.Diff(want, job); diff != "" {
		t.Fatalf("Fold mismatch (-want +got):\n%s", diff)
	}
}

func TestFold_Failed(t *testing.T) {
	t0 := time.Now()
	job, err := Fold([]Event{
		{Seq: 1, JobID: "j", Status: StatusPending, CreatedAt: t0},
		{Seq: 2, JobID: "j", Status: StatusRunning, Progress: 10, CreatedAt: t0},
		{Seq: 3, JobID: "j", Status: StatusFailed, Message: "boom", CreatedAt: t0},
	})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, job.Status)
	require.Equal(t, "boom", job.Error)
	require.Equal(t, 10, job.Progress)
	require.NotNil(t, job.CompletedAt)
}

func TestFold_RejectsIllegalHistory(t *testing.T) {
	_, err := Fold([]Event{
		{Seq: 1, JobID: "j", Status: StatusPending},
		{Seq: 2, JobID: "j", Status: StatusRunning},
		{Seq: 3, JobID: "j", Status: StatusCompleted},
		{Seq: 4, JobID: "j", Status: StatusRunning},
	})
	require.ErrorIs(t, err, errs.ErrIllegalTransition)

	_, err = Fold(nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
