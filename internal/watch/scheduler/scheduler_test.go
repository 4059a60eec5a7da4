package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRenewer struct {
	calls atomic.Int32
}

func (r *countingRenewer) RenewAll(ctx context.Context) (int, int, error) {
	r.calls.Add(1)
	return 1, 0, nil
}

func TestRenewalScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	r := &countingRenewer{}
	s := NewRenewalScheduler(r, 10*time.Millisecond, zap.NewNop())
	s.Start()

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, r.calls.Load())
}

func TestRenewalScheduler_StopIsIdempotent(t *testing.T) {
	s := NewRenewalScheduler(&countingRenewer{}, time.Hour, zap.NewNop())
	s.Start()
	s.Stop()
	s.Stop()
}

type failingRenewer struct{}

func (failingRenewer) RenewAll(ctx context.Context) (int, int, error) {
	return 0, 0, context.DeadlineExceeded
}

type countingKeeper struct {
	calls atomic.Int32
}

func (k *countingKeeper) Housekeep(ctx context.Context) error {
	k.calls.Add(1)
	return nil
}

func TestRenewalScheduler_HousekeepingRunsEvenWhenRenewalFails(t *testing.T) {
	k := &countingKeeper{}
	s := NewRenewalScheduler(failingRenewer{}, time.Hour, zap.NewNop())
	s.AddHousekeeper(k)
	s.Start()

	require.Eventually(t, func() bool { return k.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
}
