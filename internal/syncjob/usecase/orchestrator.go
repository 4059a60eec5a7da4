package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/errs"
	"jobhunt-backend/internal/syncjob/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Progress checkpoints appended as the job moves through its phases.
const (
	progressStarted    = 5
	progressSynced     = 50
	progressClassified = 75
	progressDone       = 100
)

// EventStore is the append-only job history.
type EventStore interface {
	Append(ctx context.Context, ev *domain.Event) error
	Job(ctx context.Context, jobID string) (*domain.Job, error)
}

// Syncer is the mailbox sync engine.
type Syncer interface {
	FullSync(ctx context.Context, ownerID string, since time.Time) (*emaildomain.SyncResult, error)
	IncrementalSync(ctx context.Context, ownerID, start string) (*emaildomain.SyncResult, error)
	DefaultSince() time.Time
}

type ClassifyPass interface {
	ClassifyPending(ctx context.Context, ownerID string) (int, error)
}

type LinkPass interface {
	LinkPending(ctx context.Context, ownerID string) (int, error)
}

// Publisher fans job events out to other services.
type Publisher interface {
	PublishJobEvent(ctx context.Context, ev domain.Event) error
}

// Notifier is told about every job that completes.
type Notifier interface {
	JobCompleted(ctx context.Context, job *domain.Job)
}

type Option func(*Orchestrator)

func WithClassifier(c ClassifyPass) Option { return func(o *Orchestrator) { o.classifier = c } }
func WithLinker(l LinkPass) Option         { return func(o *Orchestrator) { o.linker = l } }
func WithPublisher(p Publisher) Option     { return func(o *Orchestrator) { o.publisher = p } }
func WithNotifier(n Notifier) Option       { return func(o *Orchestrator) { o.notifier = n } }

type run struct {
	jobID   string
	ownerID string
	done    chan struct{}
}

// Orchestrator runs sync jobs in the background and records every state
// change as a new event.
//
// Submissions are coalesced per owner: while an owner has a job in flight in
// this process, Submit returns that job instead of starting another.
type Orchestrator struct {
	events     EventStore
	syncer     Syncer
	classifier ClassifyPass
	linker     LinkPass
	publisher  Publisher
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string

	mu      sync.Mutex
	byOwner map[string]*run
	byJob   map[string]*run
	wg      sync.WaitGroup
}

func NewOrchestrator(events EventStore, syncer Syncer, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		events:  events,
		syncer:  syncer,
		logger:  logger.Named("orchestrator"),
		now:     time.Now,
		newID:   uuid.NewString,
		byOwner: make(map[string]*run),
		byJob:   make(map[string]*run),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit records a pending job and starts it in the background. It returns
// without waiting for the sync.
func (o *Orchestrator) Submit(ctx context.Context, req domain.Request) (string, error) {
	if !req.Kind.Valid() {
		return "", fmt.Errorf("%w: unknown sync type %q", errs.ErrInvalidArgument, req.Kind)
	}
	if req.OwnerID == "" {
		return "", fmt.Errorf("%w: owner required", errs.ErrInvalidArgument)
	}
	if req.DaysBack < 0 {
		return "", fmt.Errorf("%w: daysBack must not be negative", errs.ErrInvalidArgument)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if r, ok := o.byOwner[req.OwnerID]; ok {
		o.logger.Info("coalesced sync request",
			zap.String("owner_id", req.OwnerID), zap.String("job_id", r.jobID), zap.String("kind", string(req.Kind)))
		return r.jobID, nil
	}

	jobID := o.newID()
	pending := &domain.Event{
		JobID:   jobID,
		OwnerID: req.OwnerID,
		Kind:    req.Kind,
		Status:  domain.StatusPending,
		Phase:   domain.PhaseQueued,
	}
	if err := o.append(ctx, pending); err != nil {
		return "", fmt.Errorf("record pending job: %w", err)
	}

	r := &run{jobID: jobID, ownerID: req.OwnerID, done: make(chan struct{})}
	o.byOwner[req.OwnerID] = r
	o.byJob[jobID] = r
	o.wg.Add(1)

	// The job outlives the request that submitted it.
	go o.run(context.WithoutCancel(ctx), req, r)

	o.logger.Info("sync job submitted",
		zap.String("job_id", jobID), zap.String("owner_id", req.OwnerID), zap.String("kind", string(req.Kind)))
	return jobID, nil
}

// SubmitAndWait submits a job and blocks until it finishes or ctx ends.
func (o *Orchestrator) SubmitAndWait(ctx context.Context, req domain.Request) (*domain.Job, error) {
	jobID, err := o.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.Wait(ctx, jobID)
}

// Wait blocks until the job is no longer running in this process and
// returns its state.
func (o *Orchestrator) Wait(ctx context.Context, jobID string) (*domain.Job, error) {
	o.mu.Lock()
	r, ok := o.byJob[jobID]
	o.mu.Unlock()

	if ok {
		select {
		case <-r.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return o.Status(ctx, jobID)
}

// Status folds the job's history into its current state.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	return o.events.Job(ctx, jobID)
}

// Shutdown waits for in-flight jobs to finish.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, req domain.Request, r *run) {
	log := o.logger.With(zap.String("job_id", r.jobID), zap.String("owner_id", req.OwnerID))
	summary := &domain.Summary{}
	started := false

	defer func() {
		if p := recover(); p != nil {
			log.Error("sync job panicked", zap.Any("panic", p), zap.Stack("stack"))
			if started {
				o.fail(ctx, log, req, r.jobID, fmt.Errorf("panic: %v", p), summary)
			}
		}

		o.mu.Lock()
		delete(o.byOwner, r.ownerID)
		delete(o.byJob, r.jobID)
		o.mu.Unlock()
		close(r.done)
		o.wg.Done()
	}()

	if err := o.progress(ctx, req, r.jobID, progressStarted, domain.PhaseSync, ""); err != nil {
		log.Error("could not start job", zap.Error(err))
		return
	}
	started = true

	result, err := o.sync(ctx, req)
	summary.Sync = result
	if err != nil {
		o.fail(ctx, log, req, r.jobID, err, summary)
		return
	}

	if o.classifier != nil {
		msg := fmt.Sprintf("synced %d messages", result.MessagesSynced)
		if err := o.progress(ctx, req, r.jobID, progressSynced, domain.PhaseClassify, msg); err != nil {
			o.fail(ctx, log, req, r.jobID, err, summary)
			return
		}
		n, err := o.classifier.ClassifyPending(ctx, req.OwnerID)
		summary.Classified = n
		if err != nil {
			log.Warn("classification pass failed", zap.Error(err))
			result.AddError(domain.PhaseClassify, "", err)
		}
	}

	if o.linker != nil {
		msg := fmt.Sprintf("classified %d messages", summary.Classified)
		if err := o.progress(ctx, req, r.jobID, progressClassified, domain.PhaseLink, msg); err != nil {
			o.fail(ctx, log, req, r.jobID, err, summary)
			return
		}
		n, err := o.linker.LinkPending(ctx, req.OwnerID)
		summary.Linked = n
		if err != nil {
			log.Warn("link pass failed", zap.Error(err))
			result.AddError(domain.PhaseLink, "", err)
		}
	}

	done := &domain.Event{
		JobID:    r.jobID,
		OwnerID:  req.OwnerID,
		Kind:     req.Kind,
		Status:   domain.StatusCompleted,
		Progress: progressDone,
		Phase:    domain.PhaseDone,
		Summary:  summary,
	}
	if err := o.append(ctx, done); err != nil {
		log.Error("could not record completion", zap.Error(err))
		o.fail(ctx, log, req, r.jobID, err, summary)
		return
	}

	log.Info("sync job completed",
		zap.String("mode", result.Mode),
		zap.Int("synced", result.MessagesSynced),
		zap.Int("classified", summary.Classified),
		zap.Int("linked", summary.Linked))

	if o.notifier != nil {
		job, err := o.events.Job(ctx, r.jobID)
		if err != nil {
			log.Warn("load completed job for notification", zap.Error(err))
			return
		}
		o.notifier.JobCompleted(ctx, job)
	}
}

func (o *Orchestrator) sync(ctx context.Context, req domain.Request) (*emaildomain.SyncResult, error) {
	if req.Kind == domain.KindInitial {
		since := o.syncer.DefaultSince()
		if req.DaysBack > 0 {
			since = o.now().AddDate(0, 0, -req.DaysBack)
		}
		return o.syncer.FullSync(ctx, req.OwnerID, since)
	}
	return o.syncer.IncrementalSync(ctx, req.OwnerID, "")
}

func (o *Orchestrator) progress(ctx context.Context, req domain.Request, jobID string, pct int, phase, msg string) error {
	return o.append(ctx, &domain.Event{
		JobID:    jobID,
		OwnerID:  req.OwnerID,
		Kind:     req.Kind,
		Status:   domain.StatusRunning,
		Progress: pct,
		Phase:    phase,
		Message:  msg,
	})
}

func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, req domain.Request, jobID string, cause error, summary *domain.Summary) {
	log.Warn("sync job failed", zap.Error(cause))
	ev := &domain.Event{
		JobID:   jobID,
		OwnerID: req.OwnerID,
		Kind:    req.Kind,
		Status:  domain.StatusFailed,
		Phase:   domain.PhaseDone,
		Message: cause.Error(),
		Summary: summary,
	}
	if err := o.append(ctx, ev); err != nil && !errors.Is(err, errs.ErrIllegalTransition) {
		log.Error("could not record job failure", zap.Error(err))
	}
}

func (o *Orchestrator) append(ctx context.Context, ev *domain.Event) error {
	if err := o.events.Append(ctx, ev); err != nil {
		return err
	}
	if o.publisher != nil {
		if err := o.publisher.PublishJobEvent(ctx, *ev); err != nil {
			o.logger.Warn("publish job event failed",
				zap.String("job_id", ev.JobID), zap.Int64("seq", ev.Seq), zap.Error(err))
		}
	}
	return nil
}
