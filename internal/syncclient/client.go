// Package syncclient keeps a local mirror of the mailbox fresh by driving
// the sync service from the client side.
package syncclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Status string

const (
	StatusIdle        Status = "idle"
	StatusSyncing     Status = "syncing"
	StatusError       Status = "error"
	StatusSetup       Status = "setup"
	StatusMaintenance Status = "maintenance"
)

// Trigger is what started a sync attempt.
type Trigger string

const (
	TriggerTimer   Trigger = "timer"
	TriggerVisible Trigger = "visibility"
	TriggerManual  Trigger = "manual"
)

const (
	defaultMinInterval        = 30 * time.Second
	defaultVisibilityInterval = 5 * time.Minute
	defaultPollInterval       = time.Second
	defaultMaxPolls           = 300
	defaultSnapshotLimit      = 500
)

// Cache is the local mirror the client keeps current.
type Cache interface {
	// Merge upserts emails by id and keeps everything else.
	Merge(ctx context.Context, emails []Email) error
	// Replace swaps the whole mirror for emails.
	Replace(ctx context.Context, emails []Email) error
}

// State is a snapshot handed to subscribers.
type State struct {
	Status          Status
	EnhancedHealthy bool
	LastSyncTime    time.Time
	LastError       string
	JobID           string
	Progress        int
}

type Options struct {
	// Interval between timer-driven attempts. Zero disables the timer.
	Interval time.Duration
	// Enhanced enables the job-based strategy.
	Enhanced bool
	// SyncType is sent with enhanced triggers; defaults to incremental.
	SyncType string
}

// Client runs sync attempts on a timer, on visibility regain and on demand.
//
// The enhanced strategy queues a server job and polls it. The first
// enhanced failure other than missing authentication marks the strategy
// unhealthy and every later attempt uses the legacy snapshot strategy until
// Reset.
type Client struct {
	api    API
	cache  Cache
	logger *zap.Logger
	opts   Options

	minInterval        time.Duration
	visibilityInterval time.Duration
	pollInterval       time.Duration
	maxPolls           int
	snapshotLimit      int
	now                func() time.Time
	sleep              func(ctx context.Context, d time.Duration) error

	mu              sync.Mutex
	status          Status
	enhancedHealthy bool
	lastSyncTime    time.Time
	lastAttempt     time.Time
	lastVisibility  time.Time
	lastErr         string
	jobID           string
	progress        int
	subscribers     map[int]func(State)
	nextSubID       int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(api API, cache Cache, opts Options, logger *zap.Logger) *Client {
	if opts.SyncType == "" {
		opts.SyncType = "incremental"
	}
	return &Client{
		api:                api,
		cache:              cache,
		logger:             logger.Named("sync_client"),
		opts:               opts,
		minInterval:        defaultMinInterval,
		visibilityInterval: defaultVisibilityInterval,
		pollInterval:       defaultPollInterval,
		maxPolls:           defaultMaxPolls,
		snapshotLimit:      defaultSnapshotLimit,
		now:                time.Now,
		sleep:              sleepContext,
		status:             StatusIdle,
		enhancedHealthy:    true,
		subscribers:        make(map[int]func(State)),
	}
}

// Initialize runs a first sync in the background and starts the timer.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return errors.New("sync client already initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(ctx)
	}()
	return nil
}

// Destroy stops the timer and waits for a running attempt to finish.
func (c *Client) Destroy() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Client) loop(ctx context.Context) {
	c.Sync(ctx, TriggerTimer)

	if c.opts.Interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sync(ctx, TriggerTimer)
		}
	}
}

// ManualTrigger syncs now regardless of the throttle. It returns without
// starting anything while another attempt is running.
func (c *Client) ManualTrigger(ctx context.Context) Result {
	return c.Sync(ctx, TriggerManual)
}

// OnVisible reacts to the user coming back to the app.
func (c *Client) OnVisible(ctx context.Context) Result {
	return c.Sync(ctx, TriggerVisible)
}

// Subscribe registers fn for state changes and returns its unsubscribe.
func (c *Client) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Reset starts a new session: the enhanced strategy is trusted again.
func (c *Client) Reset() {
	c.mu.Lock()
	c.enhancedHealthy = true
	c.lastErr = ""
	if c.status != StatusSyncing {
		c.status = StatusIdle
	}
	c.mu.Unlock()
	c.notify()
}

// Sync runs one attempt for trigger, subject to the throttles.
func (c *Client) Sync(ctx context.Context, trigger Trigger) Result {
	useEnhanced, err := c.begin(trigger)
	if err != nil {
		c.logger.Debug("sync skipped", zap.String("trigger", string(trigger)), zap.Error(err))
		return Failed("", "", err)
	}
	c.notify()

	manual := trigger == TriggerManual
	var res Result
	degraded := false
	if useEnhanced {
		res = c.runEnhanced(ctx, manual)
		if err := res.Err(); err != nil && c.degrades(err) {
			c.logger.Warn("enhanced sync failed, switching to legacy for this session", zap.Error(err))
			c.mu.Lock()
			c.enhancedHealthy = false
			c.mu.Unlock()
			degraded = true
		}
	}
	if !useEnhanced || degraded {
		res = c.runLegacy(ctx, manual)
		if out, ok := res.Outcome(); ok && degraded {
			out.Degraded = true
			res = Succeeded(out)
		}
	}

	c.finish(trigger, res)
	return res
}

func (c *Client) begin(trigger Trigger) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusSyncing {
		return false, ErrAlreadySyncing
	}
	now := c.now()
	if trigger == TriggerVisible {
		if !c.lastVisibility.IsZero() && now.Sub(c.lastVisibility) < c.visibilityInterval {
			return false, ErrThrottled
		}
	}
	if trigger != TriggerManual && !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.minInterval {
		return false, ErrThrottled
	}

	if trigger == TriggerVisible {
		c.lastVisibility = now
	}
	c.lastAttempt = now
	c.status = StatusSyncing
	c.jobID = ""
	c.progress = 0
	return c.opts.Enhanced && c.enhancedHealthy, nil
}

func (c *Client) finish(trigger Trigger, res Result) {
	c.mu.Lock()
	err := res.Err()
	switch {
	case err == nil:
		c.status = StatusIdle
		c.lastErr = ""
		c.lastSyncTime = c.now()
		c.progress = 100
	case errors.Is(err, ErrNotAuthenticated):
		c.status = StatusSetup
		c.lastErr = err.Error()
	case errors.Is(err, ErrMaintenance):
		c.status = StatusMaintenance
		c.lastErr = err.Error()
	default:
		c.status = StatusError
		c.lastErr = err.Error()
	}
	c.mu.Unlock()
	c.notify()

	if err != nil {
		c.logger.Warn("sync failed", zap.String("trigger", string(trigger)), zap.Error(err))
		return
	}
	out, _ := res.Outcome()
	c.logger.Info("sync done",
		zap.String("trigger", string(trigger)),
		zap.String("strategy", string(out.Strategy)),
		zap.String("job_id", out.JobID),
		zap.Int("cached", out.Cached))
}

// degrades reports whether an enhanced failure should trip the breaker.
// Missing authentication and jobs the server ran and reported on are not
// strategy failures.
func (c *Client) degrades(err error) bool {
	return !errors.Is(err, ErrNotAuthenticated) &&
		!errors.Is(err, ErrJobFailed) &&
		!errors.Is(err, ErrPollTimeout) &&
		!errors.Is(err, context.Canceled)
}

func (c *Client) runEnhanced(ctx context.Context, manual bool) Result {
	jobID, err := c.api.StartSync(ctx, c.opts.SyncType)
	if err != nil {
		return Failed(StrategyEnhanced, "", err)
	}
	c.mu.Lock()
	c.jobID = jobID
	c.mu.Unlock()
	c.notify()

	job, err := c.poll(ctx, jobID)
	if err != nil {
		return Failed(StrategyEnhanced, jobID, err)
	}

	cached, err := c.refresh(ctx, manual)
	if err != nil {
		return Failed(StrategyEnhanced, jobID, err)
	}
	return Succeeded(Outcome{Strategy: StrategyEnhanced, JobID: jobID, Job: job, Cached: cached})
}

// poll checks the job every pollInterval until it finishes or maxPolls
// checks have been made.
func (c *Client) poll(ctx context.Context, jobID string) (*JobStatus, error) {
	lastProgress := -1
	for range c.maxPolls {
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}

		job, err := c.api.JobStatus(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("job status: %w", err)
		}

		switch job.Status {
		case JobCompleted:
			return job, nil
		case JobFailed:
			return job, fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
		}

		if job.Progress != lastProgress {
			lastProgress = job.Progress
			c.mu.Lock()
			c.progress = job.Progress
			c.mu.Unlock()
			c.notify()
		}
	}
	return nil, fmt.Errorf("%w: job %s after %d checks", ErrPollTimeout, jobID, c.maxPolls)
}

func (c *Client) runLegacy(ctx context.Context, manual bool) Result {
	cached, err := c.refresh(ctx, manual)
	if err != nil {
		return Failed(StrategyLegacy, "", err)
	}
	return Succeeded(Outcome{Strategy: StrategyLegacy, Cached: cached})
}

// refresh pulls the server snapshot into the cache. Background runs merge
// so rows on screen do not disappear; manual runs replace the mirror.
func (c *Client) refresh(ctx context.Context, manual bool) (int, error) {
	emails, err := c.api.FetchEmails(ctx, c.snapshotLimit)
	if err != nil {
		return 0, fmt.Errorf("fetch snapshot: %w", err)
	}
	if manual {
		err = c.cache.Replace(ctx, emails)
	} else {
		err = c.cache.Merge(ctx, emails)
	}
	if err != nil {
		return 0, fmt.Errorf("update cache: %w", err)
	}
	return len(emails), nil
}

func (c *Client) stateLocked() State {
	return State{
		Status:          c.status,
		EnhancedHealthy: c.enhancedHealthy,
		LastSyncTime:    c.lastSyncTime,
		LastError:       c.lastErr,
		JobID:           c.jobID,
		Progress:        c.progress,
	}
}

func (c *Client) notify() {
	c.mu.Lock()
	state := c.stateLocked()
	subs := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
