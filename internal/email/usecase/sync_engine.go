package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/email/repository"
	"jobhunt-backend/internal/errs"
	watchdomain "jobhunt-backend/internal/watch/domain"
	"jobhunt-backend/pkg/cursor"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 10

// WatchService is the part of the watch manager the engine needs.
type WatchService interface {
	EnsureWatch(ctx context.Context, ownerID string) (*watchdomain.Subscription, error)
	Current(ctx context.Context, ownerID string) (*watchdomain.Subscription, error)
}

// Engine pulls mailbox changes from the provider into the local mirror.
//
// Full syncs list everything received after a point in time. Incremental
// syncs walk the history log from the last acknowledged cursor. The stored
// cursor only moves forward, one acknowledged page at a time.
type Engine struct {
	providers        emaildomain.ProviderFactory
	records          repository.MailRecordRepository
	cursors          repository.CursorRepository
	watches          WatchService
	defaultWindow    time.Duration
	fetchConcurrency int
	logger           *zap.Logger
	now              func() time.Time
}

func NewEngine(
	providers emaildomain.ProviderFactory,
	records repository.MailRecordRepository,
	cursors repository.CursorRepository,
	watches WatchService,
	defaultWindow time.Duration,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		providers:        providers,
		records:          records,
		cursors:          cursors,
		watches:          watches,
		defaultWindow:    defaultWindow,
		fetchConcurrency: defaultFetchConcurrency,
		logger:           logger.Named("sync_engine"),
		now:              time.Now,
	}
}

// DefaultSince is the start of the default full-sync window.
func (e *Engine) DefaultSince() time.Time {
	return e.now().Add(-e.defaultWindow)
}

// FullSync mirrors every message received after since and then makes sure
// a push watch exists. A zero since uses the default window.
func (e *Engine) FullSync(ctx context.Context, ownerID string, since time.Time) (*emaildomain.SyncResult, error) {
	started := e.now()
	if since.IsZero() {
		since = e.DefaultSince()
	}
	result := &emaildomain.SyncResult{Mode: emaildomain.SyncModeFull}
	log := e.logger.With(zap.String("owner_id", ownerID), zap.String("mode", result.Mode))

	provider, err := e.providers.ForOwner(ctx, ownerID)
	if err != nil {
		return result, err
	}

	// Read the mailbox cursor before listing so that anything arriving
	// mid-listing is still ahead of the stored cursor. Message history ids
	// are not folded in; they can run ahead of unread history.
	profile, err := provider.GetProfile(ctx)
	if err != nil {
		return result, fmt.Errorf("get profile: %w", err)
	}
	newCursor := profile.Cursor

	query := fmt.Sprintf("after:%d", since.Unix())
	pageToken := ""
	for {
		page, err := provider.ListMessages(ctx, query, pageToken)
		if err != nil {
			result.Finish(started, e.now())
			return result, fmt.Errorf("list messages: %w", err)
		}

		if err := e.fetchAndStore(ctx, provider, ownerID, page.IDs, result); err != nil {
			result.Finish(started, e.now())
			return result, err
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	stored, err := e.cursors.Advance(ctx, ownerID, newCursor)
	if err != nil {
		result.Finish(started, e.now())
		return result, fmt.Errorf("advance cursor: %w", err)
	}
	result.NewCursor = stored

	if e.watches != nil {
		if _, err := e.watches.EnsureWatch(ctx, ownerID); err != nil {
			log.Warn("watch registration after full sync failed", zap.Error(err))
			result.AddError("watch", "", err)
		}
	}

	result.Finish(started, e.now())
	log.Info("full sync done",
		zap.Int("synced", result.MessagesSynced),
		zap.Int("errors", len(result.Errors)),
		zap.String("cursor", result.NewCursor),
		zap.Duration("took", result.Duration))
	return result, nil
}

// IncrementalSync applies history since the given cursor, or the last known
// one when empty. Owners with no cursor at all, or whose cursor has fallen
// out of provider retention, get a full sync of the default window instead.
func (e *Engine) IncrementalSync(ctx context.Context, ownerID, start string) (*emaildomain.SyncResult, error) {
	started := e.now()
	log := e.logger.With(zap.String("owner_id", ownerID), zap.String("mode", emaildomain.SyncModeIncremental))

	if !cursor.Valid(start) {
		resolved, err := e.lastKnownCursor(ctx, ownerID)
		if err != nil {
			return &emaildomain.SyncResult{Mode: emaildomain.SyncModeIncremental}, err
		}
		start = resolved
	}
	if start == "" {
		log.Info("no cursor on record, running full sync")
		return e.fallbackFull(ctx, ownerID)
	}

	provider, err := e.providers.ForOwner(ctx, ownerID)
	if err != nil {
		return &emaildomain.SyncResult{Mode: emaildomain.SyncModeIncremental}, err
	}

	result := &emaildomain.SyncResult{Mode: emaildomain.SyncModeIncremental, NewCursor: start}
	seen := make(map[string]struct{})
	maxSeen := start
	pageToken := ""
	for {
		page, err := provider.ListHistory(ctx, start, pageToken)
		if errors.Is(err, errs.ErrCursorExpired) {
			log.Warn("history cursor expired, running full sync", zap.String("cursor", start))
			return e.fallbackFull(ctx, ownerID)
		}
		if err != nil {
			result.Finish(started, e.now())
			return result, fmt.Errorf("list history: %w", err)
		}

		var ids []string
		var pageCursor string
		if page.NextPageToken == "" {
			pageCursor = page.Cursor
		}
		for _, rec := range page.Records {
			pageCursor = cursor.Max(pageCursor, rec.Cursor)
			for _, id := range rec.AddedMessageIDs {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}

		if err := e.fetchAndStore(ctx, provider, ownerID, ids, result); err != nil {
			result.Finish(started, e.now())
			return result, err
		}

		// Pages are not guaranteed to arrive in cursor order.
		maxSeen = cursor.Max(maxSeen, pageCursor)
		stored, err := e.cursors.Advance(ctx, ownerID, maxSeen)
		if err != nil {
			result.Finish(started, e.now())
			return result, fmt.Errorf("advance cursor: %w", err)
		}
		result.NewCursor = stored

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	result.Finish(started, e.now())
	log.Info("incremental sync done",
		zap.Int("synced", result.MessagesSynced),
		zap.Int("errors", len(result.Errors)),
		zap.String("cursor", result.NewCursor),
		zap.Duration("took", result.Duration))
	return result, nil
}

func (e *Engine) fallbackFull(ctx context.Context, ownerID string) (*emaildomain.SyncResult, error) {
	result, err := e.FullSync(ctx, ownerID, e.DefaultSince())
	if result != nil {
		result.FellBack = true
	}
	return result, err
}

// lastKnownCursor prefers the engine's own cursor over the one returned by
// the last watch registration.
func (e *Engine) lastKnownCursor(ctx context.Context, ownerID string) (string, error) {
	stored, err := e.cursors.Get(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("load cursor: %w", err)
	}
	if cursor.Valid(stored) {
		return stored, nil
	}
	if e.watches == nil {
		return "", nil
	}
	sub, err := e.watches.Current(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("load subscription: %w", err)
	}
	if sub != nil && cursor.Valid(sub.Cursor) {
		return sub.Cursor, nil
	}
	return "", nil
}

// fetchAndStore fetches ids with bounded concurrency and upserts them.
// Per-message failures are recorded on result; only cancellation aborts.
func (e *Engine) fetchAndStore(
	ctx context.Context,
	provider emaildomain.MailProvider,
	ownerID string,
	ids []string,
	result *emaildomain.SyncResult,
) error {
	if len(ids) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			msg, err := provider.GetMessage(gctx, id)
			if err != nil {
				mu.Lock()
				result.AddError("fetch", id, err)
				mu.Unlock()
				return nil
			}
			msg.OwnerID = ownerID
			if err := e.records.Upsert(gctx, msg); err != nil {
				mu.Lock()
				result.AddError("store", id, err)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			result.MessagesSynced++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
