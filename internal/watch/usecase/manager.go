package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"
	watchdomain "jobhunt-backend/internal/watch/domain"
	"jobhunt-backend/internal/watch/repository"

	"go.uber.org/zap"
)

var ErrTopicNotConfigured = errors.New("push topic not configured")

// Manager keeps each owner's provider push registration alive.
type Manager struct {
	repo      repository.SubscriptionRepository
	providers emaildomain.ProviderFactory
	topic     string
	logger    *zap.Logger
	now       func() time.Time
}

func NewManager(repo repository.SubscriptionRepository, providers emaildomain.ProviderFactory, topic string, logger *zap.Logger) *Manager {
	return &Manager{
		repo:      repo,
		providers: providers,
		topic:     topic,
		logger:    logger.Named("watch"),
		now:       time.Now,
	}
}

// EnsureWatch registers a push watch and stores the subscription.
func (m *Manager) EnsureWatch(ctx context.Context, ownerID string) (*watchdomain.Subscription, error) {
	if m.topic == "" {
		return nil, ErrTopicNotConfigured
	}
	provider, err := m.providers.ForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	res, err := provider.Watch(ctx, m.topic)
	if err != nil {
		return nil, fmt.Errorf("register watch: %w", err)
	}

	sub, err := m.repo.Save(ctx, ownerID, res.Cursor, res.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	m.logger.Info("watch ensured",
		zap.String("owner_id", ownerID),
		zap.String("cursor", sub.Cursor),
		zap.Time("expires_at", sub.ExpiresAt))
	return sub, nil
}

// RenewIfNeeded re-registers when the subscription is missing or within
// RenewalMargin of expiry. It reports whether a renewal happened.
func (m *Manager) RenewIfNeeded(ctx context.Context, ownerID string) (bool, error) {
	sub, err := m.repo.Get(ctx, ownerID)
	if err != nil {
		return false, fmt.Errorf("load subscription: %w", err)
	}
	if sub != nil && !sub.NeedsRenewal(m.now()) {
		return false, nil
	}
	if _, err := m.EnsureWatch(ctx, ownerID); err != nil {
		return false, err
	}
	return true, nil
}

// RenewAll walks every stored subscription. One owner's failure does not
// stop the others.
func (m *Manager) RenewAll(ctx context.Context) (renewed, failed int, err error) {
	subs, err := m.repo.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	for _, sub := range subs {
		if ctx.Err() != nil {
			return renewed, failed, ctx.Err()
		}
		ok, err := m.RenewIfNeeded(ctx, sub.OwnerID)
		if err != nil {
			failed++
			m.logger.Warn("watch renewal failed", zap.String("owner_id", sub.OwnerID), zap.Error(err))
			continue
		}
		if ok {
			renewed++
		}
	}
	return renewed, failed, nil
}

// Current returns the stored subscription, or nil.
func (m *Manager) Current(ctx context.Context, ownerID string) (*watchdomain.Subscription, error) {
	return m.repo.Get(ctx, ownerID)
}

// StopWatch cancels the provider registration (best effort) and forgets it.
func (m *Manager) StopWatch(ctx context.Context, ownerID string) error {
	provider, err := m.providers.ForOwner(ctx, ownerID)
	if err == nil {
		if err := provider.StopWatch(ctx); err != nil {
			m.logger.Warn("provider stop failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
	} else {
		m.logger.Warn("no provider to stop watch", zap.String("owner_id", ownerID), zap.Error(err))
	}
	return m.repo.Delete(ctx, ownerID)
}
