package repository

import (
	"context"
	"errors"
	"time"

	watchdomain "jobhunt-backend/internal/watch/domain"
	"jobhunt-backend/pkg/cursor"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	// Get returns nil, nil when the owner has no subscription.
	Get(ctx context.Context, ownerID string) (*watchdomain.Subscription, error)
	// Save upserts a subscription. The stored cursor never moves backwards;
	// expiry is always replaced.
	Save(ctx context.Context, ownerID, cursor string, expiresAt time.Time) (*watchdomain.Subscription, error)
	List(ctx context.Context) ([]*watchdomain.Subscription, error)
	Delete(ctx context.Context, ownerID string) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Get(ctx context.Context, ownerID string) (*watchdomain.Subscription, error) {
	var sub watchdomain.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", watchdomain.SubscriptionID(ownerID)).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Save(ctx context.Context, ownerID, next string, expiresAt time.Time) (*watchdomain.Subscription, error) {
	id := watchdomain.SubscriptionID(ownerID)
	var saved watchdomain.Subscription

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		var current watchdomain.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = watchdomain.Subscription{
				ID:        id,
				OwnerID:   ownerID,
				Cursor:    cursor.Max("", next),
				ExpiresAt: expiresAt,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return tx.Create(&saved).Error
		case err != nil:
			return err
		}

		current.Cursor = cursor.Max(current.Cursor, next)
		current.ExpiresAt = expiresAt
		current.UpdatedAt = now
		saved = current
		return tx.Save(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *subscriptionRepository) List(ctx context.Context) ([]*watchdomain.Subscription, error) {
	var subs []*watchdomain.Subscription
	err := r.db.WithContext(ctx).Order("expires_at ASC").Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) Delete(ctx context.Context, ownerID string) error {
	return r.db.WithContext(ctx).Where("id = ?", watchdomain.SubscriptionID(ownerID)).
		Delete(&watchdomain.Subscription{}).Error
}
