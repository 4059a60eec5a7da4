package repository

import (
	"context"
	"time"

	"jobhunt-backend/internal/push/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessedRepository is the idempotency record for push notifications.
type ProcessedRepository interface {
	// MarkProcessed records id and reports whether this call was the first
	// to do so.
	MarkProcessed(ctx context.Context, id string) (bool, error)
	// Forget removes id so a redelivery of it is handled again.
	Forget(ctx context.Context, id string) error
	// Purge drops records older than cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

type processedRepository struct {
	db *gorm.DB
}

func NewProcessedRepository(db *gorm.DB) ProcessedRepository {
	return &processedRepository{db: db}
}

func (r *processedRepository) MarkProcessed(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ProcessedNotification{NotificationID: id, ProcessedAt: time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *processedRepository) Forget(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("notification_id = ?", id).
		Delete(&domain.ProcessedNotification{}).Error
}

func (r *processedRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("processed_at < ?", cutoff).
		Delete(&domain.ProcessedNotification{})
	return result.RowsAffected, result.Error
}
