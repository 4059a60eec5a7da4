package repository

import (
	"context"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MailRecordRepository stores the local mailbox mirror.
type MailRecordRepository interface {
	// Upsert writes provider-owned fields; classification fields survive re-syncs.
	Upsert(ctx context.Context, rec *emaildomain.MailRecord) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error)
	ListUnclassified(ctx context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error)
	UpdateClassification(ctx context.Context, ownerID, id string, cls *emaildomain.Classification) error
	ListLinkCandidates(ctx context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error)
	SetApplication(ctx context.Context, ownerID, id, applicationID string) error
}

type mailRecordRepository struct {
	db *gorm.DB
}

func NewMailRecordRepository(db *gorm.DB) MailRecordRepository {
	return &mailRecordRepository{db: db}
}

func (r *mailRecordRepository) Upsert(ctx context.Context, rec *emaildomain.MailRecord) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"thread_id", "subject", "sender", "snippet", "labels",
			"history_id", "received_at", "updated_at",
		}),
	}).Create(rec).Error
}

func (r *mailRecordRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error) {
	var records []*emaildomain.MailRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *mailRecordRepository) ListUnclassified(ctx context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error) {
	var records []*emaildomain.MailRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND classified_at IS NULL", ownerID).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *mailRecordRepository) UpdateClassification(ctx context.Context, ownerID, id string, cls *emaildomain.Classification) error {
	return r.db.WithContext(ctx).Model(&emaildomain.MailRecord{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(map[string]interface{}{
			"category":      cls.Category,
			"company":       cls.Company,
			"position":      cls.Position,
			"confidence":    cls.Confidence,
			"classified_at": time.Now(),
			"updated_at":    time.Now(),
		}).Error
}

func (r *mailRecordRepository) ListLinkCandidates(ctx context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error) {
	var records []*emaildomain.MailRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND classified_at IS NOT NULL AND company <> '' AND application_id IS NULL", ownerID).
		Where("category <> ?", emaildomain.CategoryOther).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *mailRecordRepository) SetApplication(ctx context.Context, ownerID, id, applicationID string) error {
	return r.db.WithContext(ctx).Model(&emaildomain.MailRecord{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(map[string]interface{}{
			"application_id": applicationID,
			"updated_at":     time.Now(),
		}).Error
}
