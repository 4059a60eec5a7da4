package repository

import (
	"context"
	"errors"
	"time"

	authdomain "jobhunt-backend/internal/auth/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository persists sealed credential blobs, one per owner.
type CredentialRepository interface {
	// Get returns nil, nil when the owner has no credential.
	Get(ctx context.Context, ownerID string) (*authdomain.CredentialRecord, error)
	Put(ctx context.Context, ownerID string, blob []byte) error
	Delete(ctx context.Context, ownerID string) error
}

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get(ctx context.Context, ownerID string) (*authdomain.CredentialRecord, error) {
	var rec authdomain.CredentialRecord
	err := r.db.WithContext(ctx).Where("id = ?", authdomain.CredentialRecordID(ownerID)).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Put replaces the whole record; there are no partial updates.
func (r *credentialRepository) Put(ctx context.Context, ownerID string, blob []byte) error {
	rec := &authdomain.CredentialRecord{
		ID:        authdomain.CredentialRecordID(ownerID),
		OwnerID:   ownerID,
		Blob:      blob,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"}),
	}).Create(rec).Error
}

func (r *credentialRepository) Delete(ctx context.Context, ownerID string) error {
	return r.db.WithContext(ctx).Where("id = ?", authdomain.CredentialRecordID(ownerID)).
		Delete(&authdomain.CredentialRecord{}).Error
}
