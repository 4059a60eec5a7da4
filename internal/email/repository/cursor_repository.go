package repository

import (
	"context"
	"errors"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/pkg/cursor"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorRepository stores each owner's last acknowledged history cursor.
type CursorRepository interface {
	// Get returns "" when no cursor has been stored.
	Get(ctx context.Context, ownerID string) (string, error)
	// Advance stores max(current, candidate) and returns the stored value.
	Advance(ctx context.Context, ownerID, candidate string) (string, error)
}

type cursorRepository struct {
	db *gorm.DB
}

func NewCursorRepository(db *gorm.DB) CursorRepository {
	return &cursorRepository{db: db}
}

func (r *cursorRepository) Get(ctx context.Context, ownerID string) (string, error) {
	var rec emaildomain.SyncCursor
	err := r.db.WithContext(ctx).Where("id = ?", emaildomain.SyncCursorID(ownerID)).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return rec.Cursor, nil
}

func (r *cursorRepository) Advance(ctx context.Context, ownerID, candidate string) (string, error) {
	id := emaildomain.SyncCursorID(ownerID)
	var stored string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		seed := &emaildomain.SyncCursor{ID: id, OwnerID: ownerID, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return err
		}

		var current emaildomain.SyncCursor
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&current).Error; err != nil {
			return err
		}

		stored = cursor.Max(current.Cursor, candidate)
		if stored == current.Cursor {
			return nil
		}
		return tx.Model(&emaildomain.SyncCursor{}).Where("id = ?", id).
			Updates(map[string]interface{}{"cursor": stored, "updated_at": now}).Error
	})
	if err != nil {
		return "", err
	}
	return stored, nil
}
