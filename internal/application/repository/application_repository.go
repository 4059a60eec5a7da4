package repository

import (
	"context"
	"errors"
	"time"

	"jobhunt-backend/internal/application/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationRepository defines the interface for tracked application access
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.JobApplication) error
	FindByID(ctx context.Context, id string) (*domain.JobApplication, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.JobApplication, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
}

type gormApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &gormApplicationRepository{db: db}
}

func (r *gormApplicationRepository) Create(ctx context.Context, app *domain.JobApplication) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Status == "" {
		app.Status = domain.StatusApplied
	}
	app.CreatedAt = time.Now()
	app.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *gormApplicationRepository) FindByID(ctx context.Context, id string) (*domain.JobApplication, error) {
	var app domain.JobApplication
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *gormApplicationRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.JobApplication, error) {
	var apps []*domain.JobApplication
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

func (r *gormApplicationRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	return r.db.WithContext(ctx).Model(&domain.JobApplication{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}
