package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	authdomain "jobhunt-backend/internal/auth/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository resolves mailbox addresses to owners.
type AccountRepository interface {
	Upsert(ctx context.Context, account *authdomain.Account) error
	FindByEmail(ctx context.Context, email string) (*authdomain.Account, error)
	FindByOwnerID(ctx context.Context, ownerID string) (*authdomain.Account, error)
	Delete(ctx context.Context, ownerID string) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Upsert(ctx context.Context, account *authdomain.Account) error {
	now := time.Now()
	account.EmailAddress = normalizeEmail(account.EmailAddress)
	if account.Provider == "" {
		account.Provider = authdomain.ProviderGmail
	}
	account.CreatedAt = now
	account.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email_address", "provider", "updated_at"}),
	}).Create(account).Error
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*authdomain.Account, error) {
	var account authdomain.Account
	err := r.db.WithContext(ctx).Where("email_address = ?", normalizeEmail(email)).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByOwnerID(ctx context.Context, ownerID string) (*authdomain.Account, error) {
	var account authdomain.Account
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Delete(ctx context.Context, ownerID string) error {
	return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&authdomain.Account{}).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
