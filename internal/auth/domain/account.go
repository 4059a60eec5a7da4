package domain

import "time"

const ProviderGmail = "gmail"

// Account maps a connected mailbox address to its owner.
type Account struct {
	OwnerID      string    `json:"owner_id" gorm:"primaryKey"`
	EmailAddress string    `json:"email_address" gorm:"uniqueIndex;not null"`
	Provider     string    `json:"provider" gorm:"not null;default:gmail"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }
