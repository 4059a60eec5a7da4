package domain

import "time"

// RenewalMargin is how close to expiry a subscription gets re-registered.
const RenewalMargin = time.Hour

// Subscription is the provider push registration for one owner.
type Subscription struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	OwnerID   string    `json:"owner_id" gorm:"uniqueIndex;not null"`
	Cursor    string    `json:"cursor"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string { return "watch_subscriptions" }

func SubscriptionID(ownerID string) string { return "watch_" + ownerID }

// NeedsRenewal reports whether fewer than RenewalMargin remain before expiry.
func (s *Subscription) NeedsRenewal(now time.Time) bool {
	return s.ExpiresAt.Sub(now) < RenewalMargin
}
