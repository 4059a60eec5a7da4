package domain

import "time"

// Mail categories assigned by the classifier.
const (
	CategoryApplication = "application"
	CategoryInterview   = "interview"
	CategoryOffer       = "offer"
	CategoryRejection   = "rejection"
	CategoryOther       = "other"
)

// MailRecord is the local mirror of one provider message, keyed by the
// provider message id within an owner's mailbox.
type MailRecord struct {
	OwnerID       string     `json:"owner_id" gorm:"primaryKey"`
	ID            string     `json:"id" gorm:"primaryKey"`
	ThreadID      string     `json:"thread_id"`
	Subject       string     `json:"subject"`
	Sender        string     `json:"sender"`
	Snippet       string     `json:"snippet"`
	Labels        string     `json:"labels"`
	HistoryID     string     `json:"history_id"`
	ReceivedAt    time.Time  `json:"received_at"`
	Category      string     `json:"category"`
	Company       string     `json:"company"`
	Position      string     `json:"position"`
	Confidence    float64    `json:"confidence"`
	ClassifiedAt  *time.Time `json:"classified_at,omitempty"`
	ApplicationID *string    `json:"application_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (MailRecord) TableName() string { return "mail_records" }

// Classification is the classifier's verdict for one record.
type Classification struct {
	Category   string  `json:"category"`
	Company    string  `json:"company"`
	Position   string  `json:"position"`
	Confidence float64 `json:"confidence"`
}

// SyncCursor is the owner's last acknowledged history cursor.
type SyncCursor struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"uniqueIndex;not null"`
	Cursor    string `gorm:"not null"`
	UpdatedAt time.Time
}

func (SyncCursor) TableName() string { return "sync_cursors" }

func SyncCursorID(ownerID string) string { return "cursor_" + ownerID }
