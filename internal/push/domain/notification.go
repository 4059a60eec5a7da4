package domain

import (
	"encoding/json"
	"time"
)

// PushEnvelope is the body Pub/Sub posts to a push endpoint.
type PushEnvelope struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}

type PushMessage struct {
	// Data is base64 encoded JSON.
	Data        string    `json:"data"`
	MessageID   string    `json:"messageId"`
	PublishTime time.Time `json:"publishTime"`
}

// MailboxNotification is the decoded Gmail payload: the mailbox that changed
// and its history id at the time of the change.
type MailboxNotification struct {
	EmailAddress string      `json:"emailAddress"`
	HistoryID    json.Number `json:"historyId"`
}

// ProcessedNotification marks a notification id as handled.
type ProcessedNotification struct {
	NotificationID string    `gorm:"primaryKey"`
	ProcessedAt    time.Time `gorm:"not null"`
}

func (ProcessedNotification) TableName() string { return "processed_notifications" }

// Outcome of ingesting one notification.
type Outcome string

const (
	OutcomeQueued    Outcome = "queued"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)
