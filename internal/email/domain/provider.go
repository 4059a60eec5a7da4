package domain

import (
	"context"
	"time"
)

// Profile is the mailbox identity and its current history cursor.
type Profile struct {
	EmailAddress string
	Cursor       string
}

type MessagePage struct {
	IDs           []string
	NextPageToken string
}

// HistoryRecord is one change set in the mailbox history.
type HistoryRecord struct {
	Cursor          string
	AddedMessageIDs []string
}

// HistoryPage is one page of history. Cursor is the mailbox head and is
// only set on the final page; earlier pages are bounded by their records.
type HistoryPage struct {
	Records       []HistoryRecord
	Cursor        string
	NextPageToken string
}

type WatchResult struct {
	Cursor    string
	ExpiresAt time.Time
}

// MailProvider is the remote mailbox API for a single owner.
type MailProvider interface {
	GetProfile(ctx context.Context) (*Profile, error)
	ListMessages(ctx context.Context, query, pageToken string) (*MessagePage, error)
	// GetMessage returns metadata for one message; OwnerID is left empty.
	GetMessage(ctx context.Context, id string) (*MailRecord, error)
	// ListHistory returns errs.ErrCursorExpired when startCursor is too old.
	ListHistory(ctx context.Context, startCursor, pageToken string) (*HistoryPage, error)
	Watch(ctx context.Context, topic string) (*WatchResult, error)
	StopWatch(ctx context.Context) error
}

// ProviderFactory builds an authenticated provider for an owner. It
// returns errs.ErrAuthRequired when the owner has no usable credential.
type ProviderFactory interface {
	ForOwner(ctx context.Context, ownerID string) (MailProvider, error)
}
