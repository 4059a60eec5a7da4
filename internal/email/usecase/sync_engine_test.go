package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/email/emailtest"
	"jobhunt-backend/internal/errs"
	watchdomain "jobhunt-backend/internal/watch/domain"
	"jobhunt-backend/pkg/cursor"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCursors struct {
	mu       sync.Mutex
	cursors  map[string]string
	advances []string
}

func newMemCursors() *memCursors { return &memCursors{cursors: make(map[string]string)} }

func (c *memCursors) Get(ctx context.Context, ownerID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursors[ownerID], nil
}

func (c *memCursors) Advance(ctx context.Context, ownerID, candidate string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advances = append(c.advances, candidate)
	next := cursor.Max(c.cursors[ownerID], candidate)
	c.cursors[ownerID] = next
	return next, nil
}

type fakeWatches struct {
	current   *watchdomain.Subscription
	ensureErr error
	ensured   int
}

func (w *fakeWatches) EnsureWatch(ctx context.Context, ownerID string) (*watchdomain.Subscription, error) {
	w.ensured++
	if w.ensureErr != nil {
		return nil, w.ensureErr
	}
	return &watchdomain.Subscription{OwnerID: ownerID}, nil
}

func (w *fakeWatches) Current(ctx context.Context, ownerID string) (*watchdomain.Subscription, error) {
	return w.current, nil
}

var engineNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type engineFixture struct {
	engine   *Engine
	provider *emailtest.FakeProvider
	records  *emailtest.Records
	cursors  *memCursors
	watches  *fakeWatches
}

func newEngineFixture(provider *emailtest.FakeProvider) *engineFixture {
	f := &engineFixture{
		provider: provider,
		records:  emailtest.NewRecords(),
		cursors:  newMemCursors(),
		watches:  &fakeWatches{},
	}
	f.engine = NewEngine(&emailtest.Factory{Provider: provider}, f.records, f.cursors, f.watches, 30*24*time.Hour, zap.NewNop())
	f.engine.now = func() time.Time { return engineNow }
	return f
}

func msg(id, historyID string) *emaildomain.MailRecord {
	return &emaildomain.MailRecord{ID: id, HistoryID: historyID, Subject: "subject " + id}
}

func TestIncrementalSync_TakesMaxCursorAcrossOutOfOrderPages(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryPages: map[string]*emaildomain.HistoryPage{
			"": {
				Records:       []emaildomain.HistoryRecord{{Cursor: "105", AddedMessageIDs: []string{"m1"}}},
				NextPageToken: "p2",
			},
			"p2": {Records: []emaildomain.HistoryRecord{{Cursor: "110"}}, NextPageToken: "p3"},
			"p3": {Records: []emaildomain.HistoryRecord{{Cursor: "102"}}},
		},
		Messages: map[string]*emaildomain.MailRecord{"m1": msg("m1", "96")},
	}
	f := newEngineFixture(provider)
	f.cursors.cursors["owner-1"] = "100"

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "")
	require.NoError(t, err)
	require.Equal(t, emaildomain.SyncModeIncremental, res.Mode)
	require.Equal(t, "110", res.NewCursor)
	require.Equal(t, 1, res.MessagesSynced)
	require.Equal(t, "110", f.cursors.cursors["owner-1"])
	require.Equal(t, []string{"100", "100", "100"}, provider.HistoryStarts)
	require.Equal(t, []string{"105", "110", "110"}, f.cursors.advances)
}

func TestIncrementalSync_HeadCursorOnlyFromLastPage(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryPages: map[string]*emaildomain.HistoryPage{
			"": {
				Cursor:        "200",
				Records:       []emaildomain.HistoryRecord{{Cursor: "110"}},
				NextPageToken: "p2",
			},
			"p2": {Cursor: "200", Records: []emaildomain.HistoryRecord{{Cursor: "150"}}},
		},
	}
	f := newEngineFixture(provider)

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "100")
	require.NoError(t, err)
	require.Equal(t, []string{"110", "200"}, f.cursors.advances)
	require.Equal(t, "200", res.NewCursor)
}

func TestIncrementalSync_MessageHistoryIDDoesNotMoveCursor(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryPages: map[string]*emaildomain.HistoryPage{
			"": {
				Records:       []emaildomain.HistoryRecord{{Cursor: "105", AddedMessageIDs: []string{"m1"}}},
				NextPageToken: "p2",
			},
		},
		HistoryErrs: map[string]error{"p2": errs.ErrTransientProvider},
		Messages:    map[string]*emaildomain.MailRecord{"m1": msg("m1", "180")},
	}
	f := newEngineFixture(provider)

	_, err := f.engine.IncrementalSync(context.Background(), "owner-1", "100")
	require.ErrorIs(t, err, errs.ErrTransientProvider)
	require.Equal(t, "105", f.cursors.cursors["owner-1"])
}

func TestIncrementalSync_CursorNeverMovesBackwards(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryPages: map[string]*emaildomain.HistoryPage{"": {Cursor: "450"}},
	}
	f := newEngineFixture(provider)
	f.cursors.cursors["owner-1"] = "500"

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "400")
	require.NoError(t, err)
	require.Equal(t, "500", res.NewCursor)
	require.Equal(t, "500", f.cursors.cursors["owner-1"])
}

func TestIncrementalSync_MessageFailureDoesNotAbortBatch(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryPages: map[string]*emaildomain.HistoryPage{
			"": {
				Cursor: "120",
				Records: []emaildomain.HistoryRecord{
					{Cursor: "111", AddedMessageIDs: []string{"ok1", "bad", "ok2"}},
				},
			},
		},
		Messages: map[string]*emaildomain.MailRecord{
			"ok1": msg("ok1", "111"),
			"ok2": msg("ok2", "112"),
		},
		MessageErrs: map[string]error{"bad": errs.ErrTransientProvider},
	}
	f := newEngineFixture(provider)

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "100")
	require.NoError(t, err)
	require.Equal(t, 2, res.MessagesSynced)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "bad", res.Errors[0].MessageID)
	require.Equal(t, "fetch", res.Errors[0].Stage)
	require.Equal(t, "120", res.NewCursor)

	stored, _ := f.records.ListByOwner(context.Background(), "owner-1", 0)
	require.Len(t, stored, 2)
}

func TestIncrementalSync_DeduplicatesMessagesAcrossRecords(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryPages: map[string]*emaildomain.HistoryPage{
			"": {
				Cursor: "130",
				Records: []emaildomain.HistoryRecord{
					{Cursor: "121", AddedMessageIDs: []string{"m1"}},
					{Cursor: "122", AddedMessageIDs: []string{"m1"}},
				},
			},
		},
		Messages: map[string]*emaildomain.MailRecord{"m1": msg("m1", "121")},
	}
	f := newEngineFixture(provider)

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "120")
	require.NoError(t, err)
	require.Equal(t, 1, res.MessagesSynced)
	require.Equal(t, 1, provider.CallCount("GetMessage"))
}

func TestIncrementalSync_ExpiredCursorFallsBackToFullSync(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryErrs: map[string]error{"": fmt.Errorf("history: %w", errs.ErrCursorExpired)},
		Profile:     &emaildomain.Profile{EmailAddress: "jane@example.com", Cursor: "900"},
		MessagePages: map[string]*emaildomain.MessagePage{
			"": {IDs: []string{"m1"}},
		},
		Messages: map[string]*emaildomain.MailRecord{"m1": msg("m1", "850")},
	}
	f := newEngineFixture(provider)
	f.cursors.cursors["owner-1"] = "10"

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "")
	require.NoError(t, err)
	require.Equal(t, emaildomain.SyncModeFull, res.Mode)
	require.True(t, res.FellBack)
	require.Equal(t, "900", res.NewCursor)
	require.Equal(t, 1, res.MessagesSynced)

	since := engineNow.Add(-30 * 24 * time.Hour)
	require.Equal(t, []string{fmt.Sprintf("after:%d", since.Unix())}, provider.Queries)
}

func TestIncrementalSync_NoCursorRunsFullSync(t *testing.T) {
	provider := &emailtest.FakeProvider{
		Profile: &emaildomain.Profile{Cursor: "42"},
	}
	f := newEngineFixture(provider)

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "")
	require.NoError(t, err)
	require.Equal(t, emaildomain.SyncModeFull, res.Mode)
	require.Equal(t, "42", res.NewCursor)
	require.Zero(t, provider.CallCount("ListHistory"))
}

func TestIncrementalSync_UsesWatchCursorWhenNoneStored(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryPages: map[string]*emaildomain.HistoryPage{"": {Cursor: "305"}},
	}
	f := newEngineFixture(provider)
	f.watches.current = &watchdomain.Subscription{OwnerID: "owner-1", Cursor: "300"}

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "")
	require.NoError(t, err)
	require.Equal(t, []string{"300"}, provider.HistoryStarts)
	require.Equal(t, "305", res.NewCursor)
}

func TestIncrementalSync_KeepsAcknowledgedPagesOnLaterFailure(t *testing.T) {
	provider := &emailtest.FakeProvider{
		HistoryPages: map[string]*emaildomain.HistoryPage{
			"": {
				Cursor:        "300",
				Records:       []emaildomain.HistoryRecord{{Cursor: "150"}},
				NextPageToken: "p2",
			},
		},
		HistoryErrs: map[string]error{"p2": errs.ErrTransientProvider},
	}
	f := newEngineFixture(provider)

	res, err := f.engine.IncrementalSync(context.Background(), "owner-1", "100")
	require.ErrorIs(t, err, errs.ErrTransientProvider)
	require.Equal(t, "150", res.NewCursor)
	require.Equal(t, "150", f.cursors.cursors["owner-1"])
}

func TestIncrementalSync_AuthRequired(t *testing.T) {
	f := newEngineFixture(&emailtest.FakeProvider{})
	f.engine.providers = &emailtest.Factory{Err: errs.ErrAuthRequired}

	_, err := f.engine.IncrementalSync(context.Background(), "owner-1", "100")
	require.ErrorIs(t, err, errs.ErrAuthRequired)
}

func TestFullSync_PaginatesAndEnsuresWatch(t *testing.T) {
	provider := &emailtest.FakeProvider{
		Profile: &emaildomain.Profile{Cursor: "700"},
		MessagePages: map[string]*emaildomain.MessagePage{
			"":   {IDs: []string{"a", "b"}, NextPageToken: "n2"},
			"n2": {IDs: []string{"c"}},
		},
		Messages: map[string]*emaildomain.MailRecord{
			"a": msg("a", "690"),
			"b": msg("b", "701"),
			"c": msg("c", "650"),
		},
	}
	f := newEngineFixture(provider)
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	res, err := f.engine.FullSync(context.Background(), "owner-1", since)
	require.NoError(t, err)
	require.Equal(t, 3, res.MessagesSynced)
	// Message b's history id is ahead of the profile; only the profile counts.
	require.Equal(t, "700", res.NewCursor)
	require.Empty(t, res.Errors)
	require.Equal(t, 1, f.watches.ensured)
	require.Equal(t, []string{
		fmt.Sprintf("after:%d", since.Unix()),
		fmt.Sprintf("after:%d", since.Unix()),
	}, provider.Queries)

	stored, _ := f.records.ListByOwner(context.Background(), "owner-1", 0)
	require.Len(t, stored, 3)
	for _, rec := range stored {
		require.Equal(t, "owner-1", rec.OwnerID)
	}
}

func TestFullSync_WatchFailureIsRecordedNotFatal(t *testing.T) {
	provider := &emailtest.FakeProvider{Profile: &emaildomain.Profile{Cursor: "5"}}
	f := newEngineFixture(provider)
	f.watches.ensureErr = errors.New("topic missing")

	res, err := f.engine.FullSync(context.Background(), "owner-1", time.Time{})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "watch", res.Errors[0].Stage)
	require.Equal(t, "5", res.NewCursor)
}

func TestFullSync_ListFailureReturnsError(t *testing.T) {
	provider := &emailtest.FakeProvider{
		Profile: &emaildomain.Profile{Cursor: "5"},
		ListErr: errs.ErrTransientProvider,
	}
	f := newEngineFixture(provider)

	_, err := f.engine.FullSync(context.Background(), "owner-1", time.Time{})
	require.ErrorIs(t, err, errs.ErrTransientProvider)
	require.Empty(t, f.cursors.advances)
}
