// Package emailtest provides an in-memory MailProvider for tests.
package emailtest

import (
	"context"
	"fmt"
	"sync"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/errs"
)

// FakeProvider serves canned pages keyed by page token ("" is the first page).
type FakeProvider struct {
	mu sync.Mutex

	Profile    *emaildomain.Profile
	ProfileErr error

	MessagePages map[string]*emaildomain.MessagePage
	ListErr      error

	Messages    map[string]*emaildomain.MailRecord
	MessageErrs map[string]error

	HistoryPages map[string]*emaildomain.HistoryPage
	HistoryErrs  map[string]error

	WatchResult *emaildomain.WatchResult
	WatchErr    error
	StopErr     error

	Calls         []string
	Queries       []string
	HistoryStarts []string
}

var _ emaildomain.MailProvider = (*FakeProvider)(nil)

func (p *FakeProvider) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, call)
}

// CallCount returns how many times the named method ran.
func (p *FakeProvider) CallCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (p *FakeProvider) GetProfile(ctx context.Context) (*emaildomain.Profile, error) {
	p.record("GetProfile")
	if p.ProfileErr != nil {
		return nil, p.ProfileErr
	}
	if p.Profile == nil {
		return &emaildomain.Profile{}, nil
	}
	cp := *p.Profile
	return &cp, nil
}

func (p *FakeProvider) ListMessages(ctx context.Context, query, pageToken string) (*emaildomain.MessagePage, error) {
	p.record("ListMessages")
	p.mu.Lock()
	p.Queries = append(p.Queries, query)
	p.mu.Unlock()
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	page, ok := p.MessagePages[pageToken]
	if !ok {
		return &emaildomain.MessagePage{}, nil
	}
	return page, nil
}

func (p *FakeProvider) GetMessage(ctx context.Context, id string) (*emaildomain.MailRecord, error) {
	p.record("GetMessage")
	if err, ok := p.MessageErrs[id]; ok {
		return nil, err
	}
	msg, ok := p.Messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", id, errs.ErrNotFound)
	}
	cp := *msg
	return &cp, nil
}

func (p *FakeProvider) ListHistory(ctx context.Context, startCursor, pageToken string) (*emaildomain.HistoryPage, error) {
	p.record("ListHistory")
	p.mu.Lock()
	p.HistoryStarts = append(p.HistoryStarts, startCursor)
	p.mu.Unlock()
	if err, ok := p.HistoryErrs[pageToken]; ok {
		return nil, err
	}
	page, ok := p.HistoryPages[pageToken]
	if !ok {
		return &emaildomain.HistoryPage{}, nil
	}
	return page, nil
}

func (p *FakeProvider) Watch(ctx context.Context, topic string) (*emaildomain.WatchResult, error) {
	p.record("Watch")
	if p.WatchErr != nil {
		return nil, p.WatchErr
	}
	if p.WatchResult == nil {
		return &emaildomain.WatchResult{}, nil
	}
	cp := *p.WatchResult
	return &cp, nil
}

func (p *FakeProvider) StopWatch(ctx context.Context) error {
	p.record("StopWatch")
	return p.StopErr
}

// Factory returns Provider for every owner, or Err when set.
type Factory struct {
	Provider emaildomain.MailProvider
	Err      error
}

var _ emaildomain.ProviderFactory = (*Factory)(nil)

func (f *Factory) ForOwner(ctx context.Context, ownerID string) (emaildomain.MailProvider, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Provider, nil
}
