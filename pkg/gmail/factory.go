package gmail

import (
	"context"
	"net/http"
	"sync"

	emaildomain "jobhunt-backend/internal/email/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// ClientSource hands out HTTP clients authenticated as an owner.
type ClientSource interface {
	AuthenticatedClient(ctx context.Context, ownerID string) (*http.Client, error)
}

// Factory builds per-owner Gmail providers sharing one quota limiter per owner.
type Factory struct {
	clients ClientSource
	logger  *zap.Logger
	opts    []option.ClientOption

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ emaildomain.ProviderFactory = (*Factory)(nil)

func NewFactory(clients ClientSource, logger *zap.Logger, opts ...option.ClientOption) *Factory {
	return &Factory{
		clients:  clients,
		logger:   logger.Named("gmail"),
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *Factory) ForOwner(ctx context.Context, ownerID string) (emaildomain.MailProvider, error) {
	client, err := f.clients.AuthenticatedClient(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, f.opts...)
	return New(ctx, f.limiterFor(ownerID), f.logger.With(zap.String("owner_id", ownerID)), opts...)
}

func (f *Factory) limiterFor(ownerID string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[ownerID]
	if !ok {
		l = NewLimiter()
		f.limiters[ownerID] = l
	}
	return l
}
