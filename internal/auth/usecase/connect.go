package usecase

import (
	"context"
	"fmt"

	authdomain "jobhunt-backend/internal/auth/domain"
	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/errs"
	syncdomain "jobhunt-backend/internal/syncjob/domain"
	watchdomain "jobhunt-backend/internal/watch/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CodeExchanger trades an authorization code for a token. *oauth2.Config
// satisfies it.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

type CredentialStore interface {
	Store(ctx context.Context, cred *authdomain.Credential) error
	Revoke(ctx context.Context, ownerID string) error
}

type AccountStore interface {
	Upsert(ctx context.Context, account *authdomain.Account) error
	Delete(ctx context.Context, ownerID string) error
}

type WatchRegistrar interface {
	EnsureWatch(ctx context.Context, ownerID string) (*watchdomain.Subscription, error)
	StopWatch(ctx context.Context, ownerID string) error
}

type JobSubmitter interface {
	Submit(ctx context.Context, req syncdomain.Request) (string, error)
}

// Connection is the outcome of connecting a mailbox.
type Connection struct {
	EmailAddress string
	JobID        string
}

// ConnectService links an owner to a mailbox and tears the link down again.
type ConnectService struct {
	exchanger CodeExchanger
	vault     CredentialStore
	providers emaildomain.ProviderFactory
	accounts  AccountStore
	watches   WatchRegistrar
	jobs      JobSubmitter
	logger    *zap.Logger
}

func NewConnectService(
	exchanger CodeExchanger,
	vault CredentialStore,
	providers emaildomain.ProviderFactory,
	accounts AccountStore,
	watches WatchRegistrar,
	jobs JobSubmitter,
	logger *zap.Logger,
) *ConnectService {
	return &ConnectService{
		exchanger: exchanger,
		vault:     vault,
		providers: providers,
		accounts:  accounts,
		watches:   watches,
		jobs:      jobs,
		logger:    logger.Named("connect"),
	}
}

// Connect exchanges code, stores the credential, records which mailbox
// belongs to ownerID and queues the initial sync. A failed watch
// registration does not fail the connect; the initial sync retries it.
func (s *ConnectService) Connect(ctx context.Context, ownerID, code string) (*Connection, error) {
	if ownerID == "" || code == "" {
		return nil, fmt.Errorf("%w: owner and code are required", errs.ErrInvalidArgument)
	}
	log := s.logger.With(zap.String("owner_id", ownerID))

	tok, err := s.exchanger.Exchange(ctx, code, oauth2.AccessTypeOffline)
	if err != nil {
		log.Warn("code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: code exchange: %v", errs.ErrAuthRequired, err)
	}
	if err := s.vault.Store(ctx, authdomain.CredentialFromToken(ownerID, tok, nil)); err != nil {
		return nil, err
	}

	provider, err := s.providers.ForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	profile, err := provider.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	account := &authdomain.Account{
		OwnerID:      ownerID,
		EmailAddress: profile.EmailAddress,
		Provider:     authdomain.ProviderGmail,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	if _, err := s.watches.EnsureWatch(ctx, ownerID); err != nil {
		log.Warn("watch registration on connect failed", zap.Error(err))
	}

	jobID, err := s.jobs.Submit(ctx, syncdomain.Request{Kind: syncdomain.KindInitial, OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("queue initial sync: %w", err)
	}

	log.Info("mailbox connected", zap.String("email", profile.EmailAddress), zap.String("job_id", jobID))
	return &Connection{EmailAddress: profile.EmailAddress, JobID: jobID}, nil
}

// Disconnect stops push delivery and forgets the credential and account.
// Disconnecting an owner that is not connected succeeds.
func (s *ConnectService) Disconnect(ctx context.Context, ownerID string) error {
	log := s.logger.With(zap.String("owner_id", ownerID))

	if err := s.watches.StopWatch(ctx, ownerID); err != nil {
		log.Warn("stop watch on disconnect failed", zap.Error(err))
	}
	if err := s.vault.Revoke(ctx, ownerID); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	log.Info("mailbox disconnected")
	return nil
}
