package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	authdomain "jobhunt-backend/internal/auth/domain"
	"jobhunt-backend/internal/auth/repository"
	"jobhunt-backend/internal/errs"
	"jobhunt-backend/pkg/crypto"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// TokenRefresher exchanges a refresh token for a fresh access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type oauthRefresher struct {
	config *oauth2.Config
}

func NewOAuthRefresher(cfg *oauth2.Config) TokenRefresher {
	return &oauthRefresher{config: cfg}
}

func (r *oauthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	// An already-expired seed makes the source hit the token endpoint.
	seed := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	return r.config.TokenSource(ctx, seed).Token()
}

// TokenVault keeps one sealed OAuth credential per owner and hands out
// HTTP clients that stay authenticated across refreshes.
type TokenVault struct {
	repo      repository.CredentialRepository
	sealer    *crypto.Sealer
	refresher TokenRefresher
	logger    *zap.Logger
	now       func() time.Time
}

func NewTokenVault(repo repository.CredentialRepository, sealer *crypto.Sealer, refresher TokenRefresher, logger *zap.Logger) *TokenVault {
	return &TokenVault{
		repo:      repo,
		sealer:    sealer,
		refresher: refresher,
		logger:    logger.Named("token_vault"),
		now:       time.Now,
	}
}

func (v *TokenVault) Store(ctx context.Context, cred *authdomain.Credential) error {
	if cred == nil || cred.OwnerID == "" {
		return fmt.Errorf("store credential: %w", errs.ErrInvalidArgument)
	}
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	blob, err := v.sealer.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}
	if err := v.repo.Put(ctx, cred.OwnerID, blob); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	return nil
}

// Load returns nil, nil when the owner never authenticated or the stored
// blob cannot be opened.
func (v *TokenVault) Load(ctx context.Context, ownerID string) (*authdomain.Credential, error) {
	rec, err := v.repo.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	plaintext, err := v.sealer.Open(rec.Blob)
	if err != nil {
		v.logger.Warn("credential unreadable, treating as absent",
			zap.String("owner_id", ownerID), zap.Error(err))
		return nil, nil
	}

	var cred authdomain.Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		v.logger.Warn("credential payload corrupt, treating as absent",
			zap.String("owner_id", ownerID), zap.Error(err))
		return nil, nil
	}
	cred.OwnerID = ownerID
	return &cred, nil
}

// Valid loads the owner's credential, refreshing it first when expired.
func (v *TokenVault) Valid(ctx context.Context, ownerID string) (*authdomain.Credential, error) {
	cred, err := v.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, errs.ErrAuthRequired
	}
	if cred.Expired(v.now()) {
		return v.refresh(ctx, cred)
	}
	return cred, nil
}

// AuthenticatedClient returns an HTTP client carrying the owner's bearer
// token. Tokens that expire while the client is in use are refreshed and
// re-stored.
func (v *TokenVault) AuthenticatedClient(ctx context.Context, ownerID string) (*http.Client, error) {
	cred, err := v.Valid(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	src := &vaultTokenSource{
		ctx:     context.WithoutCancel(ctx),
		vault:   v,
		current: cred,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(cred.OAuth2Token(), src)), nil
}

// Revoke deletes the owner's credential. Revoking twice is not an error.
func (v *TokenVault) Revoke(ctx context.Context, ownerID string) error {
	if err := v.repo.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	v.logger.Info("credential revoked", zap.String("owner_id", ownerID))
	return nil
}

func (v *TokenVault) refresh(ctx context.Context, cred *authdomain.Credential) (*authdomain.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", errs.ErrAuthRequired)
	}

	tok, err := v.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		v.logger.Warn("token refresh failed", zap.String("owner_id", cred.OwnerID), zap.Error(err))
		return nil, fmt.Errorf("%w: refresh failed: %v", errs.ErrAuthRequired, err)
	}

	next := authdomain.CredentialFromToken(cred.OwnerID, tok, cred)
	if err := v.Store(ctx, next); err != nil {
		return nil, err
	}
	v.logger.Debug("access token refreshed",
		zap.String("owner_id", cred.OwnerID), zap.Time("expires_at", next.ExpiresAt))
	return next, nil
}

// vaultTokenSource persists refreshed tokens back into the vault.
type vaultTokenSource struct {
	ctx     context.Context
	vault   *TokenVault
	current *authdomain.Credential
}

func (s *vaultTokenSource) Token() (*oauth2.Token, error) {
	next, err := s.vault.refresh(s.ctx, s.current)
	if err != nil {
		return nil, err
	}
	s.current = next
	return next.OAuth2Token(), nil
}
