package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	authdomain "jobhunt-backend/internal/auth/domain"
	"jobhunt-backend/internal/errs"
	"jobhunt-backend/pkg/crypto"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type memCredentials struct {
	mu    sync.Mutex
	blobs map[string][]byte
	puts  int
}

func newMemCredentials() *memCredentials {
	return &memCredentials{blobs: make(map[string][]byte)}
}

func (m *memCredentials) Get(_ context.Context, ownerID string) (*authdomain.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[ownerID]
	if !ok {
		return nil, nil
	}
	return &authdomain.CredentialRecord{ID: authdomain.CredentialRecordID(ownerID), OwnerID: ownerID, Blob: blob}, nil
}

func (m *memCredentials) Put(_ context.Context, ownerID string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[ownerID] = blob
	m.puts++
	return nil
}

func (m *memCredentials) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ownerID)
	return nil
}

type stubRefresher struct {
	tok   *oauth2.Token
	err   error
	calls int
}

func (r *stubRefresher) Refresh(context.Context, string) (*oauth2.Token, error) {
	r.calls++
	return r.tok, r.err
}

var vaultNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestVault(t *testing.T, repo *memCredentials, refresher TokenRefresher) *TokenVault {
	t.Helper()
	sealer, err := crypto.NewSealer("test-secret")
	require.NoError(t, err)
	v := NewTokenVault(repo, sealer, refresher, zap.NewNop())
	v.now = func() time.Time { return vaultNow }
	return v
}

func testCredential(expiresAt time.Time) *authdomain.Credential {
	return &authdomain.Credential{
		OwnerID:      "owner-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Scope:        "https://www.googleapis.com/auth/gmail.readonly",
		ExpiresAt:    expiresAt,
	}
}

func TestTokenVault_RoundTrip(t *testing.T) {
	repo := newMemCredentials()
	v := newTestVault(t, repo, &stubRefresher{})
	cred := testCredential(vaultNow.Add(time.Hour))

	require.NoError(t, v.Store(context.Background(), cred))
	require.NotContains(t, string(repo.blobs["owner-1"]), "access-1")

	got, err := v.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, cred.AccessToken, got.AccessToken)
	require.Equal(t, cred.RefreshToken, got.RefreshToken)
	require.Equal(t, cred.Scope, got.Scope)
	require.True(t, cred.ExpiresAt.Equal(got.ExpiresAt))
}

func TestTokenVault_CorruptRecordIsAbsent(t *testing.T) {
	repo := newMemCredentials()
	v := newTestVault(t, repo, &stubRefresher{})
	require.NoError(t, v.Store(context.Background(), testCredential(vaultNow.Add(time.Hour))))

	blob := repo.blobs["owner-1"]
	blob[len(blob)-1] ^= 0xff

	got, err := v.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Nil(t, got)

	repo.blobs["owner-1"] = []byte("short")
	got, err = v.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTokenVault_OtherKeyIsAbsent(t *testing.T) {
	repo := newMemCredentials()
	v := newTestVault(t, repo, &stubRefresher{})
	require.NoError(t, v.Store(context.Background(), testCredential(vaultNow.Add(time.Hour))))

	other, err := crypto.NewSealer("rotated-secret")
	require.NoError(t, err)
	v.sealer = other

	got, err := v.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTokenVault_ValidRefreshesExpired(t *testing.T) {
	repo := newMemCredentials()
	refresher := &stubRefresher{tok: &oauth2.Token{AccessToken: "access-2", Expiry: vaultNow.Add(time.Hour)}}
	v := newTestVault(t, repo, refresher)
	require.NoError(t, v.Store(context.Background(), testCredential(vaultNow)))

	got, err := v.Valid(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Equal(t, "access-2", got.AccessToken)
	require.Equal(t, "refresh-1", got.RefreshToken)
	require.Equal(t, 1, refresher.calls)

	stored, err := v.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Equal(t, "access-2", stored.AccessToken)
	require.Equal(t, "refresh-1", stored.RefreshToken)
}

func TestTokenVault_ValidSkipsRefreshWhenFresh(t *testing.T) {
	refresher := &stubRefresher{}
	v := newTestVault(t, newMemCredentials(), refresher)
	require.NoError(t, v.Store(context.Background(), testCredential(vaultNow.Add(time.Minute))))

	got, err := v.Valid(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Equal(t, "access-1", got.AccessToken)
	require.Zero(t, refresher.calls)
}

func TestTokenVault_RefreshFailureRequiresAuth(t *testing.T) {
	repo := newMemCredentials()
	v := newTestVault(t, repo, &stubRefresher{err: errors.New("invalid_grant")})
	require.NoError(t, v.Store(context.Background(), testCredential(vaultNow.Add(-time.Minute))))
	puts := repo.puts

	_, err := v.Valid(context.Background(), "owner-1")
	require.ErrorIs(t, err, errs.ErrAuthRequired)
	require.Equal(t, puts, repo.puts)
}

func TestTokenVault_NoCredentialRequiresAuth(t *testing.T) {
	v := newTestVault(t, newMemCredentials(), &stubRefresher{})

	_, err := v.Valid(context.Background(), "nobody")
	require.ErrorIs(t, err, errs.ErrAuthRequired)

	_, err = v.AuthenticatedClient(context.Background(), "nobody")
	require.ErrorIs(t, err, errs.ErrAuthRequired)
}

func TestTokenVault_RevokeIsIdempotent(t *testing.T) {
	v := newTestVault(t, newMemCredentials(), &stubRefresher{})
	require.NoError(t, v.Store(context.Background(), testCredential(vaultNow.Add(time.Hour))))

	require.NoError(t, v.Revoke(context.Background(), "owner-1"))
	require.NoError(t, v.Revoke(context.Background(), "owner-1"))

	got, err := v.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTokenVault_AuthenticatedClientSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := newTestVault(t, newMemCredentials(), &stubRefresher{})
	// The oauth2 transport compares expiry against the wall clock.
	require.NoError(t, v.Store(context.Background(), testCredential(time.Now().Add(time.Hour))))
	v.now = time.Now

	client, err := v.AuthenticatedClient(context.Background(), "owner-1")
	require.NoError(t, err)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTokenVault_StoreRejectsMissingOwner(t *testing.T) {
	v := newTestVault(t, newMemCredentials(), &stubRefresher{})
	require.ErrorIs(t, v.Store(context.Background(), &authdomain.Credential{}), errs.ErrInvalidArgument)
}

func TestTokenVault_ValidSkipsRefreshWithoutExpiry(t *testing.T) {
	refresher := &stubRefresher{}
	v := newTestVault(t, newMemCredentials(), refresher)
	require.NoError(t, v.Store(context.Background(), testCredential(time.Time{})))

	got, err := v.Valid(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Equal(t, "access-1", got.AccessToken)
	require.Zero(t, refresher.calls)
}
