package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
)

// KeySetSource supplies the issuer's current signing keys.
type KeySetSource interface {
	KeySet(ctx context.Context) (jwk.Set, error)
}

// JWKSCache keeps a published key set in a refreshing jwk.Cache.
type JWKSCache struct {
	url   string
	cache *jwk.Cache
}

// NewJWKSCache registers url for background refresh. Keys are fetched on
// first use, so startup does not depend on the issuer being reachable.
func NewJWKSCache(ctx context.Context, url string, refresh time.Duration) (*JWKSCache, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(url, jwk.WithMinRefreshInterval(refresh)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}
	return &JWKSCache{url: url, cache: cache}, nil
}

func (c *JWKSCache) KeySet(ctx context.Context) (jwk.Set, error) {
	return c.cache.Get(ctx, c.url)
}

// StaticKeySet serves a fixed key set.
type StaticKeySet struct{ Set jwk.Set }

func (s StaticKeySet) KeySet(context.Context) (jwk.Set, error) { return s.Set, nil }

// Verifier checks the OIDC token Pub/Sub attaches to push requests.
type Verifier struct {
	keys     KeySetSource
	issuer   string
	audience string
	skew     time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewVerifier(keys KeySetSource, issuer, audience string, logger *zap.Logger) *Verifier {
	return &Verifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		skew:     30 * time.Second,
		logger:   logger.Named("push_verifier"),
		now:      time.Now,
	}
}

// Verify reports whether authHeader carries a valid RS256 bearer token from
// the configured issuer for the configured audience. It never returns an
// error; every failure is a plain false.
func (v *Verifier) Verify(ctx context.Context, authHeader string) bool {
	if err := v.verify(ctx, authHeader); err != nil {
		v.logger.Debug("push token rejected", zap.Error(err))
		return false
	}
	return true
}

func (v *Verifier) verify(ctx context.Context, authHeader string) error {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return fmt.Errorf("missing bearer token")
	}

	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return fmt.Errorf("parse jws: %w", err)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return fmt.Errorf("expected one signature, got %d", len(sigs))
	}
	if alg := sigs[0].ProtectedHeaders().Algorithm(); alg != jwa.RS256 {
		return fmt.Errorf("unexpected algorithm %s", alg)
	}

	set, err := v.keys.KeySet(ctx)
	if err != nil {
		return fmt.Errorf("resolve key set: %w", err)
	}

	_, err = jwt.Parse([]byte(token),
		jwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		return fmt.Errorf("validate jwt: %w", err)
	}
	return nil
}
