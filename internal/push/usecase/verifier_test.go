package usecase

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testIssuer   = "https://accounts.google.com"
	testAudience = "https://api.example.com/api/push/gmail"
)

type signer struct {
	priv jwk.Key
	set  jwk.Set
}

func newSigner(t *testing.T, kid string) *signer {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, kid))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	return &signer{priv: priv, set: set}
}

func (s *signer) token(t *testing.T, issuer, audience string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{audience}).
		Subject("push-sa@project.iam.gserviceaccount.com").
		IssuedAt(exp.Add(-time.Hour)).
		Expiration(exp).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, s.priv))
	require.NoError(t, err)
	return string(signed)
}

func newTestVerifier(set jwk.Set) *Verifier {
	return NewVerifier(StaticKeySet{Set: set}, testIssuer, testAudience, zap.NewNop())
}

func TestVerify_Valid(t *testing.T) {
	s := newSigner(t, "k1")
	v := newTestVerifier(s.set)

	tok := s.token(t, testIssuer, testAudience, time.Now().Add(time.Hour))
	require.True(t, v.Verify(context.Background(), "Bearer "+tok))
}

func TestVerify_Rejections(t *testing.T) {
	s := newSigner(t, "k1")
	other := newSigner(t, "k1")
	v := newTestVerifier(s.set)
	future := time.Now().Add(time.Hour)

	tests := map[string]string{
		"missing header":  "",
		"not bearer":      "Basic abc",
		"empty bearer":    "Bearer ",
		"garbage":         "Bearer not.a.jwt",
		"wrong issuer":    "Bearer " + s.token(t, "https://evil.example.com", testAudience, future),
		"wrong audience":  "Bearer " + s.token(t, testIssuer, "https://other.example.com", future),
		"expired":         "Bearer " + s.token(t, testIssuer, testAudience, time.Now().Add(-time.Hour)),
		"foreign key":     "Bearer " + other.token(t, testIssuer, testAudience, future),
		"unknown kid":     "Bearer " + newSigner(t, "k2").token(t, testIssuer, testAudience, future),
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			require.False(t, v.Verify(context.Background(), header))
		})
	}
}

func TestVerify_RejectsNonRS256(t *testing.T) {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "ec"))
	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	tok, err := jwt.NewBuilder().Issuer(testIssuer).Audience([]string{testAudience}).
		Expiration(time.Now().Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256, priv))
	require.NoError(t, err)

	require.False(t, newTestVerifier(set).Verify(context.Background(), "Bearer "+string(signed)))
}

type failingKeys struct{}

func (failingKeys) KeySet(context.Context) (jwk.Set, error) {
	return nil, errors.New("jwks unreachable")
}

func TestVerify_KeySetUnavailable(t *testing.T) {
	s := newSigner(t, "k1")
	v := NewVerifier(failingKeys{}, testIssuer, testAudience, zap.NewNop())

	tok := s.token(t, testIssuer, testAudience, time.Now().Add(time.Hour))
	require.False(t, v.Verify(context.Background(), "Bearer "+tok))
}
