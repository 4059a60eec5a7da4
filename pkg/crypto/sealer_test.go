package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("top-secret")
	require.NoError(t, err)

	env, err := s.Seal([]byte(`{"access_token":"abc"}`))
	require.NoError(t, err)
	require.Len(t, env, 12+16+len(`{"access_token":"abc"}`))

	got, err := s.Open(env)
	require.NoError(t, err)
	require.Equal(t, `{"access_token":"abc"}`, string(got))
}

func TestSealer_NonceIsFresh(t *testing.T) {
	s, err := NewSealer("top-secret")
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestSealer_TamperedTagFails(t *testing.T) {
	s, err := NewSealer("top-secret")
	require.NoError(t, err)

	env, err := s.Seal([]byte("payload"))
	require.NoError(t, err)
	env[12] ^= 0xff

	_, err = s.Open(env)
	require.Error(t, err)
}

func TestSealer_WrongSecretFails(t *testing.T) {
	a, err := NewSealer("one")
	require.NoError(t, err)
	b, err := NewSealer("two")
	require.NoError(t, err)

	env, err := a.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Open(env)
	require.Error(t, err)
}

func TestSealer_ShortEnvelope(t *testing.T) {
	s, err := NewSealer("top-secret")
	require.NoError(t, err)

	_, err = s.Open([]byte("short"))
	require.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestNewSealer_EmptySecret(t *testing.T) {
	_, err := NewSealer("")
	require.Error(t, err)
}
