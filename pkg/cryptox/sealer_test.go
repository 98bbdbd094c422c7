package cryptox_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", cryptox.MinSecretLen))

func TestSealOpen(t *testing.T) {
	s, err := cryptox.NewSealer(testSecret, "session")
	require.NoError(t, err)

	plaintext := []byte(`{"userId":"42","role":"driver"}`)

	sealed, err := s.Seal(plaintext)
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "driver")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSealUsesFreshNonce(t *testing.T) {
	s, err := cryptox.NewSealer(testSecret, "session")
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestOpenRejectsTampering(t *testing.T) {
	s, err := cryptox.NewSealer(testSecret, "session")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("original"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = s.Open(sealed)
	require.ErrorIs(t, err, cryptox.ErrOpen)
}

func TestOpenRejectsShortInput(t *testing.T) {
	s, err := cryptox.NewSealer(testSecret, "session")
	require.NoError(t, err)

	_, err = s.Open([]byte("short"))
	require.ErrorIs(t, err, cryptox.ErrCiphertext)
}

func TestPurposeSeparatesKeys(t *testing.T) {
	session, err := cryptox.NewSealer(testSecret, "session")
	require.NoError(t, err)
	other, err := cryptox.NewSealer(testSecret, "csrf")
	require.NoError(t, err)

	sealed, err := session.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	require.ErrorIs(t, err, cryptox.ErrOpen)
}

func TestNewSealerRejectsShortSecret(t *testing.T) {
	_, err := cryptox.NewSealer([]byte("too-short"), "session")
	require.ErrorIs(t, err, cryptox.ErrSecretTooShort)
}
