package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)
	require.True(t, s.Enabled())

	sealed, err := s.Seal("hunter2")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, sealedPrefix))
	require.NotContains(t, sealed, "hunter2")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "hunter2", plain)
}

func TestSealer_Passthrough(t *testing.T) {
	s, err := NewSealer("")
	require.NoError(t, err)
	require.False(t, s.Enabled())

	v, err := s.Seal("hunter2")
	require.NoError(t, err)
	require.Equal(t, "hunter2", v)

	v, err = s.Open("hunter2")
	require.NoError(t, err)
	require.Equal(t, "hunter2", v)
}

func TestSealer_LegacyPlaintextReadable(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	v, err := s.Open("plain-secret")
	require.NoError(t, err)
	require.Equal(t, "plain-secret", v)
}

func TestSealer_Errors(t *testing.T) {
	_, err := NewSealer("zz")
	require.Error(t, err)
	_, err = NewSealer("0011")
	require.Error(t, err)

	keyed, err := NewSealer(testKey)
	require.NoError(t, err)
	sealed, err := keyed.Seal("x")
	require.NoError(t, err)

	bare, _ := NewSealer("")
	_, err = bare.Open(sealed)
	require.Error(t, err)

	other, err := NewSealer(strings.Repeat("ff", 32))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	require.Error(t, err)
}
