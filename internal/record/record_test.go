package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cardlink/internal/domain"
)

func newTestLayer() *Layer {
	var key domain.SessionKey
	for i := range key {
		key[i] = byte(i)
	}
	return NewLayer(key)
}

func TestSealOpenRoundTrip(t *testing.T) {
	l := newTestLayer()
	nonce, ct, err := l.Seal([]byte("hola"))
	require.NoError(t, err)

	pt, exceeded, err := l.Open(nonce, ct)
	require.NoError(t, err)
	require.False(t, exceeded)
	require.Equal(t, []byte("hola"), pt)
}

func TestOpenRejectsReplay(t *testing.T) {
	l := newTestLayer()
	nonce, ct, err := l.Seal([]byte("hola"))
	require.NoError(t, err)

	_, _, err = l.Open(nonce, ct)
	require.NoError(t, err)

	_, _, err = l.Open(nonce, ct)
	require.ErrorIs(t, err, domain.ErrDuplicateMessage)
}

func TestOpenCountsAuthFailuresTowardThreshold(t *testing.T) {
	l := newTestLayer()
	nonce, ct, err := l.Seal([]byte("hola"))
	require.NoError(t, err)
	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0xFF

	var exceeded bool
	for i := 0; i < authFailureThreshold; i++ {
		_, exceeded, err = l.Open(nonce, tampered)
		require.ErrorIs(t, err, domain.ErrAuthFailure)
	}
	require.True(t, exceeded)
}

func TestOpenDoesNotExceedThresholdBelowLimit(t *testing.T) {
	l := newTestLayer()
	nonce, ct, err := l.Seal([]byte("hola"))
	require.NoError(t, err)
	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0xFF

	var exceeded bool
	for i := 0; i < authFailureThreshold-1; i++ {
		_, exceeded, err = l.Open(nonce, tampered)
		require.ErrorIs(t, err, domain.ErrAuthFailure)
	}
	require.False(t, exceeded)
}
