package cryptoprim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cardlink/internal/domain"
)

func TestDHSymmetry(t *testing.T) {
	aPriv, aPub, err := GenerateStaticKeyPair()
	require.NoError(t, err)
	bPriv, bPub, err := GenerateStaticKeyPair()
	require.NoError(t, err)

	ssA, err := DH(aPriv, bPub)
	require.NoError(t, err)
	ssB, err := DH(bPriv, aPub)
	require.NoError(t, err)

	require.Equal(t, ssA, ssB)
}

func TestAEADRoundTrip(t *testing.T) {
	key := make([]byte, KeySize)
	nonce, err := RandomNonce()
	require.NoError(t, err)

	plaintext := []byte("hola")
	ct, err := AEADSeal(key, nonce, plaintext, nil)
	require.NoError(t, err)

	pt, err := AEADOpen(key, nonce, ct, nil)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestAEADTamperFails(t *testing.T) {
	key := make([]byte, KeySize)
	nonce, err := RandomNonce()
	require.NoError(t, err)

	ct, err := AEADSeal(key, nonce, []byte("hola"), nil)
	require.NoError(t, err)

	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0xFF

	_, err = AEADOpen(key, nonce, tampered, nil)
	require.ErrorIs(t, err, domain.ErrAuthFailure)
}

func TestKDFDeterministic(t *testing.T) {
	input := []byte("some-shared-secret")
	a, err := KDF32(input)
	require.NoError(t, err)
	b, err := KDF32(input)
	require.NoError(t, err)
	require.Equal(t, a, b)

	other, err := KDF32([]byte("different-secret"))
	require.NoError(t, err)
	require.NotEqual(t, a, other)
}
