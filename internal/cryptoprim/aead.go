package cryptoprim

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"cardlink/internal/domain"
)

// NonceSize is the AEAD nonce length (spec §4.2: 96-bit nonces).
const NonceSize = chacha20poly1305.NonceSize

// KeySize is the AEAD key length.
const KeySize = chacha20poly1305.KeySize

// RandomNonce draws a fresh CSPRNG nonce, as required for the record
// layer's single-directional-key nonce discipline (spec §4.5, §9).
func RandomNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// AEADSeal encrypts plaintext under key/nonce/aad (spec §4.2:
// aead_seal(key, nonce, plaintext, aad) -> ciphertext+tag). The aad
// parameter is preserved through the call even though the baseline wire
// format always passes an empty aad, so future header binding needs no
// signature change.
func AEADSeal(key []byte, nonce []byte, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, domain.ErrCryptoFailure
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// AEADOpen decrypts ciphertext+tag under key/nonce/aad, returning
// ErrAuthFailure on any authentication failure (spec §4.2).
func AEADOpen(key []byte, nonce []byte, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, domain.ErrAuthFailure
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	return pt, nil
}
