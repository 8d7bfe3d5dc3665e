package persistence

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const envelopeFormatVersion = 1

var errWrongPassphrase = errors.New("wrong passphrase or corrupted store")

// envelope is the on-disk JSON structure holding ciphertext and the
// scrypt parameters used to derive its key and nonce. Purpose records
// which store wrote it (spec §6 only has one encrypted-at-rest store
// today, the local identity, but the format isn't specific to it) and is
// mixed into both the KDF input and the AEAD's associated data, so a
// ciphertext sealed for one purpose can never be swapped in and opened
// as another's even if both happen to share a passphrase.
type envelope struct {
	V       int    `json:"v"`
	Purpose string `json:"purpose"`
	Salt    []byte `json:"salt"`
	N       int    `json:"scrypt_n"`
	R       int    `json:"scrypt_r"`
	P       int    `json:"scrypt_p"`
	Cipher  []byte `json:"cipher"`
}

// sealEnvelope derives a key and nonce from passphrase and purpose via a
// single scrypt call and seals raw into a JSON envelope. The nonce is
// derived alongside the key, rather than fixed at zero, instead of
// relying solely on the random salt for uniqueness.
func sealEnvelope(passphrase, purpose string, raw []byte) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	n, r, p := scryptParamsDefault()
	key, nonce, err := envelopeSecrets(passphrase, purpose, salt[:], n, r, p)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, raw, []byte(purpose))

	return json.Marshal(envelope{V: envelopeFormatVersion, Purpose: purpose, Salt: salt[:], N: n, R: r, P: p, Cipher: ct})
}

// openEnvelope reverses sealEnvelope. purpose must match what the
// envelope was sealed with, both to re-derive the right key material and
// as the AEAD's associated data.
func openEnvelope(passphrase, purpose string, b []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if env.V > envelopeFormatVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	if env.Purpose != purpose {
		return nil, errWrongPassphrase
	}
	key, nonce, err := envelopeSecrets(passphrase, purpose, env.Salt, env.N, env.R, env.P)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, env.Cipher, []byte(purpose))
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}

// envelopeSecrets stretches passphrase and purpose through scrypt once
// and splits the output into an AEAD key and nonce.
func envelopeSecrets(passphrase, purpose string, salt []byte, n, r, p int) (key, nonce []byte, err error) {
	material, err := scrypt.Key([]byte(purpose+":"+passphrase), salt, n, r, p, chacha20poly1305.KeySize+chacha20poly1305.NonceSize)
	if err != nil {
		return nil, nil, err
	}
	return material[:chacha20poly1305.KeySize], material[chacha20poly1305.KeySize:], nil
}

func scryptParamsDefault() (n, r, p int) { return 1 << 15, 8, 1 }
