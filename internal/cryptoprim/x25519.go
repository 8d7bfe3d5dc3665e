// Package cryptoprim wraps the three opaque cryptographic operations the
// core depends on: dh, kdf, and the AEAD seal/open pair (spec §4.2). Every
// other package reaches cryptographic primitives only through here.
package cryptoprim

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"cardlink/internal/domain"
)

// GenerateStaticKeyPair returns a fresh Curve25519 key pair, clamped per
// RFC 7748. Used both for the long-lived static keypair and for
// per-handshake ephemeral keypairs.
func GenerateStaticKeyPair() (domain.X25519Private, domain.X25519Public, error) {
	var priv domain.X25519Private
	if _, err := rand.Read(priv[:]); err != nil {
		return domain.X25519Private{}, domain.X25519Public{}, err
	}
	clamp(&priv)

	pub, err := publicFromPrivate(priv)
	if err != nil {
		return domain.X25519Private{}, domain.X25519Public{}, err
	}
	return priv, pub, nil
}

func publicFromPrivate(priv domain.X25519Private) (domain.X25519Public, error) {
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return domain.X25519Public{}, err
	}
	var pub domain.X25519Public
	copy(pub[:], pb)
	return pub, nil
}

// DH computes the raw Curve25519 Diffie-Hellman shared secret (spec §4.2:
// dh(priv, pub) -> secret[32]). An all-zero output is a CryptoFailure.
func DH(priv domain.X25519Private, pub domain.X25519Public) ([32]byte, error) {
	var out [32]byte
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, err
	}
	copy(out[:], secret)
	if isAllZero(out[:]) {
		return out, domain.ErrCryptoFailure
	}
	return out, nil
}

func isAllZero(b []byte) bool {
	var v byte
	for _, c := range b {
		v |= c
	}
	return v == 0
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
