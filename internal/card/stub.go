package card

import (
	"context"
	"crypto/ed25519"
)

// Stub is an in-memory domain.Card used by tests and the demo CLI in
// place of a real PKCS#11-backed DNIe card.
type Stub struct {
	CertDER []byte
	signer  ed25519.PrivateKey
}

// NewStub builds a Stub that signs with the given Ed25519 key; certDER
// is returned verbatim from Certificate and is expected to already embed
// the matching public key in whatever form a real caller needs.
func NewStub(certDER []byte, signer ed25519.PrivateKey) *Stub {
	return &Stub{CertDER: certDER, signer: signer}
}

func (s *Stub) Certificate(ctx context.Context) ([]byte, error) {
	return s.CertDER, nil
}

func (s *Stub) Sign(ctx context.Context, data []byte) ([]byte, error) {
	return ed25519.Sign(s.signer, data), nil
}
