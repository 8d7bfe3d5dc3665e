package handshake

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cardlink/internal/cryptoprim"
	"cardlink/internal/domain"
	"cardlink/internal/identitybinding"
)

type fakeContactStore struct {
	contacts   map[domain.Fingerprint]domain.Contact
	byEndpoint map[string]domain.Fingerprint
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{
		contacts:   map[domain.Fingerprint]domain.Contact{},
		byEndpoint: map[string]domain.Fingerprint{},
	}
}

func (f *fakeContactStore) Upsert(fp domain.Fingerprint, displayName string, firstSeen bool) error {
	f.contacts[fp] = domain.Contact{Fingerprint: fp, DisplayName: displayName}
	return nil
}
func (f *fakeContactStore) Get(fp domain.Fingerprint) (domain.Contact, bool, error) {
	c, ok := f.contacts[fp]
	return c, ok, nil
}
func (f *fakeContactStore) GetByEndpoint(endpoint string) (domain.Contact, bool, error) {
	fp, ok := f.byEndpoint[endpoint]
	if !ok {
		return domain.Contact{}, false, nil
	}
	c, ok := f.contacts[fp]
	return c, ok, nil
}
func (f *fakeContactStore) List() ([]domain.Contact, error) { return nil, nil }
func (f *fakeContactStore) Touch(fp domain.Fingerprint, endpoint string) error {
	f.byEndpoint[endpoint] = fp
	return nil
}

func issueLeaf(t *testing.T, root *x509.Certificate, rootKey ed25519.PrivateKey, cn string) []byte {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, root, pub, rootKey)
	require.NoError(t, err)
	return der
}

func selfSignedRoot(t *testing.T) (*x509.Certificate, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
	require.NoError(t, err)
	root, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return root, priv
}

func TestHandshakeBothSidesDeriveSameKey(t *testing.T) {
	root, rootKey := selfSignedRoot(t)

	aPriv, aPub, err := cryptoprim.GenerateStaticKeyPair()
	require.NoError(t, err)
	bPriv, bPub, err := cryptoprim.GenerateStaticKeyPair()
	require.NoError(t, err)

	aCert := issueLeaf(t, root, rootKey, "ALICE")
	bCert := issueLeaf(t, root, rootKey, "BOB")

	verifierA := identitybinding.NewVerifier([]*x509.Certificate{root}, newFakeContactStore())
	verifierB := identitybinding.NewVerifier([]*x509.Certificate{root}, newFakeContactStore())

	engineA := NewEngine(Identity{StaticKeys: domain.StaticKeyPair{Private: aPriv, Public: aPub}, CertDER: aCert}, verifierA, nil)
	engineB := NewEngine(Identity{StaticKeys: domain.StaticKeyPair{Private: bPriv, Public: bPub}, CertDER: bCert}, verifierB, nil)

	aEphPriv, aEphPub, err := cryptoprim.GenerateStaticKeyPair()
	require.NoError(t, err)
	aEph := domain.EphemeralKeyPair{Private: aEphPriv, Public: aEphPub}

	initPayload := engineA.BuildInit(aEph)

	bEphPriv, bEphPub, err := cryptoprim.GenerateStaticKeyPair()
	require.NoError(t, err)
	bEph := domain.EphemeralKeyPair{Private: bEphPriv, Public: bEphPub}

	respPayload, resultB, err := engineB.HandleInit(initPayload, bEph, nil)
	require.NoError(t, err)
	require.Equal(t, domain.UIEventNewPeer, resultB.Event)

	resultA, err := engineA.HandleResp(respPayload, aEph, nil)
	require.NoError(t, err)

	require.Equal(t, resultA.SessionKey, resultB.SessionKey)
	require.NotEqual(t, domain.SessionKey{}, resultA.SessionKey)
}

// TestHandshakeInitSize checks the byte-size identity from spec scenario
// S1: a HANDSHAKE_INIT is 5 (header) + 32 (ephemeral pub) + sealed cert
// blob bytes, where the sealed cert blob is the AEAD overhead (16 bytes
// for ChaCha20-Poly1305) plus the plaintext cert blob's own 2+32+2+len(cert).
func TestHandshakeInitSize(t *testing.T) {
	root, rootKey := selfSignedRoot(t)
	priv, pub, err := cryptoprim.GenerateStaticKeyPair()
	require.NoError(t, err)
	certDER := issueLeaf(t, root, rootKey, "ALICE")

	engine := NewEngine(Identity{StaticKeys: domain.StaticKeyPair{Private: priv, Public: pub}, CertDER: certDER}, nil, nil)

	ephPriv, ephPub, err := cryptoprim.GenerateStaticKeyPair()
	require.NoError(t, err)
	eph := domain.EphemeralKeyPair{Private: ephPriv, Public: ephPub}

	payload := engine.BuildInit(eph)

	wantCertPlainSize := 2 + 32 + 2 + len(certDER)
	wantTotal := 5 + 32 + 16 + wantCertPlainSize
	require.Equal(t, wantTotal, 5+len(payload))
}
