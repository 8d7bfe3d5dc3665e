// Package identitybinding ties a peer's wire-carried certificate to a
// trusted root pool and to the trust-on-first-use pin recorded in the
// local ContactStore (spec §4.3). The handshake engine never evaluates
// trust itself; it delegates to this package on every received
// certificate.
package identitybinding

import (
	"crypto/x509"
	"strings"
	"time"

	"cardlink/internal/cryptoprim"
	"cardlink/internal/domain"
)

// Verifier checks incoming certificates against a fixed pool of root CAs
// and pins fingerprints on first sight.
type Verifier struct {
	roots    *x509.CertPool
	contacts domain.ContactStore
}

// NewVerifier builds a Verifier trusting exactly the given root
// certificates (spec §4.3: "a small set of national root CAs").
func NewVerifier(roots []*x509.Certificate, contacts domain.ContactStore) *Verifier {
	pool := x509.NewCertPool()
	for _, r := range roots {
		pool.AddCert(r)
	}
	return &Verifier{roots: pool, contacts: contacts}
}

// Outcome is the result of binding one inbound certificate to a peer
// identity, carrying whatever UI event the binding produced.
type Outcome struct {
	Identity domain.Identity
	Event    domain.UIEventKind
}

// Bind verifies certDER against the root pool, derives its fingerprint,
// and applies the TOFU rule (spec §4.3): if endpoint previously served a
// different fingerprint, that's ErrPinMismatch regardless of whether the
// new fingerprint is itself already known — this is S5's "A initiates
// again from the same endpoint but presents a certificate with a
// different fingerprint" attack, and it has to be caught before falling
// through to the ordinary new/repeat-sighting logic, which is keyed on
// the fingerprint itself and so can never observe this case (a brand-new
// fingerprint always looks unseen to a fingerprint-keyed lookup). Once
// that check clears: an unseen fingerprint pins and reports new_peer; an
// already-pinned one reports peer_confirmed. endpoint may be empty when
// the caller has no transport address to bind against (e.g. handshake
// engine unit tests driven without a real socket), in which case the
// endpoint check is skipped.
func (v *Verifier) Bind(certDER []byte, endpoint string) (Outcome, error) {
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return Outcome{}, domain.ErrUntrustedIssuer
	}

	if _, err := cert.Verify(x509.VerifyOptions{Roots: v.roots, CurrentTime: cert.NotBefore.Add(time.Second)}); err != nil {
		return Outcome{}, domain.ErrUntrustedIssuer
	}

	fp := cryptoprim.FingerprintCertificate(certDER)
	displayName := displayNameFromSubject(cert)

	if endpoint != "" {
		seenHere, found, err := v.contacts.GetByEndpoint(endpoint)
		if err != nil {
			return Outcome{}, err
		}
		if found && seenHere.Fingerprint != fp {
			// Identity is populated even on this error so callers can
			// still attach the presented fingerprint to a pin_mismatch
			// event.
			return Outcome{
				Identity: domain.Identity{CertificateDER: certDER, Fingerprint: fp, DisplayName: displayName},
			}, domain.ErrPinMismatch
		}
	}

	existing, found, err := v.contacts.Get(fp)
	if err != nil {
		return Outcome{}, err
	}
	if !found {
		if err := v.contacts.Upsert(fp, displayName, true); err != nil {
			return Outcome{}, err
		}
		if endpoint != "" {
			if err := v.contacts.Touch(fp, endpoint); err != nil {
				return Outcome{}, err
			}
		}
		return Outcome{
			Identity: domain.Identity{CertificateDER: certDER, Fingerprint: fp, DisplayName: displayName},
			Event:    domain.UIEventNewPeer,
		}, nil
	}

	if endpoint != "" {
		if err := v.contacts.Touch(fp, endpoint); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{
		Identity: domain.Identity{CertificateDER: certDER, Fingerprint: fp, DisplayName: existing.DisplayName},
		Event:    domain.UIEventPeerConfirmed,
	}, nil
}

// displayNameFromSubject strips RDN attributes down to the subject's
// common name, matching the original DNIe tooling's habit of showing
// "SURNAME, GIVEN NAME" without the rest of the distinguished name. A
// trailing parenthesised certificate-role suffix such as
// " (AUTENTICACIÓN)" or " (FIRMA)" is dropped from the common name.
func displayNameFromSubject(cert *x509.Certificate) string {
	if cn := cert.Subject.CommonName; cn != "" {
		if strings.HasSuffix(cn, ")") {
			if i := strings.LastIndex(cn, " ("); i > 0 {
				cn = cn[:i]
			}
		}
		return cn
	}
	return cert.Subject.String()
}
