// Package handshake runs the two-message handshake (spec §4.4): a single
// Curve25519 DH between one side's ephemeral key and the other's static
// key, KDF'd into one session key used for both directions. Each side's
// own certificate is carried obfuscated under its own ephemeral public
// key, which doubles as the AEAD key and the nonce source for that seal.
package handshake

import (
	"net"

	"github.com/sirupsen/logrus"

	"cardlink/internal/codec"
	"cardlink/internal/cryptoprim"
	"cardlink/internal/domain"
	"cardlink/internal/identitybinding"
)

// Identity bundles the local static key and certificate the engine
// presents to peers during a handshake.
type Identity struct {
	StaticKeys domain.StaticKeyPair
	CertDER    []byte
}

// Result is what a completed handshake hands back to the caller: the
// derived session key and the verified peer identity.
type Result struct {
	SessionKey   domain.SessionKey
	PeerIdentity domain.Identity
	Event        domain.UIEventKind
}

// Engine runs both the initiator and responder sides of the handshake.
// It holds no session state of its own; callers own CID assignment and
// session bookkeeping (spec §9: the engine is a pure function of its
// inputs plus the identity verifier).
type Engine struct {
	identity Identity
	verifier *identitybinding.Verifier
	log      *logrus.Entry
}

// NewEngine builds an Engine presenting identity and binding peers
// through verifier.
func NewEngine(identity Identity, verifier *identitybinding.Verifier, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{identity: identity, verifier: verifier, log: log}
}

// BuildInit constructs the outbound HANDSHAKE_INIT payload for a fresh
// ephemeral keypair (spec §4.4 steps 1-6). The session key is not yet
// known at this point: the initiator only learns the responder's static
// public key from the HANDSHAKE_RESP, so derivation happens in HandleResp.
func (e *Engine) BuildInit(ephemeral domain.EphemeralKeyPair) []byte {
	sealed, err := e.sealOwnCert(ephemeral)
	if err != nil {
		// Sealing under our own freshly generated ephemeral public key
		// cannot fail for well-formed inputs; surface an empty payload
		// rather than panicking so a caller's send attempt degrades to a
		// dropped datagram instead of a crash.
		e.log.WithError(err).Error("failed to seal handshake cert blob")
		return codec.EncodeHandshakePayload(codec.HandshakePayload{EphemeralPub: ephemeral.Public})
	}
	return codec.EncodeHandshakePayload(codec.HandshakePayload{EphemeralPub: ephemeral.Public, SealedCert: sealed})
}

// HandleInit processes an inbound HANDSHAKE_INIT as the responder: it
// opens the initiator's sealed cert blob, verifies the peer's
// certificate, derives the session key from its own static private key
// and the initiator's ephemeral public key, and returns both the
// HANDSHAKE_RESP payload to send back and the handshake Result.
func (e *Engine) HandleInit(payload []byte, responderEphemeral domain.EphemeralKeyPair, from *net.UDPAddr) (respPayload []byte, result Result, err error) {
	hp, err := codec.DecodeHandshakePayload(payload)
	if err != nil {
		return nil, Result{}, err
	}

	blob, err := openPeerCert(hp)
	if err != nil {
		return nil, Result{}, err
	}

	outcome, err := e.verifier.Bind(blob.CertDER, endpointString(from))
	if err != nil {
		return nil, Result{PeerIdentity: outcome.Identity}, err
	}

	sessionKey, err := deriveResponderKey(e.identity.StaticKeys.Private, hp.EphemeralPub)
	if err != nil {
		return nil, Result{}, err
	}

	sealed, err := e.sealOwnCert(responderEphemeral)
	if err != nil {
		return nil, Result{}, domain.ErrCryptoFailure
	}
	resp := codec.EncodeHandshakePayload(codec.HandshakePayload{
		EphemeralPub: responderEphemeral.Public,
		SealedCert:   sealed,
	})

	e.log.WithFields(logrus.Fields{"peer": outcome.Identity.Fingerprint, "from": from}).Debug("handshake init accepted")

	return resp, Result{SessionKey: sessionKey, PeerIdentity: outcome.Identity, Event: outcome.Event}, nil
}

// HandleResp processes an inbound HANDSHAKE_RESP as the initiator: it
// opens the responder's sealed cert blob to learn its static public key,
// then derives the session key from its own ephemeral private key
// (generated for the original HANDSHAKE_INIT) and that static public key.
// from is the address the initiator originally dialed, threaded through
// to identity binding the same way HandleInit threads the inbound
// packet's source address.
func (e *Engine) HandleResp(payload []byte, initiatorEphemeral domain.EphemeralKeyPair, from *net.UDPAddr) (Result, error) {
	hp, err := codec.DecodeHandshakePayload(payload)
	if err != nil {
		return Result{}, err
	}

	blob, err := openPeerCert(hp)
	if err != nil {
		return Result{}, err
	}

	outcome, err := e.verifier.Bind(blob.CertDER, endpointString(from))
	if err != nil {
		return Result{PeerIdentity: outcome.Identity}, err
	}

	sessionKey, err := deriveInitiatorKey(initiatorEphemeral.Private, blob.StaticPub)
	if err != nil {
		return Result{}, err
	}

	return Result{SessionKey: sessionKey, PeerIdentity: outcome.Identity, Event: outcome.Event}, nil
}

// endpointString renders addr for identity binding's endpoint-keyed pin
// check, or "" if no address is available (e.g. a unit test driving the
// engine without a real socket) to signal that the check should be
// skipped rather than spuriously matched against an empty endpoint.
func endpointString(addr *net.UDPAddr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

// sealOwnCert forms this engine's own cert_plain (its static public key
// plus certificate) and AEAD-seals it under key=ephemeral.Public,
// nonce=kdf(ephemeral.Public, 32)[:12] (spec §4.4 step 5). Because the
// key and nonce are both derived from the ephemeral public key carried
// alongside the ciphertext in the clear, this gives the carried
// certificate integrity but not confidentiality against a network
// observer; see the spec's notes on this being an intentional property
// of the design, not an oversight.
func (e *Engine) sealOwnCert(ephemeral domain.EphemeralKeyPair) ([]byte, error) {
	plain := codec.EncodeCertBlob(codec.CertBlob{
		StaticPub: e.identity.StaticKeys.Public,
		CertDER:   e.identity.CertDER,
	})
	key, nonce, err := handshakeSealParams(ephemeral.Public)
	if err != nil {
		return nil, err
	}
	return cryptoprim.AEADSeal(key, nonce, plain, nil)
}

// openPeerCert opens the sealed cert blob carried in hp, keyed by the
// ephemeral public key hp itself carries (spec §4.4 step 2).
func openPeerCert(hp codec.HandshakePayload) (codec.CertBlob, error) {
	var ephPub domain.X25519Public
	copy(ephPub[:], hp.EphemeralPub[:])
	key, nonce, err := handshakeSealParams(ephPub)
	if err != nil {
		return codec.CertBlob{}, err
	}
	plain, err := cryptoprim.AEADOpen(key, nonce, hp.SealedCert, nil)
	if err != nil {
		return codec.CertBlob{}, err
	}
	blob, _, err := codec.DecodeCertBlob(plain)
	if err != nil {
		return codec.CertBlob{}, domain.ErrMalformedPacket
	}
	return blob, nil
}

// handshakeSealParams derives the AEAD key and nonce shared by both
// seal and open of one side's cert blob, from that side's own ephemeral
// public key (spec §4.4 step 5: key=e_pub[0..32], nonce=kdf(e_pub,32)[0..12]).
func handshakeSealParams(ephPub domain.X25519Public) (key, nonce []byte, err error) {
	derived, err := cryptoprim.KDF(ephPub.Slice(), 32)
	if err != nil {
		return nil, nil, err
	}
	return ephPub.Slice(), derived[:cryptoprim.NonceSize], nil
}

// deriveResponderKey computes ss = dh(static_priv, e_pub_init) and KDFs
// it into a session key (spec §4.4 step 4, responder side).
func deriveResponderKey(staticPriv domain.X25519Private, peerEphPub [32]byte) (domain.SessionKey, error) {
	var pub domain.X25519Public
	copy(pub[:], peerEphPub[:])
	shared, err := cryptoprim.DH(staticPriv, pub)
	if err != nil {
		return domain.SessionKey{}, err
	}
	return cryptoprim.KDF32(shared[:])
}

// deriveInitiatorKey computes ss = dh(e_priv, peer_static_pub) and KDFs
// it into a session key (spec §4.4 step 3, initiator side). By Curve25519
// DH symmetry this equals deriveResponderKey's output when the two
// sides' keys pair up correctly.
func deriveInitiatorKey(ephPriv domain.X25519Private, peerStaticPub domain.X25519Public) (domain.SessionKey, error) {
	shared, err := cryptoprim.DH(ephPriv, peerStaticPub)
	if err != nil {
		return domain.SessionKey{}, err
	}
	return cryptoprim.KDF32(shared[:])
}
