package codec

import "cardlink/internal/domain"

// HandshakePayload is the body shared by HANDSHAKE_INIT and
// HANDSHAKE_RESP (spec §4.1, §4.4):
//
//	ephemeral_pub[32] || sealed_cert_blob
//
// SealedCert is opaque at this layer: it is the AEAD ciphertext+tag of a
// CertBlob, sealed by the handshake engine under a key and nonce derived
// from EphemeralPub. Codec never decrypts it.
type HandshakePayload struct {
	EphemeralPub [32]byte
	SealedCert   []byte
}

// EncodeHandshakePayload serializes a HandshakePayload.
func EncodeHandshakePayload(p HandshakePayload) []byte {
	out := make([]byte, ephemeralPubSize, ephemeralPubSize+len(p.SealedCert))
	copy(out, p.EphemeralPub[:])
	return append(out, p.SealedCert...)
}

// DecodeHandshakePayload splits a HandshakePayload out of a packet's
// payload bytes. The caller (Decode) has already checked the minimum
// length for the ephemeral key.
func DecodeHandshakePayload(payload []byte) (HandshakePayload, error) {
	if len(payload) < ephemeralPubSize {
		return HandshakePayload{}, domain.ErrMalformedPacket
	}
	var eph [32]byte
	copy(eph[:], payload[:ephemeralPubSize])
	return HandshakePayload{EphemeralPub: eph, SealedCert: payload[ephemeralPubSize:]}, nil
}
