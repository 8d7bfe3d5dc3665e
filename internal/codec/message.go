package codec

import "cardlink/internal/domain"

// nonceSize matches cryptoprim.NonceSize (ChaCha20-Poly1305, 96-bit); kept
// as a local constant so codec has no dependency on the crypto package,
// only on the wire shape it defines.
const nonceSize = 12

// SealedPayload is the body shared by MSG and ACK: a per-message CSPRNG
// nonce followed by the AEAD-sealed record (spec §4.1, §4.5).
type SealedPayload struct {
	Nonce      [12]byte
	Ciphertext []byte
}

// EncodeSealedPayload serializes a SealedPayload.
func EncodeSealedPayload(p SealedPayload) []byte {
	out := make([]byte, nonceSize, nonceSize+len(p.Ciphertext))
	copy(out, p.Nonce[:])
	return append(out, p.Ciphertext...)
}

// DecodeSealedPayload parses a SealedPayload. The caller has already
// checked the minimum nonce-length bound.
func DecodeSealedPayload(payload []byte) (SealedPayload, error) {
	if len(payload) < nonceSize {
		return SealedPayload{}, domain.ErrMalformedPacket
	}
	var nonce [12]byte
	copy(nonce[:], payload[:nonceSize])
	ct := payload[nonceSize:]
	return SealedPayload{Nonce: nonce, Ciphertext: ct}, nil
}
