package codec

import (
	"encoding/binary"

	"cardlink/internal/domain"
)

// ephemeralPubSize is the fixed Curve25519 public key length carried at
// the front of every handshake payload.
const ephemeralPubSize = 32

// lenFieldSize is the width of each length-prefix inside a cert blob
// (spec §4.1: len(pub):u16, len(cert):u16).
const lenFieldSize = 2

// CertBlob is the decoded form of the handshake's identity payload
// before it is AEAD-sealed under the sending side's ephemeral public key
// (spec §4.4 step 5):
//
//	len(pub):u16 || x25519_pub[len] || len(cert):u16 || cert_der[len]
type CertBlob struct {
	StaticPub domain.X25519Public
	CertDER   []byte
}

// EncodeCertBlob serializes a CertBlob.
func EncodeCertBlob(b CertBlob) []byte {
	pub := b.StaticPub.Slice()
	out := make([]byte, 0, lenFieldSize+len(pub)+lenFieldSize+len(b.CertDER))

	var pubLen [2]byte
	binary.BigEndian.PutUint16(pubLen[:], uint16(len(pub)))
	out = append(out, pubLen[:]...)
	out = append(out, pub...)

	var certLen [2]byte
	binary.BigEndian.PutUint16(certLen[:], uint16(len(b.CertDER)))
	out = append(out, certLen[:]...)
	out = append(out, b.CertDER...)
	return out
}

// DecodeCertBlob parses a CertBlob, returning ErrMalformedPacket if either
// length field overshoots the remaining bytes.
func DecodeCertBlob(data []byte) (CertBlob, []byte, error) {
	if len(data) < lenFieldSize {
		return CertBlob{}, nil, domain.ErrMalformedPacket
	}
	pubLen := int(binary.BigEndian.Uint16(data[:lenFieldSize]))
	rest := data[lenFieldSize:]
	if pubLen != ephemeralPubSize || len(rest) < pubLen {
		return CertBlob{}, nil, domain.ErrMalformedPacket
	}
	var pub domain.X25519Public
	copy(pub[:], rest[:pubLen])
	rest = rest[pubLen:]

	if len(rest) < lenFieldSize {
		return CertBlob{}, nil, domain.ErrMalformedPacket
	}
	certLen := int(binary.BigEndian.Uint16(rest[:lenFieldSize]))
	rest = rest[lenFieldSize:]
	if len(rest) < certLen {
		return CertBlob{}, nil, domain.ErrMalformedPacket
	}
	cert := rest[:certLen]
	rest = rest[certLen:]

	return CertBlob{StaticPub: pub, CertDER: cert}, rest, nil
}
