package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cardlink/internal/domain"
)

func TestPacketRoundTrip(t *testing.T) {
	p := Packet{
		Type:    TypeMsg,
		CID:     domain.CID(42),
		Payload: EncodeSealedPayload(SealedPayload{Nonce: [12]byte{1, 2, 3}, Ciphertext: []byte("ciphertext")}),
	}
	wire := Encode(p)
	got, err := Decode(wire)
	require.NoError(t, err)
	require.Equal(t, p.Type, got.Type)
	require.Equal(t, p.CID, got.CID)
	require.Equal(t, p.Payload, got.Payload)
}

func TestHandshakePayloadRoundTrip(t *testing.T) {
	hp := HandshakePayload{
		EphemeralPub: [32]byte{9, 9, 9},
		SealedCert:   []byte("opaque-ciphertext-and-tag"),
	}
	wire := EncodeHandshakePayload(hp)

	pkt := Packet{Type: TypeHandshakeInit, CID: 7, Payload: wire}
	full := Encode(pkt)
	got, err := Decode(full)
	require.NoError(t, err)

	decoded, err := DecodeHandshakePayload(got.Payload)
	require.NoError(t, err)
	require.Equal(t, hp.EphemeralPub, decoded.EphemeralPub)
	require.Equal(t, hp.SealedCert, decoded.SealedCert)
}

func TestCertBlobRoundTrip(t *testing.T) {
	certDER := []byte("fake-der-bytes")
	blob := CertBlob{StaticPub: domain.X25519Public{1, 2, 3}, CertDER: certDER}
	wire := EncodeCertBlob(blob)

	decoded, rest, err := DecodeCertBlob(wire)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.Equal(t, blob.StaticPub, decoded.StaticPub)
	require.Equal(t, certDER, decoded.CertDER)
}

// TestHandshakeInitMinimumSize checks the lower-bound byte-size identity
// from scenario S1: a HANDSHAKE_INIT can never be shorter than the
// header plus the bare ephemeral key, regardless of the sealed cert
// blob's contents.
func TestHandshakeInitMinimumSize(t *testing.T) {
	hp := HandshakePayload{EphemeralPub: [32]byte{}}
	pkt := Packet{Type: TypeHandshakeInit, CID: 1, Payload: EncodeHandshakePayload(hp)}
	wire := Encode(pkt)
	require.Equal(t, headerSize+ephemeralPubSize, len(wire))
}

func TestDecodeRejectsShortDatagram(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x00, 0x00})
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	wire := Encode(Packet{Type: PacketType(0xFF), CID: 1})
	_, err := Decode(wire)
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}

func TestDecodeRejectsTruncatedHandshakePayload(t *testing.T) {
	wire := Encode(Packet{Type: TypeHandshakeInit, CID: 1, Payload: []byte{1, 2, 3}})
	_, err := Decode(wire)
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}

func TestDecodeCertBlobRejectsOverflowingLength(t *testing.T) {
	// claims a 32-byte pub but only supplies 4
	data := []byte{0x00, 0x20, 0x01, 0x02, 0x03, 0x04}
	_, _, err := DecodeCertBlob(data)
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}

func TestDecodeSealedPayloadRejectsShort(t *testing.T) {
	_, err := DecodeSealedPayload([]byte{1, 2, 3})
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}

func TestMarkerPacketsAllowEmptyPayload(t *testing.T) {
	for _, typ := range []PacketType{TypeReconnectReq, TypeReconnectResp, TypePendingSend, TypePendingDone} {
		wire := Encode(Packet{Type: typ, CID: 1})
		_, err := Decode(wire)
		require.NoError(t, err)
	}
}

func TestAckRejectsEmptyPayload(t *testing.T) {
	wire := Encode(Packet{Type: TypeAck, CID: 1})
	_, err := Decode(wire)
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}
