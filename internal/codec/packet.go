// Package codec serializes and parses the eight wire packet types (spec
// §4.1). Every decode path is bounds-checked; nothing here panics on
// attacker-controlled input.
package codec

import (
	"encoding/binary"

	"cardlink/internal/domain"
)

// PacketType is the single leading byte of every datagram.
type PacketType uint8

const (
	TypeHandshakeInit  PacketType = 0x01
	TypeMsg            PacketType = 0x02
	TypeHandshakeResp  PacketType = 0x03
	TypeAck            PacketType = 0x04
	TypeReconnectReq   PacketType = 0x05
	TypeReconnectResp  PacketType = 0x06
	TypePendingSend    PacketType = 0x07
	TypePendingDone    PacketType = 0x08
)

// headerSize is type:u8 | cid:u32, the minimum any valid datagram must
// carry (spec §4.1: "shorter than 5 bytes" is malformed).
const headerSize = 5

// Packet is the parsed form of one datagram: a type, a CID, and a raw
// payload whose shape depends on the type (spec §4.1's table).
type Packet struct {
	Type    PacketType
	CID     domain.CID
	Payload []byte
}

// Encode serializes a Packet back to wire bytes.
func Encode(p Packet) []byte {
	out := make([]byte, headerSize+len(p.Payload))
	out[0] = byte(p.Type)
	binary.BigEndian.PutUint32(out[1:5], uint32(p.CID))
	copy(out[5:], p.Payload)
	return out
}

// Decode parses a raw datagram into a Packet. It returns ErrMalformedPacket
// when the type is unknown, the datagram is shorter than 5 bytes, or any
// length field inside the payload overshoots the datagram (spec §4.1).
func Decode(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, domain.ErrMalformedPacket
	}
	t := PacketType(data[0])
	if !validType(t) {
		return Packet{}, domain.ErrMalformedPacket
	}
	cid := domain.CID(binary.BigEndian.Uint32(data[1:5]))
	payload := data[headerSize:]

	if err := validatePayloadShape(t, payload); err != nil {
		return Packet{}, err
	}
	return Packet{Type: t, CID: cid, Payload: payload}, nil
}

func validType(t PacketType) bool {
	switch t {
	case TypeHandshakeInit, TypeMsg, TypeHandshakeResp, TypeAck,
		TypeReconnectReq, TypeReconnectResp, TypePendingSend, TypePendingDone:
		return true
	default:
		return false
	}
}

// validatePayloadShape performs the type-specific minimum-length check so
// that a later, type-specific parse function never runs off the end of the
// slice it was handed.
func validatePayloadShape(t PacketType, payload []byte) error {
	switch t {
	case TypeHandshakeInit, TypeHandshakeResp:
		if len(payload) < ephemeralPubSize {
			return domain.ErrMalformedPacket
		}
	case TypeMsg, TypeAck:
		if len(payload) < nonceSize {
			return domain.ErrMalformedPacket
		}
	case TypeReconnectReq, TypeReconnectResp, TypePendingSend, TypePendingDone:
		// empty payload expected; extra bytes are tolerated as forward
		// compatibility but never interpreted.
	}
	return nil
}
