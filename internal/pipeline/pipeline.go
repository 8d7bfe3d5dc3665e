// Package pipeline implements the application message layer above the
// record layer: UUID-tagged messages, ACK accounting, and the offline
// queue that drains on resume bracketed by PENDING_SEND/PENDING_DONE
// markers (spec §4.6).
package pipeline

import (
	"strings"

	"github.com/google/uuid"

	"cardlink/internal/domain"
)

// delimiter separates the UUID prefix from the UTF-8 text body on the
// wire: uuid_ascii[36] || "|" || utf8_text (spec §4.6).
const delimiter = "|"

const uuidASCIILen = 36

// Frame is one application message ready to be sealed by the record
// layer, or just unsealed from it.
type Frame struct {
	UUID string
	Text string
}

// NewOutbound builds a Frame for a fresh outbound message, minting a
// UUID v4 per spec §4.6.
func NewOutbound(text string) Frame {
	return Frame{UUID: uuid.NewString(), Text: text}
}

// Encode renders a Frame to its wire form.
func (f Frame) Encode() []byte {
	return []byte(f.UUID + delimiter + f.Text)
}

// Decode parses a wire-form message body into a Frame, rejecting bodies
// that are too short to carry a UUID or that are missing the delimiter
// (spec §4.1, §4.6).
func Decode(body []byte) (Frame, error) {
	s := string(body)
	if len(s) < uuidASCIILen+1 {
		return Frame{}, domain.ErrMalformedPacket
	}
	idx := strings.Index(s, delimiter)
	if idx != uuidASCIILen {
		return Frame{}, domain.ErrMalformedPacket
	}
	id := s[:uuidASCIILen]
	if _, err := uuid.Parse(id); err != nil {
		return Frame{}, domain.ErrMalformedPacket
	}
	return Frame{UUID: id, Text: s[idx+1:]}, nil
}
