package types

import (
	"net"
	"time"
)

// Contact is created on first successful handshake with a new fingerprint
// (spec §3). DisplayName is user-editable; Fingerprint is the pin and never
// changes.
type Contact struct {
	Fingerprint      Fingerprint `json:"fingerprint"`
	DisplayName      string      `json:"display_name"`
	PinnedAt         time.Time   `json:"pinned_at"`
	LastSeenEndpoint *net.UDPAddr `json:"last_seen_endpoint,omitempty"`
}
