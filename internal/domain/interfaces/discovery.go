package interfaces

import "context"

// PeerHint is one tuple from the external discovery layer (spec §6):
// (display_hint, ip, port).
type PeerHint struct {
	DisplayHint string
	IP          string
	Port        int
}

// DiscoverySource is the inbound half of the discovery collaborator: a
// stream of peer hints the core consumes to know who might be reachable.
// The core never trusts this stream for security — only the handshake and
// TOFU pinning do that (spec §6).
type DiscoverySource interface {
	Hints(ctx context.Context) (<-chan PeerHint, error)
}

// DiscoveryPublisher is the outbound half: the core's own advertisement,
// (own_port, own_hint), emitted via whatever external discovery mechanism
// the host wires in.
type DiscoveryPublisher interface {
	Publish(ctx context.Context, port int, hint string) error
	Withdraw(ctx context.Context) error
}
