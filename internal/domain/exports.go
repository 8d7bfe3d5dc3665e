package domain

import (
	interfaces "cardlink/internal/domain/interfaces"
	types "cardlink/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact
// imports elsewhere in the core.
type (
	Fingerprint      = types.Fingerprint
	CID              = types.CID
	Role             = types.Role
	SessionState     = types.SessionState
	Direction        = types.Direction
	X25519Public     = types.X25519Public
	X25519Private    = types.X25519Private
	SessionKey       = types.SessionKey
	Identity         = types.Identity
	StaticKeyPair    = types.StaticKeyPair
	EphemeralKeyPair = types.EphemeralKeyPair
	Contact          = types.Contact
	StoredMessage    = types.StoredMessage
	CachedSession    = types.CachedSession
	UIEvent          = types.UIEvent
	UIEventKind      = types.UIEventKind
)

const (
	RoleInitiator = types.RoleInitiator
	RoleResponder = types.RoleResponder

	SessionHandshaking = types.SessionHandshaking
	SessionEstablished = types.SessionEstablished
	SessionSuspended   = types.SessionSuspended
	SessionClosed      = types.SessionClosed

	DirectionOutbound = types.DirectionOutbound
	DirectionInbound  = types.DirectionInbound

	UIEventNewPeer          = types.UIEventNewPeer
	UIEventPeerConfirmed    = types.UIEventPeerConfirmed
	UIEventPinMismatch      = types.UIEventPinMismatch
	UIEventSessionClosed    = types.UIEventSessionClosed
	UIEventMessageDelivered = types.UIEventMessageDelivered
	UIEventMessageFailed    = types.UIEventMessageFailed
)

var (
	ErrMalformedPacket  = types.ErrMalformedPacket
	ErrAuthFailure      = types.ErrAuthFailure
	ErrUntrustedIssuer  = types.ErrUntrustedIssuer
	ErrPinMismatch      = types.ErrPinMismatch
	ErrCryptoFailure    = types.ErrCryptoFailure
	ErrCardUnavailable  = types.ErrCardUnavailable
	ErrTransportError   = types.ErrTransportError
	ErrDuplicateMessage = types.ErrDuplicateMessage
	ErrUnknownSession   = types.ErrUnknownSession
)

// Interface aliases expose domain interfaces from the interfaces
// subpackage.
type (
	Card                = interfaces.Card
	ContactStore        = interfaces.ContactStore
	MessageStore        = interfaces.MessageStore
	SessionCache        = interfaces.SessionCache
	DiscoverySource     = interfaces.DiscoverySource
	DiscoveryPublisher  = interfaces.DiscoveryPublisher
	PeerHint            = interfaces.PeerHint
	PacketSender        = interfaces.PacketSender
)
