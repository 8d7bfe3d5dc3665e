package interfaces

import (
	domaintypes "cardlink/internal/domain/types"
)

// ContactStore persists TOFU-pinned peer identities (spec §6).
type ContactStore interface {
	Upsert(fingerprint domaintypes.Fingerprint, displayName string, firstSeen bool) error
	Get(fingerprint domaintypes.Fingerprint) (domaintypes.Contact, bool, error)
	// GetByEndpoint returns the contact last seen at endpoint, if any. It
	// is the reverse of Get, keyed by transport address instead of
	// fingerprint, and is how IdentityBinding enforces spec §4.3's "the
	// endpoint previously served a different fingerprint" pin-mismatch
	// check independently of whether the new fingerprint is itself known.
	GetByEndpoint(endpoint string) (domaintypes.Contact, bool, error)
	List() ([]domaintypes.Contact, error)
	Touch(fingerprint domaintypes.Fingerprint, endpoint string) error
}

// MessageStore persists the application message log (spec §6).
type MessageStore interface {
	Append(msg domaintypes.StoredMessage) error
	MarkDelivered(uuid string) error
	History(peer domaintypes.Fingerprint, limit int) ([]domaintypes.StoredMessage, error)
}

// SessionCache persists the cached session key for resume (spec §4.8, §6).
type SessionCache interface {
	Save(peer domaintypes.Fingerprint, cid domaintypes.CID, key domaintypes.SessionKey) error
	Load(peer domaintypes.Fingerprint) (domaintypes.CID, domaintypes.SessionKey, bool, error)
	Forget(peer domaintypes.Fingerprint) error
}
