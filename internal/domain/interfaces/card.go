package interfaces

import "context"

// Card is the narrow capability the core uses to reach the smartcard (spec
// §6). The core never holds the PIN; it invokes the card through this
// capability, provided at startup by the embedding host.
type Card interface {
	// Certificate returns the local DER-encoded certificate. Implementations
	// should cache it for the lifetime of the card session.
	Certificate(ctx context.Context) ([]byte, error)
	// Sign produces a signature over the given bytes using the card's
	// private key. May block for seconds awaiting user PIN entry.
	Sign(ctx context.Context, data []byte) ([]byte, error)
}
