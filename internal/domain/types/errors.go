package types

import "errors"

// Error kinds from spec §7. Each is a sentinel, returned unwrapped by the
// packages that produce it; compare with errors.Is.
var (
	ErrMalformedPacket = errors.New("malformed packet")
	ErrAuthFailure     = errors.New("authentication failure")
	ErrUntrustedIssuer = errors.New("untrusted certificate issuer")
	ErrPinMismatch     = errors.New("pin mismatch")
	ErrCryptoFailure   = errors.New("crypto failure")
	ErrCardUnavailable = errors.New("card unavailable")
	ErrTransportError  = errors.New("transport error")
	ErrDuplicateMessage = errors.New("duplicate message")
	ErrUnknownSession  = errors.New("unknown session")
)
