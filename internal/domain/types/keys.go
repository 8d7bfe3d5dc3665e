package types

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// SessionKey is the single symmetric key used for both directions of a
// Session's record layer (spec §3: tx_key and rx_key are both equal to the
// derived session_key in this design).
type SessionKey [32]byte

// Slice returns the key as a []byte.
func (k SessionKey) Slice() []byte { return k[:] }
