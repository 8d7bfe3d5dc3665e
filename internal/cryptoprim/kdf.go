package cryptoprim

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// KDF derives outLen bytes from input using a 256-bit keyed hash with no
// key (spec §4.2: kdf(input, len) -> bytes[len]). It is used both for
// session-key derivation from the ECDH output and for the handshake's
// ephemeral-key-derived nonce.
//
// BLAKE2b-256 is used in keyed mode with an empty key, matching the
// original prototype's hashlib.blake2s(shared, digest_size=32) exactly in
// digest size and "no key" semantics. For outLen beyond 32 the digest is
// expanded with a counter-appended re-hash, the same idiom the teacher's
// Double Ratchet used for HKDF expansion.
func KDF(input []byte, outLen int) ([]byte, error) {
	out := make([]byte, 0, outLen)
	var counter uint32
	for len(out) < outLen {
		h, err := blake2b.New256(nil)
		if err != nil {
			return nil, err
		}
		h.Write(input)
		if counter > 0 {
			var ctr [4]byte
			binary.BigEndian.PutUint32(ctr[:], counter)
			h.Write(ctr[:])
		}
		out = append(out, h.Sum(nil)...)
		counter++
	}
	return out[:outLen], nil
}

// KDF32 is the common case: derive exactly 32 bytes (a session key or a
// handshake-sealing key).
func KDF32(input []byte) ([32]byte, error) {
	var out [32]byte
	b, err := KDF(input, 32)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}
