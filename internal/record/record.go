// Package record implements the per-session record layer: AEAD sealing
// and opening under the session key, a bounded nonce-replay window, and
// the authentication-failure counter that closes a session after
// repeated forged or corrupted traffic (spec §4.5).
package record

import (
	"sync"
	"time"

	"cardlink/internal/cryptoprim"
	"cardlink/internal/domain"
)

// replayWindowSize is the number of most-recently-seen nonces retained
// per session (spec §4.5: "bounded replay window (ring of most recent
// 4096 nonces)").
const replayWindowSize = 4096

// authFailureThreshold and authFailureWindow define the close-on-abuse
// rule: authFailureThreshold failures within authFailureWindow closes
// the session (spec §4.5, §7).
const authFailureThreshold = 5

const authFailureWindow = 60 * time.Second

// Layer seals and opens messages for one session under one derived
// session key. Open guards the replay window and failure counter with an
// internal mutex; Seal reads only the immutable key, so both may be
// called concurrently.
type Layer struct {
	mu sync.Mutex

	key domain.SessionKey

	seen      map[[cryptoprim.NonceSize]byte]struct{}
	seenOrder [][cryptoprim.NonceSize]byte

	authFailures []time.Time
}

// NewLayer builds a Layer sealing under key.
func NewLayer(key domain.SessionKey) *Layer {
	return &Layer{
		key:  key,
		seen: make(map[[cryptoprim.NonceSize]byte]struct{}, replayWindowSize),
	}
}

// Seal draws a fresh CSPRNG nonce and encrypts plaintext, returning the
// nonce and ciphertext to place on the wire (spec §4.2, §4.5).
func (l *Layer) Seal(plaintext []byte) (nonce [cryptoprim.NonceSize]byte, ciphertext []byte, err error) {
	raw, err := cryptoprim.RandomNonce()
	if err != nil {
		return nonce, nil, err
	}
	copy(nonce[:], raw)

	ct, err := cryptoprim.AEADSeal(l.key.Slice(), raw, plaintext, nil)
	if err != nil {
		return nonce, nil, err
	}
	return nonce, ct, nil
}

// Open decrypts ciphertext sent under nonce, rejecting replays and
// counting authentication failures toward the close threshold. A caller
// receiving ErrAuthFailure too many times in the trailing window should
// close the session (spec §4.5, §7); Open reports that condition via the
// returned bool. Decryption is attempted before the replay check (spec
// §4.5: "decrypt; on AuthFailure, increment... on success, check nonce ∈
// seen_nonces") so a tampered packet that reuses an old nonce counts
// toward the auth-failure threshold instead of being silently dropped as
// a duplicate.
func (l *Layer) Open(nonce [cryptoprim.NonceSize]byte, ciphertext []byte) (plaintext []byte, exceededFailures bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pt, err := cryptoprim.AEADOpen(l.key.Slice(), nonce[:], ciphertext, nil)
	if err != nil {
		return nil, l.recordFailure(), err
	}

	if _, dup := l.seen[nonce]; dup {
		return nil, false, domain.ErrDuplicateMessage
	}

	l.recordNonce(nonce)
	return pt, false, nil
}

func (l *Layer) recordNonce(nonce [cryptoprim.NonceSize]byte) {
	l.seen[nonce] = struct{}{}
	l.seenOrder = append(l.seenOrder, nonce)
	if len(l.seenOrder) > replayWindowSize {
		evict := l.seenOrder[0]
		l.seenOrder = l.seenOrder[1:]
		delete(l.seen, evict)
	}
}

// recordFailure appends the current failure, trims entries older than
// authFailureWindow, and reports whether the threshold was exceeded.
func (l *Layer) recordFailure() bool {
	now := time.Now()
	l.authFailures = append(l.authFailures, now)

	cutoff := now.Add(-authFailureWindow)
	kept := l.authFailures[:0]
	for _, t := range l.authFailures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.authFailures = kept

	return len(l.authFailures) >= authFailureThreshold
}
