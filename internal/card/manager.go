// Package card manages access to the process-wide smartcard capability
// (spec §6). The card is a scarce, blocking resource: PIN entry can take
// seconds, and the underlying PKCS#11 session is not safe for concurrent
// use, so every call is funneled through a singleflight group.
package card

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"cardlink/internal/domain"
)

// state tracks the Manager's lifecycle.
type state uint8

const (
	stateClosed state = iota
	stateOpen
	stateUnavailable
)

// Manager serializes calls to a domain.Card and tracks whether the card is
// currently reachable. The core never talks to a domain.Card directly; it
// always goes through a Manager so a card failure degrades to
// ErrCardUnavailable instead of blocking the I/O path.
type Manager struct {
	mu    sync.Mutex
	state state
	card  domain.Card

	group singleflight.Group
	// callMu admits one underlying card call at a time.
	callMu sync.Mutex
}

// NewManager wraps card, initially in the open state.
func NewManager(c domain.Card) *Manager {
	return &Manager{card: c, state: stateOpen}
}

// Open transitions a closed or unavailable Manager back to open. Callers
// do this after replacing the underlying card (e.g. the user reinserted
// it).
func (m *Manager) Open(c domain.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.card = c
	m.state = stateOpen
}

// Close marks the Manager closed; all subsequent calls fail with
// ErrCardUnavailable.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = stateClosed
	m.card = nil
}

// Unavailable marks the Manager as having lost contact with the card
// (e.g. a PKCS#11 error) without discarding the reference, so a later
// retry can flip it back to open.
func (m *Manager) Unavailable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = stateUnavailable
}

func (m *Manager) snapshot() (domain.Card, state) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.card, m.state
}

// Certificate returns the local DER-encoded certificate, deduplicating
// concurrent callers onto a single underlying card call.
func (m *Manager) Certificate(ctx context.Context) ([]byte, error) {
	c, st := m.snapshot()
	if st != stateOpen {
		return nil, domain.ErrCardUnavailable
	}
	v, err, _ := m.group.Do("certificate", func() (interface{}, error) {
		m.callMu.Lock()
		defer m.callMu.Unlock()
		return c.Certificate(ctx)
	})
	if err != nil {
		m.Unavailable()
		return nil, domain.ErrCardUnavailable
	}
	return v.([]byte), nil
}

// Sign produces a signature over data, deduplicating concurrent callers
// requesting a signature over the same bytes onto one underlying card
// call. Distinct payloads still serialize through the card, one at a
// time, because the PKCS#11 session itself is single-threaded.
func (m *Manager) Sign(ctx context.Context, data []byte) ([]byte, error) {
	c, st := m.snapshot()
	if st != stateOpen {
		return nil, domain.ErrCardUnavailable
	}
	key := "sign:" + string(data)
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		m.callMu.Lock()
		defer m.callMu.Unlock()
		return c.Sign(ctx, data)
	})
	if err != nil {
		m.Unavailable()
		return nil, domain.ErrCardUnavailable
	}
	return v.([]byte), nil
}
