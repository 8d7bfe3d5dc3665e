// Package sessiontable holds the live Session objects keyed by CID, the
// CID allocator with its retirement cooldown list, and the "newer
// supersedes older" invariant for sessions sharing a peer (spec §4.7).
package sessiontable

import (
	"net"
	"sync"
	"time"

	"cardlink/internal/domain"
	"cardlink/internal/record"
)

// Session is one logical connection to a peer: its identity, transport
// endpoint, record layer, and the bookkeeping the message pipeline needs
// for delivery and resume (spec §3).
type Session struct {
	CID             domain.CID
	PeerEndpoint    *net.UDPAddr
	PeerIdentity    domain.Identity
	Role            domain.Role
	State           domain.SessionState
	Key             domain.SessionKey
	Layer           *record.Layer
	SeenUUIDs       map[string]struct{}
	PendingOutbound []PendingMessage
	CreatedAt       time.Time
	LastActivityAt  time.Time

	// HandshakeResp is the exact HANDSHAKE_RESP payload this side sent
	// when it established the session as responder, cached so a
	// retransmitted HANDSHAKE_INIT can be answered identically instead of
	// re-running the handshake (spec §4.7, Testable Property 7). Empty
	// for sessions established as initiator.
	HandshakeResp []byte
}

// PendingMessage is one offline-queued outbound message awaiting
// delivery or resume (spec §4.6).
type PendingMessage struct {
	UUID string
	Text string
}

// Table is the process-wide map from CID to Session, plus the CID
// allocator (spec §4.7).
type Table struct {
	mu sync.Mutex

	sessions map[domain.CID]*Session
	byPeer   map[domain.Fingerprint]domain.CID

	allocator *cidAllocator
}

// NewTable builds an empty Table.
func NewTable() *Table {
	return &Table{
		sessions:  make(map[domain.CID]*Session),
		byPeer:    make(map[domain.Fingerprint]domain.CID),
		allocator: newCIDAllocator(),
	}
}

// AllocateCID returns a CID not currently in use and not in the
// retirement cooldown list (spec §4.7).
func (t *Table) AllocateCID() (domain.CID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocator.allocate(func(c domain.CID) bool {
		_, inUse := t.sessions[c]
		return inUse
	})
}

// Insert adds sess to the table, keyed by its CID. If an existing
// session for the same peer fingerprint is found, it is superseded and
// closed: the newer session always wins (spec §4.7).
func (t *Table) Insert(sess *Session) (superseded *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fp := sess.PeerIdentity.Fingerprint
	if oldCID, ok := t.byPeer[fp]; ok && oldCID != sess.CID {
		if old, exists := t.sessions[oldCID]; exists {
			old.State = domain.SessionClosed
			superseded = old
			delete(t.sessions, oldCID)
			t.allocator.retire(oldCID)
		}
	}

	t.sessions[sess.CID] = sess
	if fp != "" {
		t.byPeer[fp] = sess.CID
	}
	return superseded
}

// Get looks up a session by CID.
func (t *Table) Get(cid domain.CID) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[cid]
	return s, ok
}

// GetByPeer looks up the current session for a peer fingerprint.
func (t *Table) GetByPeer(fp domain.Fingerprint) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cid, ok := t.byPeer[fp]
	if !ok {
		return nil, false
	}
	s, ok := t.sessions[cid]
	return s, ok
}

// Remove retires cid: it is dropped from the table and placed on the CID
// allocator's cooldown list.
func (t *Table) Remove(cid domain.CID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[cid]
	if !ok {
		return
	}
	delete(t.sessions, cid)
	if sess.PeerIdentity.Fingerprint != "" {
		if cur, ok := t.byPeer[sess.PeerIdentity.Fingerprint]; ok && cur == cid {
			delete(t.byPeer, sess.PeerIdentity.Fingerprint)
		}
	}
	t.allocator.retire(cid)
}

// All returns a snapshot slice of every live session, for the scheduler
// worker to scan for idle-suspend and resume timeouts.
func (t *Table) All() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s)
	}
	return out
}
