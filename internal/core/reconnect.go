package core

import (
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"cardlink/internal/codec"
	"cardlink/internal/domain"
	"cardlink/internal/sessiontable"
)

// Reconnect attempts to resume a Suspended session back to Established
// without a fresh handshake, by sending the empty RECONNECT_REQ carrying
// sess's CID (spec §4.8, §4.1: RECONNECT_REQ/RESP payloads are empty).
// Resumption is proven purely by (peer_fingerprint, cid) lookup on the
// receiving end, not by anything carried in this message. If sess is not
// Suspended this is a no-op.
func (c *Core) Reconnect(sess *sessiontable.Session) {
	if sess.State != domain.SessionSuspended {
		return
	}
	c.trackReconnect(sess.CID)
	c.send(sess.PeerEndpoint, codec.TypeReconnectReq, sess.CID, nil)
}

// reconnectDue drives the scheduler side of resume for one Suspended
// session: it starts an attempt the first time a session is seen
// Suspended, retransmits RECONNECT_REQ on the same exponential backoff
// used for handshake retries, and falls back to a full handshake under a
// fresh CID once the attempt has run past its timeout without a
// RECONNECT_RESP (spec §4.8: "If the cached key is absent or
// cryptographic use of it fails once, the peers MUST fall back to a full
// handshake under a fresh CID").
func (c *Core) reconnectDue(sess *sessiontable.Session, now time.Time) {
	c.mu.Lock()
	p, tracked := c.reconnecting[sess.CID]
	c.mu.Unlock()

	if !tracked {
		c.Reconnect(sess)
		return
	}
	if now.Sub(p.startedAt) > c.cfg.HandshakeTimeout*3 {
		c.clearReconnect(sess.CID)
		peerAddr := sess.PeerEndpoint
		c.closeSession(sess, "reconnect timed out")
		if peerAddr != nil {
			_ = c.Dial(peerAddr)
		}
		return
	}
	if now.Before(p.nextRetry) {
		return
	}
	wait := p.retry.NextBackOff()
	if wait == backoff.Stop {
		wait = c.cfg.HandshakeTimeout
	}
	c.mu.Lock()
	p.nextRetry = now.Add(wait)
	c.mu.Unlock()
	c.send(sess.PeerEndpoint, codec.TypeReconnectReq, sess.CID, nil)
}

func (c *Core) trackReconnect(cid domain.CID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.reconnecting[cid]; ok {
		return
	}
	now := time.Now()
	c.reconnecting[cid] = &pendingReconnect{
		startedAt: now,
		nextRetry: now.Add(c.cfg.HandshakeTimeout),
		retry:     c.newHandshakeBackoff(),
	}
}

func (c *Core) clearReconnect(cid domain.CID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reconnecting, cid)
}

func (c *Core) handleReconnectReq(from *net.UDPAddr, pkt codec.Packet) {
	sess, ok := c.table.Get(pkt.CID)
	if !ok || sess.State != domain.SessionSuspended {
		// Cache miss: silence policy applies (spec §4.8, §4.9); the peer
		// falls back to a full handshake once its own attempt times out
		// in reconnectDue above.
		return
	}
	sess.State = domain.SessionEstablished
	sess.PeerEndpoint = from
	sess.LastActivityAt = time.Now()
	c.send(from, codec.TypeReconnectResp, pkt.CID, nil)
	c.flushQueued(sess)
}

func (c *Core) handleReconnectResp(pkt codec.Packet) {
	sess, ok := c.table.Get(pkt.CID)
	if !ok || sess.State != domain.SessionSuspended {
		return
	}
	sess.State = domain.SessionEstablished
	sess.LastActivityAt = time.Now()
	c.clearReconnect(sess.CID)
	c.flushQueued(sess)
}
