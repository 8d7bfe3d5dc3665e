package core

import (
	"net"
	"time"

	"cardlink/internal/codec"
	"cardlink/internal/cryptoprim"
	"cardlink/internal/domain"
	"cardlink/internal/pipeline"
)

// Dial initiates a fresh handshake toward addr (spec §4.4). It does not
// block for the handshake to complete; callers watch Events() for
// new_peer/peer_confirmed to know when the resulting session is usable,
// or send through SendMessage, which queues until one is.
func (c *Core) Dial(addr *net.UDPAddr) error {
	cid, err := c.table.AllocateCID()
	if err != nil {
		return err
	}
	ephPriv, ephPub, err := cryptoprim.GenerateStaticKeyPair()
	if err != nil {
		return err
	}
	eph := domain.EphemeralKeyPair{Private: ephPriv, Public: ephPub}
	payload := c.engine.BuildInit(eph)
	now := time.Now()

	c.mu.Lock()
	c.pending[cid] = &pendingHandshake{
		peerAddr:  addr,
		ephemeral: eph,
		payload:   payload,
		startedAt: now,
		nextRetry: now.Add(c.cfg.HandshakeTimeout),
		retry:     c.newHandshakeBackoff(),
	}
	c.mu.Unlock()

	c.send(addr, codec.TypeHandshakeInit, cid, payload)
	return nil
}

// SendMessage sends text to peer. If an Established session exists it is
// sealed and sent immediately; otherwise it is queued to the peer's
// offline outbox, to be flushed once a session is (re)established (spec
// §4.6).
func (c *Core) SendMessage(peer domain.Fingerprint, text string) (uuid string, err error) {
	frame := pipeline.NewOutbound(text)

	sess, ok := c.table.GetByPeer(peer)
	if ok && sess.State == domain.SessionEstablished {
		ob := c.outboxFor(peer)
		ob.Enqueue(frame)
		c.sealAndSend(sess, codec.TypeMsg, frame.Encode())
		c.logAppend(sess.CID, peer, frame)
		return frame.UUID, nil
	}

	if ok && sess.State == domain.SessionSuspended {
		c.Reconnect(sess)
	}

	var cid domain.CID
	if ok {
		cid = sess.CID
	}
	c.outboxFor(peer).Defer(frame)
	c.logAppend(cid, peer, frame)
	return frame.UUID, nil
}

func (c *Core) logAppend(cid domain.CID, peer domain.Fingerprint, frame pipeline.Frame) {
	if c.messages == nil {
		return
	}
	_ = c.messages.Append(domain.StoredMessage{
		SessionCID:      cid,
		PeerFingerprint: peer,
		Direction:       domain.DirectionOutbound,
		UUID:            frame.UUID,
		Text:            frame.Text,
		Timestamp:       time.Now(),
	})
}
