package core

import (
	"net"
	"time"

	"cardlink/internal/codec"
	"cardlink/internal/cryptoprim"
	"cardlink/internal/domain"
	"cardlink/internal/handshake"
	"cardlink/internal/pipeline"
	"cardlink/internal/record"
	"cardlink/internal/sessiontable"
	"cardlink/internal/util/memzero"
)

// Dispatch implements transport.Dispatcher. It is called once per
// decoded inbound packet, never for malformed ones (the transport drops
// those before they reach here, per the silence policy at spec §4.9).
func (c *Core) Dispatch(from *net.UDPAddr, pkt codec.Packet) {
	switch pkt.Type {
	case codec.TypeHandshakeInit:
		c.handleHandshakeInit(from, pkt)
	case codec.TypeHandshakeResp:
		c.handleHandshakeResp(from, pkt)
	case codec.TypeMsg:
		c.handleMsg(from, pkt)
	case codec.TypeAck:
		c.handleAck(pkt)
	case codec.TypeReconnectReq:
		c.handleReconnectReq(from, pkt)
	case codec.TypeReconnectResp:
		c.handleReconnectResp(pkt)
	case codec.TypePendingSend, codec.TypePendingDone:
		// Markers only bracket the resume drain on the sending side;
		// the receiver has nothing to do beyond accepting whatever
		// MSG packets arrive between them.
	}
}

func (c *Core) handleHandshakeInit(from *net.UDPAddr, pkt codec.Packet) {
	if sess, ok := c.table.Get(pkt.CID); ok {
		// Retransmit of a HANDSHAKE_INIT we've already answered: re-emit
		// the exact HANDSHAKE_RESP bytes produced the first time rather
		// than re-running the handshake, so a lost response doesn't tear
		// down the already-Established session or re-fire its events
		// (spec §4.7, Testable Property 7).
		if len(sess.HandshakeResp) > 0 {
			c.send(from, codec.TypeHandshakeResp, pkt.CID, sess.HandshakeResp)
		}
		return
	}

	ephPriv, ephPub, err := cryptoprim.GenerateStaticKeyPair()
	if err != nil {
		c.log.WithError(err).Warn("failed to generate responder ephemeral key")
		return
	}
	responderEph := domain.EphemeralKeyPair{Private: ephPriv, Public: ephPub}

	respPayload, result, err := c.engine.HandleInit(pkt.Payload, responderEph, from)
	memzero.Zero(responderEph.Private[:])
	if err != nil {
		// Silence policy: a failed handshake never gets a reply (spec
		// §4.9), including ErrPinMismatch, which also never retries.
		c.log.WithError(err).Debug("handshake init rejected")
		if err == domain.ErrPinMismatch {
			c.emit(domain.UIEvent{Kind: domain.UIEventPinMismatch, Peer: result.PeerIdentity.Fingerprint})
		}
		return
	}

	sess := c.newEstablishedSession(pkt.CID, domain.RoleResponder, from, result)
	sess.HandshakeResp = respPayload
	c.table.Insert(sess)
	c.emit(domain.UIEvent{Kind: result.Event, Peer: result.PeerIdentity.Fingerprint, DisplayName: result.PeerIdentity.DisplayName, CID: pkt.CID})
	c.send(from, codec.TypeHandshakeResp, pkt.CID, respPayload)
	c.flushQueued(sess)
}

func (c *Core) handleHandshakeResp(from *net.UDPAddr, pkt codec.Packet) {
	c.mu.Lock()
	p, ok := c.pending[pkt.CID]
	if ok {
		delete(c.pending, pkt.CID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	result, err := c.engine.HandleResp(pkt.Payload, p.ephemeral, from)
	memzero.Zero(p.ephemeral.Private[:])
	if err != nil {
		c.log.WithError(err).Debug("handshake resp rejected")
		if err == domain.ErrPinMismatch {
			c.emit(domain.UIEvent{Kind: domain.UIEventPinMismatch, Peer: result.PeerIdentity.Fingerprint})
		}
		return
	}

	sess := c.newEstablishedSession(pkt.CID, domain.RoleInitiator, p.peerAddr, result)
	c.table.Insert(sess)
	c.emit(domain.UIEvent{Kind: result.Event, Peer: result.PeerIdentity.Fingerprint, DisplayName: result.PeerIdentity.DisplayName, CID: pkt.CID})
	c.flushQueued(sess)
}

func (c *Core) newEstablishedSession(cid domain.CID, role domain.Role, addr *net.UDPAddr, result handshake.Result) *sessiontable.Session {
	now := time.Now()
	return &sessiontable.Session{
		CID:            cid,
		PeerEndpoint:   addr,
		PeerIdentity:   result.PeerIdentity,
		Role:           role,
		State:          domain.SessionEstablished,
		Key:            result.SessionKey,
		Layer:          record.NewLayer(result.SessionKey),
		SeenUUIDs:      make(map[string]struct{}),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

func (c *Core) handleMsg(from *net.UDPAddr, pkt codec.Packet) {
	sess, ok := c.table.Get(pkt.CID)
	if !ok || sess.State != domain.SessionEstablished {
		return
	}
	sealed, err := codec.DecodeSealedPayload(pkt.Payload)
	if err != nil {
		return
	}
	plaintext, exceeded, err := sess.Layer.Open(sealed.Nonce, sealed.Ciphertext)
	if err != nil {
		if exceeded {
			c.closeSession(sess, "authentication failure threshold exceeded")
		}
		return
	}
	sess.LastActivityAt = time.Now()

	frame, err := pipeline.Decode(plaintext)
	if err != nil {
		return
	}
	if _, dup := sess.SeenUUIDs[frame.UUID]; dup {
		c.ackFrame(sess, frame.UUID)
		return
	}
	sess.SeenUUIDs[frame.UUID] = struct{}{}

	if c.messages != nil {
		_ = c.messages.Append(domain.StoredMessage{
			SessionCID:      sess.CID,
			PeerFingerprint: sess.PeerIdentity.Fingerprint,
			Direction:       domain.DirectionInbound,
			UUID:            frame.UUID,
			Text:            frame.Text,
			Timestamp:       time.Now(),
			Delivered:       true,
		})
	}

	c.mu.Lock()
	cb := c.onInbound
	c.mu.Unlock()
	if cb != nil {
		cb(sess.PeerIdentity.Fingerprint, frame.Text)
	}

	c.ackFrame(sess, frame.UUID)
}

func (c *Core) ackFrame(sess *sessiontable.Session, uuid string) {
	c.sealAndSend(sess, codec.TypeAck, []byte(uuid))
}

func (c *Core) handleAck(pkt codec.Packet) {
	sess, ok := c.table.Get(pkt.CID)
	if !ok {
		return
	}
	sealed, err := codec.DecodeSealedPayload(pkt.Payload)
	if err != nil {
		return
	}
	plaintext, _, err := sess.Layer.Open(sealed.Nonce, sealed.Ciphertext)
	if err != nil {
		return
	}
	sess.LastActivityAt = time.Now()

	uuid := string(plaintext)
	if c.outboxFor(sess.PeerIdentity.Fingerprint).Ack(uuid) {
		if c.messages != nil {
			_ = c.messages.MarkDelivered(uuid)
		}
		c.emit(domain.UIEvent{Kind: domain.UIEventMessageDelivered, Peer: sess.PeerIdentity.Fingerprint, CID: pkt.CID, UUID: uuid})
	}
}

func (c *Core) closeSession(sess *sessiontable.Session, reason string) {
	c.table.Remove(sess.CID)
	c.emit(domain.UIEvent{Kind: domain.UIEventSessionClosed, Peer: sess.PeerIdentity.Fingerprint, CID: sess.CID, Reason: reason})
}

func (c *Core) flushQueued(sess *sessiontable.Session) {
	ob := c.outboxFor(sess.PeerIdentity.Fingerprint)
	queued := ob.DrainQueued()
	if len(queued) == 0 {
		return
	}
	c.send(sess.PeerEndpoint, codec.TypePendingSend, sess.CID, nil)
	for _, f := range queued {
		ob.Enqueue(f)
		c.sealAndSend(sess, codec.TypeMsg, f.Encode())
	}
	c.send(sess.PeerEndpoint, codec.TypePendingDone, sess.CID, nil)
}
