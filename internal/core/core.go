// Package core wires every collaborator — transport, handshake, record,
// pipeline, persistence, card, identity binding — into the single
// logical owner that drives one peer-to-peer messaging endpoint (spec
// §5, §9). Everything here runs as a single goroutine per session plus
// the transport's read loop and the scheduler's timer loop, supervised
// together by an errgroup.
package core

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cardlink/internal/card"
	"cardlink/internal/codec"
	"cardlink/internal/domain"
	"cardlink/internal/handshake"
	"cardlink/internal/identitybinding"
	"cardlink/internal/pipeline"
	"cardlink/internal/sessiontable"
	"cardlink/internal/util/memzero"
)

// Config bundles the tunables from spec §6 the core needs at runtime.
// MessageRetry is carried but not consulted: outboxes are built by
// pipeline.NewOutbox with its fixed two-second retry interval.
type Config struct {
	HandshakeTimeout time.Duration
	MessageRetry     time.Duration
	IdleSuspend      time.Duration
}

// pendingHandshake tracks a not-yet-established handshake this process
// initiated, keyed by the CID it allocated for it.
type pendingHandshake struct {
	peerAddr  *net.UDPAddr
	ephemeral domain.EphemeralKeyPair
	payload   []byte
	startedAt time.Time
	nextRetry time.Time
	retry     backoff.BackOff
}

// pendingReconnect tracks an in-flight resume attempt for a Suspended
// session, keyed by its CID (spec §4.8).
type pendingReconnect struct {
	startedAt time.Time
	nextRetry time.Time
	retry     backoff.BackOff
}

// Core is the top-level orchestrator. It implements transport.Dispatcher.
type Core struct {
	mu sync.Mutex

	cfg Config
	log *logrus.Entry

	identity handshake.Identity
	engine   *handshake.Engine
	card     *card.Manager

	sender   domain.PacketSender
	table    *sessiontable.Table
	contacts domain.ContactStore
	messages domain.MessageStore
	cache    domain.SessionCache

	outboxes     map[domain.Fingerprint]*pipeline.Outbox
	pending      map[domain.CID]*pendingHandshake
	reconnecting map[domain.CID]*pendingReconnect

	events chan domain.UIEvent

	onInbound func(peer domain.Fingerprint, text string)
}

// Deps bundles every collaborator the core needs, supplied by the
// embedding host at startup.
type Deps struct {
	Identity handshake.Identity
	Verifier *identitybinding.Verifier
	Card     *card.Manager
	Contacts domain.ContactStore
	Messages domain.MessageStore
	Cache    domain.SessionCache
	Log      *logrus.Entry
}

// New builds a Core. SetSender must be called before any send-path
// method is used; it is separate because the transport that owns the
// socket is typically constructed after the Core (it needs the Core as
// its Dispatcher).
func New(cfg Config, deps Deps) *Core {
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Core{
		cfg:          cfg,
		log:          deps.Log,
		identity:     deps.Identity,
		engine:       handshake.NewEngine(deps.Identity, deps.Verifier, deps.Log),
		card:         deps.Card,
		table:        sessiontable.NewTable(),
		contacts:     deps.Contacts,
		messages:     deps.Messages,
		cache:        deps.Cache,
		outboxes:     make(map[domain.Fingerprint]*pipeline.Outbox),
		pending:      make(map[domain.CID]*pendingHandshake),
		reconnecting: make(map[domain.CID]*pendingReconnect),
		events:       make(chan domain.UIEvent, 64),
	}
}

// SetSender wires the transport's send capability into the core.
func (c *Core) SetSender(sender domain.PacketSender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sender = sender
}

// OnInboundMessage registers a callback invoked for every successfully
// decrypted inbound message, outside the spec's minimal UI event
// vocabulary (spec §7 enumerates status events only; delivering text
// itself is the embedding host's concern).
func (c *Core) OnInboundMessage(fn func(peer domain.Fingerprint, text string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInbound = fn
}

// Events returns the UI event stream (spec §7).
func (c *Core) Events() <-chan domain.UIEvent {
	return c.events
}

func (c *Core) emit(ev domain.UIEvent) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("dropping UI event, channel full")
	}
}

// Run starts the scheduler loop and blocks until ctx is cancelled.
func (c *Core) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.schedulerLoop(ctx) })
	return g.Wait()
}

// schedulerLoop drives timer-based transitions: idle-suspend of
// established sessions, timeout of stalled handshakes, and retransmit of
// unacknowledged messages (spec §4.4, §4.6, §4.8).
func (c *Core) schedulerLoop(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Core) tick() {
	now := time.Now()
	for _, sess := range c.table.All() {
		switch sess.State {
		case domain.SessionEstablished:
			if c.cfg.IdleSuspend > 0 && now.Sub(sess.LastActivityAt) > c.cfg.IdleSuspend {
				c.suspend(sess)
				continue
			}
			c.retransmitDue(sess, now)
		case domain.SessionSuspended:
			c.reconnectDue(sess, now)
		}
	}
	c.expireStalePending(now)
}

func (c *Core) suspend(sess *sessiontable.Session) {
	c.mu.Lock()
	sess.State = domain.SessionSuspended
	c.mu.Unlock()
	if c.cache != nil {
		_ = c.cache.Save(sess.PeerIdentity.Fingerprint, sess.CID, sess.Key)
	}
}

func (c *Core) retransmitDue(sess *sessiontable.Session, now time.Time) {
	ob := c.outboxFor(sess.PeerIdentity.Fingerprint)
	for _, f := range ob.DueForRetry(now) {
		c.sealAndSend(sess, codec.TypeMsg, f.Encode())
	}
}

// expireStalePending drops handshakes that have not completed after
// three retransmission intervals (spec §4.4) and retransmits
// HANDSHAKE_INIT for the rest, spaced out by an exponential backoff
// instead of a fixed interval so a slow or lossy peer doesn't get
// hammered.
func (c *Core) expireStalePending(now time.Time) {
	type resend struct {
		addr    *net.UDPAddr
		cid     domain.CID
		payload []byte
	}
	var resends []resend
	c.mu.Lock()
	for cid, p := range c.pending {
		if now.Sub(p.startedAt) > c.cfg.HandshakeTimeout*3 {
			delete(c.pending, cid)
			memzero.Zero(p.ephemeral.Private[:])
			c.emit(domain.UIEvent{Kind: domain.UIEventSessionClosed, CID: cid, Reason: "handshake timeout"})
			continue
		}
		if now.Before(p.nextRetry) {
			continue
		}
		wait := p.retry.NextBackOff()
		if wait == backoff.Stop {
			wait = c.cfg.HandshakeTimeout
		}
		p.nextRetry = now.Add(wait)
		resends = append(resends, resend{addr: p.peerAddr, cid: cid, payload: p.payload})
	}
	c.mu.Unlock()
	// send takes c.mu itself, so retransmits go out after it is released.
	for _, r := range resends {
		c.send(r.addr, codec.TypeHandshakeInit, r.cid, r.payload)
	}
}

func (c *Core) outboxFor(peer domain.Fingerprint) *pipeline.Outbox {
	c.mu.Lock()
	defer c.mu.Unlock()
	ob, ok := c.outboxes[peer]
	if !ok {
		ob = pipeline.NewOutbox()
		c.outboxes[peer] = ob
	}
	return ob
}

func (c *Core) sealAndSend(sess *sessiontable.Session, typ codec.PacketType, plaintext []byte) {
	nonce, ct, err := sess.Layer.Seal(plaintext)
	if err != nil {
		c.log.WithError(err).Warn("seal failed")
		return
	}
	payload := codec.EncodeSealedPayload(codec.SealedPayload{Nonce: nonce, Ciphertext: ct})
	c.send(sess.PeerEndpoint, typ, sess.CID, payload)
}

func (c *Core) send(addr *net.UDPAddr, typ codec.PacketType, cid domain.CID, payload []byte) {
	c.mu.Lock()
	sender := c.sender
	c.mu.Unlock()
	if sender == nil {
		return
	}
	wire := codec.Encode(codec.Packet{Type: typ, CID: cid, Payload: payload})
	if err := sender.SendTo(addr, wire); err != nil {
		c.log.WithError(err).Debug("send failed")
	}
}

// newHandshakeBackoff builds the retransmission policy for one
// in-flight handshake, bounded by the configured handshake timeout.
func (c *Core) newHandshakeBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.HandshakeTimeout
	b.MaxInterval = c.cfg.HandshakeTimeout * 4
	b.MaxElapsedTime = 0
	return b
}
