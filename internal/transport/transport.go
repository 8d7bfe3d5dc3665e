// Package transport owns the single UDP socket shared by every session
// and demultiplexes inbound datagrams by CID (spec §4.7, §5). It never
// reads packet contents beyond the wire header; everything past the
// header is handed to the Dispatcher.
package transport

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"cardlink/internal/codec"
	"cardlink/internal/domain"
)

// maxDatagramSize bounds a single read; the protocol's largest datagram
// is a HANDSHAKE_INIT carrying a certificate, comfortably under 4KiB.
const maxDatagramSize = 8192

// Dispatcher is supplied by the core: it receives each decoded packet
// together with the endpoint it arrived from, and decides what to do
// with it. Transport itself holds no protocol knowledge.
type Dispatcher interface {
	Dispatch(from *net.UDPAddr, pkt codec.Packet)
}

// Transport owns the UDP socket, reads datagrams on its own goroutine,
// and exposes SendTo so sessions can write back without touching the
// socket directly (spec §9: "Session refers to Transport through a
// narrow send capability").
type Transport struct {
	conn       *net.UDPConn
	dispatcher Dispatcher
	log        *logrus.Entry

	rateHz   float64
	burst    int
	limiters map[string]*rate.Limiter
}

// Config controls rate limiting and the bind address.
type Config struct {
	ListenAddr    *net.UDPAddr
	PerPeerRateHz float64
	PerPeerBurst  int
}

// New binds a UDP socket at cfg.ListenAddr and wires it to dispatcher.
func New(cfg Config, dispatcher Dispatcher, log *logrus.Entry) (*Transport, error) {
	conn, err := net.ListenUDP("udp", cfg.ListenAddr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	rateHz := cfg.PerPeerRateHz
	if rateHz <= 0 {
		rateHz = defaultPerPeerRateHz
	}
	burst := cfg.PerPeerBurst
	if burst <= 0 {
		burst = defaultPerPeerBurst
	}
	return &Transport{
		conn:       conn,
		dispatcher: dispatcher,
		log:        log,
		rateHz:     rateHz,
		burst:      burst,
		limiters:   make(map[string]*rate.Limiter),
	}, nil
}

// LocalAddr returns the bound address, useful when ListenAddr's port
// was 0.
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// SendTo writes packet to addr. It implements domain.PacketSender.
func (t *Transport) SendTo(addr *net.UDPAddr, packet []byte) error {
	_, err := t.conn.WriteToUDP(packet, addr)
	if err != nil {
		return domain.ErrTransportError
	}
	return nil
}

// Run reads datagrams until ctx is cancelled or the socket closes. It
// never returns a reply to a malformed or unsolicited datagram: the
// silence policy is enforced here, before the packet ever reaches the
// dispatcher (spec §4.9).
func (t *Transport) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return t.conn.Close()
	})
	g.Go(func() error {
		buf := make([]byte, maxDatagramSize)
		for {
			n, from, err := t.conn.ReadFromUDP(buf)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			t.handleDatagram(from, buf[:n])
		}
	})
	return g.Wait()
}

func (t *Transport) handleDatagram(from *net.UDPAddr, data []byte) {
	pkt, err := codec.Decode(data)
	if err != nil {
		// Silence policy: malformed datagrams are dropped, never
		// answered (spec §4.9).
		t.log.WithField("from", from).Debug("dropping malformed datagram")
		return
	}
	// The per-endpoint limiter throttles handshake attempts only.
	if (pkt.Type == codec.TypeHandshakeInit || pkt.Type == codec.TypeHandshakeResp) && !t.allow(from) {
		return
	}
	t.dispatcher.Dispatch(from, pkt)
}

func (t *Transport) allow(from *net.UDPAddr) bool {
	lim, ok := t.limiters[from.String()]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(t.rateHz), t.burst)
		t.limiters[from.String()] = lim
	}
	return lim.Allow()
}

const (
	defaultPerPeerRateHz = 50
	defaultPerPeerBurst  = 100
)

// Close shuts down the socket directly, for callers that are not driving
// Run's context.
func (t *Transport) Close() error {
	return t.conn.Close()
}
