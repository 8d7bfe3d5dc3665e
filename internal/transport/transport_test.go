package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cardlink/internal/codec"
	"cardlink/internal/domain"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	got  []codec.Packet
	done chan struct{}
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{done: make(chan struct{}, 1)}
}

func (d *recordingDispatcher) Dispatch(from *net.UDPAddr, pkt codec.Packet) {
	d.mu.Lock()
	d.got = append(d.got, pkt)
	d.mu.Unlock()
	select {
	case d.done <- struct{}{}:
	default:
	}
}

func TestTransportDeliversDecodedPacket(t *testing.T) {
	disp := newRecordingDispatcher()
	tr, err := New(Config{ListenAddr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}}, disp, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	client, err := net.DialUDP("udp", nil, tr.LocalAddr())
	require.NoError(t, err)
	defer client.Close()

	wire := codec.Encode(codec.Packet{Type: codec.TypeReconnectReq, CID: domain.CID(7)})
	_, err = client.Write(wire)
	require.NoError(t, err)

	select {
	case <-disp.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	disp.mu.Lock()
	defer disp.mu.Unlock()
	require.Len(t, disp.got, 1)
	require.Equal(t, domain.CID(7), disp.got[0].CID)
}

func TestTransportDropsMalformedDatagramSilently(t *testing.T) {
	disp := newRecordingDispatcher()
	tr, err := New(Config{ListenAddr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}}, disp, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	client, err := net.DialUDP("udp", nil, tr.LocalAddr())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte{0x01})
	require.NoError(t, err)

	select {
	case <-disp.done:
		t.Fatal("malformed datagram must never reach the dispatcher")
	case <-time.After(200 * time.Millisecond):
	}
}
