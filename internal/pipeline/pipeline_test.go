package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cardlink/internal/domain"
)

func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	f := NewOutbound("hola mundo")
	decoded, err := Decode(f.Encode())
	require.NoError(t, err)
	require.Equal(t, f.UUID, decoded.UUID)
	require.Equal(t, f.Text, decoded.Text)
}

func TestDecodeRejectsMissingDelimiter(t *testing.T) {
	_, err := Decode([]byte("not-a-valid-uuid-prefix-at-all-xxxxxx"))
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}

func TestDecodeRejectsShortBody(t *testing.T) {
	_, err := Decode([]byte("short"))
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}

func TestOutboxAckRemovesInFlight(t *testing.T) {
	ob := NewOutbox()
	f := NewOutbound("hi")
	ob.Enqueue(f)
	require.Equal(t, 1, ob.InFlightCount())

	require.True(t, ob.Ack(f.UUID))
	require.Equal(t, 0, ob.InFlightCount())
	require.False(t, ob.Ack(f.UUID))
}

func TestOutboxDueForRetry(t *testing.T) {
	ob := NewOutbox()
	ob.retryInterval = time.Millisecond
	f := NewOutbound("hi")
	ob.Enqueue(f)

	time.Sleep(5 * time.Millisecond)
	due := ob.DueForRetry(time.Now())
	require.Len(t, due, 1)
	require.Equal(t, f.UUID, due[0].UUID)
}

func TestOutboxDrainQueued(t *testing.T) {
	ob := NewOutbox()
	ob.Defer(NewOutbound("one"))
	ob.Defer(NewOutbound("two"))

	drained := ob.DrainQueued()
	require.Len(t, drained, 2)
	require.Empty(t, ob.DrainQueued())
}
