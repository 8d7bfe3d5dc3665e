package pipeline

import (
	"sync"
	"time"
)

// defaultRetryInterval is how often an unacknowledged outbound message
// is resent while its session stays established. Every Outbox uses this
// fixed value; it is not read from the message_retry_seconds setting.
const defaultRetryInterval = 2 * time.Second

// outstanding tracks one sent-but-not-yet-acked message.
type outstanding struct {
	frame   Frame
	sentAt  time.Time
	retries int
}

// Outbox tracks in-flight outbound messages for one peer: which ones
// are awaiting ACK, and which are queued because the session is not
// currently established (spec §4.6).
type Outbox struct {
	mu            sync.Mutex
	retryInterval time.Duration

	inFlight map[string]*outstanding
	queued   []Frame
}

// NewOutbox builds an empty Outbox.
func NewOutbox() *Outbox {
	return &Outbox{
		retryInterval: defaultRetryInterval,
		inFlight:      make(map[string]*outstanding),
	}
}

// Enqueue records frame as sent and awaiting ACK.
func (o *Outbox) Enqueue(frame Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight[frame.UUID] = &outstanding{frame: frame, sentAt: time.Now()}
}

// Ack removes a message from the in-flight set once its ACK arrives,
// reporting whether it was actually outstanding (a duplicate or
// spurious ACK reports false).
func (o *Outbox) Ack(uuid string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inFlight[uuid]; !ok {
		return false
	}
	delete(o.inFlight, uuid)
	return true
}

// DueForRetry returns every in-flight message whose retry interval has
// elapsed, bumping their retry counters.
func (o *Outbox) DueForRetry(now time.Time) []Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	var due []Frame
	for _, out := range o.inFlight {
		if now.Sub(out.sentAt) >= o.retryInterval {
			out.sentAt = now
			out.retries++
			due = append(due, out.frame)
		}
	}
	return due
}

// Defer moves a message that could not be sent (session not
// established) onto the offline queue instead of the in-flight set
// (spec §4.6: pending_outbound).
func (o *Outbox) Defer(frame Frame) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queued = append(o.queued, frame)
}

// DrainQueued empties and returns the offline queue, for the resume flow
// to replay bracketed by PENDING_SEND/PENDING_DONE (spec §4.8).
func (o *Outbox) DrainQueued() []Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	drained := o.queued
	o.queued = nil
	return drained
}

// InFlightCount reports how many messages are currently awaiting ACK, for
// tests and telemetry.
func (o *Outbox) InFlightCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.inFlight)
}
