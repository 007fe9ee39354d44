package session

import (
	"time"
)

// outBuffer is the rate-limited outgoing byte queue. Senders append;
// only the Advance tick drains, chunkSize bytes at a time with a minimum
// delay between chunks. Exceeding max discards everything rather than
// transmitting a truncated frame.
type outBuffer struct {
	buf       []byte
	chunkSize int
	delay     time.Duration
	max       int
	lastFlush time.Time
}

// push queues data. Reports false on overflow, after clearing the buffer.
func (b *outBuffer) push(data []byte) bool {
	if len(b.buf)+len(data) > b.max {
		b.buf = nil
		return false
	}
	b.buf = append(b.buf, data...)
	return true
}

// pending reports how many bytes await transmission.
func (b *outBuffer) pending() int { return len(b.buf) }

// clear drops everything queued.
func (b *outBuffer) clear() { b.buf = nil }

// drain sends at most one chunk if the inter-chunk delay has elapsed.
// A send failure leaves the remaining bytes queued for the next tick.
func (b *outBuffer) drain(now time.Time, send func(data []byte) error) error {
	if len(b.buf) == 0 {
		return nil
	}
	if now.Sub(b.lastFlush) < b.delay {
		return nil
	}

	n := b.chunkSize
	if n > len(b.buf) {
		n = len(b.buf)
	}
	if err := send(b.buf[:n]); err != nil {
		return err
	}
	b.buf = b.buf[n:]
	if len(b.buf) == 0 {
		b.buf = nil
	}
	b.lastFlush = now
	return nil
}
