package session

import (
	"context"
	"sync"
	"time"

	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// DefaultTickInterval paces the Host's Advance loop.
const DefaultTickInterval = time.Millisecond

// Host serializes access to a Session for callers that cannot provide
// their own single-threaded loop. The transport's receive callback and the
// Advance ticker both run under the Host's lock, so session callbacks fire
// with the lock held; do not call back into the Host from them, use Do
// from other goroutines instead.
type Host struct {
	mu sync.Mutex
	s  *Session
}

// NewHost creates a session over tr and wraps it in a Host. The config is
// interpreted exactly as NewSession does.
func NewHost(tr transport.Transport, cfg Config) (*Host, error) {
	h := &Host{}
	s, err := NewSession(&lockedTransport{inner: tr, mu: &h.mu}, cfg)
	if err != nil {
		return nil, err
	}
	h.s = s
	return h, nil
}

// Do runs fn with exclusive access to the session.
func (h *Host) Do(fn func(s *Session)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.s)
}

// Run drives the session's Advance loop until ctx is cancelled. A tick of
// zero uses DefaultTickInterval. Run closes the session on exit.
func (h *Host) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	t := time.NewTicker(tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Do(func(s *Session) { _ = s.Close() })
			return
		case now := <-t.C:
			h.Do(func(s *Session) { s.Advance(now) })
		}
	}
}

// lockedTransport wraps a Transport so received messages enter the session
// under the host lock.
type lockedTransport struct {
	inner transport.Transport
	mu    *sync.Mutex
}

func (t *lockedTransport) Enumerate(dir transport.Direction) ([]transport.PortInfo, error) {
	return t.inner.Enumerate(dir)
}

func (t *lockedTransport) OpenInput(index int, recv transport.ReceiveFunc) (transport.InputPort, error) {
	return t.inner.OpenInput(index, func(ts int32, data []byte) {
		t.mu.Lock()
		defer t.mu.Unlock()
		recv(ts, data)
	})
}

func (t *lockedTransport) OpenOutput(index int) (transport.OutputPort, error) {
	return t.inner.OpenOutput(index)
}

// Compile-time interface satisfaction check.
var _ transport.Transport = (*lockedTransport)(nil)
