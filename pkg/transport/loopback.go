package transport

import (
	"fmt"
	"sync"
)

// Loopback is an in-memory Transport for tests. Ports are plain names whose
// index is their position in the enumeration order; removing a port
// renumbers the ones after it, exactly like the OS driver does.
//
// Outputs can be wired to a handler (a scripted device) or echoed straight
// into an input to reproduce a cabling feedback loop.
type Loopback struct {
	mu      sync.Mutex
	ins     []string
	outs    []string
	enumErr map[Direction]error
	recvs   map[string]ReceiveFunc
	sinks   map[string]func(data []byte)
	sent    map[string][][]byte

	// Receiver registrations are numbered so that closing a stale handle
	// after a reopen of the same name does not drop the fresh receiver.
	regSeq int
	regIDs map[string]int
}

// NewLoopback creates an empty loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{
		enumErr: make(map[Direction]error),
		recvs:   make(map[string]ReceiveFunc),
		sinks:   make(map[string]func([]byte)),
		sent:    make(map[string][][]byte),
		regIDs:  make(map[string]int),
	}
}

// SetPorts replaces the enumeration for one direction wholesale.
func (t *Loopback) SetPorts(dir Direction, names ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := append([]string(nil), names...)
	if dir == DirectionInput {
		t.ins = cp
	} else {
		t.outs = cp
	}
}

// AddPort appends a port to the enumeration for one direction.
func (t *Loopback) AddPort(dir Direction, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if dir == DirectionInput {
		t.ins = append(t.ins, name)
	} else {
		t.outs = append(t.outs, name)
	}
}

// RemovePort removes a port, renumbering any ports after it.
func (t *Loopback) RemovePort(dir Direction, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := &t.outs
	if dir == DirectionInput {
		list = &t.ins
	}
	for i, n := range *list {
		if n == name {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// FailEnumeration forces Enumerate to return err for one direction.
// Pass nil to restore normal behavior.
func (t *Loopback) FailEnumeration(dir Direction, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enumErr[dir] = err
}

// Enumerate lists the declared ports.
func (t *Loopback) Enumerate(dir Direction) ([]PortInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enumErr[dir]; err != nil {
		return nil, err
	}
	list := t.outs
	if dir == DirectionInput {
		list = t.ins
	}
	infos := make([]PortInfo, 0, len(list))
	for i, name := range list {
		infos = append(infos, PortInfo{Index: i, Name: name})
	}
	return infos, nil
}

// OpenInput opens the input at index.
func (t *Loopback) OpenInput(index int, recv ReceiveFunc) (InputPort, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.ins) {
		return nil, fmt.Errorf("%w: input %d", ErrPortNotFound, index)
	}
	name := t.ins[index]
	t.regSeq++
	t.recvs[name] = recv
	t.regIDs[name] = t.regSeq
	return &loopInput{t: t, name: name, regID: t.regSeq}, nil
}

// OpenOutput opens the output at index.
func (t *Loopback) OpenOutput(index int) (OutputPort, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.outs) {
		return nil, fmt.Errorf("%w: output %d", ErrPortNotFound, index)
	}
	return &loopOutput{t: t, name: t.outs[index]}, nil
}

// WireOutput routes everything sent to the named output to handler.
// The handler runs outside the transport lock and may call Inject.
func (t *Loopback) WireOutput(name string, handler func(data []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks[name] = handler
}

// WireEcho wires an output straight back into an input, the way a MIDI
// cable looped from OUT to IN would.
func (t *Loopback) WireEcho(outputName, inputName string) {
	t.WireOutput(outputName, func(data []byte) {
		t.Inject(inputName, 0, data)
	})
}

// Inject delivers a message to the named input, if it is open.
func (t *Loopback) Inject(inputName string, timestampMs int32, data []byte) {
	t.mu.Lock()
	recv := t.recvs[inputName]
	t.mu.Unlock()
	if recv != nil {
		recv(timestampMs, append([]byte(nil), data...))
	}
}

// Sent returns every message sent to the named output, in order.
func (t *Loopback) Sent(outputName string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.sent[outputName]...)
}

// ClearSent discards the send log for the named output.
func (t *Loopback) ClearSent(outputName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent[outputName] = nil
}

type loopInput struct {
	t      *Loopback
	name   string
	regID  int
	closed bool
}

func (p *loopInput) Close() error {
	p.t.mu.Lock()
	defer p.t.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.t.regIDs[p.name] == p.regID {
		delete(p.t.recvs, p.name)
		delete(p.t.regIDs, p.name)
	}
	return nil
}

type loopOutput struct {
	t      *Loopback
	name   string
	closed bool
}

func (p *loopOutput) Send(data []byte) error {
	p.t.mu.Lock()
	if p.closed {
		p.t.mu.Unlock()
		return ErrPortClosed
	}
	cp := append([]byte(nil), data...)
	p.t.sent[p.name] = append(p.t.sent[p.name], cp)
	sink := p.t.sinks[p.name]
	p.t.mu.Unlock()

	if sink != nil {
		sink(cp)
	}
	return nil
}

func (p *loopOutput) Close() error {
	p.t.mu.Lock()
	defer p.t.mu.Unlock()
	p.closed = true
	return nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*Loopback)(nil)
