package transport

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// RtMidi is the production Transport backed by the system MIDI driver.
// It is safe for concurrent use; the underlying driver serializes access.
type RtMidi struct {
	mu  sync.Mutex
	drv *rtmididrv.Driver
}

// NewRtMidi initialises the system MIDI driver. Call Close when done.
func NewRtMidi() (*RtMidi, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmidi driver init: %w", err)
	}
	return &RtMidi{drv: drv}, nil
}

// Close shuts down the driver. Open ports become invalid.
func (t *RtMidi) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.drv.Close()
}

// Enumerate lists the ports currently visible in one direction.
func (t *RtMidi) Enumerate(dir Direction) ([]PortInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var infos []PortInfo
	switch dir {
	case DirectionInput:
		ins, err := t.drv.Ins()
		if err != nil {
			return nil, fmt.Errorf("enumerate inputs: %w", err)
		}
		for _, in := range ins {
			infos = append(infos, PortInfo{Index: in.Number(), Name: in.String()})
		}
	case DirectionOutput:
		outs, err := t.drv.Outs()
		if err != nil {
			return nil, fmt.Errorf("enumerate outputs: %w", err)
		}
		for _, out := range outs {
			infos = append(infos, PortInfo{Index: out.Number(), Name: out.String()})
		}
	}
	return infos, nil
}

// OpenInput opens the input at index and delivers complete messages,
// including full SysEx frames, to recv.
func (t *RtMidi) OpenInput(index int, recv ReceiveFunc) (InputPort, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ins, err := t.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("enumerate inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if in.Number() == index {
			found = in
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: input %d", ErrPortNotFound, index)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open input %d: %w", index, err)
	}
	return listenWith(found, recv)
}

// CreateVirtualInput creates a named virtual input port other applications
// can send to.
func (t *RtMidi) CreateVirtualInput(name string, recv ReceiveFunc) (InputPort, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in, err := t.drv.OpenVirtualIn(name)
	if err != nil {
		return nil, fmt.Errorf("%w: virtual input %q: %v", ErrNotSupported, name, err)
	}
	return listenWith(in, recv)
}

func listenWith(in drivers.In, recv ReceiveFunc) (InputPort, error) {
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		recv(timestampms, msg.Bytes())
	}, gomidi.UseSysEx(), gomidi.UseActiveSense(), gomidi.UseTimeCode())
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("listen %q: %w", in.String(), err)
	}
	return &rtInput{in: in, stop: stop}, nil
}

// OpenOutput opens the output at index.
func (t *RtMidi) OpenOutput(index int) (OutputPort, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	outs, err := t.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("enumerate outputs: %w", err)
	}
	var found drivers.Out
	for _, out := range outs {
		if out.Number() == index {
			found = out
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: output %d", ErrPortNotFound, index)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open output %d: %w", index, err)
	}
	return &rtOutput{out: found}, nil
}

// CreateVirtualOutput creates a named virtual output port other
// applications can receive from.
func (t *RtMidi) CreateVirtualOutput(name string) (OutputPort, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := t.drv.OpenVirtualOut(name)
	if err != nil {
		return nil, fmt.Errorf("%w: virtual output %q: %v", ErrNotSupported, name, err)
	}
	return &rtOutput{out: out}, nil
}

// rtInput wraps an open driver input.
type rtInput struct {
	mu     sync.Mutex
	in     drivers.In
	stop   func()
	closed bool
}

func (p *rtInput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.stop()
	return p.in.Close()
}

// rtOutput wraps an open driver output.
type rtOutput struct {
	mu     sync.Mutex
	out    drivers.Out
	closed bool
}

func (p *rtOutput) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	return p.out.Send(data)
}

func (p *rtOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.out.Close()
}

// Compile-time interface satisfaction checks.
var (
	_ Transport     = (*RtMidi)(nil)
	_ VirtualPorter = (*RtMidi)(nil)
)
