package transport

import "errors"

// Transport errors.
var (
	// ErrPortNotFound indicates the requested port index does not exist.
	ErrPortNotFound = errors.New("midi port not found")

	// ErrPortClosed indicates an operation on a closed port.
	ErrPortClosed = errors.New("midi port closed")

	// ErrNotSupported indicates the transport lacks the requested
	// capability (e.g. virtual ports on Windows).
	ErrNotSupported = errors.New("not supported by this transport")
)

// Direction distinguishes input from output ports.
type Direction uint8

const (
	// DirectionInput enumerates ports the host can receive from.
	DirectionInput Direction = iota

	// DirectionOutput enumerates ports the host can send to.
	DirectionOutput
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "IN"
	case DirectionOutput:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// PortInfo describes one enumerated port as the OS reports it.
type PortInfo struct {
	Index int
	Name  string
}

// ReceiveFunc is invoked once per received MIDI message: a complete channel
// or system-common message, or a complete SysEx frame. timestampMs is the
// driver's millisecond timestamp for the message.
type ReceiveFunc func(timestampMs int32, data []byte)

// InputPort is an open input. Closing it stops the receive callback.
type InputPort interface {
	Close() error
}

// OutputPort is an open output.
type OutputPort interface {
	// Send transmits one raw MIDI message.
	Send(data []byte) error
	Close() error
}

// Transport abstracts the OS MIDI layer. Implementations must tolerate
// ports disappearing between Enumerate and Open: Open returns an error, it
// does not panic.
type Transport interface {
	// Enumerate lists the ports currently visible in one direction.
	Enumerate(dir Direction) ([]PortInfo, error)

	// OpenInput opens the input at index and routes received messages to
	// recv until the returned port is closed.
	OpenInput(index int, recv ReceiveFunc) (InputPort, error)

	// OpenOutput opens the output at index.
	OpenOutput(index int) (OutputPort, error)
}

// VirtualPorter is implemented by transports that can create virtual ports
// visible to other applications.
type VirtualPorter interface {
	CreateVirtualInput(name string, recv ReceiveFunc) (InputPort, error)
	CreateVirtualOutput(name string) (OutputPort, error)
}
