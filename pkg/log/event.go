package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the device session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Device is the product name (populated once identified).
	Device string `cbor:"6,keyasint,omitempty"`

	// Port is the normalized port name the bytes crossed.
	Port string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"8,keyasint,omitempty"`  // Transport layer
	Message     *MessageEvent     `cbor:"9,keyasint,omitempty"`  // Wire layer (decoded)
	PortChange  *PortChangeEvent  `cbor:"10,keyasint,omitempty"` // Port topology
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Session/update state
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the raw byte layer (messages as the driver saw them).
	LayerTransport Layer = 0
	// LayerWire is the decoding layer (parsed MIDI / vendor SysEx).
	LayerWire Layer = 1
	// LayerSession is the session/state-machine layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates MIDI or SysEx traffic.
	CategoryMessage Category = 0
	// CategoryPort indicates a port topology change.
	CategoryPort Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryPort:
		return "PORT"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw bytes at the transport layer.
type FrameEvent struct {
	// Size is the message size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw bytes (may be truncated for large SysEx).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded message at the wire layer: a channel or
// system-common message (Status set), an assembled NRPN/RPN value
// (Parameter/Value set), or a vendor SysEx packet (SysExCategory/SysExType
// set).
type MessageEvent struct {
	// Kind distinguishes the wire message families.
	Kind MessageKind `cbor:"1,keyasint"`

	// Status is the MIDI status byte (channel bits masked off).
	Status byte `cbor:"2,keyasint,omitempty"`

	// Channel is the MIDI channel for channel messages.
	Channel *uint8 `cbor:"3,keyasint,omitempty"`

	// Data1 and Data2 are the MIDI data bytes.
	Data1 byte `cbor:"4,keyasint,omitempty"`
	Data2 byte `cbor:"5,keyasint,omitempty"`

	// Parameter and Value describe an assembled NRPN/RPN event.
	Parameter *uint16 `cbor:"6,keyasint,omitempty"`
	Value     *uint16 `cbor:"7,keyasint,omitempty"`

	// SysExCategory and SysExType identify a decoded vendor packet.
	SysExCategory *uint8 `cbor:"8,keyasint,omitempty"`
	SysExType     *uint8 `cbor:"9,keyasint,omitempty"`

	// PayloadSize is the decoded vendor payload length.
	PayloadSize int `cbor:"10,keyasint,omitempty"`
}

// MessageKind distinguishes the wire message families.
type MessageKind uint8

const (
	// KindChannel is a channel voice message.
	KindChannel MessageKind = 0
	// KindSystem is a system-common or realtime message.
	KindSystem MessageKind = 1
	// KindSysEx is a vendor SysEx packet.
	KindSysEx MessageKind = 2
	// KindParameter is an assembled NRPN/RPN value.
	KindParameter MessageKind = 3
)

// String returns the message kind name.
func (m MessageKind) String() string {
	switch m {
	case KindChannel:
		return "CHANNEL"
	case KindSystem:
		return "SYSTEM"
	case KindSysEx:
		return "SYSEX"
	case KindParameter:
		return "PARAMETER"
	default:
		return "UNKNOWN"
	}
}

// PortChangeEvent captures one port topology change.
type PortChangeEvent struct {
	// Kind is the change kind name (CONNECT/DISCONNECT/RENUMBER).
	Kind string `cbor:"1,keyasint"`

	// PortDirection is IN or OUT.
	PortDirection string `cbor:"2,keyasint"`

	// Name is the normalized port name.
	Name string `cbor:"3,keyasint"`

	// Index is the current OS index.
	Index int `cbor:"4,keyasint"`

	// PrevIndex is the previous index for renumbers.
	PrevIndex int `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures session and update lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`

	// Progress is the update progress percentage, when applicable.
	Progress *int `cbor:"5,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession indicates a session connection state change.
	StateEntitySession StateEntity = 0
	// StateEntityHandshake indicates an identity handshake state change.
	StateEntityHandshake StateEntity = 1
	// StateEntityUpdate indicates a firmware update state change.
	StateEntityUpdate StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityHandshake:
		return "HANDSHAKE"
	case StateEntityUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
