package ports

import (
	"fmt"

	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// EventKind classifies a port topology change.
type EventKind uint8

const (
	// EventConnect reports a port that appeared since the last scan.
	EventConnect EventKind = iota

	// EventDisconnect reports a port that vanished since the last scan.
	EventDisconnect

	// EventRenumber reports a known port whose OS index moved.
	EventRenumber
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "CONNECT"
	case EventDisconnect:
		return "DISCONNECT"
	case EventRenumber:
		return "RENUMBER"
	default:
		return "UNKNOWN"
	}
}

// Event is one observed port topology change. Name is the normalized port
// name. Index is the current OS index (for disconnects, the last known one).
// PrevIndex is only meaningful for EventRenumber.
type Event struct {
	Kind      EventKind
	Direction transport.Direction
	Name      string
	Index     int
	PrevIndex int
}

// String renders the event for logs.
func (e Event) String() string {
	if e.Kind == EventRenumber {
		return fmt.Sprintf("%s %s %q %d->%d", e.Kind, e.Direction, e.Name, e.PrevIndex, e.Index)
	}
	return fmt.Sprintf("%s %s %q @%d", e.Kind, e.Direction, e.Name, e.Index)
}
