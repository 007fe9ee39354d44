package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmi-protocol/kmidi-go/pkg/log"
	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// traceRecorder captures trace events for assertions.
type traceRecorder struct {
	events []log.Event
}

func (r *traceRecorder) Log(ev log.Event) { r.events = append(r.events, ev) }

func newTestRegistry(t *testing.T) (*Registry, *transport.Loopback) {
	t.Helper()
	lb := transport.NewLoopback()
	return NewRegistry(lb, nil), lb
}

func TestScanAndDiffInitialConnects(t *testing.T) {
	reg, lb := newTestRegistry(t)
	lb.SetPorts(transport.DirectionInput, "QuNeo", "K-Board")
	lb.SetPorts(transport.DirectionOutput, "QuNeo")

	events := reg.ScanAndDiff()
	require.Len(t, events, 3)
	assert.Equal(t, Event{Kind: EventConnect, Direction: transport.DirectionInput, Name: "K-Board", Index: 1}, events[0])
	assert.Equal(t, Event{Kind: EventConnect, Direction: transport.DirectionInput, Name: "QuNeo", Index: 0}, events[1])
	assert.Equal(t, Event{Kind: EventConnect, Direction: transport.DirectionOutput, Name: "QuNeo", Index: 0}, events[2])
}

func TestScanAndDiffIdempotent(t *testing.T) {
	reg, lb := newTestRegistry(t)
	lb.SetPorts(transport.DirectionInput, "QuNeo", "BopPad")
	lb.SetPorts(transport.DirectionOutput, "QuNeo", "BopPad")

	first := reg.ScanAndDiff()
	require.NotEmpty(t, first)

	second := reg.ScanAndDiff()
	assert.Empty(t, second)
}

func TestScanAndDiffDisconnectThenRenumber(t *testing.T) {
	reg, lb := newTestRegistry(t)
	lb.SetPorts(transport.DirectionInput, "A", "B")
	reg.ScanAndDiff()

	// A vanishes, so B slides from index 1 to 0. No connect event.
	lb.SetPorts(transport.DirectionInput, "B")
	events := reg.ScanAndDiff()
	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventDisconnect, Direction: transport.DirectionInput, Name: "A", Index: 0}, events[0])
	assert.Equal(t, Event{Kind: EventRenumber, Direction: transport.DirectionInput, Name: "B", Index: 0, PrevIndex: 1}, events[1])

	assert.Empty(t, reg.ScanAndDiff())
}

func TestScanAndDiffNormalizesNames(t *testing.T) {
	reg, lb := newTestRegistry(t)
	lb.SetPorts(transport.DirectionInput, "QuNexus Portii 1", "MIDIIN2 (SSCOM)")

	events := reg.ScanAndDiff()
	require.Len(t, events, 2)
	assert.Equal(t, "QuNexus Port 1", events[0].Name)
	assert.Equal(t, "SSCOM Port 2", events[1].Name)

	// The same device under its english name is the same logical port.
	lb.SetPorts(transport.DirectionInput, "QuNexus Port 1", "MIDIIN2 (SSCOM)")
	assert.Empty(t, reg.ScanAndDiff())
}

func TestScanAndDiffEnumerationFailure(t *testing.T) {
	reg, lb := newTestRegistry(t)
	lb.SetPorts(transport.DirectionInput, "QuNeo")
	lb.SetPorts(transport.DirectionOutput, "QuNeo")
	reg.ScanAndDiff()

	lb.FailEnumeration(transport.DirectionInput, errors.New("driver wedged"))
	assert.Empty(t, reg.ScanAndDiff())

	// Retained state survives the failed scan.
	lb.FailEnumeration(transport.DirectionInput, nil)
	assert.Empty(t, reg.ScanAndDiff())
	assert.Equal(t, map[string]int{"QuNeo": 0}, reg.Snapshot(transport.DirectionInput))
}

func TestPortNumberUsesFreshScan(t *testing.T) {
	reg, lb := newTestRegistry(t)
	lb.SetPorts(transport.DirectionOutput, "QuNeo", "BopPad")

	// Never scanned, but lookup still sees the live topology.
	idx, ok := reg.PortNumber(transport.DirectionOutput, "BopPad")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = reg.PortNumber(transport.DirectionOutput, "QuNexus Port 1")
	assert.False(t, ok)
}

func TestScanAndDiffTracesTopology(t *testing.T) {
	reg, lb := newTestRegistry(t)
	var rec traceRecorder
	reg.SetTrace(&rec)

	lb.SetPorts(transport.DirectionInput, "A", "B")
	reg.ScanAndDiff()
	require.Len(t, rec.events, 2)
	for _, ev := range rec.events {
		assert.Equal(t, log.CategoryPort, ev.Category)
		assert.False(t, ev.Timestamp.IsZero())
		require.NotNil(t, ev.PortChange)
		assert.Equal(t, "CONNECT", ev.PortChange.Kind)
	}

	// A vanishes and B slides down; both changes land in the trace.
	lb.SetPorts(transport.DirectionInput, "B")
	rec.events = nil
	reg.ScanAndDiff()
	require.Len(t, rec.events, 2)
	assert.Equal(t, "DISCONNECT", rec.events[0].PortChange.Kind)
	ren := rec.events[1].PortChange
	require.NotNil(t, ren)
	assert.Equal(t, "RENUMBER", ren.Kind)
	assert.Equal(t, "B", ren.Name)
	assert.Equal(t, 0, ren.Index)
	assert.Equal(t, 1, ren.PrevIndex)
}

func TestResetReportsEverythingAgain(t *testing.T) {
	reg, lb := newTestRegistry(t)
	lb.SetPorts(transport.DirectionInput, "QuNeo")

	require.Len(t, reg.ScanAndDiff(), 1)
	reg.Reset()
	events := reg.ScanAndDiff()
	require.Len(t, events, 1)
	assert.Equal(t, EventConnect, events[0].Kind)
}
