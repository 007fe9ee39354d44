package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmi-protocol/kmidi-go/pkg/midi"
)

func TestNRPNAssembly(t *testing.T) {
	var ps paramState
	ps.reset()

	feed := func(cc, val byte) (ParamEvent, bool) {
		ev, emitted, handled := ps.handleCC(2, cc, val)
		require.True(t, handled)
		return ev, emitted
	}

	_, emitted := feed(midi.CCNRPNMSB, 0)
	assert.False(t, emitted)
	_, emitted = feed(midi.CCNRPNLSB, 5)
	assert.False(t, emitted)
	_, emitted = feed(midi.CCDataMSB, 1)
	assert.False(t, emitted)

	// Exactly one event, on the data LSB.
	ev, emitted := feed(midi.CCDataLSB, 0)
	require.True(t, emitted)
	assert.Equal(t, ParamEvent{Channel: 2, Mode: ModeNRPN, Param: 5, Value: 128}, ev)

	// Increment bumps the LSB and re-emits immediately.
	ev, emitted = feed(midi.CCDataInc, 0)
	require.True(t, emitted)
	assert.EqualValues(t, 129, ev.Value)
}

func TestDecrementClampsAtZero(t *testing.T) {
	var ps paramState
	ps.reset()

	ps.handleCC(0, midi.CCNRPNMSB, 0)
	ps.handleCC(0, midi.CCNRPNLSB, 1)
	ps.handleCC(0, midi.CCDataMSB, 0)
	ev, emitted, _ := ps.handleCC(0, midi.CCDataLSB, 0)
	require.True(t, emitted)
	require.EqualValues(t, 0, ev.Value)

	for i := 0; i < 3; i++ {
		ev, emitted, _ = ps.handleCC(0, midi.CCDataDec, 0)
		require.True(t, emitted)
		assert.EqualValues(t, 0, ev.Value)
	}
}

func TestIncrementClampsAt255(t *testing.T) {
	var ps paramState
	ps.reset()

	ps.handleCC(0, midi.CCNRPNMSB, 0)
	ps.handleCC(0, midi.CCNRPNLSB, 1)
	ps.handleCC(0, midi.CCDataMSB, 0)
	ps.handleCC(0, midi.CCDataLSB, 127)

	var ev ParamEvent
	for i := 0; i < 200; i++ {
		ev, _, _ = ps.handleCC(0, midi.CCDataInc, 0)
	}
	assert.EqualValues(t, 255, ev.Value)
}

func TestRPNAssembly(t *testing.T) {
	var ps paramState
	ps.reset()

	ps.handleCC(3, midi.CCRPNMSB, 0)
	ps.handleCC(3, midi.CCRPNLSB, 0)
	ps.handleCC(3, midi.CCDataMSB, 12)
	ev, emitted, _ := ps.handleCC(3, midi.CCDataLSB, 34)
	require.True(t, emitted)
	assert.Equal(t, ParamEvent{Channel: 3, Mode: ModeRPN, Param: 0, Value: 12<<7 | 34}, ev)
}

func TestNoEmitBeforeAddressAndLSB(t *testing.T) {
	var ps paramState
	ps.reset()

	// Data before any address: nothing is complete.
	_, emitted, handled := ps.handleCC(0, midi.CCDataLSB, 10)
	assert.True(t, handled)
	assert.False(t, emitted)

	_, emitted, _ = ps.handleCC(0, midi.CCDataInc, 0)
	assert.False(t, emitted)
}

func TestNonParameterCCNotHandled(t *testing.T) {
	var ps paramState
	ps.reset()
	_, emitted, handled := ps.handleCC(0, 7, 100)
	assert.False(t, handled)
	assert.False(t, emitted)
}

func TestParamStateIsPerChannel(t *testing.T) {
	var ps paramState
	ps.reset()

	ps.handleCC(1, midi.CCNRPNMSB, 0)
	ps.handleCC(1, midi.CCNRPNLSB, 9)
	ps.handleCC(1, midi.CCDataMSB, 1)

	// Channel 4 has no address latched; its LSB emits nothing.
	_, emitted, _ := ps.handleCC(4, midi.CCDataLSB, 0)
	assert.False(t, emitted)

	ev, emitted, _ := ps.handleCC(1, midi.CCDataLSB, 0)
	require.True(t, emitted)
	assert.EqualValues(t, 9, ev.Param)
}

func TestNRPNTransmitDedup(t *testing.T) {
	var ps paramState
	ps.reset()

	first := ps.nrpnBytes(0, 260, 1000)
	require.Len(t, first, 12)
	assert.Equal(t, []byte{
		0xB0, midi.CCNRPNMSB, 2, 0xB0, midi.CCNRPNLSB, 4,
		0xB0, midi.CCDataMSB, 7, 0xB0, midi.CCDataLSB, 104,
	}, first)

	// Same parameter again: address bytes are suppressed.
	second := ps.nrpnBytes(0, 260, 42)
	assert.Equal(t, []byte{
		0xB0, midi.CCDataMSB, 0, 0xB0, midi.CCDataLSB, 42,
	}, second)

	// Different parameter: address bytes come back.
	third := ps.nrpnBytes(0, 5, 42)
	assert.Len(t, third, 12)
}
