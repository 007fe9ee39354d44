package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackEnumerateAndRenumber(t *testing.T) {
	lb := NewLoopback()
	lb.SetPorts(DirectionInput, "SSCOM Port 1", "QUNEO")

	infos, err := lb.Enumerate(DirectionInput)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, PortInfo{Index: 0, Name: "SSCOM Port 1"}, infos[0])
	assert.Equal(t, PortInfo{Index: 1, Name: "QUNEO"}, infos[1])

	lb.RemovePort(DirectionInput, "SSCOM Port 1")
	infos, err = lb.Enumerate(DirectionInput)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, PortInfo{Index: 0, Name: "QUNEO"}, infos[0])
}

func TestLoopbackEnumerateFailure(t *testing.T) {
	lb := NewLoopback()
	lb.SetPorts(DirectionOutput, "QUNEO")
	lb.FailEnumeration(DirectionOutput, errors.New("driver wedged"))

	_, err := lb.Enumerate(DirectionOutput)
	require.Error(t, err)

	lb.FailEnumeration(DirectionOutput, nil)
	infos, err := lb.Enumerate(DirectionOutput)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestLoopbackInjectAndSend(t *testing.T) {
	lb := NewLoopback()
	lb.SetPorts(DirectionInput, "QUNEO")
	lb.SetPorts(DirectionOutput, "QUNEO")

	var got [][]byte
	in, err := lb.OpenInput(0, func(ts int32, data []byte) {
		got = append(got, data)
	})
	require.NoError(t, err)

	lb.Inject("QUNEO", 0, []byte{0x90, 0x3C, 0x40})
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0x90, 0x3C, 0x40}, got[0])

	out, err := lb.OpenOutput(0)
	require.NoError(t, err)
	require.NoError(t, out.Send([]byte{0xB0, 0x07, 0x64}))
	sent := lb.Sent("QUNEO")
	require.Len(t, sent, 1)
	assert.Equal(t, []byte{0xB0, 0x07, 0x64}, sent[0])

	// Closed ports refuse traffic.
	require.NoError(t, out.Close())
	assert.ErrorIs(t, out.Send([]byte{0xFE}), ErrPortClosed)

	require.NoError(t, in.Close())
	lb.Inject("QUNEO", 0, []byte{0xFE})
	assert.Len(t, got, 1)
}

func TestLoopbackScriptedPeer(t *testing.T) {
	lb := NewLoopback()
	lb.SetPorts(DirectionInput, "QUNEO")
	lb.SetPorts(DirectionOutput, "QUNEO")

	// A device that answers every message with a note-off.
	lb.WireOutput("QUNEO", func(data []byte) {
		lb.Inject("QUNEO", 0, []byte{0x80, 0x3C, 0x00})
	})

	var got [][]byte
	_, err := lb.OpenInput(0, func(ts int32, data []byte) {
		got = append(got, data)
	})
	require.NoError(t, err)

	out, err := lb.OpenOutput(0)
	require.NoError(t, err)
	require.NoError(t, out.Send([]byte{0x90, 0x3C, 0x40}))

	require.Len(t, got, 1)
	assert.Equal(t, []byte{0x80, 0x3C, 0x00}, got[0])
}

func TestLoopbackEcho(t *testing.T) {
	lb := NewLoopback()
	lb.SetPorts(DirectionInput, "QUNEO")
	lb.SetPorts(DirectionOutput, "QUNEO")
	lb.WireEcho("QUNEO", "QUNEO")

	var got [][]byte
	_, err := lb.OpenInput(0, func(ts int32, data []byte) {
		got = append(got, data)
	})
	require.NoError(t, err)

	out, err := lb.OpenOutput(0)
	require.NoError(t, err)
	require.NoError(t, out.Send([]byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF7}))

	require.Len(t, got, 1)
	assert.Equal(t, []byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF7}, got[0])
}

func TestLoopbackOpenMissingPort(t *testing.T) {
	lb := NewLoopback()
	_, err := lb.OpenInput(0, func(int32, []byte) {})
	assert.ErrorIs(t, err, ErrPortNotFound)
	_, err = lb.OpenOutput(3)
	assert.ErrorIs(t, err, ErrPortNotFound)
}
