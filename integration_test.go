package kmidi_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmi-protocol/kmidi-go/pkg/device"
	"github.com/kmi-protocol/kmidi-go/pkg/ports"
	"github.com/kmi-protocol/kmidi-go/pkg/session"
	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// standardReply builds a universal identity reply for the scripted device.
func standardReply(pid device.ProductID, blMode byte, bl, fw device.Version) []byte {
	msg := make([]byte, 19)
	copy(msg, []byte{0xF0, 0x7E, 0x00, 0x06, 0x02, 0x00, 0x01, 0x5F})
	msg[8] = byte(pid>>7) & 0x7F
	msg[9] = byte(pid) & 0x7F
	msg[10] = blMode
	copy(msg[12:15], bl[:])
	copy(msg[15:18], fw[:])
	msg[18] = 0xF7
	return msg
}

// TestE2E_ConnectAndListen walks the full host path: the OS reports raw
// port names, the registry normalizes them, the session opens by logical
// name, identifies the device, and decodes its traffic.
func TestE2E_ConnectAndListen(t *testing.T) {
	tr := transport.NewLoopback()
	// OS names differ from the logical names the application binds to.
	tr.SetPorts(transport.DirectionInput, "QuNexus KEYBOARD 1", "QuNexus KEYBOARD 3")
	tr.SetPorts(transport.DirectionOutput, "QuNexus KEYBOARD 3")

	reg := ports.NewRegistry(tr, nil)
	events := reg.ScanAndDiff()
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, ports.EventConnect, ev.Kind)
	}

	tr.WireOutput("QuNexus KEYBOARD 3", func(data []byte) {
		if string(data) == string(device.UniversalInquiry) {
			tr.Inject("QuNexus KEYBOARD 3", 0, standardReply(
				device.ProductQuNexus, 0,
				device.Version{1, 0, 2}, device.Version{2, 2, 0}))
		}
	})

	s, err := session.NewSession(tr, session.Config{
		Product:    device.ProductQuNexus,
		InputName:  "QuNexus Port 3",
		OutputName: "QuNexus Port 3",
		Registry:   reg,
	})
	require.NoError(t, err)
	require.NoError(t, s.Open())

	var params []session.ParamEvent
	var notes int
	s.OnParameter(func(ev session.ParamEvent) { params = append(params, ev) })
	s.OnNoteOn(func(_, _, _ byte) { notes++ })

	s.Advance(time.Unix(1000, 0))
	require.True(t, s.Connected())
	assert.Equal(t, device.Version{2, 2, 0}, s.Identity().Firmware)
	assert.True(t, s.Identity().FirmwareCurrent())

	// Live traffic: a note and an NRPN run, with running status.
	tr.Inject("QuNexus KEYBOARD 3", 0, []byte{0x90, 0x3C, 0x64})
	tr.Inject("QuNexus KEYBOARD 3", 0, []byte{0xB0, 99, 1})
	tr.Inject("QuNexus KEYBOARD 3", 0, []byte{98, 4})
	tr.Inject("QuNexus KEYBOARD 3", 0, []byte{6, 0})
	tr.Inject("QuNexus KEYBOARD 3", 0, []byte{38, 11})

	assert.Equal(t, 1, notes)
	require.Len(t, params, 1)
	assert.Equal(t, session.ParamEvent{
		Channel: 0, Mode: session.ModeNRPN, Param: 1<<7 | 4, Value: 11,
	}, params[0])
}

// TestE2E_RenumberAndHeal unplugs an unrelated device and checks the
// session follows its port to the new index without dropping the
// connection state.
func TestE2E_RenumberAndHeal(t *testing.T) {
	tr := transport.NewLoopback()
	tr.SetPorts(transport.DirectionInput, "Other Gear", "QuNexus KEYBOARD 3")
	tr.SetPorts(transport.DirectionOutput, "QuNexus KEYBOARD 3")
	reg := ports.NewRegistry(tr, nil)
	reg.ScanAndDiff()

	s, err := session.NewSession(tr, session.Config{
		Product:    device.ProductQuNexus,
		InputName:  "QuNexus Port 3",
		OutputName: "QuNexus Port 3",
		Registry:   reg,
	})
	require.NoError(t, err)
	require.NoError(t, s.Open())

	var moves int
	s.OnPortChanged(func(in, out int) {
		moves++
		assert.Equal(t, 0, in)
	})

	now := time.Unix(1000, 0)
	s.Advance(now)
	require.Zero(t, moves)

	tr.RemovePort(transport.DirectionInput, "Other Gear")

	// The registry reports the disconnect and the renumber, the session
	// heals.
	events := reg.ScanAndDiff()
	require.Len(t, events, 2)
	assert.Equal(t, ports.EventDisconnect, events[0].Kind)
	assert.Equal(t, ports.EventRenumber, events[1].Kind)

	s.Advance(now.Add(time.Second))
	assert.Equal(t, 1, moves)

	var notes int
	s.OnNoteOn(func(_, _, _ byte) { notes++ })
	tr.Inject("QuNexus KEYBOARD 3", 0, []byte{0x90, 0x30, 0x40})
	assert.Equal(t, 1, notes)
}

// TestE2E_FirmwareUpdate runs the whole update conversation against a
// scripted SoftStep, including the settings round trip.
func TestE2E_FirmwareUpdate(t *testing.T) {
	const product = device.ProductSoftStep3
	fwImage := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x10, 0x20, 0x30, 0x40}
	globals := []byte{9, 8, 7}

	tr := transport.NewLoopback()
	tr.SetPorts(transport.DirectionInput, "SoftStep Control Surface")
	tr.SetPorts(transport.DirectionOutput, "SoftStep Control Surface")

	globalsReq, err := device.GlobalsRequestCommand(product)
	require.NoError(t, err)
	enterBL, err := device.EnterBootloaderCommand(product)
	require.NoError(t, err)
	globalsData, err := device.GlobalsDataCommand(product, globals)
	require.NoError(t, err)

	var pending [][]byte
	var inBootloader, flashed bool
	var seen []byte
	tr.WireOutput("SoftStep Control Surface", func(data []byte) {
		switch {
		case bytes.Equal(data, globalsReq):
			pending = append(pending, globalsData)
		case bytes.Equal(data, enterBL):
			inBootloader = true
		default:
			if inBootloader {
				seen = append(seen, data...)
			}
			if bytes.Contains(seen, fwImage) {
				flashed = true
			}
			if bytes.Contains(data, device.UniversalInquiry) {
				switch {
				case flashed:
					pending = append(pending, standardReply(product, 0,
						device.Version{1, 0, 0}, device.Version{2, 0, 5}))
				case inBootloader:
					pending = append(pending, standardReply(product, 1,
						device.Version{1, 0, 0}, device.Version{}))
				}
			}
		}
	})

	s, err := session.NewSession(tr, session.Config{
		Product:          product,
		InputName:        "SoftStep Control Surface",
		OutputName:       "SoftStep Control Surface",
		ExpectedFirmware: device.Version{2, 0, 5},
	})
	require.NoError(t, err)
	require.NoError(t, s.OpenAt(0, 0))

	var progress []int
	s.OnProgress(func(pct int, _ string) { progress = append(progress, pct) })

	s.LoadFirmware(fwImage)
	require.NoError(t, s.RequestUpdate(true))

	now := time.Unix(1000, 0)
	for i := 0; i < 30 && s.UpdateState() != session.UpdateIdle; i++ {
		replies := pending
		pending = nil
		for _, f := range replies {
			tr.Inject("SoftStep Control Surface", 0, f)
		}
		now = now.Add(time.Millisecond)
		s.Advance(now)
	}

	assert.Equal(t, session.UpdateIdle, s.UpdateState())
	assert.Equal(t, []int{10, 20, 30, 40, 50, 90, 100}, progress)
	assert.True(t, flashed)
}
