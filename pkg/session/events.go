package session

import (
	"github.com/kmi-protocol/kmidi-go/pkg/device"
	"github.com/kmi-protocol/kmidi-go/pkg/sysex"
)

// RawEvent is the fully decoded form of one channel or system-common
// message, emitted for every parsed message to allow pass-through routing.
type RawEvent struct {
	Status  byte // status with channel bits masked off
	Channel byte // zero for system messages
	Data1   byte
	Data2   byte
}

// ParamMode distinguishes registered from non-registered parameters.
type ParamMode uint8

const (
	// ModeNone means no parameter address has been latched yet.
	ModeNone ParamMode = iota

	// ModeRPN is a registered parameter (CC100/101 addressing).
	ModeRPN

	// ModeNRPN is a non-registered parameter (CC98/99 addressing).
	ModeNRPN
)

// String returns the mode name.
func (m ParamMode) String() string {
	switch m {
	case ModeRPN:
		return "RPN"
	case ModeNRPN:
		return "NRPN"
	default:
		return "NONE"
	}
}

// ParamEvent is one assembled 14-bit parameter value.
type ParamEvent struct {
	Channel byte
	Mode    ParamMode
	Param   uint16
	Value   uint16
}

// callbacks holds the observer functions the host registers. Unset
// callbacks are skipped.
type callbacks struct {
	connection  func(connected bool)
	fwMatch     func(id device.Identity)
	fwMismatch  func(id device.Identity)
	bootloader  func()
	progress    func(percent int, text string)
	raw         func(ev RawEvent)
	noteOn      func(channel, note, velocity byte)
	noteOff     func(channel, note, velocity byte)
	polyAT      func(channel, note, pressure byte)
	control     func(channel, controller, value byte)
	program     func(channel, program byte)
	pressure    func(channel, pressure byte)
	pitchBend   func(channel byte, value uint16)
	system      func(status, data1, data2 byte)
	param       func(ev ParamEvent)
	packet      func(pkt sysex.Packet)
	sysEx       func(data []byte)
	fault       func(err error)
	portChanged func(inIndex, outIndex int)
}

// OnConnectionState registers fn for connection state changes.
func (s *Session) OnConnectionState(fn func(connected bool)) { s.cb.connection = fn }

// OnFirmwareMatch registers fn for a handshake whose reported firmware
// equals the expected firmware.
func (s *Session) OnFirmwareMatch(fn func(id device.Identity)) { s.cb.fwMatch = fn }

// OnFirmwareMismatch registers fn for a handshake whose reported firmware
// differs from the expected firmware.
func (s *Session) OnFirmwareMismatch(fn func(id device.Identity)) { s.cb.fwMismatch = fn }

// OnBootloaderMode registers fn for the device reporting bootloader mode.
func (s *Session) OnBootloaderMode(fn func()) { s.cb.bootloader = fn }

// OnProgress registers fn for firmware update progress reports.
func (s *Session) OnProgress(fn func(percent int, text string)) { s.cb.progress = fn }

// OnRawMessage registers fn for every parsed channel/system message.
func (s *Session) OnRawMessage(fn func(ev RawEvent)) { s.cb.raw = fn }

// OnNoteOn registers fn for note-on messages.
func (s *Session) OnNoteOn(fn func(channel, note, velocity byte)) { s.cb.noteOn = fn }

// OnNoteOff registers fn for note-off messages.
func (s *Session) OnNoteOff(fn func(channel, note, velocity byte)) { s.cb.noteOff = fn }

// OnPolyAftertouch registers fn for polyphonic aftertouch messages.
func (s *Session) OnPolyAftertouch(fn func(channel, note, pressure byte)) { s.cb.polyAT = fn }

// OnControlChange registers fn for control-change messages. Parameter
// family controllers (6/38/96-101) go to the assembler instead; they still
// reach the raw callback.
func (s *Session) OnControlChange(fn func(channel, controller, value byte)) { s.cb.control = fn }

// OnProgramChange registers fn for program-change messages.
func (s *Session) OnProgramChange(fn func(channel, program byte)) { s.cb.program = fn }

// OnChannelPressure registers fn for channel-pressure messages.
func (s *Session) OnChannelPressure(fn func(channel, pressure byte)) { s.cb.pressure = fn }

// OnPitchBend registers fn for pitch-bend messages with the assembled
// 14-bit value.
func (s *Session) OnPitchBend(fn func(channel byte, value uint16)) { s.cb.pitchBend = fn }

// OnSystemMessage registers fn for system-common and realtime messages.
func (s *Session) OnSystemMessage(fn func(status, data1, data2 byte)) { s.cb.system = fn }

// OnParameter registers fn for assembled NRPN/RPN values.
func (s *Session) OnParameter(fn func(ev ParamEvent)) { s.cb.param = fn }

// OnPacket registers fn for decoded vendor SysEx packets that are not
// identity or update traffic.
func (s *Session) OnPacket(fn func(pkt sysex.Packet)) { s.cb.packet = fn }

// OnSysEx registers fn for foreign SysEx passed through undecoded.
func (s *Session) OnSysEx(fn func(data []byte)) { s.cb.sysEx = fn }

// OnFault registers fn for faults (feedback loop, buffer overflow,
// transport failures).
func (s *Session) OnFault(fn func(err error)) { s.cb.fault = fn }

// OnPortChanged registers fn for transparent port reopens after an OS
// renumber.
func (s *Session) OnPortChanged(fn func(inIndex, outIndex int)) { s.cb.portChanged = fn }
