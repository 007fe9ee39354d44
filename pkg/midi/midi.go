// Package midi provides the MIDI constants and status-byte helpers shared by
// the rest of the stack.
package midi

// Channel voice status bytes (high nibble; low nibble carries the channel).
const (
	NoteOff         byte = 0x80
	NoteOn          byte = 0x90
	PolyAftertouch  byte = 0xA0
	ControlChange   byte = 0xB0
	ProgramChange   byte = 0xC0
	ChannelPressure byte = 0xD0
	PitchBend       byte = 0xE0
)

// System common and real-time status bytes.
const (
	SysExStart   byte = 0xF0
	MTC          byte = 0xF1
	SongPosition byte = 0xF2
	SongSelect   byte = 0xF3
	TuneRequest  byte = 0xF6
	SysExStop    byte = 0xF7
	Clock        byte = 0xF8
	Start        byte = 0xFA
	Continue     byte = 0xFB
	Stop         byte = 0xFC
	ActiveSense  byte = 0xFE
	Reset        byte = 0xFF
)

// Registered/non-registered parameter controller numbers.
const (
	CCDataMSB byte = 6
	CCDataLSB byte = 38
	CCDataInc byte = 96
	CCDataDec byte = 97
	CCNRPNLSB byte = 98
	CCNRPNMSB byte = 99
	CCRPNLSB  byte = 100
	CCRPNMSB  byte = 101
)

// Universal SysEx bytes used by the identity handshake.
const (
	SysExUniversal   byte = 0x7E
	SysExAddrIgnore  byte = 0x7F
	SysExInfoRequest byte = 0x06
	SysExDevIDReq    byte = 0x01
	SysExDevIDReply  byte = 0x02
)

// NumChannels is the number of MIDI channels.
const NumChannels = 16

// IsStatus reports whether b is a status byte (as opposed to a data byte).
func IsStatus(b byte) bool {
	return b >= 0x80
}

// IsChannelStatus reports whether b is a channel voice status byte.
func IsChannelStatus(b byte) bool {
	return b >= 0x80 && b < 0xF0
}

// Status splits a channel status byte into its message type and channel.
func Status(b byte) (status, channel byte) {
	return b & 0xF0, b & 0x0F
}

// Word14 assembles a 14-bit value from its 7-bit MSB and LSB.
func Word14(msb, lsb byte) int {
	return int(msb&0x7F)<<7 | int(lsb&0x7F)
}
