package session

import (
	"github.com/kmi-protocol/kmidi-go/pkg/midi"
)

// channelParams is the RPN/NRPN assembly state for one MIDI channel.
// dataLSB is an int because increment can push it past the 7-bit range,
// up to the 255 clamp.
type channelParams struct {
	mode     ParamMode
	addrMSB  byte
	addrLSB  byte
	dataMSB  byte
	dataLSB  int
	seenLSB  bool
	lastSent int // last transmitted parameter number, -1 = none
}

// paramState tracks parameter assembly per channel.
type paramState [midi.NumChannels]channelParams

func (ps *paramState) reset() {
	for i := range ps {
		ps[i] = channelParams{lastSent: -1}
	}
}

// handleCC feeds one control-change into the assembler. It returns an
// assembled event when the message completes a 14-bit value, and reports
// whether the controller belonged to the parameter family at all.
func (ps *paramState) handleCC(channel, cc, value byte) (ParamEvent, bool, bool) {
	c := &ps[channel&0x0F]

	switch cc {
	case midi.CCNRPNMSB:
		c.mode = ModeNRPN
		c.addrMSB = value
	case midi.CCNRPNLSB:
		c.mode = ModeNRPN
		c.addrLSB = value
	case midi.CCRPNMSB:
		c.mode = ModeRPN
		c.addrMSB = value
	case midi.CCRPNLSB:
		c.mode = ModeRPN
		c.addrLSB = value
	case midi.CCDataMSB:
		c.dataMSB = value
	case midi.CCDataLSB:
		c.dataLSB = int(value)
		c.seenLSB = true
		return ps.emit(channel)
	case midi.CCDataInc:
		if c.dataLSB < 255 {
			c.dataLSB++
		}
		return ps.emit(channel)
	case midi.CCDataDec:
		if c.dataLSB > 0 {
			c.dataLSB--
		}
		return ps.emit(channel)
	default:
		return ParamEvent{}, false, false
	}
	return ParamEvent{}, false, true
}

// emit builds the event for a complete value. A value is complete only
// once an address has been latched and a data LSB has been seen for the
// current mode.
func (ps *paramState) emit(channel byte) (ParamEvent, bool, bool) {
	c := &ps[channel&0x0F]
	if c.mode == ModeNone || !c.seenLSB {
		return ParamEvent{}, false, true
	}
	return ParamEvent{
		Channel: channel & 0x0F,
		Mode:    c.mode,
		Param:   uint16(c.addrMSB)<<7 | uint16(c.addrLSB),
		Value:   uint16(c.dataMSB)<<7 | uint16(c.dataLSB),
	}, true, true
}

// nrpnBytes builds the CC run for transmitting one NRPN value. Address
// bytes are resent only when the parameter number changed since the last
// transmission on this channel.
func (ps *paramState) nrpnBytes(channel byte, param, value uint16) []byte {
	c := &ps[channel&0x0F]
	status := midi.ControlChange | channel&0x0F

	var out []byte
	if c.lastSent != int(param) {
		out = append(out,
			status, midi.CCNRPNMSB, byte(param>>7)&0x7F,
			status, midi.CCNRPNLSB, byte(param)&0x7F,
		)
		c.lastSent = int(param)
	}
	return append(out,
		status, midi.CCDataMSB, byte(value>>7)&0x7F,
		status, midi.CCDataLSB, byte(value)&0x7F,
	)
}
