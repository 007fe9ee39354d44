package session

import (
	"github.com/kmi-protocol/kmidi-go/pkg/midi"
)

// parser decodes channel and system-common messages, latching status and
// channel so running-status continuations parse identically to fully
// formed messages.
type parser struct {
	status  byte
	channel byte
}

func (p *parser) reset() {
	p.status = 0
	p.channel = 0
}

// parse decodes one framed message into a RawEvent. ok is false when no
// status has been latched yet and the message has none of its own.
func (p *parser) parse(data []byte) (RawEvent, bool) {
	if len(data) == 0 {
		return RawEvent{}, false
	}

	var d1, d2 byte
	if midi.IsStatus(data[0]) {
		if midi.IsChannelStatus(data[0]) {
			p.status, p.channel = midi.Status(data[0])
		} else {
			// System messages carry no channel and do not affect the
			// latched running status.
			ev := RawEvent{Status: data[0]}
			if len(data) > 1 {
				ev.Data1 = data[1]
			}
			if len(data) > 2 {
				ev.Data2 = data[2]
			}
			return ev, true
		}
		if len(data) > 1 {
			d1 = data[1]
		}
		if len(data) > 2 {
			d2 = data[2]
		}
	} else {
		// Running status continuation.
		if p.status == 0 {
			return RawEvent{}, false
		}
		d1 = data[0]
		if len(data) > 1 {
			d2 = data[1]
		}
	}

	return RawEvent{
		Status:  p.status,
		Channel: p.channel,
		Data1:   d1,
		Data2:   d2,
	}, true
}
