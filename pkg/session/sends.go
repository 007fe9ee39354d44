package session

import (
	"github.com/kmi-protocol/kmidi-go/pkg/device"
	"github.com/kmi-protocol/kmidi-go/pkg/midi"
)

// Convenience senders. All of them queue on the outgoing buffer and are
// paced by Advance, like Send.

// SendNoteOn queues a note-on message.
func (s *Session) SendNoteOn(channel, note, velocity byte) error {
	return s.Send([]byte{midi.NoteOn | channel&0x0F, note & 0x7F, velocity & 0x7F})
}

// SendNoteOff queues a note-off message.
func (s *Session) SendNoteOff(channel, note, velocity byte) error {
	return s.Send([]byte{midi.NoteOff | channel&0x0F, note & 0x7F, velocity & 0x7F})
}

// SendControlChange queues a control-change message.
func (s *Session) SendControlChange(channel, controller, value byte) error {
	return s.Send([]byte{midi.ControlChange | channel&0x0F, controller & 0x7F, value & 0x7F})
}

// SendProgramChange queues a program-change message.
func (s *Session) SendProgramChange(channel, program byte) error {
	return s.Send([]byte{midi.ProgramChange | channel&0x0F, program & 0x7F})
}

// SendPitchBend queues a pitch-bend message with a 14-bit value.
func (s *Session) SendPitchBend(channel byte, value uint16) error {
	return s.Send([]byte{
		midi.PitchBend | channel&0x0F,
		byte(value) & 0x7F,
		byte(value>>7) & 0x7F,
	})
}

// SendSysEx queues a complete, already framed SysEx message.
func (s *Session) SendSysEx(data []byte) error {
	return s.Send(data)
}

// EnterBootloader sends the product's reboot-to-bootloader command outside
// of an update. The device drops off the bus and re-enumerates as its
// bootloader product.
func (s *Session) EnterBootloader() error {
	if !s.open {
		return ErrNotOpen
	}
	frame, err := device.EnterBootloaderCommand(s.cfg.Product)
	if err != nil {
		return err
	}
	return s.sendDirect(frame)
}
