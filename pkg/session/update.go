package session

import (
	"fmt"
	"time"

	"github.com/kmi-protocol/kmidi-go/pkg/device"
)

// UpdateState is the firmware update state machine position.
type UpdateState uint8

const (
	// UpdateIdle means no update is in progress.
	UpdateIdle UpdateState = iota

	// UpdateBegin is the entry state after RequestUpdate.
	UpdateBegin

	// UpdateGlobalsReqSend requests the device's user settings.
	UpdateGlobalsReqSend

	// UpdateGlobalsReqWait waits for the settings payload.
	UpdateGlobalsReqWait

	// UpdateGlobalsReceived holds the captured settings.
	UpdateGlobalsReceived

	// UpdateBLSend commands the device into its bootloader.
	UpdateBLSend

	// UpdateBLWait waits for the device to report bootloader mode.
	UpdateBLWait

	// UpdateBLMode means the device is in its bootloader.
	UpdateBLMode

	// UpdateFWSend streams the firmware image.
	UpdateFWSend

	// UpdateFWWait waits for the device to report the new firmware.
	UpdateFWWait

	// UpdateGlobalsSend writes the captured settings back.
	UpdateGlobalsSend

	// UpdateSuccess is the terminal success state.
	UpdateSuccess

	// UpdateFailed is the terminal failure state.
	UpdateFailed
)

// String returns the state name.
func (u UpdateState) String() string {
	switch u {
	case UpdateIdle:
		return "IDLE"
	case UpdateBegin:
		return "BEGIN"
	case UpdateGlobalsReqSend:
		return "GLOBALS_REQ_SEND"
	case UpdateGlobalsReqWait:
		return "GLOBALS_REQ_SENT_WAIT"
	case UpdateGlobalsReceived:
		return "GLOBALS_RCVD"
	case UpdateBLSend:
		return "BL_SEND"
	case UpdateBLWait:
		return "BL_SENT_WAIT"
	case UpdateBLMode:
		return "BL_MODE"
	case UpdateFWSend:
		return "FW_SEND"
	case UpdateFWWait:
		return "FW_SENT_WAIT"
	case UpdateGlobalsSend:
		return "GLOBALS_SEND"
	case UpdateSuccess:
		return "SUCCESS"
	case UpdateFailed:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// Re-send checkpoints inside a wait state, as elapsed time of the wait
// window. With the default 35s window these leave roughly 22s, 12s and 5s
// remaining. A rebooting device must not be flooded every tick.
var resendCheckpoints = []time.Duration{
	13 * time.Second,
	23 * time.Second,
	30 * time.Second,
}

// updateSession is one firmware update attempt. Exactly one instance lives
// per Session; it is reset to idle on success or failure.
type updateSession struct {
	state       UpdateState
	saveGlobals bool
	entered     time.Time // when the current wait state was entered
	checkpoint  int       // next resend checkpoint index
	globals     []byte
}

// progressFor maps each announced state to its percentage.
func progressFor(state UpdateState) (int, string) {
	switch state {
	case UpdateBegin:
		return 10, "starting firmware update"
	case UpdateGlobalsReqSend:
		return 20, "reading user settings"
	case UpdateGlobalsReceived:
		return 30, "user settings saved"
	case UpdateBLSend:
		return 40, "rebooting into bootloader"
	case UpdateBLMode:
		return 50, "bootloader ready"
	case UpdateFWSend:
		return 90, "sending firmware image"
	case UpdateSuccess:
		return 100, "firmware update complete"
	default:
		return -1, ""
	}
}

// UpdateState returns the current firmware update state.
func (s *Session) UpdateState() UpdateState { return s.update.state }

// LoadFirmware stages the firmware image a future update will flash.
func (s *Session) LoadFirmware(image []byte) {
	s.firmware = append([]byte(nil), image...)
}

// LoadBootloaderImage stages an optional bootloader image sent before the
// firmware on devices whose bootloader is also field-updated.
func (s *Session) LoadBootloaderImage(image []byte) {
	s.bootloader = append([]byte(nil), image...)
}

// RequestUpdate starts the firmware update state machine. saveGlobals
// selects the read-back-and-restore branch for devices that lose their
// user settings when flashed. The machine advances on subsequent Advance
// calls.
func (s *Session) RequestUpdate(saveGlobals bool) error {
	switch {
	case !s.open:
		return ErrNotOpen
	case s.update.state != UpdateIdle:
		return fmt.Errorf("%w: state %s", ErrUpdateBusy, s.update.state)
	case len(s.firmware) == 0:
		return ErrNoFirmware
	case s.identity.Expected.IsZero():
		return ErrNoExpectedVersion
	}
	s.update = updateSession{state: UpdateBegin, saveGlobals: saveGlobals}
	s.announceUpdate(UpdateIdle, UpdateBegin, "requested")
	if pct, text := progressFor(UpdateBegin); pct >= 0 {
		s.emitProgress(pct, text)
	}
	return nil
}

// advanceUpdate runs one tick of the update machine.
func (s *Session) advanceUpdate(now time.Time) {
	u := &s.update
	switch u.state {
	case UpdateIdle, UpdateSuccess, UpdateFailed:
		return

	case UpdateBegin:
		if u.saveGlobals {
			s.setUpdateState(UpdateGlobalsReqSend, "preserving user settings")
		} else {
			s.setUpdateState(UpdateBLSend, "device keeps settings in flash")
		}

	case UpdateGlobalsReqSend:
		frame, err := device.GlobalsRequestCommand(s.cfg.Product)
		if err != nil {
			s.failUpdate("encode globals request: " + err.Error())
			return
		}
		if err := s.sendDirect(frame); err != nil {
			s.failUpdate("send globals request: " + err.Error())
			return
		}
		u.entered = now
		u.checkpoint = 0
		s.setUpdateState(UpdateGlobalsReqWait, "")

	case UpdateGlobalsReqWait:
		s.waitTick(now, func() {
			frame, err := device.GlobalsRequestCommand(s.cfg.Product)
			if err == nil {
				_ = s.sendDirect(frame)
			}
		})

	case UpdateGlobalsReceived:
		s.setUpdateState(UpdateBLSend, "")

	case UpdateBLSend:
		frame, err := device.EnterBootloaderCommand(s.cfg.Product)
		if err != nil {
			s.failUpdate("encode bootloader command: " + err.Error())
			return
		}
		if err := s.sendDirect(frame); err != nil {
			s.failUpdate("send bootloader command: " + err.Error())
			return
		}
		if len(s.bootloader) > 0 {
			if !s.outbuf.push(s.bootloader) {
				s.overflow()
				s.failUpdate("bootloader image overflowed the outgoing buffer")
				return
			}
		}
		// The inquiry that detects bootloader mode rides behind the
		// image so ordering is preserved.
		if !s.outbuf.push(device.UniversalInquiry) {
			s.overflow()
			s.failUpdate("outgoing buffer overflow")
			return
		}
		u.entered = now
		u.checkpoint = 0
		s.setUpdateState(UpdateBLWait, "")

	case UpdateBLWait:
		s.waitTick(now, func() {
			_ = s.sendDirect(device.UniversalInquiry)
		})

	case UpdateBLMode:
		s.setUpdateState(UpdateFWSend, "")

	case UpdateFWSend:
		if !s.outbuf.push(s.firmware) || !s.outbuf.push(device.UniversalInquiry) {
			s.overflow()
			s.failUpdate("firmware image overflowed the outgoing buffer")
			return
		}
		u.entered = now
		u.checkpoint = 0
		s.setUpdateState(UpdateFWWait, "")

	case UpdateFWWait:
		s.waitTick(now, func() {
			_ = s.sendDirect(device.UniversalInquiry)
		})

	case UpdateGlobalsSend:
		frame, err := device.GlobalsDataCommand(s.cfg.Product, u.globals)
		if err != nil {
			s.failUpdate("encode globals write: " + err.Error())
			return
		}
		if err := s.sendDirect(frame); err != nil {
			s.failUpdate("send globals write: " + err.Error())
			return
		}
		s.finishUpdate()
	}
}

// waitTick handles the shared wait-state bookkeeping: fail on window
// expiry, otherwise re-send the outstanding request when a checkpoint is
// crossed.
func (s *Session) waitTick(now time.Time, resend func()) {
	u := &s.update
	elapsed := now.Sub(u.entered)
	if elapsed >= s.cfg.UpdateWindow {
		s.failUpdate(fmt.Sprintf("no reply within %s", s.cfg.UpdateWindow))
		return
	}
	if u.checkpoint < len(resendCheckpoints) && elapsed >= resendCheckpoints[u.checkpoint] {
		u.checkpoint++
		resend()
	}
}

// handleUpdatePacket routes a decoded vendor packet into the machine.
// Returns true when the packet was update traffic.
func (s *Session) handleUpdatePacket(category, typ byte, payload []byte) bool {
	u := &s.update
	if u.state == UpdateGlobalsReqWait && category == device.CategorySystem && typ == device.TypeGlobalsData {
		u.globals = append([]byte(nil), payload...)
		s.setUpdateState(UpdateGlobalsReceived, "")
		return true
	}
	return false
}

// handleUpdateIdentity routes a parsed identity reply into the machine.
func (s *Session) handleUpdateIdentity(r device.Reply) {
	u := &s.update
	switch u.state {
	case UpdateBLWait:
		if r.BootloaderMode {
			s.setUpdateState(UpdateBLMode, "")
		}
	case UpdateFWWait:
		if !r.BootloaderMode && r.Firmware == s.identity.Expected {
			if u.saveGlobals && len(u.globals) > 0 {
				s.setUpdateState(UpdateGlobalsSend, "restoring user settings")
			} else {
				s.finishUpdate()
			}
		}
	}
}

// finishUpdate reaches SUCCESS and resets to idle.
func (s *Session) finishUpdate() {
	s.setUpdateState(UpdateSuccess, "")
	s.update = updateSession{}
}

// failUpdate reaches FAIL, reports it and resets to idle so a fresh
// attempt can be requested.
func (s *Session) failUpdate(reason string) {
	old := s.update.state
	s.update = updateSession{}
	s.announceUpdate(old, UpdateFailed, reason)
	s.emitProgress(-1, "firmware update failed: "+reason)
	s.emitFault(fmt.Errorf("%w: %s", ErrUpdateFailed, reason))
}

// setUpdateState moves the machine and announces progress.
func (s *Session) setUpdateState(next UpdateState, reason string) {
	old := s.update.state
	s.update.state = next
	s.announceUpdate(old, next, reason)
	if pct, text := progressFor(next); pct >= 0 {
		s.emitProgress(pct, text)
	}
}

// resetUpdate cancels any in-flight update without announcing progress,
// used when ports close underneath the machine.
func (s *Session) resetUpdate(reason string) {
	if s.update.state == UpdateIdle {
		return
	}
	old := s.update.state
	s.update = updateSession{}
	s.announceUpdate(old, UpdateIdle, reason)
}
