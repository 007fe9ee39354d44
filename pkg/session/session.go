package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kmi-protocol/kmidi-go/pkg/device"
	"github.com/kmi-protocol/kmidi-go/pkg/log"
	"github.com/kmi-protocol/kmidi-go/pkg/midi"
	"github.com/kmi-protocol/kmidi-go/pkg/ports"
	"github.com/kmi-protocol/kmidi-go/pkg/sysex"
	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// Session errors.
var (
	// ErrNotOpen indicates an operation on a session without open ports.
	ErrNotOpen = errors.New("session not open")

	// ErrPortUnavailable indicates a named port is not currently visible.
	ErrPortUnavailable = errors.New("port unavailable")

	// ErrUpdateBusy indicates a firmware update is already in progress.
	ErrUpdateBusy = errors.New("firmware update already in progress")

	// ErrNoFirmware indicates RequestUpdate without a staged image.
	ErrNoFirmware = errors.New("no firmware image loaded")

	// ErrNoExpectedVersion indicates RequestUpdate without a target version.
	ErrNoExpectedVersion = errors.New("no expected firmware version set")

	// ErrUpdateFailed wraps the reason a firmware update failed.
	ErrUpdateFailed = errors.New("firmware update failed")

	// ErrFeedbackLoop is fatal: the output port is wired into the input
	// port. Both ports are force-closed; operator intervention required.
	ErrFeedbackLoop = errors.New("midi feedback loop detected")

	// ErrBufferOverflow indicates the pending outgoing bytes exceeded the
	// hard cap and were discarded.
	ErrBufferOverflow = errors.New("outgoing buffer overflow")
)

// Session defaults.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultUpdateWindow = 35 * time.Second
	DefaultChunkSize    = 48
	DefaultChunkDelay   = time.Millisecond
	DefaultMaxPending   = 256 * 1024

	// healInterval paces the port name re-resolution.
	healInterval = time.Second
)

// Config configures a Session.
type Config struct {
	// Product is the device this session talks to.
	Product device.ProductID

	// InputName and OutputName are the normalized logical port names the
	// session binds to (and re-resolves after OS renumbering).
	InputName  string
	OutputName string

	// ExpectedFirmware is the version the application ships. Zero means
	// "latest known release for the product".
	ExpectedFirmware device.Version

	// PollInterval caps the identity request rate. Default 5s.
	PollInterval time.Duration

	// UpdateWindow is the reply deadline inside update wait states.
	// Default 35s.
	UpdateWindow time.Duration

	// ChunkSize and ChunkDelay pace the outgoing buffer drain.
	// Defaults 48 bytes / 1ms.
	ChunkSize  int
	ChunkDelay time.Duration

	// MaxPending is the hard cap on buffered outgoing bytes.
	MaxPending int

	// Registry resolves port names to indexes; required for Open and for
	// self-healing, optional when only OpenAt is used.
	Registry *ports.Registry

	// Trace receives protocol trace events. Nil disables tracing.
	Trace log.Logger

	// Logger is the operational logger. Nil falls back to slog.Default.
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.UpdateWindow <= 0 {
		c.UpdateWindow = DefaultUpdateWindow
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkDelay <= 0 {
		c.ChunkDelay = DefaultChunkDelay
	}
	if c.MaxPending <= 0 {
		c.MaxPending = DefaultMaxPending
	}
	if c.ExpectedFirmware.IsZero() {
		if rel, ok := device.LatestRelease(c.Product); ok {
			c.ExpectedFirmware = rel.Firmware
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Trace == nil {
		c.Trace = log.NoopLogger{}
	}
}

// Session is one logical device connection. Not safe for concurrent use:
// Receive and Advance must run on the same host loop.
type Session struct {
	id  string
	cfg Config
	tr  transport.Transport

	in     transport.InputPort
	out    transport.OutputPort
	inIdx  int
	outIdx int
	open   bool

	connected bool
	polling   bool
	lastPoll  time.Time
	lastHeal  time.Time

	identity   device.Identity
	firmware   []byte
	bootloader []byte

	parser parser
	params paramState
	outbuf outBuffer
	update updateSession

	cb callbacks
}

// NewSession creates a session over tr. Ports are bound later by Open or
// OpenAt.
func NewSession(tr transport.Transport, cfg Config) (*Session, error) {
	if tr == nil {
		return nil, errors.New("nil transport")
	}
	if cfg.InputName == "" || cfg.OutputName == "" {
		return nil, errors.New("input and output port names required")
	}
	cfg.applyDefaults()

	s := &Session{
		id:  uuid.NewString(),
		cfg: cfg,
		tr:  tr,
		identity: device.Identity{
			Product:  cfg.Product,
			Expected: cfg.ExpectedFirmware,
		},
		outbuf: outBuffer{
			chunkSize: cfg.ChunkSize,
			delay:     cfg.ChunkDelay,
			max:       cfg.MaxPending,
		},
	}
	s.params.reset()
	return s, nil
}

// ID returns the session's UUID, stamped on every trace event.
func (s *Session) ID() string { return s.id }

// Identity returns what the session currently knows about the device.
func (s *Session) Identity() device.Identity { return s.identity }

// Connected reports whether an identity reply has been received on the
// current port binding.
func (s *Session) Connected() bool { return s.connected }

// SetExpectedFirmware overrides the firmware version the handshake and
// update machine compare against.
func (s *Session) SetExpectedFirmware(v device.Version) {
	s.identity.Expected = v
}

// Open resolves the configured port names through the registry and opens
// both ports.
func (s *Session) Open() error {
	if s.cfg.Registry == nil {
		return errors.New("open by name requires a port registry")
	}
	inIdx, ok := s.cfg.Registry.PortNumber(transport.DirectionInput, s.cfg.InputName)
	if !ok {
		return fmt.Errorf("%w: input %q", ErrPortUnavailable, s.cfg.InputName)
	}
	outIdx, ok := s.cfg.Registry.PortNumber(transport.DirectionOutput, s.cfg.OutputName)
	if !ok {
		return fmt.Errorf("%w: output %q", ErrPortUnavailable, s.cfg.OutputName)
	}
	return s.OpenAt(inIdx, outIdx)
}

// OpenAt opens the session's ports at explicit indexes.
func (s *Session) OpenAt(inIdx, outIdx int) error {
	if s.open {
		if err := s.Close(); err != nil {
			return err
		}
	}

	in, err := s.tr.OpenInput(inIdx, s.Receive)
	if err != nil {
		return fmt.Errorf("open input %d: %w", inIdx, err)
	}
	out, err := s.tr.OpenOutput(outIdx)
	if err != nil {
		_ = in.Close()
		return fmt.Errorf("open output %d: %w", outIdx, err)
	}

	s.in, s.out = in, out
	s.inIdx, s.outIdx = inIdx, outIdx
	s.open = true
	s.polling = true
	s.lastPoll = time.Time{}
	s.parser.reset()
	s.params.reset()
	s.outbuf.clear()

	s.cfg.Logger.Info("session open",
		"session_id", s.id,
		"device", s.cfg.Product.String(),
		"in", s.inIdx, "out", s.outIdx)
	s.traceState(log.StateEntitySession, "", "OPEN", "")
	return nil
}

// Close closes both ports and cancels any in-flight update.
func (s *Session) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	s.polling = false
	s.resetUpdate("session closed")
	s.setConnected(false)

	var err error
	if s.in != nil {
		err = s.in.Close()
		s.in = nil
	}
	if s.out != nil {
		if cerr := s.out.Close(); err == nil {
			err = cerr
		}
		s.out = nil
	}
	s.traceState(log.StateEntitySession, "OPEN", "CLOSED", "")
	return err
}

// Receive is the transport callback: one framed MIDI message per call.
func (s *Session) Receive(timestampMs int32, data []byte) {
	if !s.open || len(data) == 0 {
		return
	}
	s.traceFrame(log.DirectionIn, data)

	if device.IsLoopProbe(data) {
		s.feedbackFault()
		return
	}

	if data[0] == midi.SysExStart {
		s.handleSysEx(data)
		return
	}
	s.handleChannelMessage(data)
}

// Advance runs one host tick: buffer drain, handshake polling, update
// machine progress and port self-healing.
func (s *Session) Advance(now time.Time) {
	if !s.open {
		return
	}

	if err := s.outbuf.drain(now, s.rawSend); err != nil {
		s.cfg.Logger.Warn("send failed", "session_id", s.id, "error", err)
		s.traceError(log.LayerTransport, err, "buffer drain")
	}

	if s.polling && s.update.state == UpdateIdle && now.Sub(s.lastPoll) >= s.cfg.PollInterval {
		s.lastPoll = now
		s.sendInquiry()
	}

	s.advanceUpdate(now)
	s.heal(now)
}

// Send queues one raw MIDI message on the outgoing buffer.
func (s *Session) Send(data []byte) error {
	if !s.open {
		return ErrNotOpen
	}
	if !s.outbuf.push(data) {
		s.overflow()
		return ErrBufferOverflow
	}
	return nil
}

// SendNRPN queues an NRPN value, resending the address bytes only when
// the parameter number changed since the last send on the channel.
func (s *Session) SendNRPN(channel byte, param, value uint16) error {
	return s.Send(s.params.nrpnBytes(channel, param, value))
}

// SendPacket encodes and queues one vendor SysEx packet.
func (s *Session) SendPacket(category, typ byte, payload []byte) error {
	frame, err := sysex.Encode(uint16(s.cfg.Product), category, typ, payload)
	if err != nil {
		return err
	}
	return s.Send(frame)
}

// SendLoopProbe transmits the self-test message. If it ever comes back,
// the feedback-loop guard trips.
func (s *Session) SendLoopProbe() error {
	return s.sendDirect(device.LoopProbe)
}

// ---------------------------------------------------------------------------
// Receive paths
// ---------------------------------------------------------------------------

func (s *Session) handleSysEx(data []byte) {
	if r, ok := device.ParseIdentityReply(data); ok {
		s.handleIdentity(r)
		return
	}

	if sysex.IsVendorFrame(data) {
		pkt, err := sysex.Decode(data)
		if err != nil {
			// Corrupt packets are discarded at this layer; no retry.
			s.cfg.Logger.Debug("sysex decode failed", "session_id", s.id, "error", err)
			s.traceError(log.LayerWire, err, "sysex decode")
			return
		}
		s.tracePacket(pkt)
		if s.handleUpdatePacket(pkt.Category, pkt.Type, pkt.Payload) {
			return
		}
		if s.cb.packet != nil {
			s.cb.packet(pkt)
		}
		return
	}

	// Foreign SysEx passes through undecoded.
	if s.cb.sysEx != nil {
		s.cb.sysEx(data)
	}
}

func (s *Session) handleIdentity(r device.Reply) {
	if !r.Legacy {
		s.identity.Product = r.Product
		s.identity.Bootloader = r.Bootloader
		s.identity.BootloaderMode = r.BootloaderMode
	}
	s.identity.Firmware = r.Firmware

	s.polling = false
	s.setConnected(true)
	s.traceState(log.StateEntityHandshake, "POLLING", "IDENTIFIED",
		"fw "+r.Firmware.String())

	if r.BootloaderMode && s.cb.bootloader != nil {
		s.cb.bootloader()
	}
	if s.identity.FirmwareCurrent() {
		if s.cb.fwMatch != nil {
			s.cb.fwMatch(s.identity)
		}
	} else if s.cb.fwMismatch != nil {
		s.cb.fwMismatch(s.identity)
	}

	s.handleUpdateIdentity(r)
}

func (s *Session) handleChannelMessage(data []byte) {
	ev, ok := s.parser.parse(data)
	if !ok {
		return
	}
	s.traceRaw(ev)
	if s.cb.raw != nil {
		s.cb.raw(ev)
	}

	switch ev.Status {
	case midi.NoteOff:
		if s.cb.noteOff != nil {
			s.cb.noteOff(ev.Channel, ev.Data1, ev.Data2)
		}
	case midi.NoteOn:
		if s.cb.noteOn != nil {
			s.cb.noteOn(ev.Channel, ev.Data1, ev.Data2)
		}
	case midi.PolyAftertouch:
		if s.cb.polyAT != nil {
			s.cb.polyAT(ev.Channel, ev.Data1, ev.Data2)
		}
	case midi.ControlChange:
		pe, emitted, handled := s.params.handleCC(ev.Channel, ev.Data1, ev.Data2)
		if emitted {
			s.traceParam(pe)
			if s.cb.param != nil {
				s.cb.param(pe)
			}
		}
		if !handled && s.cb.control != nil {
			s.cb.control(ev.Channel, ev.Data1, ev.Data2)
		}
	case midi.ProgramChange:
		if s.cb.program != nil {
			s.cb.program(ev.Channel, ev.Data1)
		}
	case midi.ChannelPressure:
		if s.cb.pressure != nil {
			s.cb.pressure(ev.Channel, ev.Data1)
		}
	case midi.PitchBend:
		if s.cb.pitchBend != nil {
			s.cb.pitchBend(ev.Channel, uint16(midi.Word14(ev.Data2, ev.Data1)))
		}
	default:
		if s.cb.system != nil {
			s.cb.system(ev.Status, ev.Data1, ev.Data2)
		}
	}
}

// ---------------------------------------------------------------------------
// Send paths and faults
// ---------------------------------------------------------------------------

// rawSend transmits bytes immediately, tracing them.
func (s *Session) rawSend(data []byte) error {
	if !s.open {
		return ErrNotOpen
	}
	if err := s.out.Send(data); err != nil {
		return err
	}
	s.traceFrame(log.DirectionOut, data)
	return nil
}

// sendDirect bypasses the buffer for short protocol messages that must
// not wait behind queued traffic.
func (s *Session) sendDirect(data []byte) error {
	err := s.rawSend(data)
	if err != nil {
		s.cfg.Logger.Warn("send failed", "session_id", s.id, "error", err)
		s.traceError(log.LayerTransport, err, "direct send")
	}
	return err
}

func (s *Session) sendInquiry() {
	var req []byte
	switch s.cfg.Product.Inquiry() {
	case device.InquirySoftStepLegacy:
		req = device.SoftStepInquiry
	case device.Inquiry12StepLegacy:
		req = device.TwelveStepInquiry
	default:
		req = device.UniversalInquiry
	}
	_ = s.sendDirect(req)
}

// feedbackFault force-closes both ports. Not retryable: the operator has
// to fix the cabling.
func (s *Session) feedbackFault() {
	s.cfg.Logger.Error("feedback loop detected, closing ports",
		"session_id", s.id, "device", s.cfg.Product.String())
	s.traceError(log.LayerSession, ErrFeedbackLoop, "loop probe echoed")
	_ = s.Close()
	s.emitFault(ErrFeedbackLoop)
}

func (s *Session) overflow() {
	s.cfg.Logger.Error("outgoing buffer overflow, pending bytes discarded",
		"session_id", s.id)
	s.traceError(log.LayerSession, ErrBufferOverflow, "outgoing buffer")
	s.emitFault(ErrBufferOverflow)
}

func (s *Session) emitFault(err error) {
	if s.cb.fault != nil {
		s.cb.fault(err)
	}
}

func (s *Session) emitProgress(percent int, text string) {
	s.cfg.Logger.Info("update progress",
		"session_id", s.id, "percent", percent, "text", text)
	if s.cb.progress != nil {
		s.cb.progress(percent, text)
	}
}

func (s *Session) setConnected(connected bool) {
	if s.connected == connected {
		return
	}
	s.connected = connected
	if s.cb.connection != nil {
		s.cb.connection(connected)
	}
}

// heal re-resolves the bound port names; if the OS renumbered a port the
// session reopens at the new index instead of failing.
func (s *Session) heal(now time.Time) {
	if s.cfg.Registry == nil || now.Sub(s.lastHeal) < healInterval {
		return
	}
	s.lastHeal = now

	inIdx, inOK := s.cfg.Registry.PortNumber(transport.DirectionInput, s.cfg.InputName)
	outIdx, outOK := s.cfg.Registry.PortNumber(transport.DirectionOutput, s.cfg.OutputName)
	if !inOK || !outOK {
		// Port gone entirely; disconnect events from the registry drive
		// the host's teardown, nothing to heal here.
		return
	}
	if inIdx == s.inIdx && outIdx == s.outIdx {
		return
	}

	s.cfg.Logger.Info("ports renumbered, reopening",
		"session_id", s.id, "in", inIdx, "out", outIdx)
	wasPolling := s.polling || !s.connected

	in, err := s.tr.OpenInput(inIdx, s.Receive)
	if err != nil {
		s.traceError(log.LayerTransport, err, "reopen input")
		return
	}
	out, err := s.tr.OpenOutput(outIdx)
	if err != nil {
		_ = in.Close()
		s.traceError(log.LayerTransport, err, "reopen output")
		return
	}
	_ = s.in.Close()
	_ = s.out.Close()
	s.in, s.out = in, out
	s.inIdx, s.outIdx = inIdx, outIdx
	// The reopened port starts a fresh stream: latched running status and
	// half-assembled parameters do not carry across.
	s.parser.reset()
	s.params.reset()
	s.polling = wasPolling
	if s.cb.portChanged != nil {
		s.cb.portChanged(inIdx, outIdx)
	}
}

// ---------------------------------------------------------------------------
// Trace emission
// ---------------------------------------------------------------------------

func (s *Session) trace(ev log.Event) {
	ev.Timestamp = time.Now()
	ev.SessionID = s.id
	ev.Device = s.cfg.Product.String()
	s.cfg.Trace.Log(ev)
}

func (s *Session) traceFrame(dir log.Direction, data []byte) {
	const maxCapture = 64
	fe := &log.FrameEvent{Size: len(data)}
	if len(data) > maxCapture {
		fe.Data = append([]byte(nil), data[:maxCapture]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	port := s.cfg.InputName
	if dir == log.DirectionOut {
		port = s.cfg.OutputName
	}
	s.trace(log.Event{
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Port:      port,
		Frame:     fe,
	})
}

func (s *Session) traceRaw(ev RawEvent) {
	ch := ev.Channel
	me := &log.MessageEvent{
		Kind:   log.KindChannel,
		Status: ev.Status,
		Data1:  ev.Data1,
		Data2:  ev.Data2,
	}
	if midi.IsChannelStatus(ev.Status) {
		me.Channel = &ch
	} else {
		me.Kind = log.KindSystem
	}
	s.trace(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Port:      s.cfg.InputName,
		Message:   me,
	})
}

func (s *Session) traceParam(pe ParamEvent) {
	param, value, ch := pe.Param, pe.Value, pe.Channel
	s.trace(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Port:      s.cfg.InputName,
		Message: &log.MessageEvent{
			Kind:      log.KindParameter,
			Channel:   &ch,
			Parameter: &param,
			Value:     &value,
		},
	})
}

func (s *Session) tracePacket(pkt sysex.Packet) {
	cat, typ := pkt.Category, pkt.Type
	s.trace(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Port:      s.cfg.InputName,
		Message: &log.MessageEvent{
			Kind:          log.KindSysEx,
			SysExCategory: &cat,
			SysExType:     &typ,
			PayloadSize:   len(pkt.Payload),
		},
	})
}

func (s *Session) traceState(entity log.StateEntity, old, next, reason string) {
	s.trace(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: old,
			NewState: next,
			Reason:   reason,
		},
	})
}

func (s *Session) traceError(layer log.Layer, err error, context string) {
	s.trace(log.Event{
		Direction: log.DirectionIn,
		Layer:     layer,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (s *Session) announceUpdate(old, next UpdateState, reason string) {
	s.cfg.Logger.Info("update state",
		"session_id", s.id, "from", old.String(), "to", next.String(), "reason", reason)
	sc := &log.StateChangeEvent{
		Entity:   log.StateEntityUpdate,
		OldState: old.String(),
		NewState: next.String(),
		Reason:   reason,
	}
	if pct, _ := progressFor(next); pct >= 0 {
		sc.Progress = &pct
	}
	s.trace(log.Event{
		Direction:   log.DirectionOut,
		Layer:       log.LayerSession,
		Category:    log.CategoryState,
		StateChange: sc,
	})
}
