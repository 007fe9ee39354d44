// Package interactive provides the interactive command-line interface
// for kmidi-monitor.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/kmi-protocol/kmidi-go/pkg/device"
	"github.com/kmi-protocol/kmidi-go/pkg/ports"
	"github.com/kmi-protocol/kmidi-go/pkg/session"
	"github.com/kmi-protocol/kmidi-go/pkg/sysex"
	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// Monitor handles interactive mode for kmidi-monitor.
type Monitor struct {
	host     *session.Host
	registry *ports.Registry
	rl       *readline.Instance

	watching bool
}

// New creates a new interactive monitor handler.
func New(host *session.Host, registry *ports.Registry) (*Monitor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "kmidi> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	m := &Monitor{
		host:     host,
		registry: registry,
		rl:       rl,
	}
	m.registerCallbacks()
	return m, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (m *Monitor) Stdout() io.Writer {
	return m.rl.Stdout()
}

// registerCallbacks wires the session observers to the console. The
// callbacks run under the host lock, so they only print.
func (m *Monitor) registerCallbacks() {
	out := m.rl.Stdout()
	m.host.Do(func(s *session.Session) {
		s.OnConnectionState(func(connected bool) {
			if connected {
				fmt.Fprintln(out, "* device connected")
			} else {
				fmt.Fprintln(out, "* device disconnected")
			}
		})
		s.OnFirmwareMatch(func(id device.Identity) {
			fmt.Fprintf(out, "* %s firmware %s (current)\n", id.Name(), id.Firmware)
		})
		s.OnFirmwareMismatch(func(id device.Identity) {
			fmt.Fprintf(out, "* %s firmware %s, expected %s\n", id.Name(), id.Firmware, id.Expected)
		})
		s.OnBootloaderMode(func() {
			fmt.Fprintln(out, "* device is in bootloader mode")
		})
		s.OnFault(func(err error) {
			fmt.Fprintf(out, "! fault: %v\n", err)
		})
		s.OnPortChanged(func(in, outIdx int) {
			fmt.Fprintf(out, "* ports renumbered, reopened at in=%d out=%d\n", in, outIdx)
		})
		s.OnRawMessage(func(ev session.RawEvent) {
			if m.watching {
				fmt.Fprintf(out, "  < %02X %02X %02X ch%d\n", ev.Status, ev.Data1, ev.Data2, ev.Channel)
			}
		})
		s.OnParameter(func(ev session.ParamEvent) {
			if m.watching {
				fmt.Fprintf(out, "  < %s ch%d param=%d value=%d\n", ev.Mode, ev.Channel, ev.Param, ev.Value)
			}
		})
		s.OnPacket(func(pkt sysex.Packet) {
			if m.watching {
				fmt.Fprintf(out, "  < sysex cat=%02X type=%02X payload=%d bytes\n",
					pkt.Category, pkt.Type, len(pkt.Payload))
			}
		})
	})
}

// Run starts the interactive command loop.
func (m *Monitor) Run(ctx context.Context, cancel context.CancelFunc) {
	defer m.rl.Close()

	m.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := m.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			m.printHelp()

		case "ports", "p":
			m.cmdPorts()

		case "open", "o":
			m.cmdOpen()

		case "close":
			m.cmdClose()

		case "status", "id":
			m.cmdStatus()

		case "watch", "w":
			m.cmdWatch(args)

		case "note", "n":
			m.cmdNote(args)

		case "cc":
			m.cmdCC(args)

		case "bend":
			m.cmdBend(args)

		case "nrpn":
			m.cmdNRPN(args)

		case "sysex":
			m.cmdSysEx(args)

		case "send":
			m.cmdSend(args)

		case "probe":
			m.cmdProbe()

		case "bootloader":
			m.cmdBootloader()

		case "quit", "exit", "q":
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(m.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (m *Monitor) printHelp() {
	fmt.Fprintln(m.rl.Stdout(), `
kmidi-monitor Commands:
  Connection:
    ports              - List visible ports and topology changes
    open               - Open the session on its configured port names
    close              - Close the session
    status             - Show device identity and session state

  Traffic:
    watch on|off       - Toggle live display of decoded traffic
    note <ch> <key> <vel>       - Send note on (vel 0 sends note off)
    cc <ch> <controller> <val>  - Send control change
    bend <ch> <value>           - Send pitch bend (0-16383)
    nrpn <ch> <param> <value>   - Send an NRPN value (14-bit)
    sysex <cat> <type> [hex]    - Send a vendor packet
    send <hex bytes>            - Send raw bytes, e.g. send 90 40 7F

  Maintenance:
    probe              - Send the feedback-loop self test
    bootloader         - Reboot the device into its bootloader

  General:
    help               - Show this help
    quit               - Exit`)
}

func (m *Monitor) cmdPorts() {
	out := m.rl.Stdout()
	for _, ev := range m.registry.ScanAndDiff() {
		fmt.Fprintf(out, "  %s\n", ev)
	}
	for _, dir := range []transport.Direction{transport.DirectionInput, transport.DirectionOutput} {
		fmt.Fprintf(out, "%s:\n", dir)
		snap := m.registry.Snapshot(dir)
		if len(snap) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for name, idx := range snap {
			fmt.Fprintf(out, "  [%d] %s\n", idx, name)
		}
	}
}

func (m *Monitor) cmdOpen() {
	var err error
	m.host.Do(func(s *session.Session) { err = s.Open() })
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "open: %v\n", err)
		return
	}
	fmt.Fprintln(m.rl.Stdout(), "Session open, waiting for identity...")
}

func (m *Monitor) cmdClose() {
	var err error
	m.host.Do(func(s *session.Session) { err = s.Close() })
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "close: %v\n", err)
	}
}

func (m *Monitor) cmdStatus() {
	out := m.rl.Stdout()
	m.host.Do(func(s *session.Session) {
		id := s.Identity()
		fmt.Fprintf(out, "Device:     %s\n", id.Name())
		fmt.Fprintf(out, "Connected:  %v\n", s.Connected())
		fmt.Fprintf(out, "Firmware:   %s (expected %s)\n", id.Firmware, id.Expected)
		if !id.Bootloader.IsZero() {
			fmt.Fprintf(out, "Bootloader: %s\n", id.Bootloader)
		}
		if id.BootloaderMode {
			fmt.Fprintln(out, "Mode:       BOOTLOADER")
		}
		if st := s.UpdateState(); st != session.UpdateIdle {
			fmt.Fprintf(out, "Update:     %s\n", st)
		}
	})
}

func (m *Monitor) cmdWatch(args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(m.rl.Stdout(), "Usage: watch on|off")
		return
	}
	// The flag is read inside session callbacks; flip it under the lock.
	m.host.Do(func(*session.Session) { m.watching = args[0] == "on" })
	fmt.Fprintf(m.rl.Stdout(), "watch %s\n", args[0])
}

func (m *Monitor) cmdNote(args []string) {
	vals, ok := m.parseBytes(args, 3, "Usage: note <ch> <key> <vel>")
	if !ok {
		return
	}
	m.sessionErr(func(s *session.Session) error {
		if vals[2] == 0 {
			return s.SendNoteOff(vals[0], vals[1], 0)
		}
		return s.SendNoteOn(vals[0], vals[1], vals[2])
	})
}

func (m *Monitor) cmdCC(args []string) {
	vals, ok := m.parseBytes(args, 3, "Usage: cc <ch> <controller> <val>")
	if !ok {
		return
	}
	m.sessionErr(func(s *session.Session) error {
		return s.SendControlChange(vals[0], vals[1], vals[2])
	})
}

func (m *Monitor) cmdBend(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: bend <ch> <value 0-16383>")
		return
	}
	ch, err1 := strconv.ParseUint(args[0], 10, 8)
	val, err2 := strconv.ParseUint(args[1], 10, 14)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(m.rl.Stdout(), "Usage: bend <ch> <value 0-16383>")
		return
	}
	m.sessionErr(func(s *session.Session) error {
		return s.SendPitchBend(byte(ch), uint16(val))
	})
}

func (m *Monitor) cmdNRPN(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: nrpn <ch> <param> <value>")
		return
	}
	ch, err1 := strconv.ParseUint(args[0], 10, 8)
	param, err2 := strconv.ParseUint(args[1], 10, 14)
	val, err3 := strconv.ParseUint(args[2], 10, 14)
	if err1 != nil || err2 != nil || err3 != nil {
		fmt.Fprintln(m.rl.Stdout(), "Usage: nrpn <ch> <param> <value>")
		return
	}
	m.sessionErr(func(s *session.Session) error {
		return s.SendNRPN(byte(ch), uint16(param), uint16(val))
	})
}

func (m *Monitor) cmdSysEx(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: sysex <cat> <type> [hex payload]")
		return
	}
	cat, err1 := strconv.ParseUint(args[0], 16, 8)
	typ, err2 := strconv.ParseUint(args[1], 16, 8)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(m.rl.Stdout(), "Usage: sysex <cat> <type> [hex payload]")
		return
	}
	payload, err := hex.DecodeString(strings.Join(args[2:], ""))
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Bad payload: %v\n", err)
		return
	}
	m.sessionErr(func(s *session.Session) error {
		return s.SendPacket(byte(cat), byte(typ), payload)
	})
}

func (m *Monitor) cmdSend(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: send <hex bytes>, e.g. send 90 40 7F")
		return
	}
	data, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Bad hex: %v\n", err)
		return
	}
	m.sessionErr(func(s *session.Session) error { return s.Send(data) })
}

func (m *Monitor) cmdProbe() {
	m.sessionErr(func(s *session.Session) error { return s.SendLoopProbe() })
	fmt.Fprintln(m.rl.Stdout(), "Probe sent. A fault means OUT is cabled into IN.")
}

func (m *Monitor) cmdBootloader() {
	m.sessionErr(func(s *session.Session) error { return s.EnterBootloader() })
}

// parseBytes parses exactly n decimal byte arguments.
func (m *Monitor) parseBytes(args []string, n int, usage string) ([]byte, bool) {
	if len(args) != n {
		fmt.Fprintln(m.rl.Stdout(), usage)
		return nil, false
	}
	vals := make([]byte, n)
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 8)
		if err != nil {
			fmt.Fprintln(m.rl.Stdout(), usage)
			return nil, false
		}
		vals[i] = byte(v)
	}
	return vals, true
}

// sessionErr runs fn under the host lock and prints any error.
func (m *Monitor) sessionErr(fn func(s *session.Session) error) {
	var err error
	m.host.Do(func(s *session.Session) { err = fn(s) })
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "error: %v\n", err)
	}
}
