// Command kmidi-log views and analyzes kmidi protocol trace files.
//
// Trace files are created by kmidi-monitor and kmidi-update with the
// -trace flag, or by any application passing a FileLogger to its session.
//
// Usage:
//
//	kmidi-log <command> [flags] <file.klog>
//
// Commands:
//
//	view     View trace file in human-readable format
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View all events
//	kmidi-log view qunexus.klog
//
//	# View only wire-layer events
//	kmidi-log view -layer wire qunexus.klog
//
//	# View one session's outgoing traffic
//	kmidi-log view -session 4f1c... -direction out qunexus.klog
//
//	# Show statistics
//	kmidi-log stats qunexus.klog
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kmi-protocol/kmidi-go/pkg/log"
)

const usage = `kmidi-log - kmidi protocol trace analyzer

Usage:
  kmidi-log <command> [flags] <file.klog>

Commands:
  view     View trace file in human-readable format
  stats    Show statistics about the trace file

Use "kmidi-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	layer := fs.String("layer", "", "Filter by layer (transport, wire, session)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, port, state, error)")
	sessionID := fs.String("session", "", "Filter by session id")
	deviceName := fs.String("device", "", "Filter by product name")
	portName := fs.String("port", "", "Filter by normalized port name")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		os.Exit(1)
	}

	filter := log.Filter{
		SessionID: *sessionID,
		Device:    *deviceName,
		Port:      *portName,
	}
	var err error
	if filter.Layer, err = parseLayer(*layer); err != nil {
		fatal(err)
	}
	if filter.Direction, err = parseDirection(*direction); err != nil {
		fatal(err)
	}
	if filter.Category, err = parseCategory(*category); err != nil {
		fatal(err)
	}

	reader, err := log.NewFilteredReader(fs.Arg(0), filter)
	if err != nil {
		fatal(err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			fatal(err)
		}
		fmt.Println(formatEvent(event))
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		os.Exit(1)
	}

	reader, err := log.NewReader(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer reader.Close()

	var (
		total      int
		first      time.Time
		last       time.Time
		byLayer    = map[string]int{}
		byCategory = map[string]int{}
		sessions   = map[string]bool{}
		devices    = map[string]bool{}
		errors     int
	)

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal(err)
		}
		total++
		if first.IsZero() || event.Timestamp.Before(first) {
			first = event.Timestamp
		}
		if event.Timestamp.After(last) {
			last = event.Timestamp
		}
		byLayer[event.Layer.String()]++
		byCategory[event.Category.String()]++
		if event.SessionID != "" {
			sessions[event.SessionID] = true
		}
		if event.Device != "" {
			devices[event.Device] = true
		}
		if event.Category == log.CategoryError {
			errors++
		}
	}

	fmt.Printf("Events:    %d\n", total)
	if total > 0 {
		fmt.Printf("Time span: %s .. %s (%s)\n",
			first.Format(time.RFC3339), last.Format(time.RFC3339),
			last.Sub(first).Round(time.Millisecond))
	}
	fmt.Printf("Sessions:  %d\n", len(sessions))
	fmt.Printf("Devices:   %s\n", joinKeys(devices))
	fmt.Printf("Errors:    %d\n", errors)
	fmt.Println("By layer:")
	printCounts(byLayer)
	fmt.Println("By category:")
	printCounts(byCategory)
}

func formatEvent(ev log.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-3s %-9s %-7s",
		ev.Timestamp.Format("15:04:05.000"),
		ev.Direction, ev.Layer, ev.Category)
	if ev.Device != "" {
		fmt.Fprintf(&b, " %s", ev.Device)
	}
	if ev.Port != "" {
		fmt.Fprintf(&b, " [%s]", ev.Port)
	}

	switch {
	case ev.Frame != nil:
		fmt.Fprintf(&b, " %d bytes: % X", ev.Frame.Size, ev.Frame.Data)
		if ev.Frame.Truncated {
			b.WriteString(" ...")
		}
	case ev.Message != nil:
		m := ev.Message
		fmt.Fprintf(&b, " %s", m.Kind)
		switch {
		case m.Parameter != nil && m.Value != nil:
			fmt.Fprintf(&b, " param=%d value=%d", *m.Parameter, *m.Value)
		case m.SysExCategory != nil && m.SysExType != nil:
			fmt.Fprintf(&b, " cat=%02X type=%02X payload=%d",
				*m.SysExCategory, *m.SysExType, m.PayloadSize)
		default:
			fmt.Fprintf(&b, " %02X %02X %02X", m.Status, m.Data1, m.Data2)
		}
		if m.Channel != nil {
			fmt.Fprintf(&b, " ch%d", *m.Channel)
		}
	case ev.PortChange != nil:
		p := ev.PortChange
		fmt.Fprintf(&b, " %s %s %q index=%d", p.Kind, p.PortDirection, p.Name, p.Index)
		if p.Kind == "RENUMBER" {
			fmt.Fprintf(&b, " (was %d)", p.PrevIndex)
		}
	case ev.StateChange != nil:
		s := ev.StateChange
		fmt.Fprintf(&b, " %s %s -> %s", s.Entity, s.OldState, s.NewState)
		if s.Reason != "" {
			fmt.Fprintf(&b, " (%s)", s.Reason)
		}
	case ev.Error != nil:
		fmt.Fprintf(&b, " %s: %s", ev.Error.Context, ev.Error.Message)
	}
	return b.String()
}

func parseLayer(s string) (*log.Layer, error) {
	if s == "" {
		return nil, nil
	}
	var l log.Layer
	switch strings.ToLower(s) {
	case "transport":
		l = log.LayerTransport
	case "wire":
		l = log.LayerWire
	case "session":
		l = log.LayerSession
	default:
		return nil, fmt.Errorf("unknown layer %q (use: transport, wire, session)", s)
	}
	return &l, nil
}

func parseDirection(s string) (*log.Direction, error) {
	if s == "" {
		return nil, nil
	}
	var d log.Direction
	switch strings.ToLower(s) {
	case "in":
		d = log.DirectionIn
	case "out":
		d = log.DirectionOut
	default:
		return nil, fmt.Errorf("unknown direction %q (use: in, out)", s)
	}
	return &d, nil
}

func parseCategory(s string) (*log.Category, error) {
	if s == "" {
		return nil, nil
	}
	var c log.Category
	switch strings.ToLower(s) {
	case "message":
		c = log.CategoryMessage
	case "port":
		c = log.CategoryPort
	case "state":
		c = log.CategoryState
	case "error":
		c = log.CategoryError
	default:
		return nil, fmt.Errorf("unknown category %q (use: message, port, state, error)", s)
	}
	return &c, nil
}

func printCounts(m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-10s %d\n", k, m[k])
	}
}

func joinKeys(m map[string]bool) string {
	if len(m) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
