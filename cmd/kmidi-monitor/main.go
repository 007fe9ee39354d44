// Command kmidi-monitor is an interactive console for KMI control surfaces.
//
// It opens a session to one device, runs the identity handshake, and shows
// decoded traffic live. Test messages can be sent from the prompt and the
// whole exchange can be recorded to a CBOR trace file for later analysis
// with kmidi-log.
//
// Usage:
//
//	kmidi-monitor [flags]
//
// Flags:
//
//	-product string   Product to monitor: SoftStep, QuNexus, QuNeo, ... (default "QuNexus")
//	-in string        Input port name (normalized; defaults per product)
//	-out string       Output port name (normalized; defaults per product)
//	-expect string    Expected firmware version (default: latest known release)
//	-trace string     Record a CBOR protocol trace to this file (.klog)
//	-aliases string   Extra port alias rules, YAML file
//	-list             List visible MIDI ports and exit
//	-log-level string Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# List every visible port with its normalized name
//	kmidi-monitor -list
//
//	# Watch a QuNexus and record a trace
//	kmidi-monitor -product QuNexus -in "QuNexus Port 3" -out "QuNexus Port 3" -trace qunexus.klog
//
//	# SoftStep with an explicit firmware expectation
//	kmidi-monitor -product SoftStep -in "SoftStep Control Surface" -out "SoftStep Control Surface" -expect 2.0.5
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kmi-protocol/kmidi-go/cmd/kmidi-monitor/interactive"
	"github.com/kmi-protocol/kmidi-go/pkg/device"
	"github.com/kmi-protocol/kmidi-go/pkg/log"
	"github.com/kmi-protocol/kmidi-go/pkg/ports"
	"github.com/kmi-protocol/kmidi-go/pkg/session"
	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// Config holds the monitor configuration.
type Config struct {
	Product    string
	InputName  string
	OutputName string
	Expect     string
	TraceFile  string
	AliasFile  string
	List       bool
	LogLevel   string
}

var config Config

func init() {
	flag.StringVar(&config.Product, "product", "QuNexus", "Product to monitor: SoftStep, QuNexus, QuNeo, ...")
	flag.StringVar(&config.InputName, "in", "", "Input port name (normalized)")
	flag.StringVar(&config.OutputName, "out", "", "Output port name (normalized)")
	flag.StringVar(&config.Expect, "expect", "", "Expected firmware version (default: latest known release)")
	flag.StringVar(&config.TraceFile, "trace", "", "Record a CBOR protocol trace to this file")
	flag.StringVar(&config.AliasFile, "aliases", "", "Extra port alias rules, YAML file")
	flag.BoolVar(&config.List, "list", false, "List visible MIDI ports and exit")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()
	logger := setupLogging(config.LogLevel)

	tr, err := transport.NewRtMidi()
	if err != nil {
		stdlog.Fatalf("MIDI driver init failed: %v", err)
	}
	defer tr.Close()

	extraRules, err := loadAliasRules(config.AliasFile)
	if err != nil {
		stdlog.Fatalf("Alias rules: %v", err)
	}
	registry := ports.NewRegistry(tr, logger, extraRules...)

	if config.List {
		listPorts(tr)
		return
	}

	product, ok := device.ParseProduct(config.Product)
	if !ok {
		stdlog.Fatalf("Unknown product: %s", config.Product)
	}

	var expect device.Version
	if config.Expect != "" {
		expect, err = device.ParseVersion(config.Expect)
		if err != nil {
			stdlog.Fatalf("Invalid -expect: %v", err)
		}
	}

	trace := log.Logger(log.NoopLogger{})
	if config.TraceFile != "" {
		fl, err := log.NewFileLogger(config.TraceFile)
		if err != nil {
			stdlog.Fatalf("Trace file: %v", err)
		}
		defer fl.Close()
		trace = fl
		stdlog.Printf("Recording protocol trace to %s", config.TraceFile)
	}
	registry.SetTrace(trace)

	inName, outName := defaultPortNames(product)
	if config.InputName != "" {
		inName = config.InputName
	}
	if config.OutputName != "" {
		outName = config.OutputName
	}

	host, err := session.NewHost(tr, session.Config{
		Product:          product,
		InputName:        inName,
		OutputName:       outName,
		ExpectedFirmware: expect,
		Registry:         registry,
		Trace:            trace,
		Logger:           logger,
	})
	if err != nil {
		stdlog.Fatalf("Session: %v", err)
	}

	stdlog.Printf("kmidi-monitor: %s (%s / %s)", product, inName, outName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon, err := interactive.New(host, registry)
	if err != nil {
		stdlog.Fatalf("Console: %v", err)
	}
	// Redirect log output through readline to avoid interfering with input.
	stdlog.SetOutput(mon.Stdout())
	go mon.Run(ctx, cancel)

	go host.Run(ctx, 0)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	stdlog.Println("Shutting down...")
	cancel()
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)
	return logger
}

func loadAliasRules(path string) ([]ports.AliasRule, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ports.LoadAliasRules(f)
}

func listPorts(tr transport.Transport) {
	for _, dir := range []transport.Direction{transport.DirectionInput, transport.DirectionOutput} {
		infos, err := tr.Enumerate(dir)
		if err != nil {
			stdlog.Printf("%s: enumeration failed: %v", dir, err)
			continue
		}
		fmt.Printf("%s ports:\n", dir)
		if len(infos) == 0 {
			fmt.Println("  (none)")
		}
		for _, info := range infos {
			normalized := ports.Normalize(info.Name)
			if normalized == info.Name {
				fmt.Printf("  [%d] %s\n", info.Index, info.Name)
			} else {
				fmt.Printf("  [%d] %s  ->  %s\n", info.Index, info.Name, normalized)
			}
		}
	}
}

// defaultPortNames picks the usual data port for products whose names are
// stable across platforms. Everything else needs -in/-out.
func defaultPortNames(p device.ProductID) (string, string) {
	switch p {
	case device.ProductQuNexus:
		return "QuNexus Port 3", "QuNexus Port 3"
	case device.ProductSoftStep1, device.ProductSoftStep2, device.ProductSoftStepUSB, device.ProductSoftStep3:
		return "SoftStep Control Surface", "SoftStep Control Surface"
	case device.Product12Step1, device.Product12Step2:
		return "12Step Port 1", "12Step Port 1"
	default:
		name := p.String()
		return name, name
	}
}
