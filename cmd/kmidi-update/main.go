// Command kmidi-update flashes firmware onto a KMI control surface.
//
// The update is described by a YAML manifest naming the product, the port
// to reach it on, the image files and the version the device should report
// afterwards. Individual manifest fields can be overridden with flags.
//
// Usage:
//
//	kmidi-update -manifest <file.yaml> [flags]
//
// Flags:
//
//	-manifest string  Update manifest (YAML)
//	-product string   Product name, overrides the manifest
//	-in string        Input port name, overrides the manifest
//	-out string       Output port name, overrides the manifest
//	-firmware string  Firmware image path, overrides the manifest
//	-expect string    Expected firmware version, overrides the manifest
//	-force            Flash even when the device already reports the expected version
//	-timeout duration Overall deadline for the update (default 5m)
//	-trace string     Record a CBOR protocol trace to this file
//	-log-level string Log level: debug, info, warn, error (default "info")
//
// Example manifest:
//
//	product: SoftStep
//	input: SoftStep Control Surface
//	output: SoftStep Control Surface
//	expected: 2.0.5
//	firmware: softstep-2.0.5.bin
//	preserve_globals: true
//
// Examples:
//
//	# Flash a SoftStep
//	kmidi-update -manifest softstep.yaml
//
//	# Same manifest, different port
//	kmidi-update -manifest softstep.yaml -in "SSCOM Port 1" -out "SSCOM Port 1"
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kmi-protocol/kmidi-go/pkg/device"
	"github.com/kmi-protocol/kmidi-go/pkg/log"
	"github.com/kmi-protocol/kmidi-go/pkg/ports"
	"github.com/kmi-protocol/kmidi-go/pkg/session"
	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// Manifest describes one firmware update.
type Manifest struct {
	Product         string `yaml:"product"`
	Input           string `yaml:"input"`
	Output          string `yaml:"output"`
	Expected        string `yaml:"expected"`
	Firmware        string `yaml:"firmware"`
	Bootloader      string `yaml:"bootloader,omitempty"`
	PreserveGlobals bool   `yaml:"preserve_globals"`
}

var (
	manifestPath string
	overrides    Manifest
	force        bool
	timeout      time.Duration
	traceFile    string
	logLevel     string
)

func init() {
	flag.StringVar(&manifestPath, "manifest", "", "Update manifest (YAML)")
	flag.StringVar(&overrides.Product, "product", "", "Product name, overrides the manifest")
	flag.StringVar(&overrides.Input, "in", "", "Input port name, overrides the manifest")
	flag.StringVar(&overrides.Output, "out", "", "Output port name, overrides the manifest")
	flag.StringVar(&overrides.Firmware, "firmware", "", "Firmware image path, overrides the manifest")
	flag.StringVar(&overrides.Expected, "expect", "", "Expected firmware version, overrides the manifest")
	flag.BoolVar(&force, "force", false, "Flash even when the device already reports the expected version")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Overall deadline for the update")
	flag.StringVar(&traceFile, "trace", "", "Record a CBOR protocol trace to this file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()
	logger := setupLogging(logLevel)

	man, err := loadManifest(manifestPath)
	if err != nil {
		stdlog.Fatalf("Manifest: %v", err)
	}
	applyOverrides(&man)

	product, ok := device.ParseProduct(man.Product)
	if !ok {
		stdlog.Fatalf("Unknown product: %q", man.Product)
	}
	if man.Input == "" || man.Output == "" {
		stdlog.Fatal("Manifest must name input and output ports")
	}
	if man.Firmware == "" {
		stdlog.Fatal("Manifest must name a firmware image")
	}

	var expect device.Version
	if man.Expected != "" {
		expect, err = device.ParseVersion(man.Expected)
		if err != nil {
			stdlog.Fatalf("Invalid expected version: %v", err)
		}
	}

	firmware, err := os.ReadFile(man.Firmware)
	if err != nil {
		stdlog.Fatalf("Firmware image: %v", err)
	}
	var bootloader []byte
	if man.Bootloader != "" {
		bootloader, err = os.ReadFile(man.Bootloader)
		if err != nil {
			stdlog.Fatalf("Bootloader image: %v", err)
		}
	}

	trace := log.Logger(log.NoopLogger{})
	if traceFile != "" {
		fl, err := log.NewFileLogger(traceFile)
		if err != nil {
			stdlog.Fatalf("Trace file: %v", err)
		}
		defer fl.Close()
		trace = fl
	}

	tr, err := transport.NewRtMidi()
	if err != nil {
		stdlog.Fatalf("MIDI driver init failed: %v", err)
	}
	defer tr.Close()
	registry := ports.NewRegistry(tr, logger)
	registry.SetTrace(trace)

	host, err := session.NewHost(tr, session.Config{
		Product:          product,
		InputName:        man.Input,
		OutputName:       man.Output,
		ExpectedFirmware: expect,
		Registry:         registry,
		Trace:            trace,
		Logger:           logger,
	})
	if err != nil {
		stdlog.Fatalf("Session: %v", err)
	}

	stdlog.Printf("kmidi-update: %s on %q, %d byte image", product, man.Input, len(firmware))

	identified := make(chan device.Identity, 1)
	done := make(chan error, 1)
	host.Do(func(s *session.Session) {
		s.LoadFirmware(firmware)
		if len(bootloader) > 0 {
			s.LoadBootloaderImage(bootloader)
		}
		s.OnFirmwareMatch(func(id device.Identity) { reportIdentity(identified, id) })
		s.OnFirmwareMismatch(func(id device.Identity) { reportIdentity(identified, id) })
		s.OnProgress(func(pct int, text string) {
			if pct >= 0 {
				stdlog.Printf("[%3d%%] %s", pct, text)
			}
		})
		s.OnFault(func(err error) {
			select {
			case done <- err:
			default:
			}
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	go host.Run(ctx, 0)

	var openErr error
	host.Do(func(s *session.Session) { openErr = s.Open() })
	if openErr != nil {
		stdlog.Fatalf("Open: %v", openErr)
	}

	// Learn what the device runs before deciding to flash.
	var id device.Identity
	select {
	case id = <-identified:
	case <-ctx.Done():
		stdlog.Fatal("Device never answered the identity request")
	}
	stdlog.Printf("Device: %s, firmware %s, expected %s", id.Name(), id.Firmware, id.Expected)

	if id.FirmwareCurrent() && !force {
		stdlog.Print("Firmware already current, nothing to do (use -force to flash anyway)")
		return
	}

	host.Do(func(s *session.Session) {
		if err := s.RequestUpdate(man.PreserveGlobals); err != nil {
			done <- err
			return
		}
		// Success surfaces as the 100% progress report followed by the
		// machine returning to idle; poll for it from the update watcher.
		s.OnProgress(func(pct int, text string) {
			if pct >= 0 {
				stdlog.Printf("[%3d%%] %s", pct, text)
			}
			if pct == 100 {
				select {
				case done <- nil:
				default:
				}
			}
		})
	})

	select {
	case err := <-done:
		if err != nil {
			stdlog.Fatalf("Update failed: %v", err)
		}
		stdlog.Print("Update complete")
	case <-ctx.Done():
		stdlog.Fatal("Update timed out")
	}
}

func reportIdentity(ch chan device.Identity, id device.Identity) {
	select {
	case ch <- id:
	default:
	}
}

func loadManifest(path string) (Manifest, error) {
	var man Manifest
	if path == "" {
		return man, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return man, err
	}
	if err := yaml.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("parse %s: %w", path, err)
	}
	return man, nil
}

func applyOverrides(man *Manifest) {
	if overrides.Product != "" {
		man.Product = overrides.Product
	}
	if overrides.Input != "" {
		man.Input = overrides.Input
	}
	if overrides.Output != "" {
		man.Output = overrides.Output
	}
	if overrides.Firmware != "" {
		man.Firmware = overrides.Firmware
	}
	if overrides.Expected != "" {
		man.Expected = overrides.Expected
	}
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
