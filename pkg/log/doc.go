// Package log provides structured protocol logging for the device stack.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, session).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.TraceLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.TraceLogger, _ = log.NewFileLogger("/var/log/kmidi/device.klog")
//
//	// Both: use MultiLogger
//	cfg.TraceLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/kmidi/device.klog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw MIDI bytes as sent/received (FrameEvent)
//   - Wire: decoded channel messages and vendor SysEx packets (MessageEvent)
//   - Session: handshake/update state changes (StateChangeEvent)
//
// Port topology changes and errors have dedicated event types.
//
// # File Format
//
// Log files use CBOR encoding with .klog extension.
package log
