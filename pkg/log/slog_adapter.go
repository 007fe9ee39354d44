package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}
	if event.Port != "" {
		attrs = append(attrs, slog.String("port", event.Port))
	}

	// Add type-specific attributes
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		attrs = append(attrs, slog.String("msg_kind", event.Message.Kind.String()))
		if event.Message.Status != 0 {
			attrs = append(attrs, slog.Uint64("status", uint64(event.Message.Status)))
		}
		if event.Message.Channel != nil {
			attrs = append(attrs, slog.Uint64("channel", uint64(*event.Message.Channel)))
		}
		if event.Message.Parameter != nil {
			attrs = append(attrs, slog.Uint64("parameter", uint64(*event.Message.Parameter)))
		}
		if event.Message.Value != nil {
			attrs = append(attrs, slog.Uint64("value", uint64(*event.Message.Value)))
		}
		if event.Message.SysExCategory != nil {
			attrs = append(attrs,
				slog.Uint64("sysex_category", uint64(*event.Message.SysExCategory)),
				slog.Int("payload_size", event.Message.PayloadSize),
			)
		}
		if event.Message.SysExType != nil {
			attrs = append(attrs, slog.Uint64("sysex_type", uint64(*event.Message.SysExType)))
		}
	case event.PortChange != nil:
		attrs = append(attrs,
			slog.String("port_change", event.PortChange.Kind),
			slog.String("port_direction", event.PortChange.PortDirection),
			slog.String("port_name", event.PortChange.Name),
			slog.Int("port_index", event.PortChange.Index),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
		if event.StateChange.Progress != nil {
			attrs = append(attrs, slog.Int("progress", *event.StateChange.Progress))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
