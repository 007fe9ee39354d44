package log

// Logger receives protocol trace events from the transport, codec and
// session layers. Implementations must be safe for concurrent use and
// should return quickly: Log is called from the MIDI receive path.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards every event. The session falls back to it when no
// trace sink is configured, so callers never nil-check their logger.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
