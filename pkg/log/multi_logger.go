package log

// MultiLogger fans each trace event out to several sinks, typically a
// FileLogger recording plus a SlogAdapter for live console output.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a MultiLogger over the given sinks. Order is
// preserved, so put the recording first when it matters.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log forwards the event to every sink.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.sinks {
		l.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
