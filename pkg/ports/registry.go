package ports

import (
	"log/slog"
	"sort"
	"time"

	"github.com/kmi-protocol/kmidi-go/pkg/log"
	"github.com/kmi-protocol/kmidi-go/pkg/transport"
)

// Registry tracks the last confirmed port topology and diffs fresh
// enumerations against it. Not safe for concurrent use; the host loop owns
// it and calls ScanAndDiff from its poll tick.
type Registry struct {
	tr     transport.Transport
	logger *slog.Logger
	trace  log.Logger
	rules  []AliasRule

	inputs  map[string]int
	outputs map[string]int
}

// NewRegistry creates an empty registry over tr. A nil logger falls back to
// slog.Default. Extra alias rules run before the built-in table.
func NewRegistry(tr transport.Transport, logger *slog.Logger, extraRules ...AliasRule) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tr:      tr,
		logger:  logger,
		trace:   log.NoopLogger{},
		rules:   extraRules,
		inputs:  make(map[string]int),
		outputs: make(map[string]int),
	}
}

// SetTrace routes topology changes into a protocol trace alongside the
// session's own events. Nil disables tracing.
func (r *Registry) SetTrace(trace log.Logger) {
	if trace == nil {
		trace = log.NoopLogger{}
	}
	r.trace = trace
}

// ScanAndDiff enumerates both directions and returns the topology changes
// since the previous call, ordered disconnects, then connects, then
// renumbers. A transport enumeration failure yields zero events and leaves
// the retained state untouched; the next tick retries.
func (r *Registry) ScanAndDiff() []Event {
	newIn, err := r.scan(transport.DirectionInput)
	if err != nil {
		r.logger.Warn("port scan failed", "direction", transport.DirectionInput.String(), "error", err)
		return nil
	}
	newOut, err := r.scan(transport.DirectionOutput)
	if err != nil {
		r.logger.Warn("port scan failed", "direction", transport.DirectionOutput.String(), "error", err)
		return nil
	}

	var events []Event

	// Pass 1: disconnects.
	for _, d := range []struct {
		dir      transport.Direction
		retained map[string]int
		fresh    map[string]int
	}{
		{transport.DirectionInput, r.inputs, newIn},
		{transport.DirectionOutput, r.outputs, newOut},
	} {
		for _, name := range sortedKeys(d.retained) {
			if _, ok := d.fresh[name]; ok {
				continue
			}
			events = append(events, Event{
				Kind:      EventDisconnect,
				Direction: d.dir,
				Name:      name,
				Index:     d.retained[name],
			})
			delete(d.retained, name)
		}
	}

	// Pass 2: connects.
	for _, d := range []struct {
		dir      transport.Direction
		retained map[string]int
		fresh    map[string]int
	}{
		{transport.DirectionInput, r.inputs, newIn},
		{transport.DirectionOutput, r.outputs, newOut},
	} {
		for _, name := range sortedKeys(d.fresh) {
			if _, ok := d.retained[name]; ok {
				continue
			}
			events = append(events, Event{
				Kind:      EventConnect,
				Direction: d.dir,
				Name:      name,
				Index:     d.fresh[name],
			})
			d.retained[name] = d.fresh[name]
		}
	}

	// Pass 3: renumbers of ports that survived pass 1.
	for _, d := range []struct {
		dir      transport.Direction
		retained map[string]int
		fresh    map[string]int
	}{
		{transport.DirectionInput, r.inputs, newIn},
		{transport.DirectionOutput, r.outputs, newOut},
	} {
		for _, name := range sortedKeys(d.retained) {
			prev := d.retained[name]
			now := d.fresh[name]
			if now == prev {
				continue
			}
			events = append(events, Event{
				Kind:      EventRenumber,
				Direction: d.dir,
				Name:      name,
				Index:     now,
				PrevIndex: prev,
			})
			d.retained[name] = now
		}
	}

	for _, ev := range events {
		r.logger.Info("port change", "event", ev.String())
		r.tracePortChange(ev)
	}
	return events
}

func (r *Registry) tracePortChange(ev Event) {
	dir := log.DirectionIn
	if ev.Direction == transport.DirectionOutput {
		dir = log.DirectionOut
	}
	r.trace.Log(log.Event{
		Timestamp: time.Now(),
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryPort,
		Port:      ev.Name,
		PortChange: &log.PortChangeEvent{
			Kind:          ev.Kind.String(),
			PortDirection: ev.Direction.String(),
			Name:          ev.Name,
			Index:         ev.Index,
			PrevIndex:     ev.PrevIndex,
		},
	})
}

// PortNumber resolves a normalized name against a fresh enumeration, not
// the retained table. Returns (-1, false) when the port is not currently
// visible or enumeration fails.
func (r *Registry) PortNumber(dir transport.Direction, name string) (int, bool) {
	fresh, err := r.scan(dir)
	if err != nil {
		r.logger.Warn("port lookup failed", "direction", dir.String(), "error", err)
		return -1, false
	}
	idx, ok := fresh[name]
	if !ok {
		return -1, false
	}
	return idx, true
}

// Snapshot returns a copy of the retained name to index table for one
// direction.
func (r *Registry) Snapshot(dir transport.Direction) map[string]int {
	retained := r.outputs
	if dir == transport.DirectionInput {
		retained = r.inputs
	}
	cp := make(map[string]int, len(retained))
	for name, idx := range retained {
		cp[name] = idx
	}
	return cp
}

// Reset clears the retained state so the next ScanAndDiff re-reports every
// visible port as a connect.
func (r *Registry) Reset() {
	r.inputs = make(map[string]int)
	r.outputs = make(map[string]int)
}

// scan enumerates one direction into a normalized name to index map. The
// first port wins a name collision, matching the uniqueness invariant.
func (r *Registry) scan(dir transport.Direction) (map[string]int, error) {
	infos, err := r.tr.Enumerate(dir)
	if err != nil {
		return nil, err
	}
	m := make(map[string]int, len(infos))
	for _, info := range infos {
		name := normalize(info.Name, r.rules)
		if name == "" {
			continue
		}
		if _, dup := m[name]; dup {
			continue
		}
		m[name] = info.Index
	}
	return m, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
