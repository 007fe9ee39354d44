// Package transport defines the MIDI transport contract consumed by the
// rest of the stack, plus two implementations:
//
//   - RtMidi: the production adapter over the system MIDI driver
//     (gomidi/rtmidi). One Transport instance owns the driver; ports are
//     opened per index and deliver complete MIDI messages (channel messages
//     or whole SysEx frames) through a receive callback.
//
//   - Loopback: an in-memory transport for tests. Ports are declared up
//     front, can be wired to scripted peers that answer traffic, or wired
//     output-to-input to reproduce a cabling feedback loop.
//
// The transport reports errors as values and never panics on driver
// failures; enumeration of a wedged driver yields an error the caller can
// log and retry on the next poll.
package transport
