// Package ports tracks the OS MIDI port topology for the device family.
//
// The OS does not notify us about hot-plug events on every platform, so the
// Registry is polled: each ScanAndDiff call enumerates both directions,
// compares against the retained name to index maps and emits the difference
// as an ordered event list:
//
//	1. disconnects  (ports that vanished)
//	2. connects     (ports that appeared)
//	3. renumbers    (ports whose index moved)
//
// Port names pass through a normalization step first. Legacy multi-port
// devices report unstable or localized names ("QuNexus Portii 1" on a
// non-english macOS, "MIDIIN2 (SSCOM)" on Windows), so an alias rule table
// maps them back to the canonical logical name the rest of the stack keys
// on. Unmatched names pass through unchanged. Extra rules can be supplied
// from YAML for devices discovered after release.
package ports
