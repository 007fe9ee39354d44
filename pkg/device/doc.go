// Package device holds the static knowledge about the supported control
// surfaces: product ids, human-readable names, the latest released firmware
// and bootloader versions, and the identity request/reply byte formats used
// by the handshake.
//
// Most devices answer the universal MIDI device inquiry. Two legacy
// families (SoftStep on SSCOM firmware, first-generation 12 Step) predate
// it and use vendor-specific request blobs whose replies carry a single
// packed version digit instead of full version triples.
package device
