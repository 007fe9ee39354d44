// Package sysex implements the vendor SysEx packet codec.
//
// Arbitrary 8-bit payloads are carried inside MIDI system-exclusive messages,
// which only permit 7-bit data bytes. The codec frames a (product, category,
// type, payload) tuple as:
//
//	┌──────────────────────────────────────────────┐
//	│ F0  mfr×3  pid-hi  pid-lo  fmt  00 00 00 00  │  header (plain 7-bit)
//	├──────────────────────────────────────────────┤
//	│ 01                                           │  start-of-encoding
//	├──────────────────────────────────────────────┤
//	│ catType16  lenPlus4-16  preambleCRC16        │  7-bit packed
//	├──────────────────────────────────────────────┤
//	│ payload bytes                                │  7-bit packed
//	├──────────────────────────────────────────────┤
//	│ nextLen16(=0)  payloadCRC16                  │  7-bit packed
//	├──────────────────────────────────────────────┤
//	│ F7                                           │
//	└──────────────────────────────────────────────┘
//
// # 7-bit packing
//
// Output bytes are grouped in runs of seven. Bit 7 of each byte in a run is
// collected into an eighth "continuation" byte (bit i holds bit 7 of the
// i-th byte) emitted immediately after the run. A partial final run is
// zero-padded.
//
// # Integrity
//
// Two CRC16 checksums protect the frame: one over the preamble fields
// (category/type word and length word) and one over the payload bytes plus
// the trailing next-length word. The CRC accumulator is reset at the start
// of each region; the CRC storage bytes themselves are never accumulated.
// A preamble CRC mismatch aborts decoding before any payload byte is
// trusted.
package sysex
