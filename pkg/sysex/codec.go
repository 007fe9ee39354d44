package sysex

import (
	"errors"
	"fmt"

	"github.com/kmi-protocol/kmidi-go/pkg/midi"
)

// Frame layout constants.
const (
	// MaxPayloadSize is the largest payload a single packet may carry.
	MaxPayloadSize = 1024

	// headerLen is the size of the plain (unpacked) frame header:
	// F0, manufacturer id (3), product id (2), format, four reserved zeros.
	headerLen = 11

	// encodeMarker introduces the 7-bit packed region.
	encodeMarker = 0x01

	// tailLen is the size of the packed trailer: next-length word plus
	// payload CRC word.
	tailLen = 4

	// preambleLen is the number of packed preamble bytes: category, type,
	// length word, preamble CRC word.
	preambleLen = 6

	// preambleCRCLen is the count of preamble bytes covered by the
	// preamble CRC (the CRC storage bytes themselves are excluded).
	preambleCRCLen = 4
)

// ManufacturerID is the 3-byte MIDI manufacturer id carried by every frame.
var ManufacturerID = [3]byte{0x00, 0x01, 0x5F}

// Codec errors.
var (
	// ErrForeignFrame indicates the bytes are not one of our SysEx frames.
	ErrForeignFrame = errors.New("not a vendor sysex frame")

	// ErrTruncated indicates the frame ended before decoding completed.
	ErrTruncated = errors.New("truncated sysex frame")

	// ErrPreambleCRC indicates the preamble checksum did not match.
	ErrPreambleCRC = errors.New("preamble crc mismatch")

	// ErrPayloadCRC indicates the payload checksum did not match.
	ErrPayloadCRC = errors.New("payload crc mismatch")

	// ErrOverflow indicates the payload exceeds MaxPayloadSize.
	ErrOverflow = errors.New("payload exceeds maximum size")
)

// Packet is a decoded vendor SysEx packet.
type Packet struct {
	ProductID uint16
	Category  byte
	Type      byte
	Payload   []byte
}

// IsVendorFrame reports whether data begins like one of our SysEx frames
// (start marker plus manufacturer id). It does not validate the contents.
func IsVendorFrame(data []byte) bool {
	return len(data) > 3 &&
		data[0] == midi.SysExStart &&
		data[1] == ManufacturerID[0] &&
		data[2] == ManufacturerID[1] &&
		data[3] == ManufacturerID[2]
}

// Encode frames a (category, type, payload) tuple for the given product as a
// complete SysEx message, 7-bit packed and CRC protected.
func Encode(productID uint16, category, typ byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrOverflow, len(payload), MaxPayloadSize)
	}

	out := make([]byte, 0, headerLen+2+len(payload)+len(payload)/packRunLen+16)
	out = append(out,
		midi.SysExStart,
		ManufacturerID[0], ManufacturerID[1], ManufacturerID[2],
		byte(productID>>8)&0x7F, byte(productID)&0x7F,
		0x00,             // format
		0, 0, 0, 0,       // reserved
		encodeMarker,
	)

	p := packer{out: out}
	crc := NewCRC16()

	// Preamble: category/type word and length word, then their CRC.
	catType := uint16(category)<<8 | uint16(typ)
	putCRC16 := func(v uint16) {
		crc.Update(byte(v >> 8))
		crc.Update(byte(v))
		p.putUint16(v)
	}
	putCRC16(catType)
	lenField := uint16(0)
	if len(payload) > 0 {
		lenField = uint16(len(payload) + tailLen)
	}
	putCRC16(lenField)
	p.putUint16(crc.Sum16())

	// Payload with a fresh CRC, closed by the next-length word (zero: no
	// further packet) and the payload CRC.
	if len(payload) > 0 {
		crc.Reset()
		for _, b := range payload {
			crc.Update(b)
			p.put(b)
		}
		putCRC16(0) // next packet length
		p.putUint16(crc.Sum16())
	}

	p.flush()
	return append(p.out, midi.SysExStop), nil
}

// Decode parses a complete SysEx message produced by Encode (or by the
// device firmware's equivalent encoder). A preamble CRC failure aborts
// before any payload byte is trusted.
func Decode(frame []byte) (Packet, error) {
	if !IsVendorFrame(frame) {
		return Packet{}, ErrForeignFrame
	}
	if len(frame) < headerLen+1 {
		return Packet{}, ErrTruncated
	}

	pkt := Packet{
		ProductID: uint16(frame[4])<<8 | uint16(frame[5]),
	}

	// Scan forward past the format/reserved bytes for the encode marker.
	i := 6
	for frame[i] != encodeMarker {
		i++
		if i >= len(frame) || frame[i] == midi.SysExStop {
			return Packet{}, ErrTruncated
		}
	}
	i++

	var (
		u          unpacker
		crc        = NewCRC16()
		count      int // index into the decoded byte stream
		preamble   [preambleLen]byte
		payloadLen = -1 // unknown until the preamble is verified
		tail       []byte
	)

	for ; i < len(frame) && frame[i] != midi.SysExStop; i++ {
		u.put(frame[i])
		for {
			b, ok := u.get()
			if !ok {
				break
			}

			switch {
			case count < preambleCRCLen:
				crc.Update(b)
				preamble[count] = b

			case count < preambleLen:
				// Preamble CRC storage bytes: not accumulated.
				preamble[count] = b

			case count-preambleLen < payloadLen:
				crc.Update(b)
				pkt.Payload = append(pkt.Payload, b)

			case len(tail) < tailLen:
				if len(tail) < 2 {
					// Next-length word is covered by the payload CRC.
					crc.Update(b)
				}
				tail = append(tail, b)
			}
			count++

			if count == preambleLen {
				stored := uint16(preamble[4])<<8 | uint16(preamble[5])
				if stored != crc.Sum16() {
					return Packet{}, ErrPreambleCRC
				}

				// Only now is the preamble trustworthy.
				pkt.Category = preamble[0]
				pkt.Type = preamble[1]
				lenField := int(preamble[2])<<8 | int(preamble[3])
				switch {
				case lenField == 0:
					return pkt, nil
				case lenField < tailLen:
					return Packet{}, ErrTruncated
				case lenField-tailLen > MaxPayloadSize:
					return Packet{}, fmt.Errorf("%w: %d > %d", ErrOverflow, lenField-tailLen, MaxPayloadSize)
				default:
					payloadLen = lenField - tailLen
				}
				crc.Reset()
			}

			if len(tail) == tailLen {
				stored := uint16(tail[2])<<8 | uint16(tail[3])
				if stored != crc.Sum16() {
					return Packet{}, ErrPayloadCRC
				}
				return pkt, nil
			}
		}
	}
	return Packet{}, ErrTruncated
}
