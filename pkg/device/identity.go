package device

import (
	"bytes"

	"github.com/kmi-protocol/kmidi-go/pkg/midi"
	"github.com/kmi-protocol/kmidi-go/pkg/sysex"
)

// Identity is what a session knows about the attached device. Version
// fields stay zero until an identity reply has been parsed.
type Identity struct {
	Product        ProductID
	Firmware       Version
	Bootloader     Version
	Expected       Version
	BootloaderMode bool
}

// Name returns the product's human-readable name.
func (id Identity) Name() string { return id.Product.String() }

// FirmwareCurrent reports whether the device runs the firmware the
// application expects. Unknown (zero) device versions never match.
func (id Identity) FirmwareCurrent() bool {
	return !id.Firmware.IsZero() && id.Firmware == id.Expected
}

// Standard identity reply layout, offsets from the start of the frame.
const (
	replyOffProduct        = 8
	replyOffBootloaderMode = 10
	replyOffBootloaderVer  = 12
	replyOffFirmwareVer    = 15
	replyMinLen            = 18

	// Legacy replies carry a single packed version digit here: high
	// nibble major, low nibble patch.
	legacyVersionOff = 68
)

// UniversalInquiry is the standard MIDI device inquiry, broadcast channel.
var UniversalInquiry = []byte{
	midi.SysExStart, midi.SysExUniversal, 0x7F, 0x06, 0x01, midi.SysExStop,
}

// universalReplyPrefix opens every standard identity reply.
var universalReplyPrefix = []byte{
	midi.SysExStart, midi.SysExUniversal, 0x00, 0x06, 0x02,
}

// softStepReplySig identifies an SSCOM-era SoftStep version reply when
// found at offset 2 of the frame.
var softStepReplySig = []byte{0x1B, 0x48, 0x7A, 0x01}

// twelveStepReplySig identifies a first-generation 12 Step version reply
// when found at offset 1 of the frame.
var twelveStepReplySig = []byte{0x00, 0x1B, 0x48, 0x7A, 0x02}

// SoftStepInquiry is the vendor version request SSCOM firmware answers.
var SoftStepInquiry = legacyInquiry(softStepReplySig)

// TwelveStepInquiry is the vendor version request 12 Step firmware answers.
var TwelveStepInquiry = legacyInquiry(twelveStepReplySig[1:])

// legacyInquiry builds the fixed 67-byte request blob the legacy firmware
// expects: signature after the start marker, zero padding, end marker.
func legacyInquiry(sig []byte) []byte {
	msg := make([]byte, 67)
	msg[0] = midi.SysExStart
	copy(msg[1:], sig)
	msg[len(msg)-1] = midi.SysExStop
	return msg
}

// LoopProbe is a vendor self-test message no device ever transmits.
// Receiving it back means the output port is cabled into the input port.
var LoopProbe = []byte{
	midi.SysExStart,
	sysex.ManufacturerID[0], sysex.ManufacturerID[1], sysex.ManufacturerID[2],
	0x7F, midi.SysExStop,
}

// IsLoopProbe reports whether data is the echoed self-test message.
func IsLoopProbe(data []byte) bool {
	return bytes.Equal(data, LoopProbe)
}

// Reply is a parsed identity reply.
type Reply struct {
	Product        ProductID
	Firmware       Version
	Bootloader     Version
	BootloaderMode bool

	// Legacy is set for the SSCOM/12 Step replies, which identify the
	// product by signature rather than by a product id field.
	Legacy bool
}

// ParseIdentityReply matches data against the three known reply shapes.
// ok=false means the frame is not an identity reply and should go to the
// ordinary SysEx path.
func ParseIdentityReply(data []byte) (Reply, bool) {
	// Legacy SoftStep: signature at offset 2.
	if i := bytes.Index(data, softStepReplySig); i == 2 && len(data) > legacyVersionOff {
		return Reply{
			Product:  ProductSoftStep1,
			Firmware: unpackLegacyVersion(data[legacyVersionOff]),
			Legacy:   true,
		}, true
	}

	// Legacy 12 Step: signature at offset 1.
	if i := bytes.Index(data, twelveStepReplySig); i == 1 && len(data) > legacyVersionOff {
		return Reply{
			Product:  Product12Step1,
			Firmware: unpackLegacyVersion(data[legacyVersionOff]),
			Legacy:   true,
		}, true
	}

	// Standard universal reply at offset 0.
	if !bytes.HasPrefix(data, universalReplyPrefix) || len(data) < replyMinLen {
		return Reply{}, false
	}

	r := Reply{
		Product: ProductID(data[replyOffProduct])<<7 |
			ProductID(data[replyOffProduct+1]),
		BootloaderMode: data[replyOffBootloaderMode] != 0,
	}

	if r.Product == ProductQuNeo {
		// The QuNeo packs its versions differently: two boot bytes in
		// LSB MSB order and the firmware major/minor in one byte's
		// nibbles with the patch level in the byte before it.
		r.Bootloader = Version{
			data[replyOffBootloaderVer+1],
			data[replyOffBootloaderVer],
			0,
		}
		r.Firmware = Version{
			data[replyOffFirmwareVer] >> 4,
			data[replyOffFirmwareVer] & 0x0F,
			data[replyOffFirmwareVer-1],
		}
		return r, true
	}

	copy(r.Bootloader[:], data[replyOffBootloaderVer:replyOffBootloaderVer+3])
	copy(r.Firmware[:], data[replyOffFirmwareVer:replyOffFirmwareVer+3])
	return r, true
}

// unpackLegacyVersion expands the packed single-digit legacy version byte:
// 0x25 means 2.0.5.
func unpackLegacyVersion(b byte) Version {
	return Version{b >> 4, 0, b & 0x0F}
}

// Vendor message categories and types used by the update flow.
const (
	CategorySystem byte = 0x00

	TypeEnterBootloader byte = 0x01
	TypeGlobalsRequest  byte = 0x02
	TypeGlobalsData     byte = 0x03
)

// EnterBootloaderCommand frames the reboot-to-bootloader command for the
// product.
func EnterBootloaderCommand(p ProductID) ([]byte, error) {
	return sysex.Encode(uint16(p), CategorySystem, TypeEnterBootloader, nil)
}

// GlobalsRequestCommand frames the request for the device's user settings.
func GlobalsRequestCommand(p ProductID) ([]byte, error) {
	return sysex.Encode(uint16(p), CategorySystem, TypeGlobalsRequest, nil)
}

// GlobalsDataCommand frames a write of previously saved user settings.
func GlobalsDataCommand(p ProductID, globals []byte) ([]byte, error) {
	return sysex.Encode(uint16(p), CategorySystem, TypeGlobalsData, globals)
}
