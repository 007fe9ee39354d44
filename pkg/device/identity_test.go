package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmi-protocol/kmidi-go/pkg/sysex"
)

func standardReply(pid ProductID, blMode byte, bl, fw Version) []byte {
	data := make([]byte, 19)
	copy(data, universalReplyPrefix)
	copy(data[5:], sysex.ManufacturerID[:])
	data[8] = byte(pid >> 7)
	data[9] = byte(pid) & 0x7F
	data[10] = blMode
	copy(data[replyOffBootloaderVer:], bl[:])
	copy(data[replyOffFirmwareVer:], fw[:])
	data[18] = 0xF7
	return data
}

func TestParseIdentityReplyStandard(t *testing.T) {
	data := standardReply(ProductQuNexus, 0, Version{1, 0, 2}, Version{2, 2, 0})

	r, ok := ParseIdentityReply(data)
	require.True(t, ok)
	assert.Equal(t, ProductQuNexus, r.Product)
	assert.Equal(t, Version{1, 0, 2}, r.Bootloader)
	assert.Equal(t, Version{2, 2, 0}, r.Firmware)
	assert.False(t, r.BootloaderMode)
	assert.False(t, r.Legacy)
}

func TestParseIdentityReplyBootloaderMode(t *testing.T) {
	data := standardReply(ProductBopPad, 1, Version{}, Version{3, 0, 0})

	r, ok := ParseIdentityReply(data)
	require.True(t, ok)
	assert.True(t, r.BootloaderMode)
}

func TestParseIdentityReplyQuNeo(t *testing.T) {
	data := standardReply(ProductQuNeo, 0, Version{}, Version{})
	// Boot version 1.3 arrives LSB MSB.
	data[replyOffBootloaderVer] = 3
	data[replyOffBootloaderVer+1] = 1
	// Firmware 1.2.31: major/minor packed in nibbles, patch before it.
	data[replyOffFirmwareVer] = 0x12
	data[replyOffFirmwareVer-1] = 31

	r, ok := ParseIdentityReply(data)
	require.True(t, ok)
	assert.Equal(t, Version{1, 3, 0}, r.Bootloader)
	assert.Equal(t, Version{1, 2, 31}, r.Firmware)
}

func TestParseIdentityReplyLegacySoftStep(t *testing.T) {
	data := make([]byte, 70)
	data[0] = 0xF0
	data[1] = 0x00
	copy(data[2:], softStepReplySig)
	data[legacyVersionOff] = 0x25
	data[69] = 0xF7

	r, ok := ParseIdentityReply(data)
	require.True(t, ok)
	assert.True(t, r.Legacy)
	assert.Equal(t, ProductSoftStep1, r.Product)
	assert.Equal(t, Version{2, 0, 5}, r.Firmware)
}

func TestParseIdentityReplyLegacy12Step(t *testing.T) {
	data := make([]byte, 70)
	data[0] = 0xF0
	copy(data[1:], twelveStepReplySig)
	data[legacyVersionOff] = 0x17
	data[69] = 0xF7

	r, ok := ParseIdentityReply(data)
	require.True(t, ok)
	assert.True(t, r.Legacy)
	assert.Equal(t, Product12Step1, r.Product)
	assert.Equal(t, Version{1, 0, 7}, r.Firmware)
}

func TestParseIdentityReplyRejectsOtherSysEx(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"note on", []byte{0x90, 0x40, 0x7F}},
		{"vendor frame", []byte{0xF0, 0x00, 0x01, 0x5F, 0x00, 0x1E, 0x00, 0xF7}},
		{"truncated reply", standardReply(ProductQuNexus, 0, Version{}, Version{})[:12]},
		{"signature at wrong offset", append([]byte{0xF0}, softStepReplySig...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseIdentityReply(tt.data)
			assert.False(t, ok)
		})
	}
}

func TestLoopProbe(t *testing.T) {
	assert.True(t, IsLoopProbe(append([]byte(nil), LoopProbe...)))
	assert.False(t, IsLoopProbe(UniversalInquiry))
}

func TestLegacyInquiryShape(t *testing.T) {
	require.Len(t, SoftStepInquiry, 67)
	require.Len(t, TwelveStepInquiry, 67)
	assert.EqualValues(t, 0xF0, SoftStepInquiry[0])
	assert.EqualValues(t, 0xF7, SoftStepInquiry[66])
}

func TestEnterBootloaderCommandRoundTrips(t *testing.T) {
	frame, err := EnterBootloaderCommand(ProductQuNexus)
	require.NoError(t, err)

	pkt, err := sysex.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, uint16(ProductQuNexus), pkt.ProductID)
	assert.Equal(t, CategorySystem, pkt.Category)
	assert.Equal(t, TypeEnterBootloader, pkt.Type)
	assert.Empty(t, pkt.Payload)
}

func TestGlobalsCommandsRoundTrip(t *testing.T) {
	globals := []byte{0x01, 0x02, 0x03, 0x80, 0xFF}
	frame, err := GlobalsDataCommand(ProductSoftStep3, globals)
	require.NoError(t, err)

	pkt, err := sysex.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeGlobalsData, pkt.Type)
	assert.Equal(t, globals, pkt.Payload)
}
