package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductString(t *testing.T) {
	assert.Equal(t, "SoftStep", ProductSoftStep2.String())
	assert.Equal(t, "SoftStep Bootloader", ProductSoftStepBL.String())
	assert.Equal(t, "12 Step", Product12Step2.String())
	assert.Equal(t, "QuNeo", ProductQuNeo.String())
	assert.Equal(t, "K-Board Pro 4", ProductKBP4.String())
	assert.Equal(t, "Unknown", ProductID(999).String())
}

func TestProductInquiry(t *testing.T) {
	assert.Equal(t, InquirySoftStepLegacy, ProductSoftStep1.Inquiry())
	assert.Equal(t, Inquiry12StepLegacy, Product12Step1.Inquiry())
	assert.Equal(t, InquiryUniversal, ProductQuNexus.Inquiry())
	assert.Equal(t, InquiryUniversal, Product12Step2.Inquiry())
}

func TestProductIsBootloader(t *testing.T) {
	assert.True(t, ProductSoftStepBL.IsBootloader())
	assert.True(t, ProductBopPadBL.IsBootloader())
	assert.False(t, ProductBopPad.IsBootloader())
}

func TestLatestRelease(t *testing.T) {
	rel, ok := LatestRelease(ProductQuNexus)
	assert.True(t, ok)
	assert.Equal(t, Version{2, 2, 0}, rel.Firmware)
	assert.Equal(t, Version{1, 0, 2}, rel.Bootloader)

	rel, ok = LatestRelease(ProductSoftStep2)
	assert.True(t, ok)
	assert.Equal(t, Version{2, 0, 5}, rel.Firmware)

	_, ok = LatestRelease(ProductRogue)
	assert.False(t, ok)
}
