package device

import (
	"strconv"
	"strings"
)

// ProductID is the USB/SysEx product id of a control surface.
type ProductID uint16

const (
	ProductAux        ProductID = 0
	ProductStringPort ProductID = 1

	// SoftStep family. The first two generations enumerate as SSCOM and
	// need port name translation; later ones hard-code their port names.
	ProductSoftStep1   ProductID = 10
	ProductSoftStep2   ProductID = 11
	ProductSoftStepUSB ProductID = 12
	ProductSoftStep3   ProductID = 13
	ProductSoftStepBL  ProductID = 14

	Product12Step1  ProductID = 20
	Product12StepBL ProductID = 21
	Product12Step2  ProductID = 22

	ProductQuNexus  ProductID = 25
	ProductKBoard   ProductID = 26
	ProductApplCbl  ProductID = 27
	ProductQuNeo    ProductID = 30
	ProductRogue    ProductID = 31
	ProductKMix     ProductID = 35
	ProductKMixCtl  ProductID = 36
	ProductKBP4     ProductID = 37
	ProductKBP4BL   ProductID = 38
	ProductEM1      ProductID = 39
	ProductEM1BL    ProductID = 40
	ProductBopPad   ProductID = 117
	ProductBopPadBL ProductID = 118
)

// String returns the product's human-readable name.
func (p ProductID) String() string {
	switch p {
	case ProductAux:
		return "Aux"
	case ProductStringPort:
		return "StringPort"
	case ProductSoftStep1, ProductSoftStep2, ProductSoftStepUSB, ProductSoftStep3:
		return "SoftStep"
	case ProductSoftStepBL:
		return "SoftStep Bootloader"
	case Product12Step1, Product12Step2:
		return "12 Step"
	case Product12StepBL:
		return "12 Step Bootloader"
	case ProductQuNexus:
		return "QuNexus"
	case ProductKBoard:
		return "K-Board"
	case ProductApplCbl:
		return "Accessory Cable"
	case ProductQuNeo:
		return "QuNeo"
	case ProductRogue:
		return "Rogue"
	case ProductKMix:
		return "K-Mix"
	case ProductKMixCtl:
		return "K-Mix Control"
	case ProductKBP4:
		return "K-Board Pro 4"
	case ProductKBP4BL:
		return "K-Board Pro 4 Bootloader"
	case ProductEM1:
		return "EM1"
	case ProductEM1BL:
		return "EM1 Bootloader"
	case ProductBopPad:
		return "BopPad"
	case ProductBopPadBL:
		return "BopPad Bootloader"
	default:
		return "Unknown"
	}
}

// ParseProduct resolves a product name as printed by String, or a numeric
// product id. Family names resolve to the newest member.
func ParseProduct(s string) (ProductID, bool) {
	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		return ProductID(n), true
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "softstep":
		return ProductSoftStep3, true
	case "12 step", "12step":
		return Product12Step2, true
	case "qunexus":
		return ProductQuNexus, true
	case "k-board", "kboard":
		return ProductKBoard, true
	case "quneo":
		return ProductQuNeo, true
	case "k-mix", "kmix":
		return ProductKMix, true
	case "k-board pro 4", "kbp4":
		return ProductKBP4, true
	case "boppad":
		return ProductBopPad, true
	}
	return 0, false
}

// IsBootloader reports whether this product id is a device sitting in its
// bootloader rather than running application firmware.
func (p ProductID) IsBootloader() bool {
	switch p {
	case ProductSoftStepBL, Product12StepBL, ProductKBP4BL, ProductEM1BL, ProductBopPadBL:
		return true
	}
	return false
}

// InquiryKind selects which identity request a product answers.
type InquiryKind uint8

const (
	// InquiryUniversal is the standard MIDI device inquiry.
	InquiryUniversal InquiryKind = iota

	// InquirySoftStepLegacy is the vendor request used by SSCOM-era
	// SoftStep firmware.
	InquirySoftStepLegacy

	// Inquiry12StepLegacy is the vendor request used by first-generation
	// 12 Step firmware.
	Inquiry12StepLegacy
)

// Inquiry returns the identity request kind for this product.
func (p ProductID) Inquiry() InquiryKind {
	switch p {
	case ProductSoftStep1, ProductSoftStep2:
		return InquirySoftStepLegacy
	case Product12Step1:
		return Inquiry12StepLegacy
	default:
		return InquiryUniversal
	}
}

// PreservesGlobals reports whether a firmware update must read the device's
// user settings out before flashing and write them back afterwards.
func (p ProductID) PreservesGlobals() bool {
	switch p {
	case ProductSoftStep1, ProductSoftStep2, ProductSoftStepUSB, ProductSoftStep3,
		Product12Step1, Product12Step2:
		return true
	}
	return false
}
