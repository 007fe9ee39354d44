package device

// Release is the latest shipped firmware (and, where the updater flashes
// one, bootloader) for a product family.
type Release struct {
	Firmware   Version
	Bootloader Version
}

// LatestRelease returns the newest released versions for the product.
// Products without a field-updatable firmware return ok=false.
func LatestRelease(p ProductID) (Release, bool) {
	switch p {
	case ProductQuNexus:
		return Release{Firmware: Version{2, 2, 0}, Bootloader: Version{1, 0, 2}}, true
	case ProductKBoard:
		return Release{Firmware: Version{1, 0, 1}}, true
	case ProductBopPad:
		return Release{Firmware: Version{3, 0, 0}}, true
	case ProductQuNeo:
		// The QuNeo reports a two-component boot version, padded here.
		return Release{Firmware: Version{1, 2, 31}, Bootloader: Version{1, 3, 0}}, true
	case Product12Step1, Product12Step2:
		return Release{Firmware: Version{1, 0, 7}}, true
	case ProductSoftStep1, ProductSoftStep2, ProductSoftStepUSB, ProductSoftStep3:
		return Release{Firmware: Version{2, 0, 5}, Bootloader: Version{1, 0, 0}}, true
	}
	return Release{}, false
}
