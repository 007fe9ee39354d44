package sysex

// crcInit is the CRC16 seed value.
const crcInit = 0xFFFF

// CRC16 is the running frame checksum. It is not one of the standard named
// polynomials; the device firmware computes the same rotate/XOR sequence, so
// both sides must match bit for bit.
type CRC16 uint16

// NewCRC16 returns a checksum seeded for a new region.
func NewCRC16() CRC16 {
	return crcInit
}

// Reset re-seeds the accumulator. Called at the start of the preamble and
// again at the start of the payload.
func (c *CRC16) Reset() {
	*c = crcInit
}

// Update accumulates a single byte.
func (c *CRC16) Update(b byte) {
	temp := (uint16(*c) >> 8) ^ uint16(b)
	crc := uint16(*c) << 8
	quick := temp ^ (temp >> 4)
	crc ^= quick
	quick <<= 5
	crc ^= quick
	quick <<= 7
	crc ^= quick
	*c = CRC16(crc)
}

// UpdateBytes accumulates a run of bytes.
func (c *CRC16) UpdateBytes(data []byte) {
	for _, b := range data {
		c.Update(b)
	}
}

// Sum16 returns the current checksum value.
func (c CRC16) Sum16() uint16 {
	return uint16(c)
}
