package sysex

// packRunLen is the number of data bytes per packing run. Every run is
// followed by one continuation byte carrying the high bits.
const packRunLen = 7

// packer accumulates 8-bit bytes and emits their 7-bit-clean encoding.
type packer struct {
	out     []byte
	hiBits  byte
	hiCount int
}

// put encodes one byte. Bit 7 is stripped into the pending continuation
// byte, which is emitted after every seventh data byte.
func (p *packer) put(b byte) {
	p.hiBits |= b & 0x80
	p.hiBits >>= 1
	p.out = append(p.out, b&0x7F)
	p.hiCount++
	if p.hiCount == packRunLen {
		p.out = append(p.out, p.hiBits)
		p.hiBits = 0
		p.hiCount = 0
	}
}

// putUint16 encodes a 16-bit word MSB first.
func (p *packer) putUint16(v uint16) {
	p.put(byte(v >> 8))
	p.put(byte(v))
}

// flush zero-pads a partial final run so its continuation byte is emitted.
func (p *packer) flush() {
	for p.hiCount != 0 {
		p.put(0)
	}
}

// unpacker reverses the 7-bit packing: every eighth input byte supplies the
// missing high bits for the preceding seven.
type unpacker struct {
	buf  [packRunLen]byte
	n    int
	rdy  []byte
	next int
}

// put feeds one wire byte. After the continuation byte of a run arrives the
// reconstructed 8-bit bytes become available via get.
func (u *unpacker) put(b byte) {
	if u.n < packRunLen {
		u.buf[u.n] = b
		u.n++
		return
	}
	// b is the continuation byte for the buffered run.
	hi := b
	u.rdy = u.rdy[:0]
	for i := 0; i < packRunLen; i++ {
		v := u.buf[i]
		if hi&1 != 0 {
			v |= 0x80
		}
		hi >>= 1
		u.rdy = append(u.rdy, v)
	}
	u.n = 0
	u.next = 0
}

// get returns the next reconstructed byte, if a complete run is pending.
func (u *unpacker) get() (byte, bool) {
	if u.next >= len(u.rdy) {
		return 0, false
	}
	b := u.rdy[u.next]
	u.next++
	return b, true
}
