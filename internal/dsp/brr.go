package dsp

// brrDecode decodes the next 4 nibbles of voice v's current BRR block
// into its 12-entry ring buffer. Filter coefficients and the wrap-near
// full-scale behavior are transcribed from original_source/brr.cpp.
func (d *DSP) brrDecode(v *Voice) {
	next := int(d.Mem.ReadByte(uint16(int(v.BrrAddress) + v.BrrOffset + 1)))
	nybbles := int32(d.brr.data)<<8 | int32(next)

	filter := int((d.brr.header >> 2) & 0x3)
	scale := int((d.brr.header >> 4) & 0xF)

	for n := 0; n < 4; n++ {
		s := int32(int16(nybbles)) >> 12
		nybbles <<= 4

		si := int(s)
		if scale <= 12 {
			si <<= scale
			si >>= 1
		} else {
			si &^= 0x7FF
		}

		offset := v.BufferOffset
		offset--
		if offset < 0 {
			offset = 11
		}
		p1 := v.Buffer[offset]
		offset--
		if offset < 0 {
			offset = 11
		}
		p2 := v.Buffer[offset] >> 1

		switch filter {
		case 0:
		case 1:
			// p1 * 0.46875
			si += p1 >> 1
			si += (-p1) >> 5
		case 2:
			// p1*0.953125 - p2*0.46875
			si += p1
			si -= p2
			si += p2 >> 4
			si += (p1 * -3) >> 6
		case 3:
			// p1*0.8984375 - p2*0.40625
			si += p1
			si -= p2
			si += (p1 * -13) >> 7
			si += (p2 * 3) >> 4
		}

		si = sclamp16(si)
		si = int(int16(si << 1))
		v.Buffer[v.BufferOffset] = si
		v.BufferOffset++
		if v.BufferOffset >= 12 {
			v.BufferOffset = 0
		}
	}
}
