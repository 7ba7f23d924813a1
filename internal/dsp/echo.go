package dsp

// echoStep runs the echo subsystem for the current sample: it reads
// the ring buffer at ESA+offset, applies the 8-tap FIR filter across
// history, mixes the filtered result (scaled by EVOL) into the main
// output, and — unless ESA is in read-only mode or the global
// reset/mute latch is set — writes feedback*echo + dry input back into
// the ring buffer. Transcribed from original_source/dsp.h's ECHO21-30
// slots and algorithms.cpp's FIR accumulation.
func (d *DSP) echoStep() {
	addr := uint16(d.echo.page)<<8 + d.echo.offset

	for ch := 0; ch < 2; ch++ {
		lo := d.Mem.ReadByte(addr + uint16(ch*2))
		hi := d.Mem.ReadByte(addr + uint16(ch*2) + 1)
		sample := int(int16(uint16(lo) | uint16(hi)<<8))

		d.echo.history[ch][d.echo.histIndex] = sample

		var sum int
		for t := 0; t < 8; t++ {
			idx := (d.echo.histIndex + 1 + t) % 8
			sum += d.echo.history[ch][idx] * int(d.echo.fir[t])
		}
		sum = int(int16(sum >> 6))
		d.echo.output[ch] = sclamp16(sum)
	}
	d.echo.histIndex = (d.echo.histIndex + 1) % 8

	for ch := 0; ch < 2; ch++ {
		out := d.mainvol.output[ch]
		out += d.echo.output[ch] * int(d.echo.volume[ch]) >> 7
		d.mainvol.output[ch] = sclamp16(out)
	}

	if !d.echo.readonly && !d.mainvol.reset {
		for ch := 0; ch < 2; ch++ {
			feedback := d.echo.output[ch] * int(d.echo.feedback) >> 7
			in := sclamp16(d.echo.input[ch] + feedback)
			lo := byte(in)
			hi := byte(in >> 8)
			d.Mem.WriteByte(addr+uint16(ch*2), lo)
			d.Mem.WriteByte(addr+uint16(ch*2)+1, hi)
		}
	}

	d.echo.offset += 4
	if d.echo.offset >= d.echo.length {
		d.echo.offset = 0
	}

	d.tickNoise()
}

// tickNoise clocks the noise LFSR at the rate selected by FLG's low 5
// bits, using the same period table the envelope counter uses.
func (d *DSP) tickNoise() {
	if d.counterPoll(int(d.noise.frequency)) {
		lfsr := d.noise.lfsr
		feedback := (lfsr << 13) ^ (lfsr << 14)
		d.noise.lfsr = (feedback & 0x4000) | (lfsr >> 1)
	}
}
