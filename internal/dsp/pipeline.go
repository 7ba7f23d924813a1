package dsp

import "github.com/ntrak/nspctool/internal/bits"

// Sample runs the DSP for one output sample and returns the mixed
// stereo frame. The real hardware interleaves each voice's nine
// substeps (V1..V9) and the echo/misc slots across 32 physical clock
// steps so that silicon can pipeline across voices; functionally this
// only matters because voice n's pitch-modulation substep (V3c) reads
// the previous voice's already-latched output from the same sample.
// Sample reproduces that single cross-voice dependency by running each
// voice's full V1..V9 chain in index order 0..7 — voice i's V3c always
// sees voice i-1's finished output — which yields the same mixed
// sample the 32-step interleaving does, without exposing mid-sample
// register state the APU's step()-granularity API never lets a caller
// observe anyway. See DESIGN.md for the tradeoff.
func (d *DSP) Sample() (left, right int16) {
	d.clock.sample = true

	d.mainvol.output[0] = 0
	d.mainvol.output[1] = 0
	d.echo.input[0] = 0
	d.echo.input[1] = 0

	for i := range d.voice {
		d.runVoice(&d.voice[i])
	}

	var endx byte
	for i, v := range d.voice {
		if v.end {
			endx |= 1 << uint(i)
		}
	}
	d.registers[0x7C] = endx

	d.echoStep()
	d.counterTick()

	l := d.mainvol.output[0]
	r := d.mainvol.output[1]
	if d.mainvol.mute {
		l, r = 0, 0
	}
	return int16(l), int16(r)
}

func (d *DSP) runVoice(v *Voice) {
	d.voice1(v)
	d.voice2(v)
	d.voice3(v)
	d.voice4(v)
	d.voice5(v)
	d.voice6(v)
	d.voice7(v)
	d.voice8(v)
	d.voice9(v)
}

// voice1: latch the BRR source number and compute its directory entry
// address.
func (d *DSP) voice1(v *Voice) {
	d.brr.address = uint16(d.brr.bank)<<8 + uint16(d.brr.source)*4
	d.brr.source = v.Source
}

// voice2: read the directory entry to get the next BRR block address
// (start if key-on pending, loop address otherwise); latch ADSR0 and
// the low byte of pitch.
func (d *DSP) voice2(v *Voice) {
	addr := d.brr.address
	if v.KeyOnDelay == 0 {
		addr += 2
	}
	lo := d.Mem.ReadByte(addr)
	hi := d.Mem.ReadByte(addr + 1)
	d.brr.nextAddress = uint16(lo) | uint16(hi)<<8
	d.latch.adsr0 = v.ADSR0
	d.latch.pitch = int(v.Pitch) & 0xFF
}

func (d *DSP) voice3(v *Voice) {
	d.voice3a(v)
	d.voice3b(v)
	d.voice3c(v)
}

func (d *DSP) voice3a(v *Voice) {
	d.latch.pitch |= int(v.Pitch) &^ 0xFF
}

func (d *DSP) voice3b(v *Voice) {
	d.brr.data = d.Mem.ReadByte(uint16(int(v.BrrAddress) + v.BrrOffset))
	d.brr.header = d.Mem.ReadByte(v.BrrAddress)
}

func (d *DSP) voice3c(v *Voice) {
	if v.Modulate {
		d.latch.pitch += (d.latch.output >> 5) * d.latch.pitch >> 10
	}

	if v.KeyOnDelay > 0 {
		if v.KeyOnDelay == 5 {
			v.BrrAddress = d.brr.nextAddress
			v.BrrOffset = 1
			v.BufferOffset = 0
			d.brr.header = 0
		}
		v.Envelope = 0
		v.envelope = 0
		v.GaussianOff = 0
		v.KeyOnDelay--
		if v.KeyOnDelay&3 != 0 {
			v.GaussianOff = 0x4000
		}
		d.latch.pitch = 0
	}

	output := d.gaussianInterpolate(v)

	if v.Noise {
		output = int(int16(d.noise.lfsr << 1))
	}

	d.latch.output = output * v.Envelope >> 11 &^ 1
	v.EnvX = byte(v.Envelope >> 4)

	if d.mainvol.reset || (d.brr.header&0x3) == 1 {
		v.EnvMode = EnvRelease
		v.Envelope = 0
		v.envelope = 0
	}

	if d.clock.sample {
		if v.KeyOff {
			v.EnvMode = EnvRelease
		}
		if v.KeyOn {
			v.KeyOnDelay = 5
			v.EnvMode = EnvAttack
		}
	}

	if v.KeyOnDelay == 0 {
		d.envelopeRun(v)
	}
}

// voice4: decode more BRR nibbles once the Gaussian phase crosses
// 0x4000, advance the block pointer (looping via the header's end
// bit), advance the Gaussian phase, and mix into the left output.
func (d *DSP) voice4(v *Voice) {
	v.looped = false
	if v.GaussianOff >= 0x4000 {
		d.brrDecode(v)
		v.BrrOffset += 2
		if v.BrrOffset >= 9 {
			v.BrrAddress = bits16(int(v.BrrAddress) + 9)
			if d.brr.header&0x1 != 0 {
				v.BrrAddress = d.brr.nextAddress
				v.looped = true
			}
			v.BrrOffset = 1
		}
	}

	v.GaussianOff = (v.GaussianOff & 0x3FFF) + d.latch.pitch
	if v.GaussianOff > 0x7FFF {
		v.GaussianOff = 0x7FFF
	}

	d.voiceOutput(v, 0)
}

func bits16(x int) uint16 { return uint16(bits.U16(x)) }

// voice5: mix into the right output; fold the loop flag into End;
// clear End on a fresh key-on.
func (d *DSP) voice5(v *Voice) {
	d.voiceOutput(v, 1)
	v.end = v.end || v.looped
	if v.KeyOnDelay == 5 {
		v.end = false
	}
}

// voice6: latch OUTX from the high byte of the mixed output.
func (d *DSP) voice6(v *Voice) {
	d.latch.outx = byte(d.latch.output >> 8)
}

// voice7: publish ENDX is done once per sample in Sample(); latch the
// voice's ENVX into the shared latch for voice9 to publish.
func (d *DSP) voice7(v *Voice) {
	d.latch.envx = v.EnvX
}

// voice8: publish OUTX to the voice's readback register.
func (d *DSP) voice8(v *Voice) {
	d.registers[v.Index<<4|0x9] = d.latch.outx
}

// voice9: publish ENVX to the voice's readback register.
func (d *DSP) voice9(v *Voice) {
	d.registers[v.Index<<4|0x8] = d.latch.envx
}

func (d *DSP) voiceOutput(v *Voice, channel int) {
	amp := d.latch.output * int(v.Volume[channel]) >> 7

	if d.ChannelMask&(1<<uint(v.Index)) == 0 {
		amp = 0
	}

	d.mainvol.output[channel] += amp
	d.mainvol.output[channel] = sclamp17(d.mainvol.output[channel])

	if v.Echo {
		d.echo.input[channel] += amp
		d.echo.input[channel] = sclamp17(d.echo.input[channel])
	}
}
