// Package dsp implements the SNES DSP: 8 voices, BRR playback,
// ADSR/GAIN envelopes, echo with an 8-tap FIR, and a noise LFSR, all
// driven by the 32-step pipeline spec.md §4.1.2 describes. The step
// schedule and constants here are transcribed from the reference SNES
// DSP core (ares, ISC-licensed) kept in this repo's grounding corpus
// (original_source/{voice,envelope,gaussian,counter,brr}.cpp).
package dsp

import "github.com/ntrak/nspctool/internal/bits"

// Envelope modes.
const (
	EnvRelease = iota
	EnvAttack
	EnvDecay
	EnvSustain
)

// Memory is the narrow read/write surface the DSP needs into shared
// ARAM. The APU wrapper owns the backing array; DSP never allocates
// or owns memory itself, per spec §3.7.
type Memory interface {
	ReadByte(addr uint16) byte
	WriteByte(addr uint16, value byte)
}

type clock struct {
	counter int // n15
	sample  bool
}

type mainVol struct {
	reset  bool
	mute   bool
	volume [2]int8
	output [2]int
}

type echoState struct {
	feedback  int8
	volume    [2]int8
	fir       [8]int8
	history   [2][8]int
	page      byte
	delay     byte
	readonly  bool
	input     [2]int
	output    [2]int
	address   uint16
	offset    uint16
	length    uint16
	histIndex int
}

type noiseState struct {
	frequency byte
	lfsr      int // n15, seeded 0x4000
}

type brrState struct {
	bank        byte
	source      byte
	address     uint16
	nextAddress uint16
	header      byte
	data        byte
}

type latchState struct {
	adsr0  byte
	envx   byte
	outx   byte
	pitch  int // n15
	output int // i16
}

// Voice is one of the DSP's 8 playback channels.
type Voice struct {
	Index int

	Volume       [2]int8
	Pitch        int // n14
	Source       byte
	ADSR0, ADSR1 byte
	Gain         byte
	EnvX         byte
	KeyOn        bool
	KeyOff       bool
	Modulate     bool
	Noise        bool
	Echo         bool

	Buffer       [12]int
	BufferOffset int
	GaussianOff  int // n16
	BrrAddress   uint16
	BrrOffset    int // n4, starts at 1
	KeyOnDelay   int // n3
	EnvMode      int
	Envelope     int // n11

	envelope int // internal s32 accumulator, wider than the n11 latch
	end      bool // ENDX latch, published into the DSP's ENDX register once per sample
	looped   bool
}

// DSP holds all global and per-voice state plus the precomputed
// Gaussian table. ChannelMask mutes voices at the output-mix stage
// without touching their envelopes, matching the real hardware.
type DSP struct {
	Mem Memory

	ChannelMask byte

	clock   clock
	mainvol mainVol
	echo    echoState
	noise   noiseState
	brr     brrState
	latch   latchState
	voice   [8]Voice

	gaussianTable [512]int16

	registers [128]byte
}

// New builds a DSP bound to mem and computes the Gaussian table.
func New(mem Memory) *DSP {
	d := &DSP{Mem: mem, ChannelMask: 0xFF}
	d.gaussianConstructTable()
	d.Power(true)
	return d
}

// Power resets all DSP state and forces the FLG mute/reset latch on, as
// at power-up; the DSP stays muted until FLG bit 7 is explicitly
// cleared (spec §4.1.2, "Mute and reset"). The latch is forced on
// whatever reset is; reset only decides ChannelMask: true keeps the
// current mask, false restores it to 0xFF.
func (d *DSP) Power(reset bool) {
	d.clock = clock{counter: 0, sample: true}
	d.mainvol = mainVol{reset: true, mute: true}
	d.echo = echoState{}
	d.noise = noiseState{lfsr: 0x4000}
	d.brr = brrState{}
	d.latch = latchState{}
	for i := range d.voice {
		d.voice[i] = Voice{Index: i, BrrOffset: 1}
	}
	for i := range d.registers {
		d.registers[i] = 0
	}
	d.registers[0x6C] = 0xE0 // FLG: mute+reset on, echo writes disabled
	if !reset {
		d.ChannelMask = 0xFF
	}
}

// ReadReg returns the DSP register file's readback value at addr
// (masked to 7 bits by the caller, per spec §4.1.3).
func (d *DSP) ReadReg(addr byte) byte {
	return d.registers[addr&0x7F]
}

// WriteReg applies a register write's side effect, per spec §4.1.2's
// "Failure modes": writes to ENDX (0x7C) are silently discarded, and
// every other register latches its raw byte plus whatever derived
// state the register implies.
func (d *DSP) WriteReg(addr byte, value byte) {
	a := addr & 0x7F
	if a == 0x7C { // ENDX is read-only; auto-cleared, writes ignored
		return
	}
	d.registers[a] = value
	reg := a & 0xF
	if reg < 0xA {
		d.applyVoiceRegisterWrite(int(a>>4), reg, value)
		return
	}
	d.applyGlobalRegisterWrite(a, value)
}

func (d *DSP) applyVoiceRegisterWrite(vi int, reg byte, value byte) {
	v := &d.voice[vi]
	switch reg {
	case 0x0:
		v.Volume[0] = int8(value)
	case 0x1:
		v.Volume[1] = int8(value)
	case 0x2:
		v.Pitch = bits.U14((v.Pitch & 0xFF00) | int(value))
	case 0x3:
		v.Pitch = bits.U14((v.Pitch & 0x00FF) | int(value)<<8)
	case 0x4:
		v.Source = value
	case 0x5:
		v.ADSR0 = value
	case 0x6:
		v.ADSR1 = value
	case 0x7:
		v.Gain = value
	// 0x8 (ENVX) and 0x9 (OUTX) are readback-only; a raw register
	// write still lands in the backing array but has no further
	// effect, matching real hardware.
	case 0x8, 0x9:
	}
}

func (d *DSP) applyGlobalRegisterWrite(addr byte, value byte) {
	switch addr {
	case 0x0C: // MVOLL
		d.mainvol.volume[0] = int8(value)
	case 0x1C: // MVOLR
		d.mainvol.volume[1] = int8(value)
	case 0x2C: // EVOLL
		d.echo.volume[0] = int8(value)
	case 0x3C: // EVOLR
		d.echo.volume[1] = int8(value)
	case 0x4C: // KON
		for i := 0; i < 8; i++ {
			d.voice[i].KeyOn = value&(1<<uint(i)) != 0
		}
	case 0x5C: // KOFF
		for i := 0; i < 8; i++ {
			d.voice[i].KeyOff = value&(1<<uint(i)) != 0
		}
	case 0x6C: // FLG
		d.mainvol.reset = value&0x80 != 0
		d.mainvol.mute = value&0x40 != 0
		d.echo.readonly = value&0x20 != 0
		d.noise.frequency = value & 0x1F
		if d.mainvol.reset {
			for i := range d.voice {
				d.voice[i].EnvMode = EnvRelease
				d.voice[i].Envelope = 0
				d.voice[i].envelope = 0
			}
		}
	case 0x7C: // ENDX, handled by WriteReg before dispatch
	case 0x0D: // EFB
		d.echo.feedback = int8(value)
	case 0x2D: // PMON
		for i := 1; i < 8; i++ {
			d.voice[i].Modulate = value&(1<<uint(i)) != 0
		}
	case 0x3D: // NON
		for i := 0; i < 8; i++ {
			d.voice[i].Noise = value&(1<<uint(i)) != 0
		}
	case 0x4D: // EON
		for i := 0; i < 8; i++ {
			d.voice[i].Echo = value&(1<<uint(i)) != 0
		}
	case 0x5D: // DIR, BRR sample directory page
		d.brr.bank = value
	case 0x6D: // ESA, echo buffer page
		d.echo.page = value
	case 0x7D: // EDL, echo delay (4-bit)
		d.echo.delay = value & 0xF
		d.echo.length = uint16(d.echo.delay) * 0x800
	default:
		if addr&0xF == 0xF && addr < 0x80 { // FIR coefficients, 0x0F/0x1F/.../0x7F
			d.echo.fir[addr>>4] = int8(value)
		}
	}
}

// Mute reports whether the global mute/reset latch (FLG bit 7) is
// currently set, per spec §4.1.3's muted() contract. Writing a zero to
// FLG (clearing both bit 7 and bit 6) is what audibly starts the DSP
// after reset.
func (d *DSP) Mute() bool { return d.mainvol.reset }
