package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMem struct {
	ram [0x10000]byte
}

func (m *fakeMem) ReadByte(addr uint16) byte          { return m.ram[addr] }
func (m *fakeMem) WriteByte(addr uint16, value byte)  { m.ram[addr] = value }

func TestNewStartsMutedAndReset(t *testing.T) {
	d := New(&fakeMem{})
	assert.True(t, d.Mute())
	assert.Equal(t, byte(0xE0), d.registers[0x6C])
}

func TestWriteRegToEndxIsDiscarded(t *testing.T) {
	d := New(&fakeMem{})
	d.registers[0x7C] = 0x42
	d.WriteReg(0x7C, 0xFF)
	assert.Equal(t, byte(0x42), d.registers[0x7C])
}

func TestFlgClearingMuteAndReset(t *testing.T) {
	d := New(&fakeMem{})
	d.WriteReg(0x6C, 0x00)
	assert.False(t, d.Mute())
	assert.False(t, d.mainvol.mute)
}

func TestKonKoffBitsSetPerVoiceLatches(t *testing.T) {
	d := New(&fakeMem{})
	d.WriteReg(0x4C, 0b0000_0101) // KON voices 0,2
	assert.True(t, d.voice[0].KeyOn)
	assert.False(t, d.voice[1].KeyOn)
	assert.True(t, d.voice[2].KeyOn)

	d.WriteReg(0x5C, 0b0000_0010) // KOFF voice 1
	assert.True(t, d.voice[1].KeyOff)
	assert.False(t, d.voice[0].KeyOff)
}

func TestPitchRegisterAssemblyFromLoAndHiBytes(t *testing.T) {
	d := New(&fakeMem{})
	d.WriteReg(0x02, 0x34) // voice 0 pitch lo
	d.WriteReg(0x03, 0x1F) // voice 0 pitch hi (masked to n14)
	assert.Equal(t, 0x1F34&0x3FFF, d.voice[0].Pitch)
}

func TestFirCoefficientWrite(t *testing.T) {
	d := New(&fakeMem{})
	d.WriteReg(0x0F, 0x10)
	d.WriteReg(0x1F, 0x20)
	assert.Equal(t, int8(0x10), d.echo.fir[0])
	assert.Equal(t, int8(0x20), d.echo.fir[1])
}

func TestVolumeRegistersRoundTrip(t *testing.T) {
	d := New(&fakeMem{})
	d.WriteReg(0x0C, 0x40) // MVOLL
	d.WriteReg(0x1C, 0x50) // MVOLR
	assert.Equal(t, int8(0x40), d.mainvol.volume[0])
	assert.Equal(t, int8(0x50), d.mainvol.volume[1])
	assert.Equal(t, byte(0x40), d.ReadReg(0x0C))
}

func TestEchoDelayDerivesBufferLength(t *testing.T) {
	d := New(&fakeMem{})
	d.WriteReg(0x7D, 0x04) // EDL=4
	assert.Equal(t, uint16(4*0x800), d.echo.length)
}

func TestEnvelopeReleaseDecaysByEightAndFloorsAtZero(t *testing.T) {
	d := New(&fakeMem{})
	v := &d.voice[0]
	v.EnvMode = EnvRelease
	v.envelope = 100
	d.envelopeRun(v)
	assert.Equal(t, 92, v.envelope)
	assert.Equal(t, 92, v.Envelope)

	v.envelope = 5
	d.envelopeRun(v)
	assert.Equal(t, 0, v.envelope)
}

func TestEnvelopeGainDirectModeLatchesImmediately(t *testing.T) {
	d := New(&fakeMem{})
	v := &d.voice[0]
	v.EnvMode = EnvSustain // anything but Release, so the GAIN branch runs
	v.ADSR0 = 0            // GAIN mode
	v.Gain = 0x1A          // mode = 0 (direct), rate always fires (31)
	d.envelopeRun(v)
	assert.Equal(t, 0x1A<<4, v.Envelope)
}

func TestEnvelopeAdsrAttackRampsUp(t *testing.T) {
	d := New(&fakeMem{})
	v := &d.voice[0]
	v.ADSR0 = 0x80 | 0x0F // ADSR enabled, attack rate field = 0xF -> rate=31 (fast path, always fires)
	v.EnvMode = EnvAttack
	v.envelope = 0
	d.envelopeRun(v)
	assert.Equal(t, 0x400, v.envelope)
	assert.Equal(t, 0x400, v.Envelope)
}

func TestCounterTickWrapsAtPeriod(t *testing.T) {
	d := New(&fakeMem{})
	d.clock.counter = 0
	d.counterTick()
	assert.Equal(t, 2048*5*3-1, d.clock.counter)
}

func TestCounterPollNeverFiresOnRateZero(t *testing.T) {
	d := New(&fakeMem{})
	assert.False(t, d.counterPoll(0))
}

func TestCounterPollRate31AlwaysFires(t *testing.T) {
	d := New(&fakeMem{})
	for _, c := range []int{0, 1, 100, 30719} {
		d.clock.counter = c
		assert.True(t, d.counterPoll(31))
	}
}

func TestSclampBoundaries(t *testing.T) {
	assert.Equal(t, 0x7FFF, sclamp16(0x8000))
	assert.Equal(t, -0x8000, sclamp16(-0x8001))
	assert.Equal(t, 100, sclamp16(100))

	assert.Equal(t, (1<<16)-1, sclamp17(1<<16))
	assert.Equal(t, -(1 << 16), sclamp17(-(1<<16)-1))
}

func TestSampleStaysSilentWhileMuted(t *testing.T) {
	d := New(&fakeMem{})
	l, r := d.Sample()
	assert.Equal(t, int16(0), l)
	assert.Equal(t, int16(0), r)
}

func TestSampleUnmutedWithNoActiveVoicesIsSilentAndAdvancesEndx(t *testing.T) {
	d := New(&fakeMem{})
	d.WriteReg(0x6C, 0x00) // clear mute+reset
	d.WriteReg(0x0C, 0x7F)
	d.WriteReg(0x1C, 0x7F)
	d.registers[0x7C] = 0xFF // stale ENDX bits from before this sample

	l, r := d.Sample()
	assert.Equal(t, int16(0), l)
	assert.Equal(t, int16(0), r)
	assert.Equal(t, byte(0x00), d.ReadReg(0x7C)) // republished: no voice reached an end block
}

func TestPowerResetsMuteLatchAndVoices(t *testing.T) {
	d := New(&fakeMem{})
	d.WriteReg(0x6C, 0x00)
	d.voice[3].Envelope = 500
	d.Power(true)
	assert.True(t, d.Mute())
	assert.Equal(t, 0, d.voice[3].Envelope)
}

func TestNewInstallsNonDegenerateGaussianTable(t *testing.T) {
	d := New(&fakeMem{})
	var nonzero int
	for _, v := range d.gaussianTable {
		if v != 0 {
			nonzero++
		}
	}
	require.Greater(t, nonzero, 400)
}
