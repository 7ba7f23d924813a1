package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	ram [0x10000]byte
}

func (b *fakeBus) ReadByte(addr uint16) byte         { return b.ram[addr] }
func (b *fakeBus) WriteByte(addr uint16, value byte) { b.ram[addr] = value }

type fakeDSP struct {
	regs [128]byte
}

func (d *fakeDSP) ReadReg(addr byte) byte         { return d.regs[addr&0x7F] }
func (d *fakeDSP) WriteReg(addr byte, value byte) { d.regs[addr&0x7F] = value }

func newTestCPU() (*CPU, *fakeBus, *fakeDSP) {
	bus := &fakeBus{}
	dsp := &fakeDSP{}
	c := New(bus, dsp)
	return c, bus, dsp
}

func TestResetLoadsVectorAndKnownStack(t *testing.T) {
	c, _, _ := newTestCPU()
	assert.Equal(t, uint16(0xFFC0), c.PC)
	assert.Equal(t, byte(0xEF), c.SP)
	assert.Equal(t, FlagI, c.P)
	assert.False(t, c.Stop)
	assert.False(t, c.Wait)
}

func TestResetZeroesRAMUnlessPreserved(t *testing.T) {
	c, bus, _ := newTestCPU()
	bus.ram[0x10] = 0xAA
	c.Reset(nil, false)
	assert.Equal(t, byte(0), bus.ram[0x10])

	bus.ram[0x10] = 0xBB
	c.Reset(nil, true)
	assert.Equal(t, byte(0xBB), bus.ram[0x10])
}

func TestAdcSetsCarryZeroOverflow(t *testing.T) {
	c, _, _ := newTestCPU()
	c.P = 0
	r := c.adc(0x7F, 0x01)
	assert.Equal(t, byte(0x80), r)
	assert.True(t, c.flag(FlagV)) // signed overflow: pos+pos=neg
	assert.True(t, c.flag(FlagN))
	assert.False(t, c.flag(FlagZ))

	c.P = 0
	r = c.adc(0xFF, 0x01)
	assert.Equal(t, byte(0x00), r)
	assert.True(t, c.flag(FlagC))
	assert.True(t, c.flag(FlagZ))
}

func TestSbcBorrowsThroughCarry(t *testing.T) {
	c, _, _ := newTestCPU()
	c.P = FlagC // no borrow going in
	r := c.sbc(0x05, 0x03)
	assert.Equal(t, byte(0x02), r)
	assert.True(t, c.flag(FlagC)) // no borrow out

	c.P = FlagC
	r = c.sbc(0x00, 0x01)
	assert.Equal(t, byte(0xFF), r)
	assert.False(t, c.flag(FlagC)) // borrow out
}

func TestCmpSetsCarryOnGreaterOrEqual(t *testing.T) {
	c, _, _ := newTestCPU()
	c.cmp(0x05, 0x05)
	assert.True(t, c.flag(FlagC))
	assert.True(t, c.flag(FlagZ))

	c.cmp(0x02, 0x05)
	assert.False(t, c.flag(FlagC))
	assert.False(t, c.flag(FlagZ))
}

func TestAslLsrRolRorShiftCarryThrough(t *testing.T) {
	c, _, _ := newTestCPU()
	c.P = 0
	assert.Equal(t, byte(0x02), c.asl(0x01))
	assert.False(t, c.flag(FlagC))
	assert.Equal(t, byte(0x00), c.asl(0x80))
	assert.True(t, c.flag(FlagC))

	c.P = 0
	assert.Equal(t, byte(0x01), c.lsr(0x02))
	assert.False(t, c.flag(FlagC))

	c.P = FlagC
	assert.Equal(t, byte(0x03), c.rol(0x01)) // shift in carry=1
	assert.False(t, c.flag(FlagC))

	c.P = FlagC
	assert.Equal(t, byte(0x80), c.ror(0x00)) // shift in carry into bit 7
}

func TestIncDecWrapWithoutTouchingCarry(t *testing.T) {
	c, _, _ := newTestCPU()
	c.P = FlagC
	assert.Equal(t, byte(0x00), c.inc(0xFF))
	assert.True(t, c.flag(FlagZ))
	assert.True(t, c.flag(FlagC)) // inc/dec never touch carry

	assert.Equal(t, byte(0xFF), c.dec(0x00))
	assert.True(t, c.flag(FlagN))
}

func TestWordAdcSbcCarryChainsAcrossBytes(t *testing.T) {
	c, _, _ := newTestCPU()
	got := c.adw(0x00FF, 0x0001)
	assert.Equal(t, uint16(0x0100), got)
	assert.False(t, c.flag(FlagC))

	got = c.sbw(0x0100, 0x0001)
	assert.Equal(t, uint16(0x00FF), got)
}

func TestLdwSetsZeroAndNegativeFromFullWord(t *testing.T) {
	c, _, _ := newTestCPU()
	c.ldw(0x0000)
	assert.True(t, c.flag(FlagZ))
	c.ldw(0x8000)
	assert.True(t, c.flag(FlagN))
	assert.False(t, c.flag(FlagZ))
}

func TestBreakpointSetAndClear(t *testing.T) {
	c, _, _ := newTestCPU()
	c.BreakpointSet(0x1234, true)
	assert.True(t, c.breakpointHit(0x1234))
	c.BreakpointSet(0x1234, false)
	assert.False(t, c.breakpointHit(0x1234))
}

func TestExecHookFiresOnBreakpointedPC(t *testing.T) {
	c, bus, _ := newTestCPU()
	c.iplromEnable = false
	c.PC = 0x0200
	bus.ram[0x0200] = 0x00 // NOP
	c.BreakpointSet(0x0200, true)

	var hit uint16
	c.ExecHook = func(pc uint16) { hit = pc }
	c.Step()
	assert.Equal(t, uint16(0x0200), hit)
}

func TestStepExecutesMovImmediateIntoA(t *testing.T) {
	c, bus, _ := newTestCPU()
	c.iplromEnable = false
	c.PC = 0x0200
	bus.ram[0x0200] = 0xE8 // MOV A,#imm
	bus.ram[0x0201] = 0x42
	c.Step()
	assert.Equal(t, byte(0x42), c.A)
	assert.Equal(t, uint16(0x0202), c.PC)
}

func TestStepHaltsOnStopLatch(t *testing.T) {
	c, _, _ := newTestCPU()
	c.Stop = true
	before := c.CycleCounter
	more := c.Step()
	assert.False(t, more)
	assert.Greater(t, c.CycleCounter, before)
}

func TestWriteIOControlTogglesIplromAndTimerEnable(t *testing.T) {
	c, _, _ := newTestCPU()
	c.writeIO(0xF1, 0x81) // iplrom enable bit + timer0 enable bit
	assert.True(t, c.iplromEnable)
	assert.True(t, c.Timer0.Enable)

	c.writeIO(0xF1, 0x00)
	assert.False(t, c.iplromEnable)
	assert.False(t, c.Timer0.Enable)
}

func TestWriteIOPortClearBitsResetMailboxInputs(t *testing.T) {
	c, _, _ := newTestCPU()
	c.io.cpuIn[0] = 0xAA
	c.io.cpuIn[1] = 0xBB
	c.io.cpuIn[2] = 0xCC
	c.io.cpuIn[3] = 0xDD

	c.writeIO(0xF1, 0x10) // clear ports 0,1
	assert.Equal(t, byte(0), c.io.cpuIn[0])
	assert.Equal(t, byte(0), c.io.cpuIn[1])
	assert.Equal(t, byte(0xCC), c.io.cpuIn[2])

	c.writeIO(0xF1, 0x20) // clear ports 2,3
	assert.Equal(t, byte(0), c.io.cpuIn[2])
	assert.Equal(t, byte(0xDD), c.io.cpuIn[3])
}

func TestDSPAddrDataPassthrough(t *testing.T) {
	c, _, dsp := newTestCPU()
	c.writeIO(0xF2, 0x1C)
	c.writeIO(0xF3, 0x7F)
	assert.Equal(t, byte(0x7F), dsp.regs[0x1C])
	assert.Equal(t, byte(0x7F), c.readIO(0xF3))
}

func TestTimerTargetWriteReadback(t *testing.T) {
	c, _, _ := newTestCPU()
	c.writeIO(0xFA, 0x10)
	assert.Equal(t, byte(0x10), c.readIO(0xFA))
	assert.Equal(t, byte(0x10), c.Timer0.Target)
}

func TestTimerOutputWritesAreDiscarded(t *testing.T) {
	c, _, _ := newTestCPU()
	c.writeIO(0xFD, 0xFF) // read-only output register
	assert.Equal(t, byte(0), c.readIO(0xFD))
}

func TestMailboxPortsRoundTrip(t *testing.T) {
	c, _, _ := newTestCPU()
	c.WritePort(0, 0x55)
	assert.Equal(t, byte(0x55), c.readIO(0xF4))

	c.writeIO(0xF4, 0xAA)
	assert.Equal(t, byte(0xAA), c.ReadPort(0))
}

func TestRestoreIORegisterGoesThroughWriteIO(t *testing.T) {
	c, _, _ := newTestCPU()
	c.RestoreIORegister(0xF1, 0x80)
	assert.True(t, c.iplromEnable)
	c.RestoreIORegister(0xFA, 0x42)
	assert.Equal(t, byte(0x42), c.Timer0.Target)
}

func TestTimerTicksOnTargetAndSaturatesReadback(t *testing.T) {
	tm := &Timer{Frequency: 128, Enable: true, Target: 2}
	for i := 0; i < 4; i++ {
		// each tick needs one full pre-divider period (128 clocks) to
		// flip stage1's falling edge; two falling edges hit Target=2.
		tm.step(128, true, false)
	}
	got := tm.Read()
	assert.Equal(t, byte(1), got)
	assert.Equal(t, byte(0), tm.Read()) // read clears
}

func TestWaitClassDistinguishesIOAndIplromPages(t *testing.T) {
	c, _, _ := newTestCPU()
	c.iplromEnable = true
	assert.True(t, c.waitClass(true, 0x00F2))
	assert.True(t, c.waitClass(true, 0xFFF0))
	assert.False(t, c.waitClass(true, 0x1000))

	c.iplromEnable = false
	assert.False(t, c.waitClass(true, 0xFFF0))
}

func TestRunAccumulatesAtLeastMinCycles(t *testing.T) {
	c, bus, _ := newTestCPU()
	c.iplromEnable = false
	c.PC = 0x0200
	for i := 0; i < 0x20; i++ {
		bus.ram[0x0200+i] = 0x00 // NOP
	}
	got := c.Run(10)
	assert.GreaterOrEqual(t, got, uint64(10))
}

func TestNewInstallsDefaultIPLROM(t *testing.T) {
	c, _, _ := newTestCPU()
	require.Equal(t, DefaultIPLROM, c.IPLROM)
}
