// Package apu hosts the sound CPU and DSP cores and clocks them in
// lockstep, exposing the single-threaded step/port/memory API spec.md
// §4.1.3 describes. It owns the shared 64 KiB ARAM array: both the CPU
// and the DSP reach it only through this package's narrow interfaces,
// matching spec §3.7/§5's "ARAM is owned by the APU" resource policy.
package apu

import (
	"github.com/ntrak/nspctool/internal/cpu"
	"github.com/ntrak/nspctool/internal/dsp"
)

const aramSize = 0x10000

// WatchFunc observes every ARAM access the CPU performs, mirroring
// cpu.WatchFunc one level up so callers don't need to import internal/cpu
// just to set a breakpoint callback.
type WatchFunc = cpu.WatchFunc

// APU wraps a sound CPU and a DSP sharing one ARAM image.
type APU struct {
	CPU *cpu.CPU
	DSP *dsp.DSP

	aram [aramSize]byte

	cycleCarry uint64
}

// New builds an APU with fresh CPU and DSP cores bound to a shared
// ARAM array.
func New() *APU {
	a := &APU{}
	a.DSP = dsp.New(a)
	a.CPU = cpu.New(a, a.DSP)
	return a
}

// ReadByte and WriteByte implement both cpu.Bus and dsp.Memory against
// the shared ARAM array.
func (a *APU) ReadByte(addr uint16) byte { return a.aram[addr] }

func (a *APU) WriteByte(addr uint16, value byte) { a.aram[addr] = value }

// Reset powers both cores. If iplROM is non-nil it replaces the
// default boot ROM first.
func (a *APU) Reset(iplROM *[64]byte, preserveRAM bool) {
	if iplROM != nil {
		a.CPU.IPLROM = *iplROM
	}
	a.CPU.Reset(iplROM, preserveRAM)
	a.DSP.Power(true)
	a.cycleCarry = 0
}

// Step runs the sound CPU until it has charged at least 64 cycles
// since the last DSP sample, then runs exactly one DSP sample and
// returns its output. cycleCarry banks any cycles an instruction
// overshoots its 64-cycle quota by, so the CPU's instruction-granularity
// clocking never drifts from the DSP's fixed-rate sampling.
func (a *APU) Step() (left, right int16) {
	start := a.CPU.CycleCounter
	for a.CPU.CycleCounter-start+a.cycleCarry < 64 {
		if !a.CPU.Step() {
			break // STOP latched; DSP still samples once below
		}
	}
	spent := a.CPU.CycleCounter - start + a.cycleCarry
	if spent >= 64 {
		a.cycleCarry = spent - 64
	} else {
		a.cycleCarry = 0
	}
	return a.DSP.Sample()
}

// StepDSPOnly advances only the DSP by one sample, used by the preview
// path that pokes DSP registers directly without driving the CPU.
func (a *APU) StepDSPOnly() (left, right int16) {
	return a.DSP.Sample()
}

// ReadPort and WritePort access the sound CPU's 4 mailbox registers.
func (a *APU) ReadPort(n int) byte     { return a.CPU.ReadPort(n) }
func (a *APU) WritePort(n int, v byte) { a.CPU.WritePort(n, v) }

// ReadARAM and WriteARAM perform raw ARAM access outside the CPU's
// wait-state accounting, for SPC loading and layout uploads.
func (a *APU) ReadARAM(addr uint16) byte         { return a.aram[addr] }
func (a *APU) WriteARAM(addr uint16, value byte) { a.aram[addr] = value }

// ReadARAMBlock copies length bytes from ARAM starting at addr,
// wrapping around the 64 KiB space.
func (a *APU) ReadARAMBlock(addr uint16, length int) []byte {
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = a.aram[uint16(int(addr)+i)]
	}
	return out
}

// WriteARAMBlock copies data into ARAM starting at addr, wrapping
// around the 64 KiB space.
func (a *APU) WriteARAMBlock(addr uint16, data []byte) {
	for i, b := range data {
		a.aram[uint16(int(addr)+i)] = b
	}
}

// ARAMView returns a copy of the full 64 KiB ARAM image.
func (a *APU) ARAMView() [aramSize]byte { return a.aram }

// ReadDSP and WriteDSP mask the register index to 7 bits, per spec
// §4.1.3.
func (a *APU) ReadDSP(reg byte) byte        { return a.DSP.ReadReg(reg & 0x7F) }
func (a *APU) WriteDSP(reg byte, value byte) { a.DSP.WriteReg(reg&0x7F, value) }

// PC, A, X, Y, SP, P expose the CPU's registers for SPC-file load/save.
func (a *APU) PC() uint16 { return a.CPU.PC }
func (a *APU) A() byte    { return a.CPU.A }
func (a *APU) X() byte    { return a.CPU.X }
func (a *APU) Y() byte    { return a.CPU.Y }
func (a *APU) SP() byte   { return a.CPU.SP }
func (a *APU) P() byte    { return a.CPU.P }

// SetRegisters restores CPU registers after an SPC load.
func (a *APU) SetRegisters(pc uint16, reg_a, x, y, sp, p byte) {
	a.CPU.PC = pc
	a.CPU.A = reg_a
	a.CPU.X = x
	a.CPU.Y = y
	a.CPU.SP = sp
	a.CPU.P = p
}

// RestoreIORegister writes one $F0-$FF SMP I/O register through the
// CPU's normal register-write side effects (control latches, DSP
// address/data, timer targets), for SPC loading per spec §6.1.
func (a *APU) RestoreIORegister(addr uint16, value byte) {
	a.CPU.RestoreIORegister(addr, value)
}

// SetBreakpoint arms or disarms an execute breakpoint at pc.
func (a *APU) SetBreakpoint(pc uint16, on bool) { a.CPU.BreakpointSet(pc, on) }

// SetWatch installs the memory-access watch callback.
func (a *APU) SetWatch(fn WatchFunc) { a.CPU.Watch = fn }

// SetChannelMask mutes voices at the DSP's output-mix stage without
// touching their envelopes.
func (a *APU) SetChannelMask(mask byte) { a.DSP.ChannelMask = mask }

// Muted reports the DSP's FLG-bit-7 mute/reset latch.
func (a *APU) Muted() bool { return a.DSP.Mute() }
