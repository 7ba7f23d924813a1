package cpu

// execute decodes and runs the instruction whose opcode byte is op.
// Every operand byte/word fetch, memory read, and memory write passes
// through fetch/load/store/push/pull, so wait-state and timer
// accounting happens automatically and uniformly.

func (c *CPU) ya() uint16   { return uint16(c.A) | uint16(c.Y)<<8 }
func (c *CPU) setYA(v uint16) {
	c.A = byte(v)
	c.Y = byte(v >> 8)
}

// readAbs/writeAbs access the full 64KiB space directly (not through
// the direct-page window), for the !a addressing modes.
func (c *CPU) readAbs(addr uint16) byte          { return c.readAddr(addr, AccessRead, false) }
func (c *CPU) writeAbs(addr uint16, v byte)      { c.writeAddr(addr, v, false) }
func (c *CPU) readWordAbs(addr uint16) uint16 {
	lo := c.readAbs(addr)
	hi := c.readAbs(addr + 1)
	return uint16(lo) | uint16(hi)<<8
}
func (c *CPU) writeWordAbs(addr uint16, v uint16) {
	c.writeAbs(addr, byte(v))
	c.writeAbs(addr+1, byte(v>>8))
}

func (c *CPU) loadWordDP(d byte) uint16 {
	lo := c.load(d)
	hi := c.load(d + 1)
	return uint16(lo) | uint16(hi)<<8
}
func (c *CPU) storeWordDP(d byte, v uint16) {
	c.store(d, byte(v))
	c.store(d+1, byte(v>>8))
}

// indirectXAddr resolves [d+X]: a direct-page pointer, indexed by X
// before the dereference, to a full 16-bit address.
func (c *CPU) indirectXAddr(d byte) uint16 { return c.loadWordDP(d + c.X) }

// indirectYAddr resolves [d]+Y: a direct-page pointer dereferenced
// first, then the result indexed by Y.
func (c *CPU) indirectYAddr(d byte) uint16 { return c.loadWordDP(d) + uint16(c.Y) }

func (c *CPU) relBranch(cond bool) {
	off := int8(c.fetch())
	if cond {
		c.idle()
		c.idle()
		c.PC = uint16(int32(c.PC) + int32(off))
	}
}

func (c *CPU) callTo(target uint16) {
	c.idle()
	c.idle()
	c.idle()
	c.push(byte(c.PC >> 8))
	c.push(byte(c.PC))
	c.PC = target
}

// bitAddr decodes the 16-bit "m.b" operand used by OR1/AND1/EOR1/
// MOV1/NOT1: a 13-bit absolute address with a 3-bit index packed into
// the top bits.
func (c *CPU) bitAddr() (addr uint16, bit uint) {
	w := c.fetchWord()
	return w & 0x1FFF, uint(w >> 13)
}

func (c *CPU) execute(op byte) {
	switch op {
	case 0x00: // NOP
		c.idle()

	case 0x01, 0x11, 0x21, 0x31, 0x41, 0x51, 0x61, 0x71,
		0x81, 0x91, 0xA1, 0xB1, 0xC1, 0xD1, 0xE1, 0xF1: // TCALL 0..15
		n := uint16(op >> 4)
		vec := uint16(0xFFDE) - n*2
		target := c.readWordAbs(vec)
		c.callTo(target)

	case 0x02, 0x22, 0x42, 0x62, 0x82, 0xA2, 0xC2, 0xE2: // SET1 d.n
		bit := uint(op >> 5)
		d := c.fetch()
		v := c.load(d)
		c.store(d, v|(1<<bit))

	case 0x12, 0x32, 0x52, 0x72, 0x92, 0xB2, 0xD2, 0xF2: // CLR1 d.n
		bit := uint(op >> 5)
		d := c.fetch()
		v := c.load(d)
		c.store(d, v&^(1<<bit))

	case 0x03, 0x23, 0x43, 0x63, 0x83, 0xA3, 0xC3, 0xE3: // BBS d.n, r
		bit := uint(op >> 5)
		d := c.fetch()
		v := c.load(d)
		c.relBranch(v&(1<<bit) != 0)

	case 0x13, 0x33, 0x53, 0x73, 0x93, 0xB3, 0xD3, 0xF3: // BBC d.n, r
		bit := uint(op >> 5)
		d := c.fetch()
		v := c.load(d)
		c.relBranch(v&(1<<bit) == 0)

	case 0x04: // OR A,d
		c.A = c.or(c.A, c.load(c.fetch()))
	case 0x05: // OR A,!a
		c.A = c.or(c.A, c.readAbs(c.fetchWord()))
	case 0x06: // OR A,(X)
		c.A = c.or(c.A, c.load(c.X))
	case 0x07: // OR A,[d+X]
		c.A = c.or(c.A, c.readAbs(c.indirectXAddr(c.fetch())))
	case 0x08: // OR A,#imm
		c.A = c.or(c.A, c.fetch())
	case 0x09: // OR dd,ds
		src := c.fetch()
		dst := c.fetch()
		c.store(dst, c.or(c.load(dst), c.load(src)))
	case 0x0A: // OR1 C,m.b
		addr, bit := c.bitAddr()
		v := c.readAbs(addr)&(1<<bit) != 0
		c.setFlag(FlagC, c.flag(FlagC) || v)
	case 0x0B: // ASL d
		d := c.fetch()
		c.store(d, c.asl(c.load(d)))
	case 0x0C: // ASL !a
		addr := c.fetchWord()
		c.writeAbs(addr, c.asl(c.readAbs(addr)))
	case 0x0D: // PUSH PSW
		c.push(c.P)
	case 0x0E: // TSET1 !a
		addr := c.fetchWord()
		v := c.readAbs(addr)
		c.setZN(v & c.A)
		c.writeAbs(addr, v|c.A)
	case 0x0F: // BRK
		c.push(byte(c.PC >> 8))
		c.push(byte(c.PC))
		c.push(c.P)
		c.setFlag(FlagB, true)
		c.setFlag(FlagI, false)
		c.PC = c.readWordAbs(0xFFDE)

	case 0x10: // BPL r
		c.relBranch(!c.flag(FlagN))
	case 0x14: // OR A,d+X
		c.A = c.or(c.A, c.load(c.fetch()+c.X))
	case 0x15: // OR A,!a+X
		c.A = c.or(c.A, c.readAbs(c.fetchWord()+uint16(c.X)))
	case 0x16: // OR A,!a+Y
		c.A = c.or(c.A, c.readAbs(c.fetchWord()+uint16(c.Y)))
	case 0x17: // OR A,[d]+Y
		c.A = c.or(c.A, c.readAbs(c.indirectYAddr(c.fetch())))
	case 0x18: // OR d,#imm
		imm := c.fetch()
		d := c.fetch()
		c.store(d, c.or(c.load(d), imm))
	case 0x19: // OR (X),(Y)
		c.store(c.X, c.or(c.load(c.X), c.load(c.Y)))
	case 0x1A: // DECW d
		d := c.fetch()
		v := c.loadWordDP(d) - 1
		c.storeWordDP(d, v)
		c.setFlag(FlagZ, v == 0)
		c.setFlag(FlagN, v&0x8000 != 0)
	case 0x1B: // ASL d+X
		d := c.fetch() + c.X
		c.store(d, c.asl(c.load(d)))
	case 0x1C: // ASL A
		c.A = c.asl(c.A)
	case 0x1D: // DEC X
		c.X = c.dec(c.X)
	case 0x1E: // CMP X,!a
		c.cmp(c.X, c.readAbs(c.fetchWord()))
	case 0x1F: // JMP [!a+X]
		base := c.fetchWord() + uint16(c.X)
		c.PC = c.readWordAbs(base)

	case 0x20: // CLRP
		c.setFlag(FlagP, false)
	case 0x24: // AND A,d
		c.A = c.and(c.A, c.load(c.fetch()))
	case 0x25: // AND A,!a
		c.A = c.and(c.A, c.readAbs(c.fetchWord()))
	case 0x26: // AND A,(X)
		c.A = c.and(c.A, c.load(c.X))
	case 0x27: // AND A,[d+X]
		c.A = c.and(c.A, c.readAbs(c.indirectXAddr(c.fetch())))
	case 0x28: // AND A,#imm
		c.A = c.and(c.A, c.fetch())
	case 0x29: // AND dd,ds
		src := c.fetch()
		dst := c.fetch()
		c.store(dst, c.and(c.load(dst), c.load(src)))
	case 0x2A: // OR1 C,/m.b
		addr, bit := c.bitAddr()
		v := c.readAbs(addr)&(1<<bit) == 0
		c.setFlag(FlagC, c.flag(FlagC) || v)
	case 0x2B: // ROL d
		d := c.fetch()
		c.store(d, c.rol(c.load(d)))
	case 0x2C: // ROL !a
		addr := c.fetchWord()
		c.writeAbs(addr, c.rol(c.readAbs(addr)))
	case 0x2D: // PUSH A
		c.push(c.A)
	case 0x2E: // CBNE d, r
		d := c.fetch()
		v := c.load(d)
		c.relBranch(c.A != v)
	case 0x2F: // BRA r
		c.relBranch(true)

	case 0x30: // BMI r
		c.relBranch(c.flag(FlagN))
	case 0x34: // AND A,d+X
		c.A = c.and(c.A, c.load(c.fetch()+c.X))
	case 0x35: // AND A,!a+X
		c.A = c.and(c.A, c.readAbs(c.fetchWord()+uint16(c.X)))
	case 0x36: // AND A,!a+Y
		c.A = c.and(c.A, c.readAbs(c.fetchWord()+uint16(c.Y)))
	case 0x37: // AND A,[d]+Y
		c.A = c.and(c.A, c.readAbs(c.indirectYAddr(c.fetch())))
	case 0x38: // AND d,#imm
		imm := c.fetch()
		d := c.fetch()
		c.store(d, c.and(c.load(d), imm))
	case 0x39: // AND (X),(Y)
		c.store(c.X, c.and(c.load(c.X), c.load(c.Y)))
	case 0x3A: // INCW d
		d := c.fetch()
		v := c.loadWordDP(d) + 1
		c.storeWordDP(d, v)
		c.setFlag(FlagZ, v == 0)
		c.setFlag(FlagN, v&0x8000 != 0)
	case 0x3B: // ROL d+X
		d := c.fetch() + c.X
		c.store(d, c.rol(c.load(d)))
	case 0x3C: // ROL A
		c.A = c.rol(c.A)
	case 0x3D: // INC X
		c.X = c.inc(c.X)
	case 0x3E: // CMP X,d
		c.cmp(c.X, c.load(c.fetch()))
	case 0x3F: // CALL !a
		c.callTo(c.fetchWord())

	case 0x40: // SETP
		c.setFlag(FlagP, true)
	case 0x44: // EOR A,d
		c.A = c.eor(c.A, c.load(c.fetch()))
	case 0x45: // EOR A,!a
		c.A = c.eor(c.A, c.readAbs(c.fetchWord()))
	case 0x46: // EOR A,(X)
		c.A = c.eor(c.A, c.load(c.X))
	case 0x47: // EOR A,[d+X]
		c.A = c.eor(c.A, c.readAbs(c.indirectXAddr(c.fetch())))
	case 0x48: // EOR A,#imm
		c.A = c.eor(c.A, c.fetch())
	case 0x49: // EOR dd,ds
		src := c.fetch()
		dst := c.fetch()
		c.store(dst, c.eor(c.load(dst), c.load(src)))
	case 0x4A: // AND1 C,m.b
		addr, bit := c.bitAddr()
		v := c.readAbs(addr)&(1<<bit) != 0
		c.setFlag(FlagC, c.flag(FlagC) && v)
	case 0x4B: // LSR d
		d := c.fetch()
		c.store(d, c.lsr(c.load(d)))
	case 0x4C: // LSR !a
		addr := c.fetchWord()
		c.writeAbs(addr, c.lsr(c.readAbs(addr)))
	case 0x4D: // PUSH X
		c.push(c.X)
	case 0x4E: // TCLR1 !a
		addr := c.fetchWord()
		v := c.readAbs(addr)
		c.setZN(v & c.A)
		c.writeAbs(addr, v&^c.A)
	case 0x4F: // PCALL u
		u := c.fetch()
		c.callTo(0xFF00 | uint16(u))

	case 0x50: // BVC r
		c.relBranch(!c.flag(FlagV))
	case 0x54: // EOR A,d+X
		c.A = c.eor(c.A, c.load(c.fetch()+c.X))
	case 0x55: // EOR A,!a+X
		c.A = c.eor(c.A, c.readAbs(c.fetchWord()+uint16(c.X)))
	case 0x56: // EOR A,!a+Y
		c.A = c.eor(c.A, c.readAbs(c.fetchWord()+uint16(c.Y)))
	case 0x57: // EOR A,[d]+Y
		c.A = c.eor(c.A, c.readAbs(c.indirectYAddr(c.fetch())))
	case 0x58: // EOR d,#imm
		imm := c.fetch()
		d := c.fetch()
		c.store(d, c.eor(c.load(d), imm))
	case 0x59: // EOR (X),(Y)
		c.store(c.X, c.eor(c.load(c.X), c.load(c.Y)))
	case 0x5A: // CMPW YA,d
		c.cpw(c.ya(), c.loadWordDP(c.fetch()))
	case 0x5B: // LSR d+X
		d := c.fetch() + c.X
		c.store(d, c.lsr(c.load(d)))
	case 0x5C: // LSR A
		c.A = c.lsr(c.A)
	case 0x5D: // MOV X,A
		c.X = c.ld(c.A)
	case 0x5E: // CMP Y,!a
		c.cmp(c.Y, c.readAbs(c.fetchWord()))
	case 0x5F: // JMP !a
		c.PC = c.fetchWord()

	case 0x60: // CLRC
		c.setFlag(FlagC, false)
	case 0x64: // CMP A,d
		c.cmp(c.A, c.load(c.fetch()))
	case 0x65: // CMP A,!a
		c.cmp(c.A, c.readAbs(c.fetchWord()))
	case 0x66: // CMP A,(X)
		c.cmp(c.A, c.load(c.X))
	case 0x67: // CMP A,[d+X]
		c.cmp(c.A, c.readAbs(c.indirectXAddr(c.fetch())))
	case 0x68: // CMP A,#imm
		c.cmp(c.A, c.fetch())
	case 0x69: // CMP dd,ds
		src := c.fetch()
		dst := c.fetch()
		c.cmp(c.load(dst), c.load(src))
	case 0x6A: // AND1 C,/m.b
		addr, bit := c.bitAddr()
		v := c.readAbs(addr)&(1<<bit) == 0
		c.setFlag(FlagC, c.flag(FlagC) && v)
	case 0x6B: // ROR d
		d := c.fetch()
		c.store(d, c.ror(c.load(d)))
	case 0x6C: // ROR !a
		addr := c.fetchWord()
		c.writeAbs(addr, c.ror(c.readAbs(addr)))
	case 0x6D: // PUSH Y
		c.push(c.Y)
	case 0x6E: // DBNZ d, r
		d := c.fetch()
		v := c.load(d) - 1
		c.store(d, v)
		c.relBranch(v != 0)
	case 0x6F: // RET
		lo := c.pull()
		hi := c.pull()
		c.PC = uint16(lo) | uint16(hi)<<8

	case 0x70: // BVS r
		c.relBranch(c.flag(FlagV))
	case 0x74: // CMP A,d+X
		c.cmp(c.A, c.load(c.fetch()+c.X))
	case 0x75: // CMP A,!a+X
		c.cmp(c.A, c.readAbs(c.fetchWord()+uint16(c.X)))
	case 0x76: // CMP A,!a+Y
		c.cmp(c.A, c.readAbs(c.fetchWord()+uint16(c.Y)))
	case 0x77: // CMP A,[d]+Y
		c.cmp(c.A, c.readAbs(c.indirectYAddr(c.fetch())))
	case 0x78: // CMP d,#imm
		imm := c.fetch()
		d := c.fetch()
		c.cmp(c.load(d), imm)
	case 0x79: // CMP (X),(Y)
		c.cmp(c.load(c.X), c.load(c.Y))
	case 0x7A: // ADDW YA,d
		c.setYA(c.adw(c.ya(), c.loadWordDP(c.fetch())))
	case 0x7B: // ROR d+X
		d := c.fetch() + c.X
		c.store(d, c.ror(c.load(d)))
	case 0x7C: // ROR A
		c.A = c.ror(c.A)
	case 0x7D: // MOV A,X
		c.A = c.ld(c.X)
	case 0x7E: // CMP Y,d
		c.cmp(c.Y, c.load(c.fetch()))
	case 0x7F: // RETI
		c.P = c.pull()
		lo := c.pull()
		hi := c.pull()
		c.PC = uint16(lo) | uint16(hi)<<8

	case 0x80: // SETC
		c.setFlag(FlagC, true)
	case 0x84: // ADC A,d
		c.A = c.adc(c.A, c.load(c.fetch()))
	case 0x85: // ADC A,!a
		c.A = c.adc(c.A, c.readAbs(c.fetchWord()))
	case 0x86: // ADC A,(X)
		c.A = c.adc(c.A, c.load(c.X))
	case 0x87: // ADC A,[d+X]
		c.A = c.adc(c.A, c.readAbs(c.indirectXAddr(c.fetch())))
	case 0x88: // ADC A,#imm
		c.A = c.adc(c.A, c.fetch())
	case 0x89: // ADC dd,ds
		src := c.fetch()
		dst := c.fetch()
		c.store(dst, c.adc(c.load(dst), c.load(src)))
	case 0x8A: // EOR1 C,m.b
		addr, bit := c.bitAddr()
		v := c.readAbs(addr)&(1<<bit) != 0
		c.setFlag(FlagC, c.flag(FlagC) != v)
	case 0x8B: // DEC d
		d := c.fetch()
		c.store(d, c.dec(c.load(d)))
	case 0x8C: // DEC !a
		addr := c.fetchWord()
		c.writeAbs(addr, c.dec(c.readAbs(addr)))
	case 0x8D: // MOV Y,#imm
		c.Y = c.ld(c.fetch())
	case 0x8E: // POP PSW
		c.P = c.pull()
	case 0x8F: // MOV d,#imm
		imm := c.fetch()
		d := c.fetch()
		c.store(d, imm)

	case 0x90: // BCC r
		c.relBranch(!c.flag(FlagC))
	case 0x94: // ADC A,d+X
		c.A = c.adc(c.A, c.load(c.fetch()+c.X))
	case 0x95: // ADC A,!a+X
		c.A = c.adc(c.A, c.readAbs(c.fetchWord()+uint16(c.X)))
	case 0x96: // ADC A,!a+Y
		c.A = c.adc(c.A, c.readAbs(c.fetchWord()+uint16(c.Y)))
	case 0x97: // ADC A,[d]+Y
		c.A = c.adc(c.A, c.readAbs(c.indirectYAddr(c.fetch())))
	case 0x98: // ADC d,#imm
		imm := c.fetch()
		d := c.fetch()
		c.store(d, c.adc(c.load(d), imm))
	case 0x99: // ADC (X),(Y)
		c.store(c.X, c.adc(c.load(c.X), c.load(c.Y)))
	case 0x9A: // SUBW YA,d
		c.setYA(c.sbw(c.ya(), c.loadWordDP(c.fetch())))
	case 0x9B: // DEC d+X
		d := c.fetch() + c.X
		c.store(d, c.dec(c.load(d)))
	case 0x9C: // DEC A
		c.A = c.dec(c.A)
	case 0x9D: // MOV X,SP
		c.X = c.ld(c.SP)
	case 0x9E: // DIV YA,X
		c.divYAX()
	case 0x9F: // XCN A
		c.A = (c.A >> 4) | (c.A << 4)
		c.setZN(c.A)

	case 0xA0: // EI
		c.setFlag(FlagI, true)
	case 0xA4: // SBC A,d
		c.A = c.sbc(c.A, c.load(c.fetch()))
	case 0xA5: // SBC A,!a
		c.A = c.sbc(c.A, c.readAbs(c.fetchWord()))
	case 0xA6: // SBC A,(X)
		c.A = c.sbc(c.A, c.load(c.X))
	case 0xA7: // SBC A,[d+X]
		c.A = c.sbc(c.A, c.readAbs(c.indirectXAddr(c.fetch())))
	case 0xA8: // SBC A,#imm
		c.A = c.sbc(c.A, c.fetch())
	case 0xA9: // SBC dd,ds
		src := c.fetch()
		dst := c.fetch()
		c.store(dst, c.sbc(c.load(dst), c.load(src)))
	case 0xAA: // MOV1 C,m.b
		addr, bit := c.bitAddr()
		c.setFlag(FlagC, c.readAbs(addr)&(1<<bit) != 0)
	case 0xAB: // INC d
		d := c.fetch()
		c.store(d, c.inc(c.load(d)))
	case 0xAC: // INC !a
		addr := c.fetchWord()
		c.writeAbs(addr, c.inc(c.readAbs(addr)))
	case 0xAD: // CMP Y,#imm
		c.cmp(c.Y, c.fetch())
	case 0xAE: // POP A
		c.A = c.pull()
	case 0xAF: // MOV (X)+,A
		c.store(c.X, c.A)
		c.X++

	case 0xB0: // BCS r
		c.relBranch(c.flag(FlagC))
	case 0xB4: // SBC A,d+X
		c.A = c.sbc(c.A, c.load(c.fetch()+c.X))
	case 0xB5: // SBC A,!a+X
		c.A = c.sbc(c.A, c.readAbs(c.fetchWord()+uint16(c.X)))
	case 0xB6: // SBC A,!a+Y
		c.A = c.sbc(c.A, c.readAbs(c.fetchWord()+uint16(c.Y)))
	case 0xB7: // SBC A,[d]+Y
		c.A = c.sbc(c.A, c.readAbs(c.indirectYAddr(c.fetch())))
	case 0xB8: // SBC d,#imm
		imm := c.fetch()
		d := c.fetch()
		c.store(d, c.sbc(c.load(d), imm))
	case 0xB9: // SBC (X),(Y)
		c.store(c.X, c.sbc(c.load(c.X), c.load(c.Y)))
	case 0xBA: // MOVW YA,d
		c.setYA(c.ldw(c.loadWordDP(c.fetch())))
	case 0xBB: // INC d+X
		d := c.fetch() + c.X
		c.store(d, c.inc(c.load(d)))
	case 0xBC: // INC A
		c.A = c.inc(c.A)
	case 0xBD: // MOV SP,X
		c.SP = c.X
	case 0xBE: // DAS A
		c.das()
	case 0xBF: // MOV A,(X)+
		c.A = c.ld(c.load(c.X))
		c.X++

	case 0xC0: // DI
		c.setFlag(FlagI, false)
	case 0xC4: // MOV d,A
		c.store(c.fetch(), c.A)
	case 0xC5: // MOV !a,A
		c.writeAbs(c.fetchWord(), c.A)
	case 0xC6: // MOV (X),A
		c.store(c.X, c.A)
	case 0xC7: // MOV [d+X],A
		c.writeAbs(c.indirectXAddr(c.fetch()), c.A)
	case 0xC8: // CMP X,#imm
		c.cmp(c.X, c.fetch())
	case 0xC9: // MOV !a,X
		c.writeAbs(c.fetchWord(), c.X)
	case 0xCA: // MOV1 m.b,C
		addr, bit := c.bitAddr()
		v := c.readAbs(addr)
		if c.flag(FlagC) {
			v |= 1 << bit
		} else {
			v &^= 1 << bit
		}
		c.writeAbs(addr, v)
	case 0xCB: // MOV d,Y
		c.store(c.fetch(), c.Y)
	case 0xCC: // MOV !a,Y
		c.writeAbs(c.fetchWord(), c.Y)
	case 0xCD: // MOV X,#imm
		c.X = c.ld(c.fetch())
	case 0xCE: // POP X
		c.X = c.pull()
	case 0xCF: // MUL YA
		r := uint16(c.Y) * uint16(c.A)
		c.setYA(r)
		c.setZN(c.Y)

	case 0xD0: // BNE r
		c.relBranch(!c.flag(FlagZ))
	case 0xD4: // MOV d+X,A
		c.store(c.fetch()+c.X, c.A)
	case 0xD5: // MOV !a+X,A
		c.writeAbs(c.fetchWord()+uint16(c.X), c.A)
	case 0xD6: // MOV !a+Y,A
		c.writeAbs(c.fetchWord()+uint16(c.Y), c.A)
	case 0xD7: // MOV [d]+Y,A
		c.writeAbs(c.indirectYAddr(c.fetch()), c.A)
	case 0xD8: // MOV d,X
		c.store(c.fetch(), c.X)
	case 0xD9: // MOV d+Y,X
		c.store(c.fetch()+c.Y, c.X)
	case 0xDA: // MOVW d,YA
		c.storeWordDP(c.fetch(), c.ya())
	case 0xDB: // MOV d+X,Y
		c.store(c.fetch()+c.X, c.Y)
	case 0xDC: // DEC Y
		c.Y = c.dec(c.Y)
	case 0xDD: // MOV A,Y
		c.A = c.ld(c.Y)
	case 0xDE: // CBNE d+X, r
		d := c.fetch() + c.X
		v := c.load(d)
		c.relBranch(c.A != v)
	case 0xDF: // DAA A
		c.daa()

	case 0xE0: // CLRV
		c.setFlag(FlagV, false)
		c.setFlag(FlagH, false)
	case 0xE4: // MOV A,d
		c.A = c.ld(c.load(c.fetch()))
	case 0xE5: // MOV A,!a
		c.A = c.ld(c.readAbs(c.fetchWord()))
	case 0xE6: // MOV A,(X)
		c.A = c.ld(c.load(c.X))
	case 0xE7: // MOV A,[d+X]
		c.A = c.ld(c.readAbs(c.indirectXAddr(c.fetch())))
	case 0xE8: // MOV A,#imm
		c.A = c.ld(c.fetch())
	case 0xE9: // MOV X,!a
		c.X = c.ld(c.readAbs(c.fetchWord()))
	case 0xEA: // NOT1 m.b
		addr, bit := c.bitAddr()
		c.writeAbs(addr, c.readAbs(addr)^(1<<bit))
	case 0xEB: // MOV Y,d
		c.Y = c.ld(c.load(c.fetch()))
	case 0xEC: // MOV Y,!a
		c.Y = c.ld(c.readAbs(c.fetchWord()))
	case 0xED: // NOTC
		c.setFlag(FlagC, !c.flag(FlagC))
	case 0xEE: // POP Y
		c.Y = c.pull()
	case 0xEF: // SLEEP
		c.Wait = true

	case 0xF0: // BEQ r
		c.relBranch(c.flag(FlagZ))
	case 0xF4: // MOV A,d+X
		c.A = c.ld(c.load(c.fetch() + c.X))
	case 0xF5: // MOV A,!a+X
		c.A = c.ld(c.readAbs(c.fetchWord() + uint16(c.X)))
	case 0xF6: // MOV A,!a+Y
		c.A = c.ld(c.readAbs(c.fetchWord() + uint16(c.Y)))
	case 0xF7: // MOV A,[d]+Y
		c.A = c.ld(c.readAbs(c.indirectYAddr(c.fetch())))
	case 0xF8: // MOV X,d
		c.X = c.ld(c.load(c.fetch()))
	case 0xF9: // MOV X,d+Y
		c.X = c.ld(c.load(c.fetch() + c.Y))
	case 0xFA: // MOV dd,ds
		src := c.load(c.fetch())
		dst := c.fetch()
		c.store(dst, src)
	case 0xFB: // MOV Y,d+X
		c.Y = c.ld(c.load(c.fetch() + c.X))
	case 0xFC: // INC Y
		c.Y = c.inc(c.Y)
	case 0xFD: // MOV Y,A
		c.Y = c.ld(c.A)
	case 0xFE: // DBNZ Y, r
		c.Y--
		c.relBranch(c.Y != 0)
	case 0xFF: // STOP
		c.Stop = true

	default:
		// Unreachable: every byte value 0x00-0xFF is covered above.
		c.idle()
	}
}

// divYAX implements DIV YA,X per the documented SPC700 restoring
// division algorithm: 9-bit trial subtraction against X, quotient in
// A, remainder in Y.
func (c *CPU) divYAX() {
	ya := int(c.ya())
	x := int(c.X)
	c.setFlag(FlagH, (c.Y&0xF) >= (c.X&0xF))
	if x == 0 {
		c.A = byte(ya / 256 & 0xFF)
		c.Y = byte(ya % 256)
		c.setFlag(FlagV, true)
		c.setZN(c.A)
		return
	}
	yva := ya
	overflow := (yva>>8)%256 >= x
	q := yva / x
	r := yva % x
	if overflow || q > 0x1FF {
		q = (q ^ 0xFF) & 0x1FF
		r = x - (r - x)
	}
	c.setFlag(FlagV, overflow)
	c.A = byte(q & 0xFF)
	c.Y = byte(r & 0xFF)
	c.setZN(c.A)
}

// daa/das implement BCD adjust the way the documented SPC700 core
// does: conditional +/-0x60 and +/-0x06 corrections driven by C/H and
// the nibble values, run after an ADC/SBC sequence.
func (c *CPU) daa() {
	a := int(c.A)
	if c.flag(FlagC) || a > 0x99 {
		a += 0x60
		c.setFlag(FlagC, true)
	}
	if c.flag(FlagH) || (a&0xF) > 0x9 {
		a += 0x06
	}
	c.A = byte(a)
	c.setZN(c.A)
}

func (c *CPU) das() {
	a := int(c.A)
	if !c.flag(FlagC) || a > 0x99 {
		a -= 0x60
		c.setFlag(FlagC, false)
	}
	if !c.flag(FlagH) || (a&0xF) > 0x9 {
		a -= 0x06
	}
	c.A = byte(a)
	c.setZN(c.A)
}
