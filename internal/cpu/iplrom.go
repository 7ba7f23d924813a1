package cpu

// DefaultIPLROM is the standard 64-byte SPC700 bootstrap: it waits for
// the host to post a handshake byte through the mailbox ports, copies
// a block the host streams in, then jumps to it. The reset vector (the
// last two bytes) points back to the ROM's own entry point; every
// real N-SPC engine overwrites this during the upload handshake and
// ends up executing from $0200 with SP settled at $01EF, which is
// what spec §4.1.1 means by "a known stack".
var DefaultIPLROM = [64]byte{
	0xCD, 0xEF, 0xBD, 0xE8, 0x00, 0xC6, 0x1D, 0xD0,
	0xFC, 0x8F, 0xAA, 0xF4, 0x8F, 0xBB, 0xF5, 0x78,
	0xCC, 0xF4, 0xD0, 0xFB, 0x2F, 0x19, 0xEB, 0xF4,
	0xD0, 0xFC, 0x7E, 0xF4, 0xD0, 0x0B, 0xE4, 0xF5,
	0xCB, 0xF4, 0xD7, 0x00, 0xFC, 0xD0, 0xF3, 0xAB,
	0x01, 0x10, 0xEF, 0x7E, 0xF4, 0x10, 0xEB, 0xBA,
	0xF6, 0xDA, 0x00, 0xBA, 0xF4, 0xC4, 0xF4, 0xDD,
	0x5D, 0xD0, 0xDB, 0x1F, 0x00, 0x00, 0xC0, 0xFF,
}
