// Package spc implements the SPC700 snapshot file format spec §6.1
// describes, plus the upload-overlay operation of §6.2. Grounded on
// original_source/src/nspc/NspcProject.cpp's ROM/ARAM loading path
// (the same "copy the image, then restore CPU/IO state through the
// proper write path" shape) and on internal/apu's register/ARAM
// surface, which this package drives rather than duplicates.
package spc

import (
	"fmt"

	"github.com/ntrak/nspctool/internal/apu"
	"github.com/ntrak/nspctool/internal/layout"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "spc"

const (
	headerSize  = 0x100
	aramSize    = 0x10000
	dspRegCount = 128
	// TotalSize is the minimum legal SPC file size: a 256-byte header,
	// 64 KiB of ARAM, and 128 bytes of DSP registers.
	TotalSize = headerSize + aramSize + dspRegCount

	signature = "SNES-SPC700 Sound File Data v0.30"

	offPC   = 0x25
	offA    = 0x27
	offX    = 0x28
	offY    = 0x29
	offP    = 0x2A
	offSP   = 0x2B
	offSong = 0x2E
	offGame = 0x4E
	offDump = 0x6E
	offCmt  = 0x7E
	offArt  = 0x9E
	offLen  = 0xA9 // 3-byte decimal ASCII track length
	offFade = 0xAC // 5-byte decimal ASCII fade length

	aramOffset   = headerSize
	dspRegOffset = headerSize + aramSize
)

// ioRestoreAddrs are the I/O-controlled SMP registers whose snapshot
// values sit at $F0-$FF of the file's ARAM image, per spec §6.1:
// $F1 control, $F2 DSP
// register select, $F4-$F7 CPU input ports, $F8-$F9 aux RAM,
// $FA-$FC timer targets, $FD-$FF timer outputs (read-only on
// hardware, but the SPC format still carries a snapshot value for
// tools that want to inspect it).
var ioRestoreAddrs = []uint16{0xF1, 0xF2, 0xF4, 0xF5, 0xF6, 0xF7, 0xF8, 0xF9, 0xFA, 0xFB, 0xFC, 0xFD, 0xFE, 0xFF}

// Metadata is the header's textual/identifying fields, spec §6.1.
type Metadata struct {
	SongTitle   string
	GameTitle   string
	Dumper      string
	Comment     string
	Artist      string
	TrackLength string // 3-byte decimal ASCII, e.g. "180"
	FadeLength  string // 5-byte decimal ASCII, e.g. "02000"
}

// Load validates the signature, copies ARAM and the DSP register file
// into a, restores CPU registers, and restores the I/O-controlled SMP
// registers and the 128 DSP registers through a's normal write paths
// so internal state (timer enables, IPL-ROM mapping, DSP address
// latch, voice envelopes, echo/FIR/volume state) stays consistent
// rather than just overwriting a backing array. The 16 snapshot bytes
// at $F0-$FF of the ARAM image are applied after the ARAM copy, matching
// the real chip's memory map where those addresses shadow I/O rather
// than RAM.
func Load(a *apu.APU, data []byte) (Metadata, error) {
	if len(data) < TotalSize {
		return Metadata{}, ntrakerr.New(ntrakerr.InvalidInput, object, "file is %d bytes, need at least %d", len(data), TotalSize)
	}
	if string(data[:len(signature)]) != signature {
		return Metadata{}, ntrakerr.New(ntrakerr.InvalidInput, object, "missing SPC signature")
	}

	meta := Metadata{
		SongTitle:   readField(data, offSong, 32),
		GameTitle:   readField(data, offGame, 32),
		Dumper:      readField(data, offDump, 16),
		Comment:     readField(data, offCmt, 32),
		Artist:      readField(data, offArt, 32),
		TrackLength: readField(data, offLen, 3),
		FadeLength:  readField(data, offFade, 5),
	}

	a.WriteARAMBlock(0, data[aramOffset:aramOffset+aramSize])

	pc := uint16(data[offPC]) | uint16(data[offPC+1])<<8
	a.SetRegisters(pc, data[offA], data[offX], data[offY], data[offSP], data[offP])

	for _, addr := range ioRestoreAddrs {
		a.RestoreIORegister(addr, data[aramOffset+int(addr)])
	}

	for reg := 0; reg < dspRegCount; reg++ {
		a.WriteDSP(byte(reg), data[dspRegOffset+reg])
	}

	return meta, nil
}

// Save builds a complete SPC image from a's current state: header with
// meta's textual fields and a's registers, the full ARAM image, and
// the 128 DSP registers. The image's $F0-$FF snapshot bytes are written
// from ARAM directly (Load already wrote them there) rather than
// re-read through the CPU's I/O window, since $F1-$F3 are write-only
// or latch registers on real hardware and don't read back their last
// written value.
func Save(a *apu.APU, meta Metadata) []byte {
	out := make([]byte, TotalSize)
	copy(out, signature)

	writeField(out, offSong, 32, meta.SongTitle)
	writeField(out, offGame, 32, meta.GameTitle)
	writeField(out, offDump, 16, meta.Dumper)
	writeField(out, offCmt, 32, meta.Comment)
	writeField(out, offArt, 32, meta.Artist)
	writeField(out, offLen, 3, meta.TrackLength)
	writeField(out, offFade, 5, meta.FadeLength)

	pc := a.PC()
	out[offPC] = byte(pc)
	out[offPC+1] = byte(pc >> 8)
	out[offA] = a.A()
	out[offX] = a.X()
	out[offY] = a.Y()
	out[offSP] = a.SP()
	out[offP] = a.P()

	aram := a.ARAMView()
	copy(out[aramOffset:aramOffset+aramSize], aram[:])

	for reg := 0; reg < dspRegCount; reg++ {
		out[dspRegOffset+reg] = a.ReadDSP(byte(reg))
	}

	return out
}

func readField(data []byte, off, length int) string {
	raw := data[off : off+length]
	end := len(raw)
	for end > 0 && (raw[end-1] == 0 || raw[end-1] == ' ') {
		end--
	}
	return string(raw[:end])
}

func writeField(out []byte, off, length int, s string) {
	b := []byte(s)
	if len(b) > length {
		b = b[:length]
	}
	copy(out[off:off+length], b)
}

// ApplyUpload copies base and overlays every chunk of up at
// headerSize+chunk.Address, per spec §6.2. Returns an error if any
// chunk would write past the ARAM region.
func ApplyUpload(base []byte, up *layout.Upload) ([]byte, error) {
	if len(base) < TotalSize {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "base SPC is %d bytes, need at least %d", len(base), TotalSize)
	}
	out := append([]byte(nil), base...)

	for _, chunk := range up.Chunks {
		start := aramOffset + int(chunk.Address)
		end := start + len(chunk.Bytes)
		if end > aramOffset+aramSize {
			return nil, ntrakerr.New(ntrakerr.InvalidInput, object,
				"chunk %q at $%04X (%d bytes) overruns ARAM", chunk.Label, chunk.Address, len(chunk.Bytes))
		}
		copy(out[start:end], chunk.Bytes)
	}

	return out, nil
}

// String reports a human-readable summary of meta, for CLI/log use.
func (m Metadata) String() string {
	return fmt.Sprintf("%q by %q (game %q), %ss track + %sms fade", m.SongTitle, m.Artist, m.GameTitle, m.TrackLength, m.FadeLength)
}
