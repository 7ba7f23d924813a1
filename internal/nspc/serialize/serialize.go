// Package serialize turns an nspc.Song's event streams, sequence and
// patterns back into N-SPC bytes, the inverse of package disasm, per
// spec §4.3.3. Grounded on
// original_source/src/nspc/NspcCompile.cpp's encodeEventStream/
// encodeVcmd and NspcCompileSongScoped.cpp's sequence/pattern
// encoding.
package serialize

import (
	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "nspc.serialize"

// Events serializes an event stream back to N-SPC bytes, the inverse
// of disasm's parseEvents. subroutineAddrByID supplies the resolved
// ARAM address for each subroutine id a VcmdSubroutineCall references;
// a missing id falls back to the call's OriginalAddr and appends a
// warning rather than failing outright, matching NspcCompile.cpp's
// encodeVcmd. Returns the encoded bytes and any non-fatal warnings
// (clamped durations/pitches/indices, missing subroutine ids).
func Events(events []nspc.EventEntry, cmdMap *nspc.CommandMap, engine *nspc.EngineDescriptor, subroutineAddrByID map[int]uint16) ([]byte, []string, error) {
	var out []byte
	var warnings []string

	noteMax := byte(0)
	if cmdMap.NoteEnd >= cmdMap.NoteStart {
		noteMax = cmdMap.NoteEnd - cmdMap.NoteStart
	}
	percMax := byte(0)
	if cmdMap.PercEnd >= cmdMap.PercStart {
		percMax = cmdMap.PercEnd - cmdMap.PercStart
	}

	emit := func(b byte) { out = append(out, b) }

	for _, e := range events {
		switch ev := e.Event.(type) {
		case nspc.Duration:
			ticks := ev.Ticks
			if ticks == 0 {
				ticks = 1
				warnings = append(warnings, "duration tick of 0 clamped to 1")
			}
			emit(byte(ticks))
			if ev.Quantization != nil || ev.Velocity != nil {
				q := byte(0)
				if ev.Quantization != nil {
					q = byte(*ev.Quantization) & 0x07
				}
				v := byte(0)
				if ev.Velocity != nil {
					v = byte(*ev.Velocity) & 0x0F
				}
				emit((q << 4) | v)
			}
		case nspc.Note:
			pitch := byte(0)
			if ev.Pitch >= 0 {
				pitch = byte(ev.Pitch)
			}
			if pitch > 0x47 {
				warnings = append(warnings, "note pitch out of range, clamped to 0x47")
				pitch = 0x47
			}
			if pitch > noteMax {
				warnings = append(warnings, "note pitch exceeds engine note range, clamped")
				pitch = noteMax
			}
			emit(cmdMap.NoteStart + pitch)
		case nspc.Tie:
			emit(cmdMap.Tie)
		case nspc.Rest:
			emit(cmdMap.RestWrite)
		case nspc.Percussion:
			idx := byte(0)
			if ev.Index >= 0 {
				idx = byte(ev.Index)
			}
			if idx > 0x15 {
				warnings = append(warnings, "percussion index out of range, clamped to 0x15")
				idx = 0x15
			}
			if idx > percMax {
				warnings = append(warnings, "percussion index exceeds engine range, clamped")
				idx = percMax
			}
			emit(cmdMap.PercStart + idx)
		case nspc.End:
			emit(0x00)
		case nspc.Vcmd:
			w, err := encodeVcmdEvent(ev, cmdMap, engine, subroutineAddrByID, emit)
			warnings = append(warnings, w...)
			if err != nil {
				return nil, warnings, err
			}
		default:
			return nil, warnings, ntrakerr.New(ntrakerr.InvalidInput, object, "unrecognized event type %T", e.Event)
		}
	}
	return out, warnings, nil
}

func encodeVcmdEvent(v nspc.Vcmd, cmdMap *nspc.CommandMap, engine *nspc.EngineDescriptor, subroutineAddrByID map[int]uint16, emit func(byte)) ([]string, error) {
	if ext, ok := v.Payload.(nspc.VcmdExtension); ok {
		declared, ok := engine.ExtensionByID(ext.ID)
		if !ok {
			return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "extension VCMD $%02X is not enabled for engine %q", ext.ID, engine.Name)
		}
		if len(ext.Params) != declared.ParamBytes {
			return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "extension VCMD $%02X expected %d params, got %d", ext.ID, declared.ParamBytes, len(ext.Params))
		}
		mapped, ok := cmdMap.MapWrite(ext.ID)
		if !ok {
			return nil, nspc.ErrUnmappedVcmd(object, ext.ID)
		}
		emit(mapped)
		for _, b := range ext.Params {
			emit(b)
		}
		return nil, nil
	}

	if call, ok := v.Payload.(nspc.VcmdSubroutineCall); ok {
		mapped, ok := cmdMap.MapWrite(nspc.VcmdIDSubroutineCall)
		if !ok {
			return nil, nspc.ErrUnmappedVcmd(object, nspc.VcmdIDSubroutineCall)
		}
		var warnings []string
		addr := call.OriginalAddr
		if resolved, ok := subroutineAddrByID[call.SubroutineID]; ok {
			addr = resolved
		} else {
			warnings = append(warnings, "subroutine id not found in layout; using original address")
		}
		emit(mapped)
		emit(byte(addr))
		emit(byte(addr >> 8))
		emit(byte(call.Count))
		return warnings, nil
	}

	mapped, ok := cmdMap.MapWrite(v.Payload.VcmdID())
	if !ok {
		return nil, nspc.ErrUnmappedVcmd(object, v.Payload.VcmdID())
	}
	emit(mapped)
	nspc.EncodeVcmd(v.Payload, emit)
	return nil, nil
}

// Sequence serializes a song's sequence ops back to N-SPC bytes (spec
// §4.3.3's sequence-encoding rules). sequenceAddrByIndex supplies each
// sequence op's final ARAM address so jump targets carrying a
// resolved index can be rewritten to point at it instead of the
// address recovered at disassembly time.
func Sequence(ops []nspc.SequenceOp, sequenceAddrByIndex map[int]uint16) []byte {
	var out []byte
	appendU16 := func(v uint16) {
		out = append(out, byte(v), byte(v>>8))
	}
	targetAddr := func(t nspc.SequenceTarget) uint16 {
		if t.Index != nil {
			if addr, ok := sequenceAddrByIndex[*t.Index]; ok {
				return addr
			}
		}
		return t.Address
	}

	for _, op := range ops {
		switch v := op.(type) {
		case nspc.PlayPattern:
			appendU16(v.TrackTableAddr)
		case nspc.JumpTimes:
			count := v.Count
			if count < 1 {
				count = 1
			}
			if count > 0x7F {
				count = 0x7F
			}
			appendU16(uint16(count))
			appendU16(targetAddr(v.Target))
		case nspc.AlwaysJump:
			opcode := v.Opcode
			if opcode < 0x82 {
				opcode = 0x82
			}
			appendU16(uint16(opcode))
			appendU16(targetAddr(v.Target))
		case nspc.FastForwardOn:
			appendU16(0x0080)
		case nspc.FastForwardOff:
			appendU16(0x0081)
		case nspc.EndSequence:
			appendU16(0x0000)
		}
	}
	return out
}

// Pattern serializes a pattern's 8 channel-track pointers (16 bytes),
// writing 0x0000 for a silent channel.
func Pattern(p *nspc.Pattern, trackAddrByID map[int]uint16) []byte {
	out := make([]byte, 16)
	for ch := 0; ch < 8; ch++ {
		id := p.ChannelTrackIDs[ch]
		var addr uint16
		if id >= 0 {
			addr = trackAddrByID[id]
		}
		out[ch*2] = byte(addr)
		out[ch*2+1] = byte(addr >> 8)
	}
	return out
}
