// Package disasm recovers an nspc.Song from a raw ARAM image and an
// engine descriptor, per spec §4.3.2. Grounded on
// original_source/src/nspc/NspcData.cpp's NspcSong constructor
// (sequence/pattern/track/subroutine discovery) and NspcProject.cpp's
// probeTrackStream/isLikelyTrackLeadByte (song-pointer plausibility
// probe).
package disasm

import (
	"fmt"

	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "nspc.disasm"

// Reader is the narrow ARAM-read contract disassembly needs. apu.APU
// satisfies it directly.
type Reader interface {
	ReadByte(addr uint16) byte
}

func read16(r Reader, addr uint16) uint16 {
	lo := r.ReadByte(addr)
	hi := r.ReadByte(addr + 1)
	return uint16(lo) | uint16(hi)<<8
}

const (
	sequenceProbeLimit  = 128
	trackProbeLookahead = 16 * 1024
)

// Song recovers a Song from an ARAM image by walking the song-index
// table, sequence, patterns, tracks and subroutines.
func Song(r Reader, engine *nspc.EngineDescriptor, songID int) (*nspc.Song, error) {
	if engine.SongIndexPointers == nil {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "engine descriptor has no song index table")
	}

	seqPointerAddr := *engine.SongIndexPointers + uint16(songID*2)
	seqPointer := read16(r, seqPointerAddr)
	if seqPointer == 0 {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "song %d: sequence pointer is null", songID)
	}
	if seqPointer == 0xFFFF {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "song %d: sequence pointer is the table terminator", songID)
	}
	if !probeSongPointer(r, &engine.CommandMap, engine, seqPointer) {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "song %d: sequence pointer 0x%04X fails plausibility probe", songID, seqPointer)
	}

	seqAddr := seqPointer
	song := &nspc.Song{SongID: songID, Origin: nspc.EngineProvided, SequenceAddr: &seqAddr}

	seqAddrToIndex := map[uint16]int{}
	patternAddrToIndex := map[uint16]int{}
	trackAddrToIndex := map[uint16]int{}
	nextTrackID := 0

	addr := seqPointer
	for {
		opAddr := addr
		seqAddrToIndex[opAddr] = len(song.Sequence)

		word := read16(r, addr)
		switch {
		case word == 0x0000:
			song.Sequence = append(song.Sequence, nspc.EndSequence{})
			goto sequenceDone
		case word&0xFF00 == 0x0000:
			low := byte(word)
			switch {
			case low >= 0x01 && low <= 0x7F:
				target := read16(r, addr+2)
				song.Sequence = append(song.Sequence, nspc.JumpTimes{Count: int(low), Target: nspc.SequenceTarget{Address: target}})
				addr += 4
			case low == 0x80:
				song.Sequence = append(song.Sequence, nspc.FastForwardOn{})
				addr += 2
			case low == 0x81:
				song.Sequence = append(song.Sequence, nspc.FastForwardOff{})
				addr += 2
			case low >= 0x82:
				target := read16(r, addr+2)
				song.Sequence = append(song.Sequence, nspc.AlwaysJump{Opcode: low, Target: nspc.SequenceTarget{Address: target}})
				addr += 4
			default:
				addr += 2
			}
		default:
			patternAddr := word
			id, ok := patternAddrToIndex[patternAddr]
			if !ok {
				id = len(patternAddrToIndex)
				patternAddrToIndex[patternAddr] = id
			}
			song.Sequence = append(song.Sequence, nspc.PlayPattern{PatternID: id, TrackTableAddr: patternAddr})
			addr += 2
		}
	}
sequenceDone:

	for i := range song.Sequence {
		switch op := song.Sequence[i].(type) {
		case nspc.JumpTimes:
			if idx, ok := seqAddrToIndex[op.Target.Address]; ok {
				op.Target.Index = &idx
				song.Sequence[i] = op
			}
		case nspc.AlwaysJump:
			if idx, ok := seqAddrToIndex[op.Target.Address]; ok {
				op.Target.Index = &idx
				song.Sequence[i] = op
			}
		}
	}

	orderedPatternAddrs := make([]uint16, len(patternAddrToIndex))
	for patternAddr, id := range patternAddrToIndex {
		orderedPatternAddrs[id] = patternAddr
	}
	for id, patternAddr := range orderedPatternAddrs {
		var chans [8]int
		for ch := 0; ch < 8; ch++ {
			trackAddr := read16(r, patternAddr+uint16(ch*2))
			if trackAddr == 0 {
				chans[ch] = -1
				continue
			}
			tid, ok := trackAddrToIndex[trackAddr]
			if !ok {
				tid = nextTrackID
				nextTrackID++
				trackAddrToIndex[trackAddr] = tid
			}
			chans[ch] = tid
		}
		song.Patterns = append(song.Patterns, nspc.Pattern{ID: id, ChannelTrackIDs: chans, TrackTableAddr: patternAddr})
	}

	type trackEntry struct {
		addr uint16
		id   int
	}
	trackEntries := make([]trackEntry, 0, len(trackAddrToIndex))
	for addr, id := range trackAddrToIndex {
		trackEntries = append(trackEntries, trackEntry{addr, id})
	}
	sortByKey(trackEntries, func(e trackEntry) uint16 { return e.addr })

	subroutineAddrToIndex := map[uint16]int{}
	nextSubroutineID := 0
	resolveSubroutine := func(subAddr uint16) int {
		if id, ok := subroutineAddrToIndex[subAddr]; ok {
			return id
		}
		id := nextSubroutineID
		nextSubroutineID++
		subroutineAddrToIndex[subAddr] = id
		return id
	}

	song.Tracks = make([]nspc.Track, len(trackEntries))
	for i, te := range trackEntries {
		var hardStop *uint16
		if i+1 < len(trackEntries) {
			next := trackEntries[i+1].addr
			hardStop = &next
		}
		events, _, err := parseEvents(r, &engine.CommandMap, engine, resolveSubroutine, te.addr, hardStop)
		if err != nil {
			return nil, ntrakerr.Wrap(ntrakerr.InvalidInput, object, fmt.Errorf("song %d: track at 0x%04X: %w", songID, te.addr, err))
		}
		addr := te.addr
		song.Tracks[i] = nspc.Track{ID: te.id, OriginalAddr: &addr, Events: events}
	}

	parsedSubroutines := map[uint16]bool{}
	for {
		type pending struct {
			addr uint16
			id   int
		}
		var worklist []pending
		for addr, id := range subroutineAddrToIndex {
			if !parsedSubroutines[addr] {
				worklist = append(worklist, pending{addr, id})
			}
		}
		if len(worklist) == 0 {
			break
		}
		sortByKey(worklist, func(p pending) uint16 { return uint16(p.id) })

		for _, p := range worklist {
			parsedSubroutines[p.addr] = true
			events, _, err := parseEvents(r, &engine.CommandMap, engine, resolveSubroutine, p.addr, nil)
			if err != nil {
				return nil, ntrakerr.Wrap(ntrakerr.InvalidInput, object, fmt.Errorf("song %d: subroutine at 0x%04X: %w", songID, p.addr, err))
			}
			for len(song.Subroutines) <= p.id {
				song.Subroutines = append(song.Subroutines, nspc.Subroutine{})
			}
			addr := p.addr
			song.Subroutines[p.id] = nspc.Subroutine{ID: p.id, OriginalAddr: &addr, Events: events}
		}
	}

	return song, nil
}

// sortByKey is a tiny insertion sort so this package doesn't need
// "sort" for two small call sites with differing element types.
func sortByKey[T any](s []T, key func(T) uint16) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && key(s[j-1]) > key(s[j]); j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// parseEvents decodes a classifier-driven event stream starting at
// startAddr, stopping at End (0x00) or, if hardStop is non-nil, at the
// first address >= *hardStop. Returns the parsed events and the
// address just past the last consumed byte.
func parseEvents(r Reader, cmdMap *nspc.CommandMap, engine *nspc.EngineDescriptor, resolveSubroutine func(uint16) int, startAddr uint16, hardStop *uint16) ([]nspc.EventEntry, uint16, error) {
	var events []nspc.EventEntry
	addr := startAddr

	atStop := func() bool { return hardStop != nil && addr >= *hardStop }

	for {
		if atStop() {
			return events, addr, nil
		}
		eventAddr := addr
		b := r.ReadByte(addr)

		switch cmdMap.Classify(b) {
		case nspc.ClassEnd:
			events = append(events, entry(nspc.End{}, eventAddr))
			addr++
			return events, addr, nil
		case nspc.ClassDuration:
			dur := nspc.Duration{Ticks: int(b)}
			addr++
			if !atStop() {
				next := r.ReadByte(addr)
				if next >= 0x01 && next <= 0x7F {
					q := int((next >> 4) & 0x07)
					v := int(next & 0x0F)
					dur.Quantization = &q
					dur.Velocity = &v
					addr++
				}
			}
			events = append(events, entry(dur, eventAddr))
		case nspc.ClassNote:
			events = append(events, entry(nspc.Note{Pitch: int(b - cmdMap.NoteStart)}, eventAddr))
			addr++
		case nspc.ClassTie:
			events = append(events, entry(nspc.Tie{}, eventAddr))
			addr++
		case nspc.ClassRest:
			events = append(events, entry(nspc.Rest{}, eventAddr))
			addr++
		case nspc.ClassPercussion:
			events = append(events, entry(nspc.Percussion{Index: int(b - cmdMap.PercStart)}, eventAddr))
			addr++
		case nspc.ClassVcmd:
			mapped, ok := cmdMap.MapRead(b)
			if !ok {
				return nil, 0, nspc.ErrUnmappedVcmd(object, b)
			}
			if ext, ok := engine.ExtensionByID(mapped); ok {
				needed := 1 + ext.ParamBytes
				if hardStop != nil && uint32(addr)+uint32(needed) > uint32(*hardStop) {
					return events, addr, nil
				}
				params := make([]byte, ext.ParamBytes)
				cursor := addr + 1
				for i := range params {
					params[i] = r.ReadByte(cursor)
					cursor++
				}
				addr += uint16(needed)
				events = append(events, entry(nspc.Vcmd{Payload: nspc.VcmdExtension{ID: mapped, Params: params}}, eventAddr))
				continue
			}
			if mapped == nspc.VcmdIDUnused {
				return nil, 0, ntrakerr.New(ntrakerr.InvalidInput, object, "unused VCMD $%02X encountered at 0x%04X", mapped, eventAddr)
			}
			needed := 1 + nspc.VcmdParamByteCount(mapped)
			if hardStop != nil && uint32(addr)+uint32(needed) > uint32(*hardStop) {
				return events, addr, nil
			}
			cursor := addr + 1
			payload := nspc.ParseVcmd(mapped, func() byte {
				v := r.ReadByte(cursor)
				cursor++
				return v
			}, resolveSubroutine)
			addr += uint16(needed)
			events = append(events, entry(nspc.Vcmd{Payload: payload}, eventAddr))
		default:
			addr++
		}
	}
}

func entry(ev nspc.NspcEvent, addr uint16) nspc.EventEntry {
	a := addr
	return nspc.EventEntry{Event: ev, OriginalAddr: &a}
}

// probeSongPointer implements spec §4.3.2's plausibility probe: trace
// up to sequenceProbeLimit sequence ops looking for the first
// PlayPattern, then require that pattern's first non-null track to
// pass probeTrackStream's full walk.
func probeSongPointer(r Reader, cmdMap *nspc.CommandMap, engine *nspc.EngineDescriptor, seqPointer uint16) bool {
	addr := seqPointer
	for steps := 0; steps < sequenceProbeLimit; steps++ {
		word := read16(r, addr)
		if word == 0x0000 {
			return false
		}
		if word&0xFF00 == 0x0000 {
			low := byte(word)
			switch {
			case low >= 0x01 && low <= 0x7F, low >= 0x82:
				addr += 4
			case low == 0x80, low == 0x81:
				addr += 2
			default:
				addr += 2
			}
			continue
		}

		// word is a pattern's track-table address.
		for ch := 0; ch < 8; ch++ {
			trackAddr := read16(r, word+uint16(ch*2))
			if trackAddr == 0 {
				continue
			}
			return probeTrackStream(r, cmdMap, engine, trackAddr)
		}
		return false
	}
	return false
}

// probeTrackStream is the port of NspcProject.cpp:670-729's
// probeTrackStream: it decodes the full event stream starting at
// trackAddr exactly as parseEvents would, but only as far as
// trackProbeLookahead bytes in, and requires that walk to land cleanly
// on an End terminator — every event's param bytes must classify and
// stay in-bounds along the way. A track whose encoding runs off the
// end of that window, or that hits an unmapped/invalid byte before
// reaching End, fails the probe instead of reaching parseEvents for
// real and panicking or corrupting the recovered song.
func probeTrackStream(r Reader, cmdMap *nspc.CommandMap, engine *nspc.EngineDescriptor, trackAddr uint16) bool {
	if !isLikelyTrackLeadByte(r, cmdMap, engine, trackAddr) {
		return false
	}

	limitWide := uint32(trackAddr) + uint32(trackProbeLookahead)
	if limitWide > 0xFFFF {
		limitWide = 0xFFFF
	}
	limit := uint16(limitWide)

	noResolve := func(uint16) int { return 0 }
	events, _, err := parseEvents(r, cmdMap, engine, noResolve, trackAddr, &limit)
	if err != nil || len(events) == 0 {
		return false
	}
	_, ok := events[len(events)-1].Event.(nspc.End)
	return ok
}

// isLikelyTrackLeadByte classifies the single byte at trackAddr; it is
// probeTrackStream's first, cheap check before the full walk.
func isLikelyTrackLeadByte(r Reader, cmdMap *nspc.CommandMap, engine *nspc.EngineDescriptor, trackAddr uint16) bool {
	b := r.ReadByte(trackAddr)
	switch cmdMap.Classify(b) {
	case nspc.ClassEnd, nspc.ClassDuration, nspc.ClassNote, nspc.ClassTie, nspc.ClassRest, nspc.ClassPercussion:
		return true
	case nspc.ClassVcmd:
		mapped, ok := cmdMap.MapRead(b)
		if !ok {
			return false
		}
		if _, ok := engine.ExtensionByID(mapped); ok {
			return true
		}
		return mapped != nspc.VcmdIDUnused
	default:
		return false
	}
}
