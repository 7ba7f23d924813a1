package optimize

import "github.com/ntrak/nspctool/internal/nspc"

// eventEncodedSize mirrors NspcOptimize.cpp's eventEncodedSize, but
// takes vcmd widths from nspc.EncodedParamLen (the parameter byte
// count nspc.EncodeVcmd emits) instead of re-deriving the vcmd byte
// widths here.
func eventEncodedSize(ev nspc.NspcEvent) int {
	switch v := ev.(type) {
	case nspc.Duration:
		if v.Quantization != nil || v.Velocity != nil {
			return 2
		}
		return 1
	case nspc.Vcmd:
		return 1 + nspc.EncodedParamLen(v.Payload)
	case nspc.Note, nspc.Tie, nspc.Rest, nspc.Percussion, nspc.End:
		return 1
	default:
		return 0
	}
}

func isEndEvent(e nspc.EventEntry) bool {
	_, ok := e.Event.(nspc.End)
	return ok
}

func isSubroutineCallEvent(e nspc.EventEntry) bool {
	vc, ok := e.Event.(nspc.Vcmd)
	if !ok {
		return false
	}
	_, ok = vc.Payload.(nspc.VcmdSubroutineCall)
	return ok
}

func isPitchSlideToNoteEvent(e nspc.EventEntry) bool {
	vc, ok := e.Event.(nspc.Vcmd)
	if !ok {
		return false
	}
	_, ok = vc.Payload.(nspc.VcmdPitchSlideToNote)
	return ok
}

func isDurationEvent(e nspc.EventEntry) bool {
	_, ok := e.Event.(nspc.Duration)
	return ok
}

// isDurationWithoutQV reports a "bare" Duration: ticks only, no
// quantization/velocity byte. Extracted subroutine bodies must not end
// on one, per spec §4.3's invariant on extracted subroutines.
func isDurationWithoutQV(e nspc.EventEntry) bool {
	d, ok := e.Event.(nspc.Duration)
	if !ok {
		return false
	}
	return d.Quantization == nil && d.Velocity == nil
}

func consumesDurationTicks(e nspc.EventEntry) bool {
	switch e.Event.(type) {
	case nspc.Note, nspc.Tie, nspc.Rest, nspc.Percussion:
		return true
	default:
		return false
	}
}

func sliceConsumesDurationTicks(events []nspc.EventEntry, start, count int) bool {
	if start >= len(events) {
		return false
	}
	end := start + count
	if end > len(events) {
		end = len(events)
	}
	for i := start; i < end; i++ {
		if consumesDurationTicks(events[i]) {
			return true
		}
	}
	return false
}

// splitmix64 is the same fixed-point mixer NspcOptimize.cpp uses for
// semantic token hashing; determinism across runs (not cryptographic
// strength) is all that's required here.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

func hashAdd(h *uint64, v uint64) {
	*h ^= splitmix64(v + 0x9E3779B97F4A7C15 + (*h << 6) + (*h >> 2))
}

// hashVcmdSemantic folds a vcmd payload's id and fields into h's
// running hash. Subroutine calls are hashed too (in case one slips
// into the match domain despite the flatten pre-pass), but are never
// expected to appear after OptimizeSong's flatten step.
func hashVcmdSemantic(v nspc.VcmdPayload) uint64 {
	h := uint64(0xC0DEC0DE12345678)
	switch p := v.(type) {
	case nspc.VcmdInst:
		hashAdd(&h, 0xE0)
		hashAdd(&h, uint64(p.InstrumentIndex))
	case nspc.VcmdPanning:
		hashAdd(&h, 0xE1)
		hashAdd(&h, uint64(p.Pan))
	case nspc.VcmdPanFade:
		hashAdd(&h, 0xE2)
		hashAdd(&h, uint64(p.Time))
		hashAdd(&h, uint64(p.Target))
	case nspc.VcmdVibratoOn:
		hashAdd(&h, 0xE3)
		hashAdd(&h, uint64(p.Delay))
		hashAdd(&h, uint64(p.Rate))
		hashAdd(&h, uint64(p.Depth))
	case nspc.VcmdVibratoOff:
		hashAdd(&h, 0xE4)
	case nspc.VcmdGlobalVolume:
		hashAdd(&h, 0xE5)
		hashAdd(&h, uint64(p.Volume))
	case nspc.VcmdGlobalVolumeFade:
		hashAdd(&h, 0xE6)
		hashAdd(&h, uint64(p.Time))
		hashAdd(&h, uint64(p.Target))
	case nspc.VcmdTempo:
		hashAdd(&h, 0xE7)
		hashAdd(&h, uint64(p.Tempo))
	case nspc.VcmdTempoFade:
		hashAdd(&h, 0xE8)
		hashAdd(&h, uint64(p.Time))
		hashAdd(&h, uint64(p.Target))
	case nspc.VcmdGlobalTranspose:
		hashAdd(&h, 0xE9)
		hashAdd(&h, uint64(byte(p.Semitones)))
	case nspc.VcmdPerVoiceTranspose:
		hashAdd(&h, 0xEA)
		hashAdd(&h, uint64(byte(p.Semitones)))
	case nspc.VcmdTremoloOn:
		hashAdd(&h, 0xEB)
		hashAdd(&h, uint64(p.Delay))
		hashAdd(&h, uint64(p.Rate))
		hashAdd(&h, uint64(p.Depth))
	case nspc.VcmdTremoloOff:
		hashAdd(&h, 0xEC)
	case nspc.VcmdVolume:
		hashAdd(&h, 0xED)
		hashAdd(&h, uint64(p.Volume))
	case nspc.VcmdVolumeFade:
		hashAdd(&h, 0xEE)
		hashAdd(&h, uint64(p.Time))
		hashAdd(&h, uint64(p.Target))
	case nspc.VcmdSubroutineCall:
		hashAdd(&h, 0xEF)
		hashAdd(&h, uint64(uint32(p.SubroutineID)))
		hashAdd(&h, uint64(p.Count))
	case nspc.VcmdVibratoFadeIn:
		hashAdd(&h, 0xF0)
		hashAdd(&h, uint64(p.Time))
	case nspc.VcmdPitchEnvelopeTo:
		hashAdd(&h, 0xF1)
		hashAdd(&h, uint64(p.Delay))
		hashAdd(&h, uint64(p.Length))
		hashAdd(&h, uint64(p.Semitone))
	case nspc.VcmdPitchEnvelopeFrom:
		hashAdd(&h, 0xF2)
		hashAdd(&h, uint64(p.Delay))
		hashAdd(&h, uint64(p.Length))
		hashAdd(&h, uint64(p.Semitone))
	case nspc.VcmdPitchEnvelopeOff:
		hashAdd(&h, 0xF3)
	case nspc.VcmdFineTune:
		hashAdd(&h, 0xF4)
		hashAdd(&h, uint64(byte(p.Amount)))
	case nspc.VcmdEchoOn:
		hashAdd(&h, 0xF5)
		hashAdd(&h, uint64(p.ChannelMask))
		hashAdd(&h, uint64(p.VolumeLeft))
		hashAdd(&h, uint64(p.VolumeRight))
	case nspc.VcmdEchoOff:
		hashAdd(&h, 0xF6)
	case nspc.VcmdEchoParams:
		hashAdd(&h, 0xF7)
		hashAdd(&h, uint64(p.Delay))
		hashAdd(&h, uint64(p.Feedback))
		hashAdd(&h, uint64(p.FirIndex))
	case nspc.VcmdEchoVolumeFade:
		hashAdd(&h, 0xF8)
		hashAdd(&h, uint64(p.Time))
		hashAdd(&h, uint64(p.TargetLeft))
		hashAdd(&h, uint64(p.TargetRight))
	case nspc.VcmdPitchSlideToNote:
		hashAdd(&h, 0xF9)
		hashAdd(&h, uint64(p.Delay))
		hashAdd(&h, uint64(p.Length))
		hashAdd(&h, uint64(p.Note))
	case nspc.VcmdPercussionBaseInstrument:
		hashAdd(&h, 0xFA)
		hashAdd(&h, uint64(p.BaseIndex))
	case nspc.VcmdNOP:
		hashAdd(&h, 0xFB)
		hashAdd(&h, uint64(p.Raw))
	case nspc.VcmdMuteChannel:
		hashAdd(&h, 0xFC)
	case nspc.VcmdFastForwardOn:
		hashAdd(&h, 0xFD)
	case nspc.VcmdFastForwardOff:
		hashAdd(&h, 0xFE)
	case nspc.VcmdUnused:
		hashAdd(&h, 0xFF)
	case nspc.VcmdExtension:
		hashAdd(&h, 0xF0FF)
		hashAdd(&h, uint64(p.ID))
		hashAdd(&h, uint64(len(p.Params)))
		for _, b := range p.Params {
			hashAdd(&h, uint64(b))
		}
	}
	return h & ^(uint64(1) << 63)
}

// hashEventSemantic is the 63-bit semantic token for one event: two
// events hash equal iff they'd encode to the same bytes under any
// command map (so the automaton can't match a Duration against a Note
// just because their structural sizes coincide).
func hashEventSemantic(e nspc.EventEntry) uint64 {
	h := uint64(0xBADC0FFEE0DDF00D)
	switch v := e.Event.(type) {
	case nspc.Duration:
		ticks := v.Ticks
		if ticks == 0 {
			ticks = 1
		}
		hashAdd(&h, 0x01)
		hashAdd(&h, uint64(ticks))
		if v.Quantization != nil || v.Velocity != nil {
			q := 0
			if v.Quantization != nil {
				q = *v.Quantization & 0x07
			}
			vel := 0
			if v.Velocity != nil {
				vel = *v.Velocity & 0x0F
			}
			hashAdd(&h, 0x100)
			hashAdd(&h, uint64(q))
			hashAdd(&h, uint64(vel))
		} else {
			hashAdd(&h, 0x101)
		}
	case nspc.Vcmd:
		hashAdd(&h, 0x02)
		hashAdd(&h, hashVcmdSemantic(v.Payload))
	case nspc.Note:
		hashAdd(&h, 0x03)
		hashAdd(&h, uint64(v.Pitch))
	case nspc.Tie:
		hashAdd(&h, 0x04)
	case nspc.Rest:
		hashAdd(&h, 0x05)
	case nspc.Percussion:
		hashAdd(&h, 0x06)
		hashAdd(&h, uint64(v.Index))
	case nspc.End:
		hashAdd(&h, 0x08)
	}
	h = splitmix64(h)
	return h & ^(uint64(1) << 63)
}

// segment is a maximal run of consecutive, matchable events within one
// track: no End, no subroutine call, no non-encodable event inside it.
type segment struct {
	trackIndex      int
	eventStartIndex int
	tokens          []uint64
	sizes           []uint8
}

// buildSegments splits every track's event stream at End, subroutine
// calls, and non-encodable events, per spec §4.4.3's match-domain
// rules: a candidate body can never span one of these boundaries.
func buildSegments(tracks []nspc.Track) []segment {
	var segs []segment

	for ti, t := range tracks {
		var cur segment
		cur.trackIndex = ti
		started := false

		for i, e := range t.Events {
			if isEndEvent(e) {
				if len(cur.tokens) > 0 {
					segs = append(segs, cur)
					cur = segment{}
				}
				break
			}
			if isSubroutineCallEvent(e) || eventEncodedSize(e.Event) == 0 {
				if len(cur.tokens) > 0 {
					segs = append(segs, cur)
					cur = segment{}
				}
				started = false
				continue
			}
			if !started {
				started = true
				cur = segment{trackIndex: ti, eventStartIndex: i}
			}
			cur.tokens = append(cur.tokens, hashEventSemantic(e))
			cur.sizes = append(cur.sizes, uint8(eventEncodedSize(e.Event)))
		}
		if len(cur.tokens) > 0 {
			segs = append(segs, cur)
		}
	}
	return segs
}

// buildGlobalSequence concatenates every segment's tokens into one
// stream, separated by a unique top-bit-set separator token so no
// match can cross a segment boundary, plus byte-length and
// separator-count prefix sums for O(1) range queries.
func buildGlobalSequence(segments []segment) (seq []uint64, prefixBytes, prefixSep []uint32) {
	var sizes []uint8
	var sepID uint64 = 1

	for _, seg := range segments {
		seq = append(seq, seg.tokens...)
		sizes = append(sizes, seg.sizes...)
		seq = append(seq, (uint64(1)<<63)|sepID)
		sizes = append(sizes, 0)
		sepID++
	}

	prefixBytes = make([]uint32, len(seq)+1)
	prefixSep = make([]uint32, len(seq)+1)
	for i, s := range seq {
		prefixBytes[i+1] = prefixBytes[i] + uint32(sizes[i])
		sepBit := uint32(0)
		if s&(uint64(1)<<63) != 0 {
			sepBit = 1
		}
		prefixSep[i+1] = prefixSep[i] + sepBit
	}
	return seq, prefixBytes, prefixSep
}
