package optimize

import (
	"sort"

	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "optimize"

// run is one accepted, non-overlapping occurrence (or adjacency-coalesced
// block of occurrences) of a candidate pattern within a single track.
type run struct {
	startEventIndex int
	repeats         int
}

// applyPlan is the set of runs to replace with calls in one track.
type applyPlan struct {
	trackIndex int
	runs       []run
}

// matchPositions returns every start index (allowing overlaps) where
// pattern occurs in seg.tokens, translated to event indices in the
// owning track.
func matchPositions(seg segment, pattern []uint64) []int {
	var out []int
	n, m := len(seg.tokens), len(pattern)
	if m == 0 || m > n {
		return nil
	}
	for i := 0; i+m <= n; i++ {
		match := true
		for j := 0; j < m; j++ {
			if seg.tokens[i+j] != pattern[j] {
				match = false
				break
			}
		}
		if match {
			out = append(out, seg.eventStartIndex+i)
		}
	}
	return out
}

// buildApplyPlan computes the real (non-overlapping, rule-checked)
// extraction plan for one candidate, per spec §4.4.3's rejection rules
// and adjacency-coalescing. Returns ok=false if the candidate yields
// no usable occurrences or non-positive real savings.
func buildApplyPlan(cand candidate, tracks []nspc.Track, segments []segment, globalSeq []uint64, prefixSep []uint32, opts Options) (plans []applyPlan, lenTok, repTrack, repStart int, ok bool) {
	lenTok = cand.lenTok
	if lenTok <= 0 {
		return nil, 0, 0, 0, false
	}
	endPos := cand.firstPos
	startPos := endPos - lenTok + 1
	if startPos < 0 {
		return nil, 0, 0, 0, false
	}
	if prefixSep[startPos+lenTok] != prefixSep[startPos] {
		return nil, 0, 0, 0, false
	}
	pattern := globalSeq[startPos : startPos+lenTok]

	maxTrack := -1
	for _, seg := range segments {
		if seg.trackIndex > maxTrack {
			maxTrack = seg.trackIndex
		}
	}
	if maxTrack < 0 {
		return nil, 0, 0, 0, false
	}

	startsByTrack := make([][]int, maxTrack+1)
	var endsWithBareDuration *bool

	for _, seg := range segments {
		for _, startEventIndex := range matchPositions(seg, pattern) {
			trackEvents := tracks[seg.trackIndex].Events
			endEventIndex := startEventIndex + lenTok

			if startEventIndex < len(trackEvents) && isPitchSlideToNoteEvent(trackEvents[startEventIndex]) {
				continue
			}
			if endEventIndex < len(trackEvents) && isPitchSlideToNoteEvent(trackEvents[endEventIndex]) {
				continue
			}
			if startEventIndex > 0 && startEventIndex-1 < len(trackEvents) && isDurationEvent(trackEvents[startEventIndex-1]) {
				continue
			}
			if endEventIndex == 0 || endEventIndex > len(trackEvents) {
				continue
			}
			if endsWithBareDuration == nil {
				bare := isDurationWithoutQV(trackEvents[endEventIndex-1])
				endsWithBareDuration = &bare
				if bare {
					return nil, 0, 0, 0, false
				}
			}

			startsByTrack[seg.trackIndex] = append(startsByTrack[seg.trackIndex], startEventIndex)
		}
	}

	var plans2 []applyPlan
	haveRep := false
	var totalOccurrences, totalCallCount, totalSingleIterationCalls int64
	var consumesDuration *bool

	for ti := 0; ti <= maxTrack; ti++ {
		starts := startsByTrack[ti]
		if len(starts) == 0 {
			continue
		}
		sort.Ints(starts)
		starts = dedupInts(starts)

		trackEvents := tracks[ti].Events
		var plan applyPlan
		plan.trackIndex = ti

		i := 0
		nextAllowed := 0
		for i < len(starts) {
			s := starts[i]
			if s < nextAllowed {
				i++
				continue
			}

			repeats := 1
			j := i + 1
			for j < len(starts) && starts[j] == s+repeats*lenTok {
				repeats++
				j++
			}

			if repeats == 1 {
				if consumesDuration == nil {
					consumes := sliceConsumesDurationTicks(trackEvents, s, lenTok)
					consumesDuration = &consumes
				}
				if !*consumesDuration {
					i++
					continue
				}
			}

			chunks, okChunks := appendCallChunkIterations(repeats, opts.AllowSingleIterationCalls)
			if !okChunks {
				i++
				continue
			}

			plan.runs = append(plan.runs, run{startEventIndex: s, repeats: repeats})
			if !haveRep {
				haveRep = true
				repTrack = ti
				repStart = s
			}

			totalOccurrences += int64(repeats)
			totalCallCount += int64(len(chunks))
			for _, c := range chunks {
				if c == 1 {
					totalSingleIterationCalls++
				}
			}

			nextAllowed = s + repeats*lenTok
			i = j
			for i < len(starts) && starts[i] < nextAllowed {
				i++
			}
		}

		if len(plan.runs) > 0 {
			plans2 = append(plans2, plan)
		}
	}

	if !haveRep || totalOccurrences < 2 {
		return nil, 0, 0, 0, false
	}

	removedBytes := totalOccurrences * int64(cand.lenBytes)
	callBytesTotal := totalCallCount * callBytes
	subBytes := int64(cand.lenBytes) + subTerminatorBytes
	runtimePenalty := totalSingleIterationCalls * int64(opts.SingleIterationCallPenaltyBytes)
	realSavings := removedBytes - callBytesTotal - subBytes - runtimePenalty
	if realSavings <= 0 {
		return nil, 0, 0, 0, false
	}

	return plans2, lenTok, repTrack, repStart, true
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// applyPlanToSong extracts the representative slice [repStart, repStart+lenTok)
// of tracks[repTrack] as a fresh subroutine, then rewrites every
// planned track's events, replacing each run with one call per chunk
// of 1..255 repeats.
func applyPlanToSong(song *nspc.Song, plans []applyPlan, lenTok, repTrack, repStart int, allowSingleIterationCalls bool, nextID *nspc.EventID) {
	srcEvents := song.Tracks[repTrack].Events
	sliceEnd := repStart + lenTok

	subEvents := make([]nspc.EventEntry, 0, lenTok+1)
	for i := repStart; i < sliceEnd; i++ {
		src := srcEvents[i]
		if isEndEvent(src) {
			break
		}
		subEvents = append(subEvents, nspc.EventEntry{ID: *nextID, Event: src.Event})
		*nextID++
	}
	subEvents = append(subEvents, nspc.EventEntry{ID: *nextID, Event: nspc.End{}})
	*nextID++

	newSubID := len(song.Subroutines)
	song.Subroutines = append(song.Subroutines, nspc.Subroutine{ID: newSubID, Events: subEvents})

	for _, plan := range plans {
		old := song.Tracks[plan.trackIndex].Events
		out := make([]nspc.EventEntry, 0, len(old))

		runIdx, i := 0, 0
		for i < len(old) {
			if isEndEvent(old[i]) {
				out = append(out, old[i])
				break
			}

			if runIdx < len(plan.runs) && i == plan.runs[runIdx].startEventIndex {
				r := plan.runs[runIdx]
				chunks, okChunks := appendCallChunkIterations(r.repeats, allowSingleIterationCalls)
				if okChunks {
					for _, chunk := range chunks {
						out = append(out, nspc.EventEntry{
							ID: *nextID,
							Event: nspc.Vcmd{Payload: nspc.VcmdSubroutineCall{
								SubroutineID: newSubID,
								Count:        chunk,
							}},
						})
						*nextID++
					}
				} else {
					for keep := 0; keep < r.repeats*lenTok; keep++ {
						out = append(out, old[i+keep])
					}
				}
				i += r.repeats * lenTok
				runIdx++
				continue
			}

			out = append(out, old[i])
			i++
		}

		song.Tracks[plan.trackIndex].Events = out
	}
}

// hasAnySubroutineCalls reports whether any track still contains a
// VcmdSubroutineCall, used after flattening to detect recursive or
// unresolved calls the flatten pass can't remove in one pass.
func hasAnySubroutineCalls(tracks []nspc.Track) bool {
	for _, t := range tracks {
		for _, e := range t.Events {
			if isSubroutineCallEvent(e) {
				return true
			}
		}
	}
	return false
}

// nextEventID scans every track and subroutine for the highest event
// id in use and returns one past it, mirroring
// NspcOptimize.cpp's nextEventIdForSong.
func nextEventID(song *nspc.Song) nspc.EventID {
	next := nspc.EventID(1)
	for _, t := range song.Tracks {
		for _, e := range t.Events {
			if e.ID+1 > next {
				next = e.ID + 1
			}
		}
	}
	for _, s := range song.Subroutines {
		for _, e := range s.Events {
			if e.ID+1 > next {
				next = e.ID + 1
			}
		}
	}
	return next
}

// FlattenSubroutineCalls inlines every VcmdSubroutineCall in song's
// tracks with the callee's body (minus its trailing End), `count`
// times, then clears song.Subroutines. Grounded on
// NspcData.cpp's NspcSong::flattenSubroutines, with one deliberate
// improvement: a call referencing a subroutine id that doesn't exist
// is an invariant violation (spec §3.3's "for every VcmdSubroutineCall
// referencing sub_id, a subroutine with that id exists") and is
// reported as an error rather than silently dropped.
func FlattenSubroutineCalls(song *nspc.Song) error {
	if len(song.Tracks) == 0 {
		song.Subroutines = nil
		return nil
	}

	nextID := nextEventID(song)

	for ti := range song.Tracks {
		track := &song.Tracks[ti]
		flat := make([]nspc.EventEntry, 0, len(track.Events))

		for _, entry := range track.Events {
			vc, isVcmd := entry.Event.(nspc.Vcmd)
			call, isCall := vc.Payload.(nspc.VcmdSubroutineCall)
			if !isVcmd || !isCall {
				flat = append(flat, entry)
				continue
			}

			sub := song.SubroutineByID(call.SubroutineID)
			if sub == nil {
				return ntrakerr.New(ntrakerr.InvariantViolation, object,
					"track %d calls subroutine %d, which does not exist", track.ID, call.SubroutineID)
			}

			for iter := 0; iter < call.Count; iter++ {
				for j, src := range sub.Events {
					if j == len(sub.Events)-1 && isEndEvent(src) {
						continue
					}
					flat = append(flat, nspc.EventEntry{ID: nextID, Event: src.Event})
					nextID++
				}
			}
		}

		track.Events = flat
	}

	song.Subroutines = nil
	return nil
}
