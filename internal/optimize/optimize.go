package optimize

import "github.com/ntrak/nspctool/internal/nspc"

// OptimizeSong implements spec §4.4.3's subroutine optimizer: flatten
// every existing subroutine call inline, then iteratively mine the
// best-scoring repeated event slice via a suffix automaton and
// re-extract it as a fresh subroutine, until no candidate yields
// positive savings or opts.MaxIterations is reached.
//
// If flattening leaves any subroutine call behind (a recursive call a
// single flatten pass can't resolve), song is left in its flattened
// state but otherwise untouched — optimizing a song with nested calls
// is not attempted, matching NspcOptimize.cpp's own guard.
func OptimizeSong(song *nspc.Song, opts Options) error {
	eff := opts.effective()

	if err := FlattenSubroutineCalls(song); err != nil {
		return err
	}
	if hasAnySubroutineCalls(song.Tracks) {
		return nil
	}

	nextID := nextEventID(song)

	for iter := 0; iter < eff.MaxIterations; iter++ {
		segments := buildSegments(song.Tracks)

		tokenCount := 0
		for _, seg := range segments {
			tokenCount += len(seg.tokens)
		}
		if tokenCount < 8 {
			break
		}

		globalSeq, prefixBytes, prefixSep := buildGlobalSequence(segments)

		sam := newSuffixAutomaton(len(globalSeq) * 2)
		for i, tok := range globalSeq {
			sam.extend(tok, i)
		}
		sam.computeOccurrences()

		candidates := collectTopCandidates(sam, prefixBytes, prefixSep, eff)
		if len(candidates) == 0 {
			break
		}

		applied := false
		for _, cand := range candidates {
			plans, lenTok, repTrack, repStart, ok := buildApplyPlan(cand, song.Tracks, segments, globalSeq, prefixSep, eff)
			if !ok {
				continue
			}
			applyPlanToSong(song, plans, lenTok, repTrack, repStart, eff.AllowSingleIterationCalls, &nextID)
			applied = true
			break
		}
		if !applied {
			break
		}
	}

	return nil
}
