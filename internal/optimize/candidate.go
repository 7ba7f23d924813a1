package optimize

import "sort"

// candidate is one suffix-automaton state considered for extraction:
// a substring of length lenTok tokens (lenBytes encoded bytes) ending
// at firstPos in the global token sequence, occurring occ times.
type candidate struct {
	stateIndex int
	lenTok     int
	lenBytes   uint32
	occ        int
	firstPos   int
	estSavings int64
}

func candidateLess(a, b candidate) bool {
	if a.estSavings != b.estSavings {
		return a.estSavings > b.estSavings
	}
	if a.lenBytes != b.lenBytes {
		return a.lenBytes > b.lenBytes
	}
	if a.lenTok != b.lenTok {
		return a.lenTok > b.lenTok
	}
	if a.occ != b.occ {
		return a.occ > b.occ
	}
	if a.firstPos != b.firstPos {
		return a.firstPos < b.firstPos
	}
	return a.stateIndex < b.stateIndex
}

// optimisticMinCallCount is the lower bound on how many calls occ
// occurrences require, since one call's Count field tops out at 255.
func optimisticMinCallCount(occurrences int) int {
	if occurrences < 1 {
		return -1
	}
	return (occurrences + 254) / 255
}

// collectTopCandidates walks every suffix-automaton state with at
// least 2 occurrences, estimates its savings optimistically (assuming
// the minimum possible call count with no overlap/adjacency losses),
// discards non-positive or oversized ones, and keeps the best
// opts.TopCandidates by estSavings. The real plan (computed later per
// candidate by buildApplyPlan) never does better than this estimate,
// since overlap removal and the rejection rules can only shrink
// occurrence counts further; it equals the estimate when every
// occurrence is kept, the calls are as few as possible and no
// single-iteration penalty applies.
func collectTopCandidates(sam *suffixAutomaton, prefixBytes, prefixSep []uint32, opts Options) []candidate {
	var out []candidate

	for si := 1; si < len(sam.states); si++ {
		st := sam.states[si]
		if st.occ < 2 || st.length <= 0 || st.firstPos < 0 {
			continue
		}

		lenTok := st.length
		endPos := st.firstPos
		startPos := endPos - lenTok + 1
		if startPos < 0 {
			continue
		}
		if prefixSep[startPos+lenTok] != prefixSep[startPos] {
			continue
		}

		lenBytes := prefixBytes[startPos+lenTok] - prefixBytes[startPos]
		if lenBytes == 0 || lenBytes > uint32(opts.MaxCandidateBytes) {
			continue
		}

		optimisticCalls := optimisticMinCallCount(st.occ)
		if optimisticCalls < 0 {
			continue
		}

		est := int64(st.occ)*int64(lenBytes) - int64(optimisticCalls)*callBytes - int64(lenBytes+subTerminatorBytes)
		if est <= 0 {
			continue
		}

		out = append(out, candidate{
			stateIndex: si,
			lenTok:     lenTok,
			lenBytes:   lenBytes,
			occ:        st.occ,
			firstPos:   st.firstPos,
			estSavings: est,
		})
	}

	sort.Slice(out, func(i, j int) bool { return candidateLess(out[i], out[j]) })
	if len(out) > opts.TopCandidates {
		out = out[:opts.TopCandidates]
	}
	return out
}

// appendCallChunkIterations splits a run of `repeats` adjacent
// occurrences into one or more call counts, each in 1..255 (a call's
// Count byte range). Returns false (and a nil/empty chunk list) if the
// run can't be encoded at all under the current single-iteration
// policy.
func appendCallChunkIterations(repeats int, allowSingleIterationCalls bool) ([]int, bool) {
	minRepeats := 2
	if allowSingleIterationCalls {
		minRepeats = 1
	}
	if repeats < minRepeats {
		return nil, false
	}

	var chunks []int
	remaining := repeats
	for remaining > 0 {
		chunk := remaining
		if chunk > 255 {
			chunk = 255
		}
		chunks = append(chunks, chunk)
		remaining -= chunk
	}
	return chunks, true
}
