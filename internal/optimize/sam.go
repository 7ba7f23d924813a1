package optimize

// samState is one suffix-automaton state. link is the suffix link,
// length the length of the longest substring this state represents, firstPos the end
// position of one occurrence (any one; enough to recover the
// substring via prefix arithmetic), and occ the endpos-set size after
// computeOccurrences propagates counts up the suffix-link tree.
type samState struct {
	link     int
	length   int
	firstPos int
	occ      int
	next     []samTrans
}

type samTrans struct {
	sym  uint64
	next int
}

func (s *samState) find(sym uint64) int {
	for _, tr := range s.next {
		if tr.sym == sym {
			return tr.next
		}
	}
	return -1
}

func (s *samState) set(sym uint64, next int) {
	for i, tr := range s.next {
		if tr.sym == sym {
			s.next[i].next = next
			return
		}
	}
	s.next = append(s.next, samTrans{sym, next})
}

// suffixAutomaton is a standard online suffix automaton over a stream
// of uint64 symbols, grounded on NspcOptimize.cpp's SuffixAutomaton:
// the same extend/clone construction, generalized from a fixed
// alphabet to arbitrary 64-bit semantic tokens via a per-state linear
// transition list (out-degree is small in practice for N-SPC event
// streams, so a slice beats a map here).
type suffixAutomaton struct {
	states []samState
	last   int
}

func newSuffixAutomaton(reserve int) *suffixAutomaton {
	if reserve < 2 {
		reserve = 2
	}
	sa := &suffixAutomaton{states: make([]samState, 0, reserve)}
	sa.states = append(sa.states, samState{link: -1})
	return sa
}

func (sa *suffixAutomaton) extend(c uint64, pos int) {
	cur := len(sa.states)
	sa.states = append(sa.states, samState{
		length:   sa.states[sa.last].length + 1,
		firstPos: pos,
		occ:      1,
	})

	p := sa.last
	for p != -1 && sa.states[p].find(c) == -1 {
		sa.states[p].set(c, cur)
		p = sa.states[p].link
	}

	if p == -1 {
		sa.states[cur].link = 0
	} else {
		q := sa.states[p].find(c)
		if sa.states[p].length+1 == sa.states[q].length {
			sa.states[cur].link = q
		} else {
			clone := len(sa.states)
			cloned := sa.states[q]
			cloned.length = sa.states[p].length + 1
			cloned.occ = 0
			sa.states = append(sa.states, cloned)

			for p != -1 && sa.states[p].find(c) == q {
				sa.states[p].set(c, clone)
				p = sa.states[p].link
			}
			sa.states[q].link = clone
			sa.states[cur].link = clone
		}
	}

	sa.last = cur
}

// computeOccurrences propagates each state's endpos-set size up the
// suffix-link tree via a counting sort on length, the same O(n)
// approach NspcOptimize.cpp's computeOccurrences uses instead of a
// comparison sort.
func (sa *suffixAutomaton) computeOccurrences() {
	maxLen := 0
	for _, st := range sa.states {
		if st.length > maxLen {
			maxLen = st.length
		}
	}

	count := make([]int, maxLen+1)
	for _, st := range sa.states {
		count[st.length]++
	}
	for i := 1; i <= maxLen; i++ {
		count[i] += count[i-1]
	}

	order := make([]int, len(sa.states))
	for i := len(sa.states) - 1; i >= 0; i-- {
		count[sa.states[i].length]--
		order[count[sa.states[i].length]] = i
	}

	for i := len(order) - 1; i > 0; i-- {
		v := order[i]
		parent := sa.states[v].link
		if parent >= 0 {
			sa.states[parent].occ += sa.states[v].occ
		}
	}
}
