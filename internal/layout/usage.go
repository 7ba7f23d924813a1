// Package layout implements the ARAM usage model and the song-scoped
// layout planner/upload builder, spec §4.4. Grounded on
// original_source/include/ntrak/nspc/NspcProject.hpp's
// NspcAramUsage/NspcAramRegion (the per-byte ownership-paint model)
// and NspcProject.cpp's blocked-range computation; the allocator's
// "pack a worklist of variable-size objects against a fixed budget,
// preferring previous addresses" shape follows
// tools/forge/serialize/layout.go and tools/forge/encode/orders.go's
// own fixed-region/order-table packing, generalized to a free-range
// bin-packer since the teacher's layout is a single static offset
// table rather than a dynamic allocator.
package layout

// Kind classifies the owner of an ARAM byte, spec §4.4.1's closed set.
type Kind int

const (
	Free Kind = iota
	Reserved
	SongIndexTable
	InstrumentTable
	SampleDirectory
	SampleData
	SequenceData
	PatternTable
	TrackData
	SubroutineData
)

func (k Kind) String() string {
	switch k {
	case Free:
		return "free"
	case Reserved:
		return "reserved"
	case SongIndexTable:
		return "song index table"
	case InstrumentTable:
		return "instrument table"
	case SampleDirectory:
		return "sample directory"
	case SampleData:
		return "sample data"
	case SequenceData:
		return "sequence data"
	case PatternTable:
		return "pattern table"
	case TrackData:
		return "track data"
	case SubroutineData:
		return "subroutine data"
	default:
		return "unknown"
	}
}

// priority orders Kinds for paint precedence: the first kind (in
// ascending priority) to claim a byte wins, so Reserved always beats
// the relocatable data kinds. Matches §4.4.1's "explicit reserves
// override anything".
func (k Kind) priority() int {
	switch k {
	case Reserved:
		return 0
	case SongIndexTable:
		return 1
	case InstrumentTable:
		return 2
	case SampleDirectory:
		return 3
	case SampleData:
		return 4
	case SequenceData:
		return 5
	case PatternTable:
		return 6
	case TrackData:
		return 7
	case SubroutineData:
		return 8
	default:
		return 99
	}
}

// Region names a claimed ARAM byte range, spec §4.4.1's
// (from, to, kind, song_id, object_id, label) tuple.
type Region struct {
	From, To uint16 // [From, To)
	Kind     Kind
	SongID   int
	ObjectID int
	Label    string
}

func (r Region) size() int { return int(r.To) - int(r.From) }

// UsageModel is the per-byte ownership paint over all 64 KiB of ARAM.
type UsageModel struct {
	owner   [65536]Kind
	Regions []Region
}

// Refresh rebuilds the ownership paint from scratch: every byte starts
// Free, then regions are painted in priority order (Reserved first,
// SubroutineData last) so a byte already claimed by a
// higher-priority kind is never overwritten. Idempotent: calling
// Refresh twice with the same regions produces the same model, per
// spec §8.1's "refresh(refresh(S)) = refresh(S))" property — Refresh
// always starts from a fresh Free bitmap rather than mutating the
// existing one, so repeated calls can't accumulate stale paint.
func Refresh(regions []Region) *UsageModel {
	m := &UsageModel{Regions: append([]Region(nil), regions...)}

	ordered := append([]Region(nil), regions...)
	sortRegionsByPriority(ordered)

	for _, r := range ordered {
		from, to := r.From, r.To
		for addr := uint32(from); addr < uint32(to) && addr < 0x10000; addr++ {
			if m.owner[addr] == Free {
				m.owner[addr] = r.Kind
			}
		}
	}
	return m
}

func sortRegionsByPriority(regions []Region) {
	for i := 1; i < len(regions); i++ {
		for j := i; j > 0 && regions[j-1].Kind.priority() > regions[j].Kind.priority(); j-- {
			regions[j-1], regions[j] = regions[j], regions[j-1]
		}
	}
}

// KindAt reports the owning kind of a single ARAM byte.
func (m *UsageModel) KindAt(addr uint16) Kind {
	return m.owner[addr]
}

// AddrRange is a half-open byte range [From, To). To is an int (not
// uint16) because a free range can run all the way to the end of
// ARAM, i.e. To == 0x10000, which doesn't fit in 16 bits.
type AddrRange struct {
	From uint16
	To   int
}

func (r AddrRange) Size() int { return r.To - int(r.From) }

// FreeRanges returns the maximal runs of Free bytes, in ascending
// address order.
func (m *UsageModel) FreeRanges() []AddrRange {
	var out []AddrRange
	runStart := -1
	for addr := 0; addr < 0x10000; addr++ {
		if m.owner[addr] == Free {
			if runStart < 0 {
				runStart = addr
			}
			continue
		}
		if runStart >= 0 {
			out = append(out, AddrRange{uint16(runStart), addr})
			runStart = -1
		}
	}
	if runStart >= 0 {
		out = append(out, AddrRange{uint16(runStart), 0x10000})
	}
	return out
}

// OverlapsNonFree reports the first recorded region (in Regions order,
// whatever its kind) that the proposed range [from, to) would partially
// or wholly collide with, for the caller-facing overlap diagnostics
// §4.4's failure modes require.
func (m *UsageModel) OverlapsNonFree(from, to uint16) (Region, bool) {
	for _, r := range m.Regions {
		if r.From < to && from < r.To {
			return r, true
		}
	}
	return Region{}, false
}
