package layout

import (
	"sort"

	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/nspc/serialize"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "layout"

// Chunk is one (address, bytes) write the upload builder emits, ready
// to overlay onto ARAM or an SPC image.
type Chunk struct {
	Address uint16
	Bytes   []byte
	Label   string
}

// Upload is a complete set of chunks for one song-scoped (or
// user-content) build, plus any non-fatal warnings collected along
// the way and the resolved addresses worth persisting for the next
// build's preferred layout.
type Upload struct {
	Chunks   []Chunk
	Warnings []ntrakerr.Warning
	Resolved ResolvedLayout
}

// ResolvedLayout records the final address chosen for every allocated
// object, keyed the way allocKey does, so a subsequent build can pass
// these back in as preferred addresses (§4.4.2 step 7's "persist the
// resolved layout").
type ResolvedLayout map[allocKey]uint16

type objectKind int

const (
	objSequence objectKind = iota
	objPattern
	objTrack
	objSubroutine
)

type allocKey struct {
	kind objectKind
	id   int
}

// Options tunes the planner; the zero value is the default song-scoped
// build with no preferred addresses (equivalent to "compact layout"
// mode, since there's nothing to prefer).
type Options struct {
	// Preferred supplies a previous build's ResolvedLayout so the
	// planner biases toward reusing those addresses.
	Preferred ResolvedLayout
	// Compact ignores Preferred entirely, spec §4.4.2's "compact
	// layout" mode for rebuilding after drastic edits where stale
	// preferred addresses would only fragment the free list.
	Compact bool
}

type allocRequest struct {
	key           allocKey
	size          int
	preferredAddr *uint16
	label         string
}

// BuildBlockedRanges computes spec §4.4.2 step 1's blocked-range list:
// engine reserved regions, the echo buffer, the song-index table, the
// instrument table, the sample directory, every sample's BRR bytes,
// and every *other* song's relocatable bytes (their patterns' track
// tables and their tracks'/subroutines' original byte ranges).
// Address 0x0000 is always blocked since it's the null-pointer value.
func BuildBlockedRanges(project *nspc.Project, target *nspc.Song) []Region {
	engine := &project.Engine
	var regions []Region

	regions = append(regions, Region{From: 0, To: 1, Kind: Reserved, Label: "null pointer"})

	for _, rr := range engine.Reserved {
		regions = append(regions, Region{From: rr.From, To: rr.To, Kind: Reserved, Label: rr.Label})
	}
	if engine.Echo.Length > 0 {
		regions = append(regions, Region{
			From: engine.Echo.Address, To: engine.Echo.Address + engine.Echo.Length,
			Kind: Reserved, Label: "echo buffer",
		})
	}
	if engine.SongIndexPointers != nil {
		size := uint16(len(project.Songs) * 2)
		regions = append(regions, Region{
			From: *engine.SongIndexPointers, To: *engine.SongIndexPointers + size,
			Kind: SongIndexTable, Label: "song index table",
		})
	}
	if engine.InstrumentHeaders != nil {
		size := uint16(len(project.Instruments) * engine.InstrumentEntrySize())
		regions = append(regions, Region{
			From: *engine.InstrumentHeaders, To: *engine.InstrumentHeaders + size,
			Kind: InstrumentTable, Label: "instrument table",
		})
	}
	if engine.SampleHeaders != nil {
		size := uint16(len(project.Samples) * 4)
		regions = append(regions, Region{
			From: *engine.SampleHeaders, To: *engine.SampleHeaders + size,
			Kind: SampleDirectory, Label: "sample directory",
		})
	}
	for _, s := range project.Samples {
		regions = append(regions, Region{
			From: s.OriginalAddr, To: s.OriginalAddr + uint16(len(s.Data)),
			Kind: SampleData, ObjectID: s.ID, Label: "sample " + s.Name,
		})
	}

	for _, song := range project.Songs {
		if song.SongID == target.SongID {
			continue
		}
		blockOtherSong(&regions, &song)
	}

	return regions
}

func blockOtherSong(regions *[]Region, song *nspc.Song) {
	if song.SequenceAddr != nil {
		end := *song.SequenceAddr + uint16(len(serialize.Sequence(song.Sequence, nil)))
		*regions = append(*regions, Region{
			From: *song.SequenceAddr, To: end, Kind: SequenceData, SongID: song.SongID, Label: "sequence",
		})
	}
	for _, p := range song.Patterns {
		*regions = append(*regions, Region{
			From: p.TrackTableAddr, To: p.TrackTableAddr + 16,
			Kind: PatternTable, SongID: song.SongID, ObjectID: p.ID, Label: "pattern",
		})
	}
	for _, t := range song.Tracks {
		if t.OriginalAddr == nil {
			continue
		}
		size := eventsEncodedSize(t.Events)
		*regions = append(*regions, Region{
			From: *t.OriginalAddr, To: *t.OriginalAddr + uint16(size),
			Kind: TrackData, SongID: song.SongID, ObjectID: t.ID, Label: "track",
		})
	}
	for _, sub := range song.Subroutines {
		if sub.OriginalAddr == nil {
			continue
		}
		size := eventsEncodedSize(sub.Events)
		*regions = append(*regions, Region{
			From: *sub.OriginalAddr, To: *sub.OriginalAddr + uint16(size),
			Kind: SubroutineData, SongID: song.SongID, ObjectID: sub.ID, Label: "subroutine",
		})
	}
}

// eventsEncodedSize sizes an event stream without needing real
// command-map/engine context: every byte-producing event shape is
// fixed size regardless of a subroutine call's resolved target
// address (a call is always opcode + 2-byte address + count byte), so
// a plain structural walk suffices for blocking purposes.
func eventsEncodedSize(events []nspc.EventEntry) int {
	n := 0
	for _, e := range events {
		switch ev := e.Event.(type) {
		case nspc.Duration:
			n++
			if ev.Quantization != nil || ev.Velocity != nil {
				n++
			}
		case nspc.Note, nspc.Tie, nspc.Rest, nspc.Percussion, nspc.End:
			n++
		case nspc.Vcmd:
			if ext, ok := ev.Payload.(nspc.VcmdExtension); ok {
				n += 1 + len(ext.Params)
			} else {
				n += 1 + nspc.VcmdParamByteCount(ev.Payload.VcmdID())
			}
		}
	}
	return n
}

// invertAndMerge produces the free-range list implied by a set of
// blocked regions: spec §4.4.2 step 2.
func invertAndMerge(blocked []Region) []AddrRange {
	model := Refresh(blocked)
	return model.FreeRanges()
}

// PlanSongUpload runs the full song-scoped layout+upload algorithm,
// spec §4.4.2. project.Engine (command map included) must be the same
// engine the song was parsed against.
func PlanSongUpload(project *nspc.Project, song *nspc.Song, opts Options) (*Upload, error) {
	engine := &project.Engine
	blocked := BuildBlockedRanges(project, song)
	free := invertAndMerge(blocked)

	subAddrForSizing := map[int]uint16{}
	seqAddrForSizing := map[int]uint16{}

	trackBytes := make(map[int][]byte, len(song.Tracks))
	subBytes := make(map[int][]byte, len(song.Subroutines))
	var warnings []ntrakerr.Warning

	encodeAll := func() error {
		for _, t := range song.Tracks {
			b, w, err := serialize.Events(t.Events, &engine.CommandMap, engine, subAddrForSizing)
			if err != nil {
				return ntrakerr.Wrap(ntrakerr.InvalidInput, object, err)
			}
			trackBytes[t.ID] = b
			appendWarnings(&warnings, "track", t.ID, w)
		}
		for _, s := range song.Subroutines {
			b, w, err := serialize.Events(s.Events, &engine.CommandMap, engine, subAddrForSizing)
			if err != nil {
				return ntrakerr.Wrap(ntrakerr.InvalidInput, object, err)
			}
			subBytes[s.ID] = b
			appendWarnings(&warnings, "subroutine", s.ID, w)
		}
		return nil
	}
	if err := encodeAll(); err != nil {
		return nil, err
	}

	seqBytesForSizing := serialize.Sequence(song.Sequence, seqAddrForSizing)

	var reqs []allocRequest
	reqs = append(reqs, allocRequest{
		key: allocKey{objSequence, song.SongID}, size: len(seqBytesForSizing),
		preferredAddr: preferredAddrFor(opts, allocKey{objSequence, song.SongID}),
		label:         "sequence",
	})
	for _, p := range song.Patterns {
		reqs = append(reqs, allocRequest{
			key: allocKey{objPattern, p.ID}, size: 16,
			preferredAddr: preferredAddrFor(opts, allocKey{objPattern, p.ID}),
			label:         "pattern",
		})
	}
	for _, t := range song.Tracks {
		reqs = append(reqs, allocRequest{
			key: allocKey{objTrack, t.ID}, size: len(trackBytes[t.ID]),
			preferredAddr: preferredAddrFor(opts, allocKey{objTrack, t.ID}),
			label:         "track",
		})
	}
	for _, s := range song.Subroutines {
		reqs = append(reqs, allocRequest{
			key: allocKey{objSubroutine, s.ID}, size: len(subBytes[s.ID]),
			preferredAddr: preferredAddrFor(opts, allocKey{objSubroutine, s.ID}),
			label:         "subroutine",
		})
	}

	sortWorklist(reqs)

	resolved := ResolvedLayout{}
	for _, req := range reqs {
		addr, err := allocate(&free, req)
		if err != nil {
			return nil, err
		}
		resolved[req.key] = addr
	}

	// Re-encode now that subroutine addresses are final (track/sequence
	// bytes don't depend on their own final address, only subroutine
	// calls' target addresses, per §4.4.2 step 3).
	for key, addr := range resolved {
		if key.kind == objSubroutine {
			subAddrForSizing[key.id] = addr
		}
	}

	trackAddrByID := map[int]uint16{}
	for key, addr := range resolved {
		if key.kind == objTrack {
			trackAddrByID[key.id] = addr
		}
	}

	warnings = nil
	if err := encodeAll(); err != nil {
		return nil, err
	}

	seqBase := resolved[allocKey{objSequence, song.SongID}]
	seqAddrByIndex := sequenceOffsets(song.Sequence, seqBase)
	seqBytes := serialize.Sequence(song.Sequence, seqAddrByIndex)

	var chunks []Chunk
	chunks = append(chunks, Chunk{Address: seqBase, Bytes: seqBytes, Label: "sequence"})
	for _, p := range song.Patterns {
		addr := resolved[allocKey{objPattern, p.ID}]
		chunks = append(chunks, Chunk{Address: addr, Bytes: serialize.Pattern(&p, trackAddrByID), Label: "pattern"})
	}
	for _, t := range song.Tracks {
		addr := resolved[allocKey{objTrack, t.ID}]
		chunks = append(chunks, Chunk{Address: addr, Bytes: trackBytes[t.ID], Label: "track"})
	}
	for _, s := range song.Subroutines {
		addr := resolved[allocKey{objSubroutine, s.ID}]
		chunks = append(chunks, Chunk{Address: addr, Bytes: subBytes[s.ID], Label: "subroutine"})
	}
	if engine.SongIndexPointers != nil {
		slotAddr := *engine.SongIndexPointers + uint16(song.SongID*2)
		chunks = append(chunks, Chunk{
			Address: slotAddr,
			Bytes:   []byte{byte(seqBase), byte(seqBase >> 8)},
			Label:   "song index slot",
		})
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Address < chunks[j].Address })
	if err := checkNoOverlap(chunks); err != nil {
		return nil, err
	}

	return &Upload{Chunks: chunks, Warnings: warnings, Resolved: resolved}, nil
}

func appendWarnings(dst *[]ntrakerr.Warning, kind string, id int, msgs []string) {
	for _, m := range msgs {
		*dst = append(*dst, ntrakerr.Warnf(object, "%s %d: %s", kind, id, m))
	}
}

func preferredAddrFor(opts Options, key allocKey) *uint16 {
	if opts.Compact || opts.Preferred == nil {
		return nil
	}
	if addr, ok := opts.Preferred[key]; ok {
		a := addr
		return &a
	}
	return nil
}

// sortWorklist implements spec §4.4.2 step 4's ordering: preferred
// requests first (by preferred address ascending), then by size
// descending, then by kind and id.
func sortWorklist(reqs []allocRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		a, b := reqs[i], reqs[j]
		aHas, bHas := a.preferredAddr != nil, b.preferredAddr != nil
		if aHas != bHas {
			return aHas
		}
		if aHas && bHas && *a.preferredAddr != *b.preferredAddr {
			return *a.preferredAddr < *b.preferredAddr
		}
		if a.size != b.size {
			return a.size > b.size
		}
		if a.key.kind != b.key.kind {
			return a.key.kind < b.key.kind
		}
		return a.key.id < b.key.id
	})
}

// allocate implements spec §4.4.2 step 5: prefer the requested
// address if it lies in a free range large enough, else take the
// first sufficiently large free range's low end. The chosen bytes are
// carved out of free by splitting/shrinking the owning range.
func allocate(free *[]AddrRange, req allocRequest) (uint16, error) {
	if req.size == 0 {
		return 0, nil
	}
	if req.preferredAddr != nil {
		for i, r := range *free {
			if uint32(*req.preferredAddr) >= uint32(r.From) &&
				uint32(*req.preferredAddr)+uint32(req.size) <= uint32(r.To) {
				carve(free, i, *req.preferredAddr, req.size)
				return *req.preferredAddr, nil
			}
		}
	}
	for i, r := range *free {
		if r.Size() >= req.size {
			addr := r.From
			carve(free, i, addr, req.size)
			return addr, nil
		}
	}
	total := 0
	for _, r := range *free {
		total += r.Size()
	}
	return 0, ntrakerr.New(ntrakerr.CapacityExceeded, object,
		"out of ARAM allocating %s (need %d bytes); %d free ranges totaling %d bytes",
		req.label, req.size, len(*free), total)
}

func carve(free *[]AddrRange, i int, addr uint16, size int) {
	r := (*free)[i]
	left := AddrRange{From: r.From, To: int(addr)}
	right := AddrRange{From: addr + uint16(size), To: r.To}

	out := make([]AddrRange, 0, len(*free)+1)
	out = append(out, (*free)[:i]...)
	if left.Size() > 0 {
		out = append(out, left)
	}
	if right.Size() > 0 {
		out = append(out, right)
	}
	out = append(out, (*free)[i+1:]...)
	*free = out
}

// sequenceOffsets computes each sequence op's final byte offset within
// the encoded sequence so jump targets carrying a resolved index can
// be rewritten to seqBase+offset.
func sequenceOffsets(ops []nspc.SequenceOp, seqBase uint16) map[int]uint16 {
	out := map[int]uint16{}
	offset := uint16(0)
	for i, op := range ops {
		out[i] = seqBase + offset
		switch op.(type) {
		case nspc.PlayPattern:
			offset += 2
		case nspc.JumpTimes, nspc.AlwaysJump:
			offset += 4
		case nspc.FastForwardOn, nspc.FastForwardOff, nspc.EndSequence:
			offset += 2
		}
	}
	return out
}

func checkNoOverlap(chunks []Chunk) error {
	for i := 1; i < len(chunks); i++ {
		prevEnd := uint32(chunks[i-1].Address) + uint32(len(chunks[i-1].Bytes))
		if prevEnd > uint32(chunks[i].Address) {
			return ntrakerr.New(ntrakerr.InvariantViolation, object,
				"chunk %q at 0x%04X overlaps preceding chunk %q ending at 0x%04X",
				chunks[i].Label, chunks[i].Address, chunks[i-1].Label, prevEnd)
		}
		if prevEnd > 0x10000 {
			return ntrakerr.New(ntrakerr.InvariantViolation, object,
				"chunk %q runs past the end of ARAM", chunks[i-1].Label)
		}
	}
	return nil
}
