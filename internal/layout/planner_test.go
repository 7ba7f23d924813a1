package layout

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ntrak/nspctool/internal/nspc"
)

func testEngineDescriptor() nspc.EngineDescriptor {
	return nspc.EngineDescriptor{
		SongIndexPointers: addrPtr16(0x1000),
		CommandMap: nspc.CommandMap{
			NoteStart: 0x80, NoteEnd: 0xC5,
			Tie:       0xC6,
			RestStart: 0xC7, RestEnd: 0xCF, RestWrite: 0xC7,
			PercStart: 0xD0, PercEnd: 0xD9,
			VcmdStart: 0xDA,
		},
	}
}

func addrPtr16(a uint16) *uint16 { return &a }

func simpleSong(id int, trackAddr uint16) nspc.Song {
	return nspc.Song{
		SongID:       id,
		SequenceAddr: addrPtr16(0x2000),
		Sequence:     []nspc.SequenceOp{nspc.PlayPattern{PatternID: 0, TrackTableAddr: 0x3000}, nspc.EndSequence{}},
		Patterns:     []nspc.Pattern{{ID: 0, ChannelTrackIDs: [8]int{0, -1, -1, -1, -1, -1, -1, -1}, TrackTableAddr: 0x3000}},
		Tracks: []nspc.Track{
			{ID: 0, OriginalAddr: &trackAddr, Events: []nspc.EventEntry{
				{Event: nspc.Note{Pitch: 0}},
				{Event: nspc.End{}},
			}},
		},
	}
}

func TestBuildBlockedRangesIncludesNullPointerAndSongIndexTable(t *testing.T) {
	engine := testEngineDescriptor()
	project := &nspc.Project{Engine: engine, Songs: []nspc.Song{simpleSong(0, 0x4000)}}

	regions := BuildBlockedRanges(project, &project.Songs[0])

	var sawNull, sawSongIndex bool
	for _, r := range regions {
		if r.Kind == Reserved && r.From == 0 && r.To == 1 {
			sawNull = true
		}
		if r.Kind == SongIndexTable {
			sawSongIndex = true
			assert.Equal(t, uint16(0x1000), r.From)
			assert.Equal(t, uint16(0x1002), r.To)
		}
	}
	assert.True(t, sawNull)
	assert.True(t, sawSongIndex)
}

func TestBuildBlockedRangesBlocksOtherSongsButNotTarget(t *testing.T) {
	engine := testEngineDescriptor()
	songA := simpleSong(0, 0x4000)
	songB := simpleSong(1, 0x5000)
	project := &nspc.Project{Engine: engine, Songs: []nspc.Song{songA, songB}}

	regions := BuildBlockedRanges(project, &project.Songs[0])

	var blockedOtherTrack, blockedOwnTrack bool
	for _, r := range regions {
		if r.Kind == TrackData && r.From == 0x5000 {
			blockedOtherTrack = true
		}
		if r.Kind == TrackData && r.From == 0x4000 {
			blockedOwnTrack = true
		}
	}
	assert.True(t, blockedOtherTrack)
	assert.False(t, blockedOwnTrack)
}

func TestPlanSongUploadProducesNonOverlappingChunksAndSongIndexSlot(t *testing.T) {
	engine := testEngineDescriptor()
	song := simpleSong(0, 0x4000)
	project := &nspc.Project{Engine: engine, Songs: []nspc.Song{song}}

	up, err := PlanSongUpload(project, &project.Songs[0], Options{})
	require.NoError(t, err)
	require.NotEmpty(t, up.Chunks)

	var sawSlot bool
	for i, c := range up.Chunks {
		if c.Label == "song index slot" {
			sawSlot = true
			assert.Equal(t, uint16(0x1000), c.Address)
		}
		if i > 0 {
			prevEnd := uint32(up.Chunks[i-1].Address) + uint32(len(up.Chunks[i-1].Bytes))
			assert.LessOrEqual(t, prevEnd, uint32(c.Address))
		}
	}
	assert.True(t, sawSlot)

	assert.Contains(t, up.Resolved, allocKey{objSequence, 0})
	assert.Contains(t, up.Resolved, allocKey{objTrack, 0})
	assert.Contains(t, up.Resolved, allocKey{objPattern, 0})
}

func TestPlanSongUploadHonorsPreferredAddress(t *testing.T) {
	engine := testEngineDescriptor()
	song := simpleSong(0, 0x4000)
	project := &nspc.Project{Engine: engine, Songs: []nspc.Song{song}}

	first, err := PlanSongUpload(project, &project.Songs[0], Options{})
	require.NoError(t, err)

	second, err := PlanSongUpload(project, &project.Songs[0], Options{Preferred: first.Resolved})
	require.NoError(t, err)

	assert.Equal(t, first.Resolved, second.Resolved)
}

func TestPlanSongUploadCompactModeIgnoresPreferred(t *testing.T) {
	engine := testEngineDescriptor()
	song := simpleSong(0, 0x4000)
	project := &nspc.Project{Engine: engine, Songs: []nspc.Song{song}}

	first, err := PlanSongUpload(project, &project.Songs[0], Options{})
	require.NoError(t, err)

	// Preferred addresses that differ from the default layout; compact
	// mode must not follow them.
	moved := ResolvedLayout{}
	for k, v := range first.Resolved {
		moved[k] = v + 0x4000
	}
	second, err := PlanSongUpload(project, &project.Songs[0], Options{Preferred: moved, Compact: true})
	require.NoError(t, err)
	assert.Equal(t, first.Resolved, second.Resolved)
}

func TestAllocateFailsWhenNoFreeRangeFits(t *testing.T) {
	free := []AddrRange{{From: 0, To: 4}}
	_, err := allocate(&free, allocRequest{key: allocKey{objTrack, 0}, size: 100, label: "track"})
	assert.Error(t, err)
}

func TestAllocateZeroSizeRequestNeedsNoFreeSpace(t *testing.T) {
	free := []AddrRange{}
	addr, err := allocate(&free, allocRequest{key: allocKey{objSubroutine, 0}, size: 0, label: "subroutine"})
	require.NoError(t, err)
	assert.Equal(t, uint16(0), addr)
}

// TestAllocateArbitraryWorklistProducesNonOverlappingPlacements draws
// an arbitrary upload worklist (a count of objects with independently
// drawn byte sizes) and a single free range sized to comfortably hold
// all of them, and checks that allocating the sorted worklist in
// sequence always succeeds and never double-books a byte.
func TestAllocateArbitraryWorklistProducesNonOverlappingPlacements(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "n")

		reqs := make([]allocRequest, n)
		total := 0
		for i := 0; i < n; i++ {
			size := rapid.IntRange(1, 200).Draw(t, fmt.Sprintf("size%d", i))
			reqs[i] = allocRequest{key: allocKey{objTrack, i}, size: size, label: "track"}
			total += size
		}

		base := uint16(0x2000)
		budget := total + 64
		free := []AddrRange{{From: base, To: int(base) + budget}}

		sortWorklist(reqs)

		type placement struct {
			addr uint16
			size int
		}
		var placed []placement
		for _, req := range reqs {
			addr, err := allocate(&free, req)
			require.NoError(t, err)
			require.True(t, addr >= base && int(addr)+req.size <= int(base)+budget)
			placed = append(placed, placement{addr, req.size})
		}

		for i := 0; i < len(placed); i++ {
			for j := i + 1; j < len(placed); j++ {
				a, b := placed[i], placed[j]
				aEnd := int(a.addr) + a.size
				bEnd := int(b.addr) + b.size
				overlaps := int(a.addr) < bEnd && int(b.addr) < aEnd
				assert.False(t, overlaps, "placements %d and %d overlap", i, j)
			}
		}
	})
}

func TestSortWorklistOrdersPreferredThenBySizeDescending(t *testing.T) {
	addrA := uint16(0x100)
	reqs := []allocRequest{
		{key: allocKey{objTrack, 0}, size: 5},
		{key: allocKey{objTrack, 1}, size: 50},
		{key: allocKey{objTrack, 2}, size: 10, preferredAddr: &addrA},
	}
	sortWorklist(reqs)
	assert.Equal(t, allocKey{objTrack, 2}, reqs[0].key)
	assert.Equal(t, allocKey{objTrack, 1}, reqs[1].key)
	assert.Equal(t, allocKey{objTrack, 0}, reqs[2].key)
}
