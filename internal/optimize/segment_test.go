package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ntrak/nspctool/internal/nspc"
)

func TestEventEncodedSizeMatchesEventKind(t *testing.T) {
	q, v := 1, 2
	assert.Equal(t, 1, eventEncodedSize(nspc.Duration{Ticks: 4}))
	assert.Equal(t, 2, eventEncodedSize(nspc.Duration{Ticks: 4, Quantization: &q, Velocity: &v}))
	assert.Equal(t, 1, eventEncodedSize(nspc.Note{Pitch: 3}))
	assert.Equal(t, 1, eventEncodedSize(nspc.Tie{}))
	assert.Equal(t, 1, eventEncodedSize(nspc.Rest{}))
	assert.Equal(t, 1, eventEncodedSize(nspc.Percussion{Index: 1}))
	assert.Equal(t, 1, eventEncodedSize(nspc.End{}))
	assert.Equal(t, 1+nspc.EncodedParamLen(nspc.VcmdPanning{Pan: 5}),
		eventEncodedSize(nspc.Vcmd{Payload: nspc.VcmdPanning{Pan: 5}}))
	assert.Equal(t, 0, eventEncodedSize(struct{ nspc.NspcEvent }{}))
}

func TestEventPredicatesClassifyEntries(t *testing.T) {
	assert.True(t, isEndEvent(nspc.EventEntry{Event: nspc.End{}}))
	assert.False(t, isEndEvent(nspc.EventEntry{Event: nspc.Note{}}))

	assert.True(t, isSubroutineCallEvent(nspc.EventEntry{Event: nspc.Vcmd{Payload: nspc.VcmdSubroutineCall{}}}))
	assert.False(t, isSubroutineCallEvent(nspc.EventEntry{Event: nspc.Vcmd{Payload: nspc.VcmdPanning{}}}))
	assert.False(t, isSubroutineCallEvent(nspc.EventEntry{Event: nspc.Note{}}))

	assert.True(t, isPitchSlideToNoteEvent(nspc.EventEntry{Event: nspc.Vcmd{Payload: nspc.VcmdPitchSlideToNote{}}}))
	assert.False(t, isPitchSlideToNoteEvent(nspc.EventEntry{Event: nspc.Vcmd{Payload: nspc.VcmdPanning{}}}))

	assert.True(t, isDurationEvent(nspc.EventEntry{Event: nspc.Duration{Ticks: 1}}))
	assert.False(t, isDurationEvent(nspc.EventEntry{Event: nspc.Note{}}))

	q := 1
	assert.True(t, isDurationWithoutQV(nspc.EventEntry{Event: nspc.Duration{Ticks: 1}}))
	assert.False(t, isDurationWithoutQV(nspc.EventEntry{Event: nspc.Duration{Ticks: 1, Quantization: &q}}))
	assert.False(t, isDurationWithoutQV(nspc.EventEntry{Event: nspc.Note{}}))
}

func TestConsumesDurationTicksCoversNoteTieRestPercussion(t *testing.T) {
	for _, e := range []nspc.EventEntry{
		{Event: nspc.Note{}}, {Event: nspc.Tie{}}, {Event: nspc.Rest{}}, {Event: nspc.Percussion{}},
	} {
		assert.True(t, consumesDurationTicks(e))
	}
	assert.False(t, consumesDurationTicks(nspc.EventEntry{Event: nspc.Duration{Ticks: 1}}))
	assert.False(t, consumesDurationTicks(nspc.EventEntry{Event: nspc.End{}}))
}

func TestSliceConsumesDurationTicksHandlesBoundsAndContent(t *testing.T) {
	events := []nspc.EventEntry{
		{Event: nspc.Duration{Ticks: 1}},
		{Event: nspc.Note{}},
		{Event: nspc.End{}},
	}
	assert.True(t, sliceConsumesDurationTicks(events, 0, 2))
	assert.False(t, sliceConsumesDurationTicks(events, 0, 1))
	assert.False(t, sliceConsumesDurationTicks(events, 5, 2))
	assert.True(t, sliceConsumesDurationTicks(events, 1, 100))
}

func TestHashEventSemanticIsDeterministicAndDistinguishesKinds(t *testing.T) {
	a := nspc.EventEntry{Event: nspc.Note{Pitch: 5}}
	b := nspc.EventEntry{Event: nspc.Note{Pitch: 5}}
	c := nspc.EventEntry{Event: nspc.Note{Pitch: 6}}

	assert.Equal(t, hashEventSemantic(a), hashEventSemantic(b))
	assert.NotEqual(t, hashEventSemantic(a), hashEventSemantic(c))

	durA := nspc.EventEntry{Event: nspc.Duration{Ticks: 4}}
	durZero := nspc.EventEntry{Event: nspc.Duration{Ticks: 0}}
	durOne := nspc.EventEntry{Event: nspc.Duration{Ticks: 1}}
	assert.NotEqual(t, hashEventSemantic(durA), hashEventSemantic(durZero))
	assert.Equal(t, hashEventSemantic(durZero), hashEventSemantic(durOne), "zero ticks normalizes to one tick")

	assert.NotEqual(t, hashEventSemantic(durA), hashEventSemantic(a), "different event kinds must not collide")
}

func TestHashEventSemanticTopBitAlwaysClear(t *testing.T) {
	for _, e := range []nspc.EventEntry{
		{Event: nspc.Note{Pitch: 1}},
		{Event: nspc.Duration{Ticks: 9}},
		{Event: nspc.Vcmd{Payload: nspc.VcmdSubroutineCall{SubroutineID: 2, Count: 3}}},
		{Event: nspc.Vcmd{Payload: nspc.VcmdExtension{ID: 0xF0, Params: []byte{1, 2}}}},
	} {
		h := hashEventSemantic(e)
		assert.Zero(t, h>>63)
	}
}

func TestBuildSegmentsSplitsAtEndAndSubroutineCalls(t *testing.T) {
	tracks := []nspc.Track{
		{Events: []nspc.EventEntry{
			{Event: nspc.Note{Pitch: 1}},
			{Event: nspc.Note{Pitch: 2}},
			{Event: nspc.Vcmd{Payload: nspc.VcmdSubroutineCall{SubroutineID: 0, Count: 1}}},
			{Event: nspc.Note{Pitch: 3}},
			{Event: nspc.End{}},
		}},
	}

	segs := buildSegments(tracks)
	if assert.Len(t, segs, 2) {
		assert.Equal(t, 0, segs[0].eventStartIndex)
		assert.Len(t, segs[0].tokens, 2)
		assert.Equal(t, 3, segs[1].eventStartIndex)
		assert.Len(t, segs[1].tokens, 1)
	}
}

func TestBuildSegmentsSkipsNonEncodableEvent(t *testing.T) {
	tracks := []nspc.Track{
		{Events: []nspc.EventEntry{
			{Event: nspc.Note{Pitch: 1}},
			{Event: struct{ nspc.NspcEvent }{}},
			{Event: nspc.Note{Pitch: 2}},
			{Event: nspc.End{}},
		}},
	}

	segs := buildSegments(tracks)
	assert.Len(t, segs, 2)
}

func TestBuildSegmentsKeepsRunOfTrackWithNoEnd(t *testing.T) {
	tracks := []nspc.Track{
		{Events: []nspc.EventEntry{
			{Event: nspc.Note{Pitch: 1}},
			{Event: nspc.Note{Pitch: 2}},
		}},
	}

	segs := buildSegments(tracks)
	if assert.Len(t, segs, 1) {
		assert.Len(t, segs[0].tokens, 2)
	}
}

func TestBuildGlobalSequenceInsertsSeparatorsAndPrefixSums(t *testing.T) {
	segs := []segment{
		{tokens: []uint64{10, 20}, sizes: []uint8{1, 2}},
		{tokens: []uint64{30}, sizes: []uint8{3}},
	}

	seq, prefixBytes, prefixSep := buildGlobalSequence(segs)

	require := assert.New(t)
	require.Len(seq, 5)
	require.Equal(uint64(10), seq[0])
	require.Equal(uint64(20), seq[1])
	require.NotZero(seq[2] & (uint64(1) << 63))
	require.Equal(uint64(30), seq[3])
	require.NotZero(seq[4] & (uint64(1) << 63))

	require.Equal([]uint32{0, 1, 3, 3, 6, 6}, prefixBytes)
	require.Equal([]uint32{0, 0, 0, 1, 1, 2}, prefixSep)
}
