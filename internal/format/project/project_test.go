package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntrak/nspctool/internal/nspc"
)

func buildTestProject() *nspc.Project {
	userTrackAddr := uint16(0x3000)
	return &nspc.Project{
		Songs: []nspc.Song{
			{
				SongID:      1,
				Origin:      nspc.UserProvided,
				DisplayName: "Test Song",
				Patterns: []nspc.Pattern{
					{ID: 0, ChannelTrackIDs: [8]int{0, -1, -1, -1, -1, -1, -1, -1}, TrackTableAddr: 0x2000},
				},
				Sequence: []nspc.SequenceOp{
					nspc.PlayPattern{PatternID: 0, TrackTableAddr: 0x2000},
					nspc.JumpTimes{Count: 3, Target: nspc.SequenceTarget{Address: 0x1800}},
					nspc.EndSequence{},
				},
				Tracks: []nspc.Track{
					{ID: 0, OriginalAddr: &userTrackAddr, Events: []nspc.EventEntry{
						{ID: 1, Event: nspc.Note{Pitch: 5}},
						{ID: 2, Event: nspc.End{}},
					}},
				},
			},
			{SongID: 2, Origin: nspc.EngineProvided, DisplayName: "Retained Song"},
		},
		Instruments: []nspc.NspcInstrument{
			{ID: 0, Name: "Lead", Origin: nspc.UserProvided, SampleIndex: 1, ADSR1: 0x8F, ADSR2: 0xE0, Gain: 0x7F, BasePitchMult: 0x10},
			{ID: 1, Name: "Retained", Origin: nspc.EngineProvided},
		},
		Samples: []nspc.BrrSample{
			{ID: 0, Name: "Kick", Origin: nspc.UserProvided, Data: []byte{0x01, 0, 0, 0, 0, 0, 0, 0, 0}},
			{ID: 1, Name: "RetainedSample", Origin: nspc.EngineProvided},
		},
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	p := buildTestProject()
	data, err := Marshal(p, "test-engine", "base.spc", []string{"extA"})
	require.NoError(t, err)

	got, retained, engine, basePath, extensions, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, "test-engine", engine)
	assert.Equal(t, "base.spc", basePath)
	assert.Equal(t, []string{"extA"}, extensions)
	assert.Equal(t, []int{2}, retained.SongIDs)
	assert.Equal(t, []int{1}, retained.InstrumentIDs)
	assert.Equal(t, []int{1}, retained.SampleIDs)

	require.Len(t, got.Songs, 1)
	assert.Equal(t, "Test Song", got.Songs[0].DisplayName)
	require.Len(t, got.Songs[0].Tracks, 1)
	assert.Equal(t, p.Songs[0].Tracks[0].Events, got.Songs[0].Tracks[0].Events)
	require.Len(t, got.Songs[0].Sequence, 3)

	require.Len(t, got.Instruments, 1)
	assert.Equal(t, "Lead", got.Instruments[0].Name)

	require.Len(t, got.Samples, 1)
	assert.Equal(t, p.Samples[0].Data, got.Samples[0].Data)
}

func TestUnmarshalRejectsWrongFormatTag(t *testing.T) {
	_, _, _, _, _, err := Unmarshal([]byte("format: something_else\nversion: 4\nengine_retained: {}\n"))
	assert.Error(t, err)
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	_, _, _, _, _, err := Unmarshal([]byte("format: ntrak_project_ir\nversion: 99\nengine_retained: {}\n"))
	assert.Error(t, err)
}

func TestUnmarshalRejectsMissingEngineRetained(t *testing.T) {
	_, _, _, _, _, err := Unmarshal([]byte("format: ntrak_project_ir\nversion: 4\n"))
	assert.Error(t, err)
}
