package nspc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSongLookupsFindByID(t *testing.T) {
	s := &Song{
		Tracks:      []Track{{ID: 1}, {ID: 2}},
		Subroutines: []Subroutine{{ID: 5}},
		Patterns:    []Pattern{{ID: 3}},
	}

	assert.Equal(t, 2, s.TrackByID(2).ID)
	assert.Nil(t, s.TrackByID(99))
	assert.Equal(t, 5, s.SubroutineByID(5).ID)
	assert.Nil(t, s.SubroutineByID(6))
	assert.Equal(t, 3, s.PatternByID(3).ID)
	assert.Nil(t, s.PatternByID(4))
}

func TestProjectLookupsFindByID(t *testing.T) {
	p := &Project{
		Songs:       []Song{{SongID: 1}},
		Instruments: []NspcInstrument{{ID: 7}},
		Samples:     []BrrSample{{ID: 9}},
	}

	assert.Equal(t, 1, p.SongByID(1).SongID)
	assert.Nil(t, p.SongByID(2))
	assert.Equal(t, 7, p.InstrumentByID(7).ID)
	assert.Nil(t, p.InstrumentByID(8))
	assert.Equal(t, 9, p.SampleByID(9).ID)
	assert.Nil(t, p.SampleByID(10))
}
