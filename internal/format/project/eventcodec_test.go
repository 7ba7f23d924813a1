package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntrak/nspctool/internal/nspc"
)

func sampleEvents() []nspc.EventEntry {
	addr := uint16(0x1234)
	q, v := 3, 7
	return []nspc.EventEntry{
		{ID: 1, Event: nspc.Duration{Ticks: 0x20, Quantization: &q, Velocity: &v}, OriginalAddr: &addr},
		{ID: 2, Event: nspc.Note{Pitch: 0x10}},
		{ID: 3, Event: nspc.Tie{}},
		{ID: 4, Event: nspc.Rest{}},
		{ID: 5, Event: nspc.Percussion{Index: 9}},
		{ID: 6, Event: nspc.Vcmd{Payload: nspc.VcmdPanning{Pan: 5}}},
		{ID: 7, Event: nspc.Vcmd{Payload: nspc.VcmdGlobalTranspose{Semitones: -3}}},
		{ID: 8, Event: nspc.Vcmd{Payload: nspc.VcmdSubroutineCall{SubroutineID: 2, OriginalAddr: 0x5000, Count: 4}}},
		{ID: 9, Event: nspc.Vcmd{Payload: nspc.VcmdExtension{ID: 0xF1, Params: []byte{0xAA, 0xBB}}}},
		{ID: 10, Event: nspc.End{}},
	}
}

func TestEventCodecRoundTrip(t *testing.T) {
	events := sampleEvents()
	encoded := EncodeEvents(events)

	got, err := DecodeEvents("test", encoded)
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestEventCodecEmptyStream(t *testing.T) {
	encoded := EncodeEvents(nil)
	got, err := DecodeEvents("test", encoded)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventCodecRejectsTruncatedStream(t *testing.T) {
	encoded := EncodeEvents(sampleEvents())
	_, err := DecodeEvents("test", encoded[:len(encoded)-1])
	assert.Error(t, err)
}

func TestEventCodecRejectsUnknownVcmdID(t *testing.T) {
	// A single-entry stream whose vcmd id byte is an unassigned value
	// below the canonical range.
	e := &encoder{}
	e.uvarint(1)
	e.varint(1)
	e.byteVal(0)
	e.byteVal(byte(tagVcmd))
	e.uvarint(0xD0)
	_, err := DecodeEvents("test", e.buf.Bytes())
	assert.Error(t, err)
}
