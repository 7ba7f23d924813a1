package spc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntrak/nspctool/internal/apu"
	"github.com/ntrak/nspctool/internal/layout"
)

func fakeSPCImage(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, TotalSize)
	copy(data, signature)
	writeField(data, offSong, 32, "Test Song")
	writeField(data, offGame, 32, "Test Game")
	writeField(data, offDump, 16, "Dumper")
	writeField(data, offCmt, 32, "A comment")
	writeField(data, offArt, 32, "Some Artist")
	writeField(data, offLen, 3, "180")
	writeField(data, offFade, 5, "02000")

	data[offPC] = 0x34
	data[offPC+1] = 0x12
	data[offA] = 0xAA
	data[offX] = 0xBB
	data[offY] = 0xCC
	data[offSP] = 0xEF
	data[offP] = 0x02

	data[aramOffset+0x200] = 0x99
	data[aramOffset+0xF1] = 0x30 // control byte: RAM writable, neither timer bit set
	return data
}

func TestLoadParsesMetadataAndRegisters(t *testing.T) {
	a := apu.New()
	data := fakeSPCImage(t)

	meta, err := Load(a, data)
	require.NoError(t, err)

	assert.Equal(t, "Test Song", meta.SongTitle)
	assert.Equal(t, "Test Game", meta.GameTitle)
	assert.Equal(t, "Dumper", meta.Dumper)
	assert.Equal(t, "A comment", meta.Comment)
	assert.Equal(t, "Some Artist", meta.Artist)
	assert.Equal(t, "180", meta.TrackLength)
	assert.Equal(t, "02000", meta.FadeLength)

	assert.Equal(t, uint16(0x1234), a.PC())
	assert.Equal(t, byte(0xAA), a.A())
	assert.Equal(t, byte(0xBB), a.X())
	assert.Equal(t, byte(0xCC), a.Y())
	assert.Equal(t, byte(0xEF), a.SP())
	assert.Equal(t, byte(0x02), a.P())

	assert.Equal(t, byte(0x99), a.ReadARAM(0x200))
}

func TestLoadRestoresDSPRegisters(t *testing.T) {
	a := apu.New()
	data := fakeSPCImage(t)
	data[dspRegOffset+0x0C] = 0x64 // MVOLL
	data[dspRegOffset+0x7D] = 0x03 // EDL

	_, err := Load(a, data)
	require.NoError(t, err)

	assert.Equal(t, byte(0x64), a.ReadDSP(0x0C))
	assert.Equal(t, byte(0x03), a.ReadDSP(0x7D))
}

func TestLoadRejectsShortFile(t *testing.T) {
	a := apu.New()
	_, err := Load(a, make([]byte, 100))
	assert.Error(t, err)
}

func TestLoadRejectsBadSignature(t *testing.T) {
	a := apu.New()
	data := fakeSPCImage(t)
	data[0] = 'X'
	_, err := Load(a, data)
	assert.Error(t, err)
}

func TestSaveRoundTripsRegistersAndARAM(t *testing.T) {
	a := apu.New()
	data := fakeSPCImage(t)
	meta, err := Load(a, data)
	require.NoError(t, err)

	out := Save(a, meta)
	require.Len(t, out, TotalSize)

	got, err := Load(apu.New(), out)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
	assert.Equal(t, data[offPC:offSP+1], out[offPC:offSP+1]) // PC, A, X, Y, P, SP
	assert.Equal(t, byte(0x99), out[aramOffset+0x200])
}

func TestApplyUploadOverlaysChunks(t *testing.T) {
	base := fakeSPCImage(t)
	up := &layout.Upload{
		Chunks: []layout.Chunk{
			{Address: 0x300, Bytes: []byte{0x11, 0x22, 0x33}, Label: "test-chunk"},
		},
	}

	out, err := ApplyUpload(base, up)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, out[aramOffset+0x300:aramOffset+0x303])
}

func TestApplyUploadRejectsOverrun(t *testing.T) {
	base := fakeSPCImage(t)
	up := &layout.Upload{
		Chunks: []layout.Chunk{
			{Address: 0xFFFE, Bytes: make([]byte, 16), Label: "overrun"},
		},
	}

	_, err := ApplyUpload(base, up)
	assert.Error(t, err)
}
