package nspc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byteFeeder(bs ...byte) func() byte {
	i := 0
	return func() byte {
		b := bs[i]
		i++
		return b
	}
}

func noResolve(addr uint16) int {
	panic("resolveSubroutine should not be called for this vcmd")
}

func TestParseVcmdInstSingleParam(t *testing.T) {
	got := ParseVcmd(VcmdIDInst, byteFeeder(0x2A), noResolve)
	inst, ok := got.(VcmdInst)
	require.True(t, ok)
	assert.Equal(t, byte(0x2A), inst.InstrumentIndex)
	assert.Equal(t, VcmdIDInst, got.VcmdID())
}

func TestParseVcmdPanningSingleParam(t *testing.T) {
	got := ParseVcmd(VcmdIDPanning, byteFeeder(0x10), noResolve)
	p, ok := got.(VcmdPanning)
	require.True(t, ok)
	assert.Equal(t, byte(0x10), p.Pan)
}

func TestParseVcmdSubroutineCallResolvesAddress(t *testing.T) {
	var gotAddr uint16
	resolve := func(addr uint16) int {
		gotAddr = addr
		return 7
	}
	got := ParseVcmd(VcmdIDSubroutineCall, byteFeeder(0x00, 0x10, 0x03), resolve)
	call, ok := got.(VcmdSubroutineCall)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1000), gotAddr)
	assert.Equal(t, 7, call.SubroutineID)
	assert.Equal(t, uint16(0x1000), call.OriginalAddr)
	assert.Equal(t, 3, call.Count)
}

func TestParseVcmdUnknownIDFallsBackToUnused(t *testing.T) {
	got := ParseVcmd(0x01, byteFeeder(), noResolve)
	_, ok := got.(VcmdUnused)
	assert.True(t, ok)
}

func TestEncodeVcmdInstEmitsOneByte(t *testing.T) {
	var out []byte
	EncodeVcmd(VcmdInst{InstrumentIndex: 0x2A}, func(b byte) { out = append(out, b) })
	assert.Equal(t, []byte{0x2A}, out)
}

func TestEncodeVcmdSubroutineCallEmitsAddressAndCount(t *testing.T) {
	var out []byte
	EncodeVcmd(VcmdSubroutineCall{OriginalAddr: 0x1234, Count: 5}, func(b byte) { out = append(out, b) })
	assert.Equal(t, []byte{0x34, 0x12, 0x05}, out)
}

func TestEncodeVcmdExtensionEmitsVariableParams(t *testing.T) {
	var out []byte
	ext := VcmdExtension{ID: 0xF0, Params: []byte{0xAA, 0xBB, 0xCC}}
	EncodeVcmd(ext, func(b byte) { out = append(out, b) })
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, out)
}

func TestEncodedParamLenMatchesStaticTable(t *testing.T) {
	assert.Equal(t, 1, EncodedParamLen(VcmdInst{}))
	assert.Equal(t, 3, EncodedParamLen(VcmdSubroutineCall{}))
}

func TestEncodedParamLenUsesActualLengthForExtension(t *testing.T) {
	ext := VcmdExtension{ID: 0xF0, Params: []byte{1, 2, 3, 4}}
	assert.Equal(t, 4, EncodedParamLen(ext))
}

func TestParseEncodeRoundTripsSubroutineCall(t *testing.T) {
	resolve := func(addr uint16) int { return 3 }
	parsed := ParseVcmd(VcmdIDSubroutineCall, byteFeeder(0x00, 0x20, 0x02), resolve)

	var out []byte
	EncodeVcmd(parsed, func(b byte) { out = append(out, b) })
	assert.Equal(t, []byte{0x00, 0x20, 0x02}, out)
}
