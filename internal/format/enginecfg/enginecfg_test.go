package enginecfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntrak/nspctool/internal/nspc"
)

func baseDescriptor() nspc.EngineDescriptor {
	return nspc.EngineDescriptor{
		Name: "test-engine",
		Extensions: []nspc.ExtensionCommand{
			{ID: 0xF0, ParamBytes: 1},
		},
		ExtensionPatches: []nspc.ExtensionPatch{
			{Name: "vibrato-hook", Address: 0x100, Bytes: []byte{0xEA}, Enabled: true},
		},
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	overrides := []EngineOverride{
		{
			Engine: "test-engine",
			Pointers: &PointerOverride{
				SongIndexPointers: uint16Ptr(0x8000),
			},
			Extensions: []ExtensionOverride{{ID: 0xF2, ParamBytes: 2}},
			Patches:    []ExtensionPatchOverride{{Name: "new-hook", Address: 0x200, HexData: "ea60"}},
		},
	}

	data, err := Marshal(overrides)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "test-engine", got[0].Engine)
	require.NotNil(t, got[0].Pointers.SongIndexPointers)
	assert.Equal(t, uint16(0x8000), *got[0].Pointers.SongIndexPointers)
}

func TestApplyReplacesMatchingIDExtension(t *testing.T) {
	base := baseDescriptor()
	overrides := []EngineOverride{
		{Engine: "test-engine", Extensions: []ExtensionOverride{{ID: 0xF0, ParamBytes: 3}}},
	}

	out, applied, err := Apply(base, overrides)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	require.Len(t, out.Extensions, 1)
	assert.Equal(t, 3, out.Extensions[0].ParamBytes)
}

func TestApplyAppendsNewExtension(t *testing.T) {
	base := baseDescriptor()
	overrides := []EngineOverride{
		{Engine: "test-engine", Extensions: []ExtensionOverride{{ID: 0xF3, ParamBytes: 1}}},
	}

	out, _, err := Apply(base, overrides)
	require.NoError(t, err)
	require.Len(t, out.Extensions, 2)
}

func TestApplyPatchEnableOnlyKeepsExistingBytes(t *testing.T) {
	base := baseDescriptor()
	disabled := false
	overrides := []EngineOverride{
		{Engine: "test-engine", Patches: []ExtensionPatchOverride{{Name: "vibrato-hook", Enabled: &disabled}}},
	}

	out, _, err := Apply(base, overrides)
	require.NoError(t, err)
	require.Len(t, out.ExtensionPatches, 1)
	assert.False(t, out.ExtensionPatches[0].Enabled)
	assert.Equal(t, []byte{0xEA}, out.ExtensionPatches[0].Bytes)
	assert.Equal(t, uint16(0x100), out.ExtensionPatches[0].Address)
}

func TestApplyIgnoresNonMatchingEngine(t *testing.T) {
	base := baseDescriptor()
	overrides := []EngineOverride{
		{Engine: "other-engine", Extensions: []ExtensionOverride{{ID: 0xFF, ParamBytes: 1}}},
	}

	out, applied, err := Apply(base, overrides)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, base.Extensions, out.Extensions)
}

func TestApplyRejectsInvalidHexData(t *testing.T) {
	base := baseDescriptor()
	overrides := []EngineOverride{
		{Engine: "test-engine", Patches: []ExtensionPatchOverride{{Name: "vibrato-hook", HexData: "zz"}}},
	}

	_, _, err := Apply(base, overrides)
	assert.Error(t, err)
}

func TestUnmarshalRejectsWrongFormatTag(t *testing.T) {
	_, err := Unmarshal([]byte("format: not_this\nversion: 1\n"))
	assert.Error(t, err)
}

func uint16Ptr(v uint16) *uint16 { return &v }
