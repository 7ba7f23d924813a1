// Package enginecfg implements the engine override file spec §6.6
// describes: a YAML container of per-engine overrides (new
// extensions, pointer relocations, playback-hook patches) that merge
// on top of a bundled default EngineDescriptor, keyed by engine name
// only: Apply compares each override's Engine with
// EngineDescriptor.Name, and overrides are not matched by any engine
// id. Grounded on internal/nspc/commandmap.go's EngineDescriptor
// shape (this package is a (de)serialization and merge layer over it,
// the same role internal/format/nti and internal/format/project play
// for the instrument and project data models) and on SPEC_FULL.md's
// ambient config-format section naming gopkg.in/yaml.v3.
package enginecfg

import (
	"encoding/hex"

	"gopkg.in/yaml.v3"

	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "format.enginecfg"

const (
	FormatTag      = "ntrak_engine_override"
	CurrentVersion = 1
)

// ExtensionOverride adds or replaces one engine-specific vcmd, per
// nspc.ExtensionCommand.
type ExtensionOverride struct {
	ID         byte `yaml:"id"`
	ParamBytes int  `yaml:"param_bytes"`
}

// ExtensionPatchOverride adds, replaces, or enables/disables one named
// overlay write, per nspc.ExtensionPatch.
type ExtensionPatchOverride struct {
	Name    string `yaml:"name"`
	Address uint16 `yaml:"address,omitempty"`
	HexData string `yaml:"hex_data,omitempty"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// PointerOverride relocates one of the engine's fixed table pointers,
// keyed by the same field name EngineDescriptor uses.
type PointerOverride struct {
	SongIndexPointers *uint16 `yaml:"song_index_pointers,omitempty"`
	InstrumentHeaders *uint16 `yaml:"instrument_headers,omitempty"`
	PercussionTable   *uint16 `yaml:"percussion_table,omitempty"`
	SampleHeaders     *uint16 `yaml:"sample_headers,omitempty"`
}

// EngineOverride is one engine's set of overrides. Engine is matched
// against EngineDescriptor.Name by Apply.
type EngineOverride struct {
	Engine string `yaml:"engine"`

	Pointers   *PointerOverride         `yaml:"pointers,omitempty"`
	Extensions []ExtensionOverride      `yaml:"extensions,omitempty"`
	Patches    []ExtensionPatchOverride `yaml:"patches,omitempty"`
}

// File is the on-disk override container: a list so one file can
// override several engines at once.
type File struct {
	Format  string           `yaml:"format"`
	Version int              `yaml:"version"`
	Engines []EngineOverride `yaml:"engines"`
}

// Marshal serializes overrides into the container format.
func Marshal(overrides []EngineOverride) ([]byte, error) {
	f := File{Format: FormatTag, Version: CurrentVersion, Engines: overrides}
	return yaml.Marshal(&f)
}

// Unmarshal parses an override document, strict about format tag and
// version per spec §6.6.
func Unmarshal(data []byte) ([]EngineOverride, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, ntrakerr.Wrap(ntrakerr.InvalidInput, object, err)
	}
	if f.Format != FormatTag {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "unexpected format tag %q, want %q", f.Format, FormatTag)
	}
	if f.Version != CurrentVersion {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "unsupported version %d, want %d", f.Version, CurrentVersion)
	}
	return f.Engines, nil
}

// Apply merges every override in overrides whose Engine matches
// base.Name on top of a copy of base: pointer overrides replace the
// named field outright, extensions/patches with a matching id/name
// replace the existing entry, new ones append. Unmatched overrides
// (naming an engine base isn't) are left unapplied; the caller is
// expected to have selected overrides for the right engine, or to
// check the returned applied count.
func Apply(base nspc.EngineDescriptor, overrides []EngineOverride) (nspc.EngineDescriptor, int, error) {
	out := base
	out.Extensions = append([]nspc.ExtensionCommand(nil), base.Extensions...)
	out.ExtensionPatches = append([]nspc.ExtensionPatch(nil), base.ExtensionPatches...)

	applied := 0
	for _, ov := range overrides {
		if ov.Engine != base.Name {
			continue
		}
		applied++

		if ov.Pointers != nil {
			p := ov.Pointers
			if p.SongIndexPointers != nil {
				out.SongIndexPointers = p.SongIndexPointers
			}
			if p.InstrumentHeaders != nil {
				out.InstrumentHeaders = p.InstrumentHeaders
			}
			if p.PercussionTable != nil {
				out.PercussionTable = p.PercussionTable
			}
			if p.SampleHeaders != nil {
				out.SampleHeaders = p.SampleHeaders
			}
		}

		for _, extOv := range ov.Extensions {
			out.Extensions = mergeExtension(out.Extensions, nspc.ExtensionCommand{ID: extOv.ID, ParamBytes: extOv.ParamBytes})
		}

		for _, patchOv := range ov.Patches {
			patch, err := toExtensionPatch(patchOv, out)
			if err != nil {
				return nspc.EngineDescriptor{}, 0, err
			}
			out.ExtensionPatches = mergePatch(out.ExtensionPatches, patch)
		}
	}

	return out, applied, nil
}

func mergeExtension(existing []nspc.ExtensionCommand, ext nspc.ExtensionCommand) []nspc.ExtensionCommand {
	for i, e := range existing {
		if e.ID == ext.ID {
			existing[i] = ext
			return existing
		}
	}
	return append(existing, ext)
}

func mergePatch(existing []nspc.ExtensionPatch, patch nspc.ExtensionPatch) []nspc.ExtensionPatch {
	for i, p := range existing {
		if p.Name == patch.Name {
			existing[i] = patch
			return existing
		}
	}
	return append(existing, patch)
}

// toExtensionPatch converts one override into a full ExtensionPatch,
// falling back to the bundled patch of the same name (if any) for
// fields the override leaves unset, so an override can flip Enabled
// alone without repeating Address/HexData.
func toExtensionPatch(ov ExtensionPatchOverride, current nspc.EngineDescriptor) (nspc.ExtensionPatch, error) {
	patch := nspc.ExtensionPatch{Name: ov.Name, Address: ov.Address, Enabled: true}

	for _, existing := range current.ExtensionPatches {
		if existing.Name == ov.Name {
			patch = existing
			if ov.Address != 0 {
				patch.Address = ov.Address
			}
			break
		}
	}

	if ov.HexData != "" {
		data, err := hex.DecodeString(ov.HexData)
		if err != nil {
			return nspc.ExtensionPatch{}, ntrakerr.New(ntrakerr.InvalidInput, object, "patch %q: invalid hex_data: %v", ov.Name, err)
		}
		patch.Bytes = data
	}
	if ov.Enabled != nil {
		patch.Enabled = *ov.Enabled
	}

	return patch, nil
}
