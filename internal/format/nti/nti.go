// Package nti implements the instrument/sample interchange container
// spec §6.4 describes ("NTI"): a structured YAML text format carrying
// one instrument and/or one sample, validated against internal/brr's
// block-alignment and well-formedness rules on load. Grounded on
// internal/nspc/instrument.go's NspcInstrument/BrrSample fields (this
// package mirrors their shape the same way internal/format/project
// does) and on SPEC_FULL.md's ambient config-format section naming
// gopkg.in/yaml.v3 with base64-embedded binary payloads.
package nti

import (
	"encoding/base64"

	"gopkg.in/yaml.v3"

	"github.com/ntrak/nspctool/internal/brr"
	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "format.nti"

const (
	FormatTag      = "ntrak_instrument"
	CurrentVersion = 1
)

// InstrumentPayload mirrors nspc.NspcInstrument's user-editable fields
// plus its ID. OriginalAddr/Origin are layout/provenance concerns that
// don't round-trip through an interchange file; a loaded instrument is
// always treated as freshly user-authored.
type InstrumentPayload struct {
	ID            int    `yaml:"id"`
	Name          string `yaml:"name,omitempty"`
	SampleIndex   byte   `yaml:"sample_index"`
	ADSR1         byte   `yaml:"adsr1"`
	ADSR2         byte   `yaml:"adsr2"`
	Gain          byte   `yaml:"gain"`
	BasePitchMult byte   `yaml:"base_pitch_mult"`
	FracPitchMult byte   `yaml:"frac_pitch_mult,omitempty"`
}

// SamplePayload mirrors nspc.BrrSample's user-editable fields.
type SamplePayload struct {
	ID              int    `yaml:"id"`
	Name            string `yaml:"name,omitempty"`
	LoopEnabled     bool   `yaml:"loop_enabled"`
	LoopOffsetBytes int    `yaml:"loop_offset_bytes,omitempty"`
	DataB64         string `yaml:"data_b64"`
}

// File is the on-disk NTI container: one instrument and/or one
// sample, either of which may be absent (an NTI can carry just a
// sample with no instrument wrapper, or vice versa).
type File struct {
	Format  string `yaml:"format"`
	Version int    `yaml:"version"`

	Instrument *InstrumentPayload `yaml:"instrument,omitempty"`
	Sample     *SamplePayload     `yaml:"sample,omitempty"`
}

// MarshalInstrument builds an NTI document carrying inst and,
// optionally, the sample it references.
func MarshalInstrument(inst *nspc.NspcInstrument, sample *nspc.BrrSample) ([]byte, error) {
	f := File{
		Format:  FormatTag,
		Version: CurrentVersion,
		Instrument: &InstrumentPayload{
			ID:            inst.ID,
			Name:          inst.Name,
			SampleIndex:   inst.SampleIndex,
			ADSR1:         inst.ADSR1,
			ADSR2:         inst.ADSR2,
			Gain:          inst.Gain,
			BasePitchMult: inst.BasePitchMult,
			FracPitchMult: inst.FracPitchMult,
		},
	}
	if sample != nil {
		f.Sample = marshalSample(sample)
	}
	return yaml.Marshal(&f)
}

// MarshalSample builds an NTI document carrying only a sample.
func MarshalSample(sample *nspc.BrrSample) ([]byte, error) {
	f := File{Format: FormatTag, Version: CurrentVersion, Sample: marshalSample(sample)}
	return yaml.Marshal(&f)
}

func marshalSample(s *nspc.BrrSample) *SamplePayload {
	p := &SamplePayload{
		ID:          s.ID,
		Name:        s.Name,
		LoopEnabled: s.LoopEnabled,
		DataB64:     base64.StdEncoding.EncodeToString(s.Data),
	}
	if off := s.LoopOffsetBytes(); off >= 0 {
		p.LoopOffsetBytes = off
	}
	return p
}

// Unmarshal parses an NTI document, returning whichever of
// instrument/sample the file carries (nil if absent). The sample's
// BRR data is validated per spec §4.2 (nonempty, 9-byte-aligned,
// well-formed shift/end-flag); an enabled loop must additionally land
// on a block boundary.
func Unmarshal(data []byte) (*nspc.NspcInstrument, *nspc.BrrSample, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, ntrakerr.Wrap(ntrakerr.InvalidInput, object, err)
	}
	if f.Format != FormatTag {
		return nil, nil, ntrakerr.New(ntrakerr.InvalidInput, object, "unexpected format tag %q, want %q", f.Format, FormatTag)
	}
	if f.Version != CurrentVersion {
		return nil, nil, ntrakerr.New(ntrakerr.InvalidInput, object, "unsupported version %d, want %d", f.Version, CurrentVersion)
	}
	if f.Instrument == nil && f.Sample == nil {
		return nil, nil, ntrakerr.New(ntrakerr.InvalidInput, object, "NTI file carries neither an instrument nor a sample")
	}

	var sample *nspc.BrrSample
	if f.Sample != nil {
		var err error
		sample, err = unmarshalSample(f.Sample)
		if err != nil {
			return nil, nil, err
		}
	}

	var inst *nspc.NspcInstrument
	if f.Instrument != nil {
		ip := f.Instrument
		inst = &nspc.NspcInstrument{
			ID:            ip.ID,
			Name:          ip.Name,
			Origin:        nspc.UserProvided,
			SampleIndex:   ip.SampleIndex,
			ADSR1:         ip.ADSR1,
			ADSR2:         ip.ADSR2,
			Gain:          ip.Gain,
			BasePitchMult: ip.BasePitchMult,
			FracPitchMult: ip.FracPitchMult,
		}
	}

	return inst, sample, nil
}

func unmarshalSample(p *SamplePayload) (*nspc.BrrSample, error) {
	raw, err := base64.StdEncoding.DecodeString(p.DataB64)
	if err != nil {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "sample %d: invalid base64: %v", p.ID, err)
	}
	if err := brr.Validate(raw, false); err != nil {
		return nil, ntrakerr.Wrap(ntrakerr.InvalidInput, object, err)
	}
	if p.LoopEnabled && p.LoopOffsetBytes%9 != 0 {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "sample %d: loop offset %d bytes is not block-aligned", p.ID, p.LoopOffsetBytes)
	}

	s := &nspc.BrrSample{
		ID:          p.ID,
		Name:        p.Name,
		Origin:      nspc.UserProvided,
		Data:        raw,
		LoopEnabled: p.LoopEnabled,
	}
	if p.LoopEnabled {
		s.OriginalLoopAddr = uint16(p.LoopOffsetBytes)
	}
	return s, nil
}
