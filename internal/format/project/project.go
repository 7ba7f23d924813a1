// Package project implements the project IR container spec §6.5
// describes: a structured YAML text format carrying every
// user-authored song/instrument/sample in full, plus id-only
// references to engine-provided content the base SPC/engine
// descriptor can already recover. Grounded on internal/nspc/types.go
// and internal/nspc/instrument.go's data model (this package is purely
// a (de)serialization shell around them) and on SPEC_FULL.md's ambient
// config-format section naming gopkg.in/yaml.v3 with base64-embedded
// binary payloads for the packed event-list and sample data.
package project

import (
	"encoding/base64"

	"gopkg.in/yaml.v3"

	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

const object = "format.project"

// FormatTag and Version are the strict identity check spec §6.5
// requires on load.
const (
	FormatTag      = "ntrak_project_ir"
	CurrentVersion = 4
)

// File is the on-disk shape of the project IR container.
type File struct {
	Format  string `yaml:"format"`
	Version int    `yaml:"version"`

	Engine             string   `yaml:"engine"`
	BaseSPCPath        string   `yaml:"base_spc_path,omitempty"`
	EnabledExtensions  []string `yaml:"enabled_extensions,omitempty"`

	Songs       []SongIR       `yaml:"songs,omitempty"`
	Instruments []InstrumentIR `yaml:"instruments,omitempty"`
	Samples     []SampleIR     `yaml:"samples,omitempty"`

	EngineRetained EngineRetainedIR `yaml:"engine_retained"`
}

// EngineRetainedIR names the engine-provided songs/instruments/samples
// a load should recover from the base SPC/engine descriptor rather
// than expect inline, per spec §6.5.
type EngineRetainedIR struct {
	SongIDs       []int `yaml:"song_ids,omitempty"`
	InstrumentIDs []int `yaml:"instrument_ids,omitempty"`
	SampleIDs     []int `yaml:"sample_ids,omitempty"`
}

type SequenceTargetIR struct {
	Index   *int   `yaml:"index,omitempty"`
	Address uint16 `yaml:"address"`
}

// SequenceOpIR tags spec's six SequenceOp kinds with an explicit Kind
// discriminator, since YAML has no native closed-sum-type encoding.
type SequenceOpIR struct {
	Kind string `yaml:"kind"`

	PatternID      int    `yaml:"pattern_id,omitempty"`
	TrackTableAddr uint16 `yaml:"track_table_addr,omitempty"`

	Count  int               `yaml:"count,omitempty"`
	Target *SequenceTargetIR `yaml:"target,omitempty"`

	Opcode byte `yaml:"opcode,omitempty"`
}

const (
	seqKindPlayPattern    = "play_pattern"
	seqKindJumpTimes      = "jump_times"
	seqKindAlwaysJump     = "always_jump"
	seqKindFastForwardOn  = "fast_forward_on"
	seqKindFastForwardOff = "fast_forward_off"
	seqKindEnd            = "end"
)

type PatternIR struct {
	ID              int    `yaml:"id"`
	ChannelTrackIDs [8]int `yaml:"channel_track_ids"`
	TrackTableAddr  uint16 `yaml:"track_table_addr"`
}

type TrackIR struct {
	ID           int     `yaml:"id"`
	OriginalAddr *uint16 `yaml:"original_addr,omitempty"`
	EventsB64    string  `yaml:"events_b64"`
}

type SubroutineIR struct {
	ID           int     `yaml:"id"`
	OriginalAddr *uint16 `yaml:"original_addr,omitempty"`
	EventsB64    string  `yaml:"events_b64"`
}

type SongIR struct {
	ID           int            `yaml:"id"`
	DisplayName  string         `yaml:"display_name,omitempty"`
	SequenceAddr *uint16        `yaml:"sequence_addr,omitempty"`
	Sequence     []SequenceOpIR `yaml:"sequence,omitempty"`
	Patterns     []PatternIR    `yaml:"patterns,omitempty"`
	Tracks       []TrackIR      `yaml:"tracks"`
	Subroutines  []SubroutineIR `yaml:"subroutines,omitempty"`
}

type InstrumentIR struct {
	ID            int     `yaml:"id"`
	Name          string  `yaml:"name,omitempty"`
	SampleIndex   byte    `yaml:"sample_index"`
	ADSR1         byte    `yaml:"adsr1"`
	ADSR2         byte    `yaml:"adsr2"`
	Gain          byte    `yaml:"gain"`
	BasePitchMult byte    `yaml:"base_pitch_mult"`
	FracPitchMult byte    `yaml:"frac_pitch_mult,omitempty"`
	PercussionNote *byte  `yaml:"percussion_note,omitempty"`
	OriginalAddr  *uint16 `yaml:"original_addr,omitempty"`
}

type SampleIR struct {
	ID               int    `yaml:"id"`
	Name             string `yaml:"name,omitempty"`
	DataB64          string `yaml:"data_b64"`
	LoopEnabled      bool   `yaml:"loop_enabled"`
	LoopOffsetBytes  int    `yaml:"loop_offset_bytes,omitempty"`
	OriginalAddr     uint16 `yaml:"original_addr,omitempty"`
	OriginalLoopAddr uint16 `yaml:"original_loop_addr,omitempty"`
}

// Marshal builds the project IR YAML document for project, persisting
// only UserProvided songs/instruments/samples in full and recording
// every EngineProvided one's id in EngineRetained.
func Marshal(project *nspc.Project, engineName, baseSPCPath string, enabledExtensions []string) ([]byte, error) {
	f := File{
		Format:            FormatTag,
		Version:           CurrentVersion,
		Engine:            engineName,
		BaseSPCPath:       baseSPCPath,
		EnabledExtensions: enabledExtensions,
	}

	for _, s := range project.Songs {
		if s.Origin == nspc.EngineProvided {
			f.EngineRetained.SongIDs = append(f.EngineRetained.SongIDs, s.SongID)
			continue
		}
		f.Songs = append(f.Songs, marshalSong(&s))
	}

	for _, inst := range project.Instruments {
		if inst.Origin == nspc.EngineProvided {
			f.EngineRetained.InstrumentIDs = append(f.EngineRetained.InstrumentIDs, inst.ID)
			continue
		}
		f.Instruments = append(f.Instruments, marshalInstrument(&inst))
	}

	for _, smp := range project.Samples {
		if smp.Origin == nspc.EngineProvided {
			f.EngineRetained.SampleIDs = append(f.EngineRetained.SampleIDs, smp.ID)
			continue
		}
		f.Samples = append(f.Samples, marshalSample(&smp))
	}

	return yaml.Marshal(&f)
}

func marshalSong(s *nspc.Song) SongIR {
	ir := SongIR{ID: s.SongID, DisplayName: s.DisplayName, SequenceAddr: s.SequenceAddr}

	for _, op := range s.Sequence {
		ir.Sequence = append(ir.Sequence, marshalSequenceOp(op))
	}
	for _, p := range s.Patterns {
		ir.Patterns = append(ir.Patterns, PatternIR{ID: p.ID, ChannelTrackIDs: p.ChannelTrackIDs, TrackTableAddr: p.TrackTableAddr})
	}
	for _, t := range s.Tracks {
		ir.Tracks = append(ir.Tracks, TrackIR{
			ID:           t.ID,
			OriginalAddr: t.OriginalAddr,
			EventsB64:    base64.StdEncoding.EncodeToString(EncodeEvents(t.Events)),
		})
	}
	for _, sub := range s.Subroutines {
		ir.Subroutines = append(ir.Subroutines, SubroutineIR{
			ID:           sub.ID,
			OriginalAddr: sub.OriginalAddr,
			EventsB64:    base64.StdEncoding.EncodeToString(EncodeEvents(sub.Events)),
		})
	}
	return ir
}

func marshalSequenceOp(op nspc.SequenceOp) SequenceOpIR {
	switch v := op.(type) {
	case nspc.PlayPattern:
		return SequenceOpIR{Kind: seqKindPlayPattern, PatternID: v.PatternID, TrackTableAddr: v.TrackTableAddr}
	case nspc.JumpTimes:
		t := marshalTarget(v.Target)
		return SequenceOpIR{Kind: seqKindJumpTimes, Count: v.Count, Target: &t}
	case nspc.AlwaysJump:
		t := marshalTarget(v.Target)
		return SequenceOpIR{Kind: seqKindAlwaysJump, Opcode: v.Opcode, Target: &t}
	case nspc.FastForwardOn:
		return SequenceOpIR{Kind: seqKindFastForwardOn}
	case nspc.FastForwardOff:
		return SequenceOpIR{Kind: seqKindFastForwardOff}
	case nspc.EndSequence:
		return SequenceOpIR{Kind: seqKindEnd}
	default:
		return SequenceOpIR{Kind: seqKindEnd}
	}
}

func marshalTarget(t nspc.SequenceTarget) SequenceTargetIR {
	return SequenceTargetIR{Index: t.Index, Address: t.Address}
}

func marshalInstrument(inst *nspc.NspcInstrument) InstrumentIR {
	return InstrumentIR{
		ID:             inst.ID,
		Name:           inst.Name,
		SampleIndex:    inst.SampleIndex,
		ADSR1:          inst.ADSR1,
		ADSR2:          inst.ADSR2,
		Gain:           inst.Gain,
		BasePitchMult:  inst.BasePitchMult,
		FracPitchMult:  inst.FracPitchMult,
		PercussionNote: inst.PercussionNote,
		OriginalAddr:   inst.OriginalAddr,
	}
}

func marshalSample(s *nspc.BrrSample) SampleIR {
	ir := SampleIR{
		ID:               s.ID,
		Name:             s.Name,
		DataB64:          base64.StdEncoding.EncodeToString(s.Data),
		LoopEnabled:      s.LoopEnabled,
		OriginalAddr:     s.OriginalAddr,
		OriginalLoopAddr: s.OriginalLoopAddr,
	}
	if off := s.LoopOffsetBytes(); off >= 0 {
		ir.LoopOffsetBytes = off
	}
	return ir
}

// Unmarshal parses a project IR document into a fresh *nspc.Project
// carrying only the UserProvided content the document holds; the
// caller is responsible for merging in the EngineRetained ids' actual
// content, recovered by re-scanning the base SPC/engine descriptor
// (this package has no ARAM to scan against). Returns the parsed
// EngineRetainedIR and the engine name/base path/enabled-extension
// list alongside the project so the caller can perform that merge.
func Unmarshal(data []byte) (*nspc.Project, EngineRetainedIR, string, string, []string, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, EngineRetainedIR{}, "", "", nil, ntrakerr.Wrap(ntrakerr.InvalidInput, object, err)
	}
	if f.Format != FormatTag {
		return nil, EngineRetainedIR{}, "", "", nil, ntrakerr.New(ntrakerr.InvalidInput, object, "unexpected format tag %q, want %q", f.Format, FormatTag)
	}
	if f.Version != CurrentVersion {
		return nil, EngineRetainedIR{}, "", "", nil, ntrakerr.New(ntrakerr.InvalidInput, object, "unsupported version %d, want %d", f.Version, CurrentVersion)
	}
	// An empty engine_retained mapping is a present payload (Marshal
	// writes one for a project with no engine-provided content); only an
	// absent key is rejected.
	var probe struct {
		EngineRetained *yaml.Node `yaml:"engine_retained"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil || probe.EngineRetained == nil {
		return nil, EngineRetainedIR{}, "", "", nil, ntrakerr.New(ntrakerr.InvalidInput, object, "missing engine_retained payload")
	}

	project := &nspc.Project{}

	for _, songIR := range f.Songs {
		song, err := unmarshalSong(&songIR)
		if err != nil {
			return nil, EngineRetainedIR{}, "", "", nil, err
		}
		project.Songs = append(project.Songs, *song)
	}
	for _, instIR := range f.Instruments {
		project.Instruments = append(project.Instruments, unmarshalInstrument(&instIR))
	}
	for _, smpIR := range f.Samples {
		smp, err := unmarshalSample(&smpIR)
		if err != nil {
			return nil, EngineRetainedIR{}, "", "", nil, err
		}
		project.Samples = append(project.Samples, *smp)
	}

	return project, f.EngineRetained, f.Engine, f.BaseSPCPath, f.EnabledExtensions, nil
}

func unmarshalSong(ir *SongIR) (*nspc.Song, error) {
	song := &nspc.Song{
		SongID:       ir.ID,
		Origin:       nspc.UserProvided,
		DisplayName:  ir.DisplayName,
		SequenceAddr: ir.SequenceAddr,
	}

	for _, opIR := range ir.Sequence {
		op, err := unmarshalSequenceOp(&opIR)
		if err != nil {
			return nil, err
		}
		song.Sequence = append(song.Sequence, op)
	}
	for _, p := range ir.Patterns {
		song.Patterns = append(song.Patterns, nspc.Pattern{ID: p.ID, ChannelTrackIDs: p.ChannelTrackIDs, TrackTableAddr: p.TrackTableAddr})
	}
	for _, t := range ir.Tracks {
		raw, err := base64.StdEncoding.DecodeString(t.EventsB64)
		if err != nil {
			return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "track %d: invalid base64: %v", t.ID, err)
		}
		events, err := DecodeEvents(object, raw)
		if err != nil {
			return nil, err
		}
		song.Tracks = append(song.Tracks, nspc.Track{ID: t.ID, OriginalAddr: t.OriginalAddr, Events: events})
	}
	for _, sub := range ir.Subroutines {
		raw, err := base64.StdEncoding.DecodeString(sub.EventsB64)
		if err != nil {
			return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "subroutine %d: invalid base64: %v", sub.ID, err)
		}
		events, err := DecodeEvents(object, raw)
		if err != nil {
			return nil, err
		}
		song.Subroutines = append(song.Subroutines, nspc.Subroutine{ID: sub.ID, OriginalAddr: sub.OriginalAddr, Events: events})
	}

	return song, nil
}

func unmarshalSequenceOp(ir *SequenceOpIR) (nspc.SequenceOp, error) {
	switch ir.Kind {
	case seqKindPlayPattern:
		return nspc.PlayPattern{PatternID: ir.PatternID, TrackTableAddr: ir.TrackTableAddr}, nil
	case seqKindJumpTimes:
		return nspc.JumpTimes{Count: ir.Count, Target: unmarshalTarget(ir.Target)}, nil
	case seqKindAlwaysJump:
		return nspc.AlwaysJump{Opcode: ir.Opcode, Target: unmarshalTarget(ir.Target)}, nil
	case seqKindFastForwardOn:
		return nspc.FastForwardOn{}, nil
	case seqKindFastForwardOff:
		return nspc.FastForwardOff{}, nil
	case seqKindEnd:
		return nspc.EndSequence{}, nil
	default:
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "unknown sequence op kind %q", ir.Kind)
	}
}

func unmarshalTarget(ir *SequenceTargetIR) nspc.SequenceTarget {
	if ir == nil {
		return nspc.SequenceTarget{}
	}
	return nspc.SequenceTarget{Index: ir.Index, Address: ir.Address}
}

func unmarshalInstrument(ir *InstrumentIR) nspc.NspcInstrument {
	return nspc.NspcInstrument{
		ID:             ir.ID,
		Name:           ir.Name,
		Origin:         nspc.UserProvided,
		SampleIndex:    ir.SampleIndex,
		ADSR1:          ir.ADSR1,
		ADSR2:          ir.ADSR2,
		Gain:           ir.Gain,
		BasePitchMult:  ir.BasePitchMult,
		FracPitchMult:  ir.FracPitchMult,
		PercussionNote: ir.PercussionNote,
		OriginalAddr:   ir.OriginalAddr,
	}
}

func unmarshalSample(ir *SampleIR) (*nspc.BrrSample, error) {
	data, err := base64.StdEncoding.DecodeString(ir.DataB64)
	if err != nil {
		return nil, ntrakerr.New(ntrakerr.InvalidInput, object, "sample %d: invalid base64: %v", ir.ID, err)
	}
	return &nspc.BrrSample{
		ID:               ir.ID,
		Name:             ir.Name,
		Origin:           nspc.UserProvided,
		Data:             data,
		LoopEnabled:      ir.LoopEnabled,
		OriginalAddr:     ir.OriginalAddr,
		OriginalLoopAddr: ir.OriginalLoopAddr,
	}, nil
}
