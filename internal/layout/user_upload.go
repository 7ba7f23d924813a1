package layout

import (
	"bytes"

	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/ntrakerr"
)

// BuildUserContentUpload implements spec §4.4.2's "user-content
// upload" variant: one song-scoped upload per user-authored song, plus
// appended chunks for user instrument-table rows, percussion-table
// rows, sample-directory entries, sample bytes, and enabled
// engine-extension patch bytes. Samples whose (originalAddr, length,
// bytes) triple is identical to an already-emitted one are aliased to
// a single chunk rather than duplicated; samples that overlap in
// address but differ in content fail.
func BuildUserContentUpload(project *nspc.Project, opts Options) (*Upload, error) {
	var all Upload

	for i := range project.Songs {
		song := &project.Songs[i]
		if song.Origin != nspc.UserProvided {
			continue
		}
		up, err := PlanSongUpload(project, song, opts)
		if err != nil {
			return nil, err
		}
		all.Chunks = append(all.Chunks, up.Chunks...)
		all.Warnings = append(all.Warnings, up.Warnings...)
		if all.Resolved == nil {
			all.Resolved = ResolvedLayout{}
		}
		for k, v := range up.Resolved {
			all.Resolved[k] = v
		}
	}

	sampleChunks, err := buildSampleChunks(project)
	if err != nil {
		return nil, err
	}
	all.Chunks = append(all.Chunks, sampleChunks...)

	engine := &project.Engine
	if engine.SampleHeaders != nil {
		for i := range project.Samples {
			s := &project.Samples[i]
			if s.Origin != nspc.UserProvided {
				continue
			}
			start, loop := s.OriginalAddr, s.OriginalLoopAddr
			all.Chunks = append(all.Chunks, Chunk{
				Address: *engine.SampleHeaders + uint16(s.ID*4),
				Bytes:   []byte{byte(start), byte(start >> 8), byte(loop), byte(loop >> 8)},
				Label:   "user sample directory entry",
			})
		}
	}
	for i := range project.Instruments {
		inst := &project.Instruments[i]
		if inst.Origin != nspc.UserProvided || inst.OriginalAddr == nil {
			continue
		}
		if inst.PercussionNote != nil {
			all.Chunks = append(all.Chunks, Chunk{
				Address: *inst.OriginalAddr,
				Bytes:   encodePercussionRow(inst, engine.PercussionEntrySize()),
				Label:   "user percussion entry",
			})
			continue
		}
		all.Chunks = append(all.Chunks, Chunk{
			Address: *inst.OriginalAddr,
			Bytes:   encodeInstrumentRow(inst, engine.InstrumentEntrySize()),
			Label:   "user instrument",
		})
	}

	for _, patch := range project.Engine.ExtensionPatches {
		if !patch.Enabled {
			continue
		}
		all.Chunks = append(all.Chunks, Chunk{
			Address: patch.Address, Bytes: patch.Bytes, Label: "extension patch: " + patch.Name,
		})
	}

	return &all, nil
}

func encodeInstrumentRow(inst *nspc.NspcInstrument, entrySize int) []byte {
	row := make([]byte, entrySize)
	row[0] = inst.SampleIndex
	row[1] = inst.ADSR1
	row[2] = inst.ADSR2
	row[3] = inst.Gain
	row[4] = inst.BasePitchMult
	if entrySize >= 6 {
		row[5] = inst.FracPitchMult
	}
	return row
}

func encodePercussionRow(inst *nspc.NspcInstrument, entrySize int) []byte {
	row := encodeInstrumentRow(inst, entrySize-1)
	row = append(row, 0)
	if inst.PercussionNote != nil {
		row[len(row)-1] = *inst.PercussionNote
	}
	return row
}

// buildSampleChunks emits one chunk per distinct BRR sample, per
// spec §4.4.2's alias-detection rule: two samples whose
// (originalAddr, length, bytes) triple is identical share a single
// chunk; two samples that overlap in address but differ in bytes
// fail the build.
func buildSampleChunks(project *nspc.Project) ([]Chunk, error) {
	type placed struct {
		addr uint16
		data []byte
	}
	var seen []placed
	var chunks []Chunk

	for i := range project.Samples {
		s := &project.Samples[i]
		if s.Origin != nspc.UserProvided {
			continue
		}
		end := uint32(s.OriginalAddr) + uint32(len(s.Data))

		aliased := false
		for _, p := range seen {
			pEnd := uint32(p.addr) + uint32(len(p.data))
			overlaps := uint32(s.OriginalAddr) < pEnd && uint32(p.addr) < end
			if !overlaps {
				continue
			}
			identical := p.addr == s.OriginalAddr && bytes.Equal(p.data, s.Data)
			if identical {
				aliased = true
				break
			}
			return nil, ntrakerr.New(ntrakerr.InvariantViolation, object,
				"sample %q at 0x%04X overlaps a differing sample already placed at 0x%04X",
				s.Name, s.OriginalAddr, p.addr)
		}
		if aliased {
			continue
		}
		seen = append(seen, placed{s.OriginalAddr, s.Data})
		chunks = append(chunks, Chunk{Address: s.OriginalAddr, Bytes: s.Data, Label: "user sample " + s.Name})
	}
	return chunks, nil
}
