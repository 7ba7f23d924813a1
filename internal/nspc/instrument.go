package nspc

// NspcInstrument is one instrument-table (or percussion-table) entry:
// a sample reference plus the ADSR/GAIN envelope and pitch-multiplier
// bytes the sound driver reads verbatim into the DSP's per-voice
// registers. Grounded on original_source/src/nspc/NspcProject.cpp's
// instrument-table and percussion-table scan loops (parseInstruments,
// applyPercussionTableNotes).
type NspcInstrument struct {
	ID   int
	Name string

	// SampleIndex is the raw directory index; the low 7 bits are the
	// real index (bit 7 is spare on some engines), per
	// collectReferencedSampleIdsFromInstrumentTable's `sampleIndex & 0x7F`.
	SampleIndex byte

	ADSR1 byte
	ADSR2 byte
	Gain  byte

	BasePitchMult byte
	// FracPitchMult is only present in the 6-byte entry format; it is
	// zero for engines using the 5-byte format.
	FracPitchMult byte

	// PercussionNote is set only for instruments synthesized from a
	// percussion-table entry (7-byte format: sample/adsr1/adsr2/gain/
	// basePitch/fracPitch/note), nil otherwise.
	PercussionNote *byte

	OriginalAddr *uint16
	Origin       ContentOrigin
}

// ResolvedSampleIndex returns SampleIndex with the spare high bit
// masked off.
func (i *NspcInstrument) ResolvedSampleIndex() int {
	return int(i.SampleIndex & 0x7F)
}

// isEmptyInstrumentRow reports whether the raw bytes of an instrument
// or percussion table entry are the engine's "no entry here" sentinel:
// all 0xFF or all 0x00. The instrument and percussion table scans in
// aram_scan.go skip rows for which it reports true.
func isEmptyInstrumentRow(raw []byte) bool {
	allFF, allZero := true, true
	for _, b := range raw {
		if b != 0xFF {
			allFF = false
		}
		if b != 0x00 {
			allZero = false
		}
	}
	return allFF || allZero
}

// BrrSample is one sample-directory entry: its recovered BRR byte
// stream plus the directory's start/loop addresses. Grounded on
// NspcProject.cpp's parseSamples, whose directory entry is 4 bytes
// (start LE, loop LE) and whose BRR bytes are recovered by scanning
// forward from start until an end-flagged block or the next sample's
// start address, whichever comes first.
type BrrSample struct {
	ID   int
	Name string

	Data []byte

	LoopEnabled     bool
	OriginalAddr    uint16
	OriginalLoopAddr uint16

	Origin ContentOrigin
}

// LoopOffsetBytes returns the sample's loop point expressed as a byte
// offset from the start of Data, or -1 if OriginalLoopAddr doesn't
// land inside Data (e.g. LoopEnabled is false, or the directory entry
// was inconsistent).
func (s *BrrSample) LoopOffsetBytes() int {
	if !s.LoopEnabled {
		return -1
	}
	off := int(s.OriginalLoopAddr) - int(s.OriginalAddr)
	if off < 0 || off >= len(s.Data) || off%9 != 0 {
		return -1
	}
	return off
}

// Project bundles everything a complete engine image carries: the
// engine's own command-map/table configuration, every song recovered
// (or authored) against it, and the shared instrument/sample tables
// those songs reference. Mirrors NspcProject's songs_/instruments_/
// samples_ triple (NspcProject.hpp); the ARAM-usage paint model and
// per-song address layout live in internal/layout instead, since both
// are layout-planner concerns rather than part of the data model
// itself.
type Project struct {
	Engine      EngineDescriptor
	Songs       []Song
	Instruments []NspcInstrument
	Samples     []BrrSample
}

// InstrumentByID returns a pointer to the instrument with the given
// id, or nil.
func (p *Project) InstrumentByID(id int) *NspcInstrument {
	for i := range p.Instruments {
		if p.Instruments[i].ID == id {
			return &p.Instruments[i]
		}
	}
	return nil
}

// SampleByID returns a pointer to the sample with the given id, or
// nil.
func (p *Project) SampleByID(id int) *BrrSample {
	for i := range p.Samples {
		if p.Samples[i].ID == id {
			return &p.Samples[i]
		}
	}
	return nil
}

// SongByID returns a pointer to the song with the given id, or nil.
func (p *Project) SongByID(id int) *Song {
	for i := range p.Songs {
		if p.Songs[i].SongID == id {
			return &p.Songs[i]
		}
	}
	return nil
}

// ScanInstrumentAndSampleTables populates Instruments and Samples from
// a raw ARAM image, following NspcProject.cpp's parseSamples/
// parseInstruments order: the sample directory is scanned first
// (against a lightweight pre-scan of referenced ids, since full
// instrument parsing needs the sample list to already exist), then the
// instrument and percussion tables are scanned against the now-real
// sample set. Songs are populated separately by package disasm.
func (p *Project) ScanInstrumentAndSampleTables(r Reader) {
	referenced := ReferencedSampleIDs(r, &p.Engine)
	p.Samples = ScanSamples(r, &p.Engine, referenced)
	p.Instruments = ScanInstruments(r, &p.Engine, p.Samples)

	if p.Engine.PercussionTable != nil && p.Engine.InstrumentHeaders != nil {
		percStartID := 0
		if diff := int(*p.Engine.PercussionTable) - int(*p.Engine.InstrumentHeaders); diff > 0 {
			percStartID = diff / 5
		}
		p.Instruments = append(p.Instruments, ScanPercussion(r, &p.Engine, percStartID)...)
	}
}
