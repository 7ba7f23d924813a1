package nspc

import "github.com/ntrak/nspctool/internal/ntrakerr"

const object = "nspc"

// CommandMap partitions a track-stream byte into one of five
// contiguous ranges (or the vcmd read/write bijections), per spec
// §3.4. The zero value is almost never valid; engines build one
// through EngineDescriptor.
type CommandMap struct {
	NoteStart, NoteEnd byte
	Tie                byte
	RestStart, RestEnd byte
	RestWrite          byte
	PercStart, PercEnd byte
	VcmdStart          byte

	// ReadVcmdMap/WriteVcmdMap translate a raw engine byte to/from the
	// canonical vcmd id space this package uses internally. A nil or
	// empty map behaves as identity; Strict*VcmdMap makes a miss fail
	// instead of falling through to identity.
	ReadVcmdMap  map[byte]byte
	WriteVcmdMap map[byte]byte

	StrictReadVcmdMap  bool
	StrictWriteVcmdMap bool
}

// Classification is the byte-range bucket a track byte falls into.
type Classification int

const (
	ClassDuration Classification = iota
	ClassNote
	ClassTie
	ClassRest
	ClassPercussion
	ClassVcmd
	ClassEnd
	ClassUnknown
)

// Classify buckets a raw track byte per the five command-map ranges.
// 0x00 is always End; bytes below the duration range's floor (1) never
// occur since track streams never emit byte 0 except as End.
func (m *CommandMap) Classify(b byte) Classification {
	switch {
	case b == 0x00:
		return ClassEnd
	case b >= 1 && b <= 0x7F:
		return ClassDuration
	case b >= m.NoteStart && b <= m.NoteEnd:
		return ClassNote
	case b == m.Tie:
		return ClassTie
	case b >= m.RestStart && b <= m.RestEnd:
		return ClassRest
	case b >= m.PercStart && b <= m.PercEnd:
		return ClassPercussion
	case b >= m.VcmdStart:
		return ClassVcmd
	default:
		return ClassUnknown
	}
}

// MapRead translates a raw byte to a canonical vcmd id.
func (m *CommandMap) MapRead(raw byte) (byte, bool) {
	if v, ok := m.ReadVcmdMap[raw]; ok {
		return v, true
	}
	if m.StrictReadVcmdMap && len(m.ReadVcmdMap) > 0 {
		return 0, false
	}
	return raw, true
}

// MapWrite translates a canonical vcmd id to a raw engine byte.
func (m *CommandMap) MapWrite(id byte) (byte, bool) {
	if v, ok := m.WriteVcmdMap[id]; ok {
		return v, true
	}
	if m.StrictWriteVcmdMap && len(m.WriteVcmdMap) > 0 {
		return 0, false
	}
	return id, true
}

// ExtensionCommand describes an engine-specific vcmd id and its fixed
// parameter byte count (up to 4).
type ExtensionCommand struct {
	ID         byte
	ParamBytes int // 0..4
}

// ReservedRegion names an ARAM range the engine's own code/data
// occupies, which the layout planner must never allocate into.
type ReservedRegion struct {
	From, To uint16 // [From, To)
	Label    string
}

// EchoBuffer names the ARAM range the engine's echo ring buffer
// occupies.
type EchoBuffer struct {
	Address uint16
	Length  uint16
}

// EngineDescriptor is the per-engine configuration spec §3.5
// describes: table locations, entry sizes, reserved regions, the
// command map, and optional extensions.
type EngineDescriptor struct {
	Name string

	SongIndexPointers *uint16
	InstrumentHeaders *uint16
	PercussionTable   *uint16
	SampleHeaders     *uint16

	InstrumentEntryBytes int // 5 or 6
	PercussionEntryBytes int // 6 or 7

	// CustomInstrumentStart is the first index past the engine's
	// built-in instrument table, for engines whose editable region
	// starts partway through the table.
	CustomInstrumentStart *int

	Reserved []ReservedRegion
	Echo     EchoBuffer

	CommandMap CommandMap

	Extensions []ExtensionCommand

	// ExtensionPatches are fixed overlay bytes an engine extension
	// needs written into its own ARAM driver code to function (e.g. a
	// jump-table entry enabling a new vcmd), named so a caller can
	// enable/disable them independently of which extensions a given
	// song actually uses.
	ExtensionPatches []ExtensionPatch
}

// ExtensionPatch is one named, independently-enableable overlay write
// an engine extension requires outside the normal song data regions.
type ExtensionPatch struct {
	Name    string
	Address uint16
	Bytes   []byte
	Enabled bool
}

// ExtensionByID returns the extension command registered for a
// canonical vcmd id, if any.
func (e *EngineDescriptor) ExtensionByID(id byte) (ExtensionCommand, bool) {
	for _, ext := range e.Extensions {
		if ext.ID == id {
			return ext, true
		}
	}
	return ExtensionCommand{}, false
}

// InstrumentEntrySize returns the engine's instrument-table row width,
// clamped to the two formats N-SPC engines use (5 bytes: no fractional
// pitch multiplier; 6 bytes: with one), per
// NspcProject.cpp's parseInstruments.
func (e *EngineDescriptor) InstrumentEntrySize() int {
	switch e.InstrumentEntryBytes {
	case 5:
		return 5
	default:
		return 6
	}
}

// PercussionEntrySize returns the engine's percussion-table row width
// (6 or 7 bytes: the instrument row plus a trailing note byte), per
// applyPercussionTableNotes.
func (e *EngineDescriptor) PercussionEntrySize() int {
	switch e.PercussionEntryBytes {
	case 6:
		return 6
	default:
		return 7
	}
}

// errUnmappedVcmd constructs the failure mode for a raw byte with no
// read-map translation under strict mode.
func errUnmappedVcmd(raw byte) error {
	return ErrUnmappedVcmd(object, raw)
}

// ErrUnmappedVcmd is errUnmappedVcmd's exported form, for disasm/serialize
// (separate packages) to report a strict-mapping miss tagged with their
// own object name.
func ErrUnmappedVcmd(object string, raw byte) error {
	return ntrakerr.New(ntrakerr.StrictMappingMiss, object, "unmapped raw VCMD $%02X under strict read mapping", raw)
}
