package main

import (
	"os"

	"github.com/ntrak/nspctool/internal/format/enginecfg"
	"github.com/ntrak/nspctool/internal/nspc"
)

// defaultEngineDescriptor is the built-in baseline engine the CLI
// falls back to when no engine override file is given: the "SMW
// Prototype Test" fixture layout from the reference N-SPC test suite
// (song index table at $0200, the canonical note/rest/percussion/vcmd
// byte ranges, and the standard read/write vcmd remap). It exists so
// the driver has something to disassemble against out of the box;
// real projects should supply an override file pointing at their own
// engine's tables.
func defaultEngineDescriptor() nspc.EngineDescriptor {
	songIndex := uint16(0x0200)

	readMap := map[byte]byte{
		0xDA: 0xE0, 0xDB: 0xE1, 0xDC: 0xE2, 0xDD: 0xF9, 0xDE: 0xE3, 0xDF: 0xE4,
		0xE0: 0xE5, 0xE1: 0xE6, 0xE2: 0xE7, 0xE3: 0xE8, 0xE4: 0xE9, 0xE5: 0xEB,
		0xE6: 0xEC, 0xE7: 0xED, 0xE8: 0xEE, 0xE9: 0xEF, 0xEA: 0xF0, 0xEB: 0xF1,
		0xEC: 0xF2, 0xED: 0xF3, 0xEE: 0xF4, 0xEF: 0xF5, 0xF0: 0xF6, 0xF1: 0xF7,
		0xF2: 0xF8,
	}
	writeMap := map[byte]byte{
		0xE0: 0xDA, 0xE1: 0xDB, 0xE2: 0xDC, 0xE3: 0xDE, 0xE4: 0xDF, 0xE5: 0xE0,
		0xE6: 0xE1, 0xE7: 0xE2, 0xE8: 0xE3, 0xE9: 0xE4, 0xEB: 0xE5, 0xEC: 0xE6,
		0xED: 0xE7, 0xEE: 0xE8, 0xEF: 0xE9, 0xF0: 0xEA, 0xF1: 0xEB, 0xF2: 0xEC,
		0xF3: 0xED, 0xF4: 0xEE, 0xF5: 0xEF, 0xF6: 0xF0, 0xF7: 0xF1, 0xF8: 0xF2,
		0xF9: 0xDD,
	}

	return nspc.EngineDescriptor{
		Name:                 "smw-prototype",
		SongIndexPointers:    &songIndex,
		InstrumentEntryBytes: 5,
		PercussionEntryBytes: 6,
		CommandMap: nspc.CommandMap{
			NoteStart: 0x80, NoteEnd: 0xC5,
			Tie:       0xC6,
			RestStart: 0xC7, RestEnd: 0xCF, RestWrite: 0xC7,
			PercStart: 0xD0, PercEnd: 0xD9,
			VcmdStart:          0xDA,
			ReadVcmdMap:        readMap,
			WriteVcmdMap:       writeMap,
			StrictReadVcmdMap:  true,
			StrictWriteVcmdMap: true,
		},
	}
}

// loadEngine builds the engine descriptor the other subcommands work
// against: the built-in default, with an optional override file
// layered on top per spec §6.6.
func loadEngine(overridePath string) (nspc.EngineDescriptor, error) {
	base := defaultEngineDescriptor()
	if overridePath == "" {
		return base, nil
	}

	data, err := os.ReadFile(overridePath)
	if err != nil {
		return nspc.EngineDescriptor{}, err
	}
	overrides, err := enginecfg.Unmarshal(data)
	if err != nil {
		return nspc.EngineDescriptor{}, err
	}
	merged, _, err := enginecfg.Apply(base, overrides)
	return merged, err
}
