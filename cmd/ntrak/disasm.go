package main

import (
	"os"

	"github.com/ntrak/nspctool/internal/apu"
	"github.com/ntrak/nspctool/internal/format/project"
	"github.com/ntrak/nspctool/internal/format/spc"
	"github.com/ntrak/nspctool/internal/nspc"
	"github.com/ntrak/nspctool/internal/nspc/disasm"
)

func runDisasm(args []string) error {
	fs := newFlagSet("disasm")
	spcPath := fs.String("spc", "", "path to the SPC snapshot to load")
	enginePath := fs.String("engine-override", "", "optional engine override YAML file")
	songID := fs.Int("song", 0, "song id to recover (also used as the song index table slot)")
	outPath := fs.String("out", "", "path to write the project IR file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	engine, err := loadEngine(*enginePath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*spcPath)
	if err != nil {
		return err
	}

	a := apu.New()
	meta, err := spc.Load(a, data)
	if err != nil {
		return err
	}
	logger.Info("loaded SPC snapshot", "song", meta.SongTitle, "game", meta.GameTitle)

	song, err := disasm.Song(a, &engine, *songID)
	if err != nil {
		return err
	}
	logger.Info("recovered song",
		"patterns", len(song.Patterns), "tracks", len(song.Tracks), "subroutines", len(song.Subroutines))

	// The project IR is meant to be edited, so the freshly-recovered
	// song is treated as user content rather than engine-retained: it
	// gets written out in full, not as a bare id the loader must
	// re-disassemble to recover.
	song.Origin = nspc.UserProvided
	proj := &nspc.Project{Engine: engine, Songs: []nspc.Song{*song}}
	out, err := project.Marshal(proj, engine.Name, *spcPath, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(*outPath, out, 0644)
}
