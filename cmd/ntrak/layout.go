package main

import (
	"fmt"
	"os"

	"github.com/ntrak/nspctool/internal/format/project"
	"github.com/ntrak/nspctool/internal/layout"
	"github.com/ntrak/nspctool/internal/nspc"
)

func runLayout(args []string) error {
	fs := newFlagSet("layout")
	projectPath := fs.String("project", "", "path to the project IR file")
	enginePath := fs.String("engine-override", "", "optional engine override YAML file")
	songID := fs.Int("song", 0, "song id to plan an upload for")
	compact := fs.Bool("compact", false, "ignore any previously resolved layout and repack from scratch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	proj, err := loadProjectWithEngine(*projectPath, *enginePath)
	if err != nil {
		return err
	}

	song, err := findSong(proj, *songID)
	if err != nil {
		return err
	}

	up, err := layout.PlanSongUpload(proj, song, layout.Options{Compact: *compact})
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-6s %s\n", "ADDR", "SIZE", "LABEL")
	total := 0
	for _, chunk := range up.Chunks {
		fmt.Printf("$%04X %6d %s\n", chunk.Address, len(chunk.Bytes), chunk.Label)
		total += len(chunk.Bytes)
	}
	fmt.Printf("\n%d chunks, %d bytes total\n", len(up.Chunks), total)

	for _, w := range up.Warnings {
		logger.Warn(w.Msg, "object", w.Object)
	}
	return nil
}

func findSong(proj *nspc.Project, songID int) (*nspc.Song, error) {
	for i := range proj.Songs {
		if proj.Songs[i].SongID == songID {
			return &proj.Songs[i], nil
		}
	}
	return nil, fmt.Errorf("no song with id %d in project", songID)
}

// loadProjectWithEngine unmarshals a project IR file and attaches a
// full engine descriptor to it: the project file only names the
// engine and (for engine-retained content) a list of ids, per spec
// §6.5 — it's the caller's job to resolve that name to a real
// EngineDescriptor, the same way loadEngine resolves one for disasm.
func loadProjectWithEngine(projectPath, enginePath string) (*nspc.Project, error) {
	data, err := os.ReadFile(projectPath)
	if err != nil {
		return nil, err
	}
	proj, retained, engineName, basePath, _, err := project.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	engine, err := loadEngine(enginePath)
	if err != nil {
		return nil, err
	}
	proj.Engine = engine

	if len(retained.SongIDs)+len(retained.InstrumentIDs)+len(retained.SampleIDs) > 0 {
		logger.Warn("project references engine-retained content the CLI does not re-resolve; pass --engine-override and re-disassemble the base SPC to recover it",
			"engine", engineName, "base_spc", basePath,
			"retained_songs", len(retained.SongIDs), "retained_instruments", len(retained.InstrumentIDs), "retained_samples", len(retained.SampleIDs))
	}

	return proj, nil
}
