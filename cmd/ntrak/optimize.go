package main

import (
	"os"

	"github.com/ntrak/nspctool/internal/format/project"
	"github.com/ntrak/nspctool/internal/optimize"
)

func runOptimize(args []string) error {
	fs := newFlagSet("optimize")
	projectPath := fs.String("project", "", "path to the project IR file")
	enginePath := fs.String("engine-override", "", "optional engine override YAML file")
	songID := fs.Int("song", 0, "song id to optimize")
	outPath := fs.String("out", "", "path to write the optimized project IR file")
	maxIterations := fs.Int("max-iterations", 0, "cap on extraction passes (0 = package default)")
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

	before := len(song.Tracks)
	if err := optimize.OptimizeSong(song, optimize.Options{MaxIterations: *maxIterations}); err != nil {
		return err
	}
	logger.Info("optimized song", "song", song.SongID, "tracks", before, "subroutines_mined", len(song.Subroutines))

	out, err := project.Marshal(proj, proj.Engine.Name, "", nil)
	if err != nil {
		return err
	}
	return os.WriteFile(*outPath, out, 0644)
}
