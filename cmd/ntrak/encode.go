package main

import (
	"os"

	"github.com/ntrak/nspctool/internal/format/spc"
	"github.com/ntrak/nspctool/internal/layout"
)

// runEncode re-encodes a project's user-provided content (songs,
// instruments, samples) into chunks and overlays them onto a base SPC
// image, per spec §4.4.2/§6.2. It does not attempt to rebuild
// engine-retained content: the base SPC already carries it untouched.
func runEncode(args []string) error {
	fs := newFlagSet("encode")
	projectPath := fs.String("project", "", "path to the project IR file")
	enginePath := fs.String("engine-override", "", "optional engine override YAML file")
	basePath := fs.String("spc", "", "base SPC image to overlay onto")
	outPath := fs.String("out", "", "path to write the resulting SPC image")
	compact := fs.Bool("compact", false, "ignore any previously resolved layout and repack from scratch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	proj, err := loadProjectWithEngine(*projectPath, *enginePath)
	if err != nil {
		return err
	}

	up, err := layout.BuildUserContentUpload(proj, layout.Options{Compact: *compact})
	if err != nil {
		return err
	}
	for _, w := range up.Warnings {
		logger.Warn(w.Msg, "object", w.Object)
	}
	logger.Info("built upload", "chunks", len(up.Chunks))

	base, err := os.ReadFile(*basePath)
	if err != nil {
		return err
	}
	out, err := spc.ApplyUpload(base, up)
	if err != nil {
		return err
	}

	return os.WriteFile(*outPath, out, 0644)
}
