// Command ntrak is a thin CLI driver over the core N-SPC toolchain:
// it disassembles an SPC snapshot into a project IR file, reports a
// planned upload's layout, runs the subroutine optimizer over a song,
// and re-encodes a project back into an SPC image. It is a collaborator
// that exercises the core's public API, not part of the core itself.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

var logger = log.New(os.Stderr)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "disasm":
		err = runDisasm(args)
	case "layout":
		err = runLayout(args)
	case "optimize":
		err = runOptimize(args)
	case "encode":
		err = runEncode(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", "command", cmd, "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ntrak <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  disasm    load an SPC snapshot and emit a project IR file")
	fmt.Fprintln(os.Stderr, "  layout    plan a song's upload and print a chunk report")
	fmt.Fprintln(os.Stderr, "  optimize  flatten and re-mine subroutines for one song")
	fmt.Fprintln(os.Stderr, "  encode    re-encode a project IR's user content onto a base SPC")
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}
