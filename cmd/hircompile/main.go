// Command hircompile is the userland CLI for the Hypothesis IR compiler:
// lint, compile-to-WASM, canary-run, and bundle a HIR graph.
//
// Grounded on original_source/src/discos/cli.py's argparse subcommand
// layout (init/lint/run/bundle/alphahir new), adapted to the teacher's
// cmd/helm/main.go dispatch idiom: a stdlib flag.FlagSet per subcommand and
// a testable Run(args, stdout, stderr) entrypoint rather than calling
// os.Exit directly from main.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run dispatches to a subcommand and returns the process exit code, kept
// separate from main so tests can drive the CLI without a real process.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		_, _ = fmt.Fprintln(stderr, usage())
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	switch args[1] {
	case "init":
		return runInitCmd(args[2:], stdout, stderr, logger)
	case "lint":
		return runLintCmd(args[2:], stdout, stderr, logger)
	case "run":
		return runRunCmd(args[2:], stdout, stderr, logger)
	case "bundle":
		return runBundleCmd(args[2:], stdout, stderr, logger)
	case "alphahir":
		return runAlphaHIRCmd(args[2:], stdout, stderr)
	case "help", "-h", "--help":
		_, _ = fmt.Fprintln(stdout, usage())
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown subcommand %q\n%s\n", args[1], usage())
		return 2
	}
}

func usage() string {
	return `hircompile — Hypothesis IR compiler

Usage:
  hircompile init     [--config path]
  hircompile lint     [--config path] <hir.json>
  hircompile run      [--config path] <hir.json> --lane CANARY --family <id>
  hircompile bundle   [--config path] <hir.json> --out bundle.zip --family <id>
  hircompile alphahir new [--name simple_return]`
}
