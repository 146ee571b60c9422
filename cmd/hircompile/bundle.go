package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hirforge/hircompile/pkg/discoveryset"
)

func runBundleCmd(args []string, stdout, stderr io.Writer, logger *slog.Logger) int {
	fs := newFlagSet("bundle")
	fs.SetOutput(stderr)
	out := fs.String("out", "bundle.zip", "output bundle path")
	family := fs.String("family", "fam_default", "hypothesis family id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		_, _ = fmt.Fprintln(stderr, "usage: hircompile bundle [--config path] <hir.json> [--out bundle.zip] [--family id]")
		return 2
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	h, err := readHIRFile(fs.Arg(0))
	if err != nil {
		logger.Error("read hir", "error", err)
		return 1
	}

	ws := discoveryset.New(cfg)
	if err := ws.Init(); err != nil {
		logger.Error("init workspace", "error", err)
		return 1
	}
	hid, err := ws.StoreHypothesis(h, *family)
	if err != nil {
		logger.Error("store hypothesis", "error", err)
		return 1
	}

	bundlePath, err := ws.BuildBundle(hid, *out)
	if err != nil {
		logger.Error("build bundle", "error", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Wrote bundle: %s\n", bundlePath)
	return 0
}
