package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hirforge/hircompile/pkg/admissibility"
	"github.com/hirforge/hircompile/pkg/hir"
)

func runLintCmd(args []string, stdout, stderr io.Writer, logger *slog.Logger) int {
	fs := newFlagSet("lint")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		_, _ = fmt.Fprintln(stderr, "usage: hircompile lint [--config path] <hir.json>")
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

	report := admissibility.Check(h, cfg.EnableDimensionCheck)
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("encode report", "error", err)
		return 1
	}
	if !report.OK {
		return 2
	}
	return 0
}

func readHIRFile(path string) (hir.HIR, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hir.HIR{}, fmt.Errorf("read %q: %w", path, err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return hir.HIR{}, fmt.Errorf("parse %q: %w", path, err)
	}
	if err := hir.ValidateWireShape(raw); err != nil {
		return hir.HIR{}, fmt.Errorf("validate wire shape of %q: %w", path, err)
	}
	var h hir.HIR
	if err := json.Unmarshal(data, &h); err != nil {
		return hir.HIR{}, fmt.Errorf("parse %q: %w", path, err)
	}
	return h, nil
}
