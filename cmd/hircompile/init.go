package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hirforge/hircompile/pkg/discoveryset"
)

func runInitCmd(args []string, stdout, stderr io.Writer, logger *slog.Logger) int {
	fs := newFlagSet("init")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	ws := discoveryset.New(cfg)
	if err := ws.Init(); err != nil {
		logger.Error("init workspace", "error", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Initialized workspace at %s\n", cfg.WorkspacePath())
	return 0
}
