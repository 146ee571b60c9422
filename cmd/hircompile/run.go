package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"github.com/hirforge/hircompile/pkg/admissibility"
	"github.com/hirforge/hircompile/pkg/canary"
	"github.com/hirforge/hircompile/pkg/config"
	"github.com/hirforge/hircompile/pkg/discoveryset"
	"github.com/hirforge/hircompile/pkg/hir"
	"github.com/hirforge/hircompile/pkg/watgen"
)

// syntheticSeriesLen mirrors cli.py's cmd_run CANARY lane, which evaluates
// against a fixed-size synthetic series rather than caller-supplied data —
// this subcommand is a smoke-test runner, not a backtest engine.
const syntheticSeriesLen = 2048

// syntheticSeed is fixed so repeated "run" invocations against the same HIR
// produce the same receipt, mirroring cli.py's np.random.default_rng(0).
const syntheticSeed = 0

func runRunCmd(args []string, stdout, stderr io.Writer, logger *slog.Logger) int {
	fs := newFlagSet("run")
	fs.SetOutput(stderr)
	lane := fs.String("lane", "CANARY", "execution lane: CANARY (HEAVY/FAST/SEALED are not implemented)")
	family := fs.String("family", "fam_default", "hypothesis family id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		_, _ = fmt.Fprintln(stderr, "usage: hircompile run [--config path] <hir.json> [--lane CANARY] [--family id]")
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

	switch strings.ToUpper(*lane) {
	case "CANARY":
		return runCanaryLane(ws, h, hid, cfg, stdout, stderr, logger)
	case "FAST", "HEAVY", "SEALED":
		_, _ = fmt.Fprintf(stderr, "lane %q is not implemented by this compiler (original_source's own HEAVY/SEALED lanes are MVP stubs too)\n", *lane)
		return 3
	default:
		_, _ = fmt.Fprintf(stderr, "unknown lane: %s\n", *lane)
		return 2
	}
}

func runCanaryLane(ws *discoveryset.Workspace, h hir.HIR, hid string, cfg config.Config, stdout, stderr io.Writer, logger *slog.Logger) int {
	report := admissibility.Check(h, cfg.EnableDimensionCheck)
	if !report.OK {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return 2
	}

	inputOrder := make([]string, 0, len(h.Inputs))
	for name := range h.Inputs {
		inputOrder = append(inputOrder, name)
	}
	sort.Strings(inputOrder)

	artifact, err := watgen.EmitModule(h, inputOrder)
	if err != nil {
		logger.Error("emit module", "error", err)
		return 1
	}

	inputs := syntheticInputs(inputOrder, syntheticSeriesLen, syntheticSeed)

	_, receipt, err := canary.Run(context.Background(), artifact.Binary, h, inputs, inputOrder)
	if err != nil {
		logger.Error("canary run", "error", err)
		return 2
	}

	receiptPath, err := ws.WriteReceipt(hid, "CANARY", receipt)
	if err != nil {
		logger.Error("write receipt", "error", err)
		return 1
	}

	out := map[string]any{"hid_struct": hid, "receipt": receiptPath, "canary": receipt}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode result", "error", err)
		return 1
	}
	return 0
}

// syntheticInputs generates one independent Gaussian random walk per input
// name. The original's cli.py hardcodes an "open"/"close" price-and-return
// pair (open = 100 + cumsum(N(0,1)), close = open*(1+N(0,0.01))); this
// generalizes to any input set, since cmd_run must smoke-test any
// admissible HIR, not just the simple_return template.
func syntheticInputs(inputOrder []string, n int, seed int64) map[string][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make(map[string][]float64, len(inputOrder))
	for _, name := range inputOrder {
		series := make([]float64, n)
		walk := 100.0
		for i := 0; i < n; i++ {
			walk += rng.NormFloat64()
			series[i] = walk
		}
		out[name] = series
	}
	return out
}
