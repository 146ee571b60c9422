// Package canary executes an emitted WASM module against a small bounded
// input series and produces a distributional receipt describing its
// behavior, without committing to exact output values — the "canary run"
// of spec §4.5.
//
// Grounded on original_source/src/discos/compiler/wasm/runner.py, with
// wasmtime replaced by tetratelabs/wazero (pure Go, no cgo, no WASI import
// needed since the emitted module is import-free) per the teacher's
// pkg/runtime/sandbox.WasiSandbox wiring, and the hardcoded "python
// fallback" (which only worked for the two-input simple_return shape)
// replaced by a general reference interpreter over the admissible HIR
// graph itself, so the fallback covers any admissible module, not just one
// template.
package canary

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hirforge/hircompile/pkg/canonicalize"
	"github.com/hirforge/hircompile/pkg/herr"
	"github.com/hirforge/hircompile/pkg/hir"
	"github.com/tetratelabs/wazero"
)

// MaxElements is the fixed canary cap of spec §4.5 — canary runs never
// evaluate more than this many elements even if the caller's series are
// longer.
const MaxElements = 512

// Receipt is the canary run's distributional summary (spec §4.5, §6).
type Receipt struct {
	HidBehav  string   `json:"hid_behav"`
	N         int      `json:"n"`
	Mean      float64  `json:"mean"`
	Std       float64  `json:"std"`
	NaNRate   float64  `json:"nan_rate"`
	InfRate   float64  `json:"inf_rate"`
	RuntimeMs float64  `json:"runtime_ms"`
	Engine    string   `json:"engine"`
	Notes     []string `json:"notes"`
}

// Run evaluates the module encoded in wasmBinary (produced by
// pkg/watgen.EmitModule) over the first min(len, MaxElements) elements of
// each named input series, falling back to a Go-native reference
// interpreter over h if the wazero engine fails to instantiate or call the
// module.
func Run(ctx context.Context, wasmBinary []byte, h hir.HIR, inputs map[string][]float64, inputOrder []string) ([]float64, Receipt, error) {
	if len(inputOrder) == 0 {
		return nil, Receipt{}, herr.New(herr.CodeMissingInputColumn, "input_order must include at least one input name", nil)
	}
	var lengths []int
	for _, name := range inputOrder {
		series, ok := inputs[name]
		if !ok {
			return nil, Receipt{}, herr.New(herr.CodeMissingInputColumn, "input series missing required column",
				map[string]any{"name": name})
		}
		lengths = append(lengths, len(series))
	}
	for _, l := range lengths {
		if l != lengths[0] {
			return nil, Receipt{}, herr.New(herr.CodeInputLengthMismatch, "input series have mismatched lengths",
				map[string]any{"lengths": lengths})
		}
	}

	n := lengths[0]
	if n > MaxElements {
		n = MaxElements
	}

	start := time.Now()
	var notes []string
	out, engine, err := runWazero(ctx, wasmBinary, inputs, inputOrder, n)
	if err != nil {
		notes = append(notes, fmt.Sprintf("wazero execution failed: %v; using reference interpreter", err))
		out, err = runReference(h, inputs, inputOrder, n)
		if err != nil {
			return nil, Receipt{}, err
		}
		engine = "reference-interpreter"
	}
	runtimeMs := float64(time.Since(start).Microseconds()) / 1000.0

	rep := summarize(out, engine, notes)
	rep.RuntimeMs = runtimeMs
	return out, rep, nil
}

func summarize(out []float64, engine string, notes []string) Receipt {
	n := len(out)
	var nanCount, infCount int
	var finite []float64
	for _, v := range out {
		switch {
		case math.IsNaN(v):
			nanCount++
		case math.IsInf(v, 0):
			infCount++
		default:
			finite = append(finite, v)
		}
	}

	var mean, std float64
	if len(finite) > 0 {
		mean = meanOf(finite)
		std = stdOf(finite, mean)
	}

	rate := func(c int) float64 {
		if n == 0 {
			return 0
		}
		return float64(c) / float64(n)
	}

	return Receipt{
		HidBehav: sketchHash(out),
		N:        n,
		Mean:     mean,
		Std:      std,
		NaNRate:  rate(nanCount),
		InfRate:  rate(infCount),
		Engine:   engine,
		Notes:    notes,
	}
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdOf(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// sketchHash is the behavior-sketch hash of spec §4.5: SHA-256 of the
// 6-significant-figure quantiles at [0, 0.1, 0.5, 0.9, 1.0] (computed over
// finite elements only) joined by commas, "|", then the hex-encoded sign
// marker bytes (one byte per element, 1 if >0 else 0 — NaN compares false,
// matching numpy) over the first min(256, len) elements of the RAW (not
// finite-filtered) series. An all-non-finite series hashes the literal
// string "empty" instead.
//
// Grounded on original_source/src/discos/compiler/wasm/runner.py's
// _sketch_hash and discos/registry/canonicalize.py's sha256_hex (which
// hashes the UTF-8 bytes of a string, not raw bytes).
func sketchHash(series []float64) string {
	finite := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return canonicalize.HashBytes([]byte("empty"))
	}

	sorted := append([]float64(nil), finite...)
	sort.Float64s(sorted)

	qs := []float64{0.0, 0.1, 0.5, 0.9, 1.0}
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = strconv.FormatFloat(quantile(sorted, q), 'g', 6, 64)
	}
	qstr := strings.Join(parts, ",")

	signLen := len(series)
	if signLen > 256 {
		signLen = 256
	}
	signHex := make([]byte, 0, signLen*2)
	const hexDigits = "0123456789abcdef"
	for i := 0; i < signLen; i++ {
		b := byte(0)
		if series[i] > 0 {
			b = 1
		}
		signHex = append(signHex, hexDigits[b>>4], hexDigits[b&0xF])
	}

	return canonicalize.HashBytes([]byte(qstr + "|" + string(signHex)))
}

// quantile computes numpy's default "linear" interpolation quantile over an
// already-sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func runWazero(ctx context.Context, wasmBinary []byte, inputs map[string][]float64, inputOrder []string, n int) ([]float64, string, error) {
	r := wazero.NewRuntime(ctx)
	defer func() { _ = r.Close(ctx) }()

	compiled, err := r.CompileModule(ctx, wasmBinary)
	if err != nil {
		return nil, "", fmt.Errorf("compile module: %w", err)
	}
	defer func() { _ = compiled.Close(ctx) }()

	modCfg := wazero.NewModuleConfig().WithName("hir-canary")
	mod, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, "", fmt.Errorf("instantiate module: %w", err)
	}
	defer func() { _ = mod.Close(ctx) }()

	mem := mod.Memory()
	if mem == nil {
		return nil, "", fmt.Errorf("module exports no memory")
	}

	var offset uint32
	ptrs := make([]uint64, 0, len(inputOrder))
	for _, name := range inputOrder {
		series := inputs[name][:n]
		for i, v := range series {
			if !mem.WriteFloat64Le(offset+uint32(i)*8, v) {
				return nil, "", fmt.Errorf("writing input %q out of memory bounds", name)
			}
		}
		ptrs = append(ptrs, uint64(offset))
		offset += uint32(n) * 8
	}

	outPtr := offset
	offset += uint32(n) * 8
	_ = offset

	fn := mod.ExportedFunction("eval_series")
	if fn == nil {
		return nil, "", fmt.Errorf("module exports no eval_series function")
	}

	args := append(ptrs, uint64(outPtr), uint64(n))
	if _, err := fn.Call(ctx, args...); err != nil {
		return nil, "", fmt.Errorf("call eval_series: %w", err)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, ok := mem.ReadFloat64Le(outPtr + uint32(i)*8)
		if !ok {
			return nil, "", fmt.Errorf("reading output out of memory bounds")
		}
		out[i] = v
	}

	return out, "wazero", nil
}
