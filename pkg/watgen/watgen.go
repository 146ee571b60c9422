// Package watgen lowers an admissible HIR into a pure (import-free) WASM
// module: both its WAT text form and, since wazero ships no WAT-to-binary
// compiler, a binary encoding built directly from the same instruction
// stream (pkg/watgen/binary.go) rather than round-tripping through a
// hand-rolled WAT parser.
//
// Grounded on original_source/src/discos/compiler/wasm/watgen.py.
package watgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hirforge/hircompile/pkg/herr"
	"github.com/hirforge/hircompile/pkg/hir"
)

// Artifact is the emitted module in both its textual and binary forms.
type Artifact struct {
	WAT     string
	Binary  []byte
	Exports []string
	Notes   []string
}

// plan is the emitter's shared intermediate form: the topologically ordered
// node list plus the declared input order and output node, consumed by both
// the WAT text writer and the binary encoder so the two stay in lockstep.
type plan struct {
	hir        hir.HIR
	byID       map[string]hir.Node
	topo       []string
	inputOrder []string
	outputID   string
}

func buildPlan(h hir.HIR, inputOrder []string) (*plan, error) {
	byID := make(map[string]hir.Node, len(h.Nodes))
	var declOrder []string
	for _, n := range h.Nodes {
		if _, ok := byID[n.ID]; !ok {
			declOrder = append(declOrder, n.ID)
		}
		byID[n.ID] = n
	}

	indeg := make(map[string]int, len(declOrder))
	succ := make(map[string][]string, len(declOrder))
	for _, id := range declOrder {
		indeg[id] = 0
	}
	for _, n := range h.Nodes {
		if n.Kind != hir.KindOp {
			continue
		}
		for _, a := range n.Args {
			succ[a] = append(succ[a], n.ID)
			indeg[n.ID]++
		}
	}

	var queue []string
	for _, id := range declOrder {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	var topo []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		topo = append(topo, cur)
		for _, nxt := range succ[cur] {
			indeg[nxt]--
			if indeg[nxt] == 0 {
				queue = append(queue, nxt)
			}
		}
	}
	if len(topo) != len(declOrder) {
		return nil, herr.New(herr.CodeUnsupportedOp, "watgen: HIR is not acyclic; run the admissibility checker first", nil)
	}

	for _, n := range h.Nodes {
		if n.Kind == hir.KindInput {
			found := false
			for _, in := range inputOrder {
				if in == n.Name {
					found = true
					break
				}
			}
			if !found {
				return nil, herr.New(herr.CodeInputOrderMismatch, "input referenced by HIR is missing from input_order",
					map[string]any{"name": n.Name})
			}
		}
	}

	return &plan{hir: h, byID: byID, topo: topo, inputOrder: inputOrder, outputID: h.OutputNode}, nil
}

// EmitModule lowers h into a pure WASM module. h is assumed to have already
// passed the Admissibility Checker; EmitModule only re-validates the things
// specific to lowering (op lowerability, input_order completeness).
func EmitModule(h hir.HIR, inputOrder []string) (*Artifact, error) {
	p, err := buildPlan(h, inputOrder)
	if err != nil {
		return nil, err
	}

	for _, nid := range p.topo {
		n := p.byID[nid]
		if n.Kind == hir.KindOp && !hir.PureLowerableOps[n.Op] {
			return nil, herr.New(herr.CodeUnsupportedOp, "operator is not lowerable in the pure WASM profile",
				map[string]any{"node_id": nid, "op": string(n.Op)})
		}
	}

	wat := emitWAT(p)
	bin, err := emitBinary(p)
	if err != nil {
		return nil, err
	}

	notes := []string{
		"pure WASM module; no imports; deterministic given a deterministic engine",
	}
	if hasUnlowerable(h) {
		notes = append(notes, "log/exp nodes are admissible but not lowerable in this pure module profile")
	}

	return &Artifact{
		WAT:     wat,
		Binary:  bin,
		Exports: []string{"memory", "eval_series"},
		Notes:   notes,
	}, nil
}

func hasUnlowerable(h hir.HIR) bool {
	for _, n := range h.Nodes {
		if n.Kind == hir.KindOp && (n.Op == hir.OpLog || n.Op == hir.OpExp) {
			return true
		}
	}
	return false
}

// memoryPages sizes linear memory for the fixed canary cap of 512 elements
// (spec §4.5): one page holds 65536 bytes = 8192 f64s, and each column
// (every input plus the output) takes 512*8 bytes, so 2 pages (the minimum)
// hold up to 31 inputs and larger input counts get enough extra pages;
// emitted modules never grow memory at runtime since the canary caller never
// exceeds the cap.
func memoryPages(numInputs int) int {
	bytesNeeded := (numInputs + 1) * 512 * 8
	pages := (bytesNeeded + 65535) / 65536
	if pages < 2 {
		pages = 2
	}
	return pages
}

func emitWAT(p *plan) string {
	var localLines []string
	for _, nid := range p.topo {
		localLines = append(localLines, fmt.Sprintf("(local $%s f64)", nid))
	}

	var ptrParams []string
	for _, name := range p.inputOrder {
		ptrParams = append(ptrParams, fmt.Sprintf("(param $ptr_%s i32)", name))
	}

	var body []string
	body = append(body,
		"(local $i i32)",
		"i32.const 0",
		"local.set $i",
		"(block $exit",
		"  (loop $loop",
		"    local.get $i",
		"    local.get $n",
		"    i32.ge_u",
		"    br_if $exit",
	)

	pushLocal := func(nid string) []string { return []string{"    local.get $" + nid} }

	for _, nid := range p.topo {
		n := p.byID[nid]
		switch n.Kind {
		case hir.KindInput:
			body = append(body,
				fmt.Sprintf("    local.get $ptr_%s", n.Name),
				"    local.get $i",
				"    i32.const 8",
				"    i32.mul",
				"    i32.add",
				"    f64.load",
				fmt.Sprintf("    local.set $%s", nid),
			)
		case hir.KindConst:
			body = append(body,
				fmt.Sprintf("    f64.const %s", formatWATFloat(n.Value)),
				fmt.Sprintf("    local.set $%s", nid),
			)
		case hir.KindOp:
			body = append(body, emitOpWAT(n, nid, pushLocal)...)
		}
	}

	body = append(body,
		"    local.get $out",
		"    local.get $i",
		"    i32.const 8",
		"    i32.mul",
		"    i32.add",
		fmt.Sprintf("    local.get $%s", p.outputID),
		"    f64.store",
		"    local.get $i",
		"    i32.const 1",
		"    i32.add",
		"    local.set $i",
		"    br $loop",
		"  )",
		")",
	)

	pages := memoryPages(len(p.inputOrder))
	var sb strings.Builder
	sb.WriteString("(module\n")
	fmt.Fprintf(&sb, "  (memory (export \"memory\") %d)\n", pages)
	fmt.Fprintf(&sb, "  (func (export \"eval_series\") %s (param $out i32) (param $n i32)\n", strings.Join(ptrParams, " "))
	sb.WriteString("    " + strings.Join(localLines, "\n    ") + "\n")
	sb.WriteString("    " + strings.Join(body, "\n    ") + "\n")
	sb.WriteString("  )\n)")
	return sb.String()
}

func emitOpWAT(n hir.Node, nid string, pushLocal func(string) []string) []string {
	switch n.Op {
	case hir.OpAdd, hir.OpSub, hir.OpMul:
		instr := map[hir.Op]string{hir.OpAdd: "f64.add", hir.OpSub: "f64.sub", hir.OpMul: "f64.mul"}[n.Op]
		out := append(pushLocal(n.Args[0]), pushLocal(n.Args[1])...)
		return append(out, "    "+instr, "    local.set $"+nid)

	case hir.OpSafeDiv:
		out := append([]string{}, pushLocal(n.Args[1])...)
		out = append(out,
			"    f64.abs",
			"    f64.const 1e-12",
			"    f64.lt",
			"    if (result f64)",
			"      f64.const 0",
			"    else",
		)
		out = append(out, pushLocal(n.Args[0])...)
		out = append(out, pushLocal(n.Args[1])...)
		out = append(out, "      f64.div", "    end", "    local.set $"+nid)
		return out

	case hir.OpNeg:
		out := []string{"    f64.const -1"}
		out = append(out, pushLocal(n.Args[0])...)
		return append(out, "    f64.mul", "    local.set $"+nid)

	case hir.OpAbs:
		out := pushLocal(n.Args[0])
		return append(out, "    f64.abs", "    local.set $"+nid)

	case hir.OpClip:
		out := append([]string{}, pushLocal(n.Args[0])...)
		out = append(out, pushLocal(n.Args[1])...)
		out = append(out, "    f64.max")
		out = append(out, pushLocal(n.Args[2])...)
		out = append(out, "    f64.min", "    local.set $"+nid)
		return out
	}
	return nil
}

func formatWATFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
