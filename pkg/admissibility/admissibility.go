// Package admissibility implements the HIR Admissibility Checker: the
// non-fatal, accumulating structural and dimensional validation pass of
// spec §4.3, run in a fixed order so that two runs over the same HIR always
// report errors in the same sequence.
//
// Grounded on original_source/src/discos/admissibility/lint.py, restructured
// from dict/set walking to slice-based, declaration-order-deterministic
// passes — Go map iteration order is randomized, so every set used here
// (node ids, successor lists, in-degree counters) is built and walked via
// ordered slices instead of ranging over a map where order would leak into
// the error list or a topological order.
package admissibility

import (
	"sort"

	"github.com/hirforge/hircompile/pkg/hir"
	"github.com/hirforge/hircompile/pkg/herr"
	"github.com/hirforge/hircompile/pkg/pds"
)

// Report is the accumulated result of a Check call (spec §4.3, §6).
type Report struct {
	OK       bool
	Errors   []*herr.Error
	Warnings []*herr.Error
}

// RequireOK returns an E_ADMISSIBILITY error wrapping r.Errors if r is not
// OK, mirroring the original's require_ok gate.
func (r Report) RequireOK() error {
	if r.OK {
		return nil
	}
	return herr.Admissibility(r.Errors)
}

// Check runs the fixed-order admissibility pass over h. When enableDimCheck
// is false, the dimensional inference phase (the "physics lint") is skipped
// entirely — structural checks still run.
func Check(h hir.HIR, enableDimCheck bool) Report {
	var errs []*herr.Error

	nodeIDs, dupErrs := collectNodeIDs(h.Nodes)
	errs = append(errs, dupErrs...)

	if !nodeIDs[h.OutputNode] {
		errs = append(errs, herr.New(herr.CodeOutputMissing, "declared output_node is not a known node id",
			map[string]any{"output_node": h.OutputNode}))
	}

	errs = append(errs, checkOpsAndArgs(h.Nodes, nodeIDs)...)

	order, visited := topoOrder(h.Nodes, nodeIDs)
	if visited != len(nodeIDs) {
		errs = append(errs, herr.New(herr.CodeCycle, "HIR graph contains a cycle",
			map[string]any{"visited": visited, "total": len(nodeIDs)}))
	}

	if enableDimCheck {
		dimErrs := checkDimensions(h, order)
		errs = append(errs, dimErrs...)
	} else {
		for _, n := range h.Nodes {
			if _, ok := h.Inputs[n.Name]; n.Kind == hir.KindInput && !ok {
				errs = append(errs, herr.New(herr.CodeInputMissing, "input node references an undeclared input",
					map[string]any{"node_id": n.ID, "name": n.Name}))
			}
		}
	}

	return Report{OK: len(errs) == 0, Errors: errs}
}

// collectNodeIDs returns the set of node ids present in nodes (last
// occurrence wins for lookups elsewhere, but duplicates are still reported
// here) plus any E_DUP_NODE_ID error.
func collectNodeIDs(nodes []hir.Node) (map[string]bool, []*herr.Error) {
	seen := map[string]bool{}
	counts := map[string]int{}
	var order []string
	for _, n := range nodes {
		if !seen[n.ID] {
			seen[n.ID] = true
			order = append(order, n.ID)
		}
		counts[n.ID]++
	}

	var dupes []string
	for _, id := range order {
		if counts[id] > 1 {
			dupes = append(dupes, id)
		}
	}
	if len(dupes) == 0 {
		return seen, nil
	}
	sort.Strings(dupes)
	return seen, []*herr.Error{
		herr.New(herr.CodeDupNodeID, "duplicate node ids in HIR graph", map[string]any{"duplicate_ids": dupes}),
	}
}

func checkOpsAndArgs(nodes []hir.Node, nodeIDs map[string]bool) []*herr.Error {
	var errs []*herr.Error
	for _, n := range nodes {
		if n.Kind != hir.KindOp {
			continue
		}
		if !hir.AllowedOps[n.Op] {
			errs = append(errs, herr.New(herr.CodeOpForbidden, "operator is not in the allowed whitelist",
				map[string]any{"node_id": n.ID, "op": string(n.Op)}))
		}
		for _, a := range n.Args {
			if !nodeIDs[a] {
				errs = append(errs, herr.New(herr.CodeArgMissing, "operator argument references an unknown node id",
					map[string]any{"node_id": n.ID, "arg": a}))
			}
		}
	}
	return errs
}

// topoOrder runs Kahn's algorithm over the op-node dependency graph, using
// declaration order to break ties deterministically wherever more than one
// node becomes ready at once. Args naming a missing node (already reported
// by checkOpsAndArgs) contribute no edge, so a single bad arg doesn't
// spuriously manufacture a cycle.
func topoOrder(nodes []hir.Node, nodeIDs map[string]bool) ([]string, int) {
	declOrder := make([]string, 0, len(nodeIDs))
	seen := map[string]bool{}
	for _, n := range nodes {
		if !seen[n.ID] {
			seen[n.ID] = true
			declOrder = append(declOrder, n.ID)
		}
	}

	indeg := make(map[string]int, len(nodeIDs))
	succ := make(map[string][]string, len(nodeIDs))
	for _, id := range declOrder {
		indeg[id] = 0
	}
	for _, n := range nodes {
		if n.Kind != hir.KindOp {
			continue
		}
		for _, a := range n.Args {
			if !nodeIDs[a] {
				continue
			}
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

	var order []string
	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		visited++
		for _, nxt := range succ[cur] {
			indeg[nxt]--
			if indeg[nxt] == 0 {
				queue = append(queue, nxt)
			}
		}
	}
	return order, visited
}

func checkDimensions(h hir.HIR, topo []string) []*herr.Error {
	var errs []*herr.Error
	inferred := map[string]pds.PDS{}

	for _, n := range h.Nodes {
		if n.Kind != hir.KindInput {
			continue
		}
		spec, ok := h.Inputs[n.Name]
		if !ok {
			errs = append(errs, herr.New(herr.CodeInputMissing, "input node references an undeclared input",
				map[string]any{"node_id": n.ID, "name": n.Name}))
			continue
		}
		p, err := pds.Parse(spec.PDS)
		if err != nil {
			errs = append(errs, err.(*herr.Error))
			continue
		}
		inferred[n.ID] = p
	}

	for _, nid := range topo {
		n, ok := h.NodeByID(nid)
		if !ok {
			continue
		}
		switch n.Kind {
		case hir.KindConst:
			inferred[n.ID] = pds.Dimensionless()
		case hir.KindOp:
			errs = append(errs, inferOpPDS(n, inferred)...)
		}
	}

	declared, err := pds.Parse(h.DeclaredOutputPDS)
	if err != nil {
		errs = append(errs, err.(*herr.Error))
		return errs
	}
	if outp, ok := inferred[h.OutputNode]; ok && !outp.Equals(declared) {
		errs = append(errs, herr.New(herr.CodeDimInvalid, "inferred output dimension does not match declared_output_pds",
			map[string]any{"node_id": h.OutputNode, "expected_pds": declared.CanonicalString(), "got_pds": outp.CanonicalString()}))
	}
	return errs
}

func inferOpPDS(n hir.Node, inferred map[string]pds.PDS) []*herr.Error {
	arg := func(i int) (pds.PDS, bool) {
		if i >= len(n.Args) {
			return pds.PDS{}, false
		}
		p, ok := inferred[n.Args[i]]
		return p, ok
	}

	var errs []*herr.Error
	switch n.Op {
	case hir.OpNeg, hir.OpAbs:
		if pa, ok := arg(0); ok {
			inferred[n.ID] = pa
		}

	case hir.OpAdd, hir.OpSub:
		pa, okA := arg(0)
		pb, okB := arg(1)
		if okA && okB && !pa.Equals(pb) {
			errs = append(errs, herr.New(herr.CodeDimMixedSum, "add/sub operands have mismatched dimensions",
				map[string]any{"node_id": n.ID, "left": pa.CanonicalString(), "right": pb.CanonicalString()}))
		}
		switch {
		case okA:
			inferred[n.ID] = pa
		case okB:
			inferred[n.ID] = pb
		default:
			inferred[n.ID] = pds.Dimensionless()
		}

	case hir.OpMul:
		pa, okA := arg(0)
		pb, okB := arg(1)
		if okA && okB {
			inferred[n.ID] = pa.Multiply(pb)
		}

	case hir.OpSafeDiv:
		pa, okA := arg(0)
		pb, okB := arg(1)
		if okA && okB {
			inferred[n.ID] = pa.Divide(pb)
		}

	case hir.OpClip:
		px, okX := arg(0)
		plo, okLo := arg(1)
		phi, okHi := arg(2)
		if okX && okLo && !px.Equals(plo) {
			errs = append(errs, herr.New(herr.CodeDimInvalid, "clip lower bound dimension mismatch",
				map[string]any{"node_id": n.ID, "expected": px.CanonicalString(), "got": plo.CanonicalString()}))
		}
		if okX && okHi && !px.Equals(phi) {
			errs = append(errs, herr.New(herr.CodeDimInvalid, "clip upper bound dimension mismatch",
				map[string]any{"node_id": n.ID, "expected": px.CanonicalString(), "got": phi.CanonicalString()}))
		}
		if okX {
			inferred[n.ID] = px
		} else {
			inferred[n.ID] = pds.Dimensionless()
		}

	case hir.OpLog, hir.OpExp:
		if pa, ok := arg(0); ok && pa.CanonicalString() != "1" {
			errs = append(errs, herr.New(herr.CodeNonDimlessArg, "log/exp argument must be dimensionless",
				map[string]any{"node_id": n.ID, "op": string(n.Op), "arg_pds": pa.CanonicalString()}))
		}
		inferred[n.ID] = pds.Dimensionless()
	}
	return errs
}
