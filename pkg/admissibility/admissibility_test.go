package admissibility

import (
	"testing"

	"github.com/hirforge/hircompile/pkg/hir"
)

// simpleReturn is the "(close - open) / open" template, grounded on
// original_source/src/discos/hir/alphahir.py's alphahir_template_simple_return.
func simpleReturn() hir.HIR {
	return hir.HIR{
		Version: "0.1.0",
		Inputs: map[string]hir.InputSpec{
			"open":  {DType: "f64", PDS: "USD"},
			"close": {DType: "f64", PDS: "USD"},
		},
		Nodes: []hir.Node{
			{ID: "n_open", Kind: hir.KindInput, Name: "open"},
			{ID: "n_close", Kind: hir.KindInput, Name: "close"},
			{ID: "n_num", Kind: hir.KindOp, Op: hir.OpSub, Args: []string{"n_close", "n_open"}},
			{ID: "n_out", Kind: hir.KindOp, Op: hir.OpSafeDiv, Args: []string{"n_num", "n_open"}},
		},
		OutputNode:        "n_out",
		DeclaredOutputPDS: "1",
		Metadata:          map[string]any{"name": "simple_return"},
	}
}

func TestCheckOKSimpleReturn(t *testing.T) {
	rep := Check(simpleReturn(), true)
	if !rep.OK {
		t.Fatalf("expected admissible HIR, got errors: %+v", rep.Errors)
	}
}

func TestCheckDetectsCycle(t *testing.T) {
	h := simpleReturn()
	h.Nodes = append(h.Nodes, hir.Node{ID: "n_cycle", Kind: hir.KindOp, Op: hir.OpAdd, Args: []string{"n_out", "n_open"}})
	for i := range h.Nodes {
		if h.Nodes[i].ID == "n_out" {
			h.Nodes[i].Args = []string{"n_cycle", "n_open"}
		}
	}

	rep := Check(h, false)
	if rep.OK {
		t.Fatal("expected cycle to be detected")
	}
	found := false
	for _, e := range rep.Errors {
		if e.Code == "E_CYCLE" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected E_CYCLE among errors, got %+v", rep.Errors)
	}
}

func TestCheckDetectsDuplicateNodeID(t *testing.T) {
	h := simpleReturn()
	h.Nodes = append(h.Nodes, hir.Node{ID: "n_open", Kind: hir.KindInput, Name: "open"})

	rep := Check(h, false)
	if rep.OK {
		t.Fatal("expected duplicate id to be rejected")
	}
	if rep.Errors[0].Code != "E_DUP_NODE_ID" {
		t.Errorf("expected E_DUP_NODE_ID first (fixed check order), got %s", rep.Errors[0].Code)
	}
}

func TestCheckDetectsForbiddenOp(t *testing.T) {
	h := simpleReturn()
	h.Nodes = append(h.Nodes, hir.Node{ID: "n_bad", Kind: hir.KindOp, Op: "sqrt", Args: []string{"n_open"}})

	rep := Check(h, false)
	if rep.OK {
		t.Fatal("expected forbidden op to be rejected")
	}
	found := false
	for _, e := range rep.Errors {
		if e.Code == "E_OP_FORBIDDEN" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected E_OP_FORBIDDEN, got %+v", rep.Errors)
	}
}

func TestCheckDetectsMixedDimensionSum(t *testing.T) {
	h := hir.HIR{
		Version: "0.1.0",
		Inputs: map[string]hir.InputSpec{
			"open":  {DType: "f64", PDS: "USD"},
			"vol":   {DType: "f64", PDS: "1"},
		},
		Nodes: []hir.Node{
			{ID: "n_open", Kind: hir.KindInput, Name: "open"},
			{ID: "n_vol", Kind: hir.KindInput, Name: "vol"},
			{ID: "n_out", Kind: hir.KindOp, Op: hir.OpAdd, Args: []string{"n_open", "n_vol"}},
		},
		OutputNode:        "n_out",
		DeclaredOutputPDS: "USD",
	}

	rep := Check(h, true)
	if rep.OK {
		t.Fatal("expected mismatched-dimension add to be rejected")
	}
	found := false
	for _, e := range rep.Errors {
		if e.Code == "E_DIM_MIXED_SUM" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected E_DIM_MIXED_SUM, got %+v", rep.Errors)
	}
}

func TestCheckDetectsLogOfDimensionedArg(t *testing.T) {
	h := hir.HIR{
		Version: "0.1.0",
		Inputs:  map[string]hir.InputSpec{"open": {DType: "f64", PDS: "USD"}},
		Nodes: []hir.Node{
			{ID: "n_open", Kind: hir.KindInput, Name: "open"},
			{ID: "n_out", Kind: hir.KindOp, Op: hir.OpLog, Args: []string{"n_open"}},
		},
		OutputNode:        "n_out",
		DeclaredOutputPDS: "1",
	}

	rep := Check(h, true)
	if rep.OK {
		t.Fatal("expected log of dimensioned argument to be rejected")
	}
	found := false
	for _, e := range rep.Errors {
		if e.Code == "E_NON_DIMLESS_ARG" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected E_NON_DIMLESS_ARG, got %+v", rep.Errors)
	}
}

func TestCheckDetectsOutputMismatch(t *testing.T) {
	h := simpleReturn()
	h.DeclaredOutputPDS = "USD"

	rep := Check(h, true)
	if rep.OK {
		t.Fatal("expected declared/inferred output pds mismatch to be rejected")
	}
	found := false
	for _, e := range rep.Errors {
		if e.Code == "E_DIM_INVALID" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected E_DIM_INVALID, got %+v", rep.Errors)
	}
}
