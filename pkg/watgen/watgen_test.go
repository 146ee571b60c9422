package watgen_test

import (
	"strings"
	"testing"

	"github.com/hirforge/hircompile/pkg/hir"
	"github.com/hirforge/hircompile/pkg/watgen"
)

func TestEmitModuleSimpleReturn(t *testing.T) {
	h := hir.SimpleReturnTemplate("t")
	art, err := watgen.EmitModule(h, []string{"open", "close"})
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	if !strings.Contains(art.WAT, "(module") {
		t.Errorf("WAT does not look like a module: %s", art.WAT)
	}
	if len(art.Binary) == 0 {
		t.Error("expected non-empty binary artifact")
	}
	found := false
	for _, e := range art.Exports {
		if e == "eval_series" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected eval_series export, got %v", art.Exports)
	}
}

func TestEmitModuleRejectsUnlowerableOp(t *testing.T) {
	h := hir.HIR{
		Version: "0.1.0",
		Inputs:  map[string]hir.InputSpec{"x": {DType: "f64", PDS: "1"}},
		Nodes: []hir.Node{
			{ID: "n_x", Kind: hir.KindInput, Name: "x"},
			{ID: "n_out", Kind: hir.KindOp, Op: hir.OpLog, Args: []string{"n_x"}},
		},
		OutputNode:        "n_out",
		DeclaredOutputPDS: "1",
	}
	if _, err := watgen.EmitModule(h, []string{"x"}); err == nil {
		t.Fatal("expected error for unlowerable op")
	}
}

func TestEmitModuleRejectsMissingInputOrder(t *testing.T) {
	h := hir.SimpleReturnTemplate("t")
	if _, err := watgen.EmitModule(h, []string{"open"}); err == nil {
		t.Fatal("expected error when input_order omits a referenced input")
	}
}
