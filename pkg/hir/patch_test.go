package hir

import "testing"

func simpleReturnHIR() HIR {
	return HIR{
		Version: "1",
		Inputs:  map[string]InputSpec{"x": {DType: "f64", PDS: "1"}},
		Nodes: []Node{
			{ID: "x", Kind: KindInput, Name: "x"},
		},
		OutputNode:        "x",
		DeclaredOutputPDS: "1",
	}
}

func TestApplyPatchSetMetadata(t *testing.T) {
	h := simpleReturnHIR()
	patch := Patch{Ops: []PatchOp{
		{Kind: PatchSetMetadata, Meta: map[string]any{"foo": "bar"}},
	}}

	out, err := ApplyPatch(h, patch)
	if err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}
	if out.Metadata["foo"] != "bar" {
		t.Errorf("expected metadata foo=bar, got %v", out.Metadata)
	}
	if h.Metadata != nil {
		t.Errorf("original HIR must not be mutated, got metadata %v", h.Metadata)
	}
}

func TestApplyPatchAddAndRemoveNode(t *testing.T) {
	h := simpleReturnHIR()
	patch := Patch{Ops: []PatchOp{
		{Kind: PatchAddNode, Node: Node{ID: "c1", Kind: KindConst, Value: 2, HasValue: true}},
		{Kind: PatchRemoveNode, NodeID: "c1"},
	}}

	out, err := ApplyPatch(h, patch)
	if err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}
	if len(out.Nodes) != 1 {
		t.Errorf("expected node removed back to original count, got %d nodes", len(out.Nodes))
	}
}

func TestApplyPatchUpdateNodeMissingFails(t *testing.T) {
	h := simpleReturnHIR()
	patch := Patch{Ops: []PatchOp{
		{Kind: PatchUpdateNode, NodeID: "does-not-exist", Fields: NodeFields{}},
	}}

	if _, err := ApplyPatch(h, patch); err == nil {
		t.Error("expected error updating a missing node")
	}
}

func TestApplyPatchRewireEdge(t *testing.T) {
	h := HIR{
		Version: "1",
		Inputs:  map[string]InputSpec{"x": {DType: "f64", PDS: "1"}, "y": {DType: "f64", PDS: "1"}},
		Nodes: []Node{
			{ID: "x", Kind: KindInput, Name: "x"},
			{ID: "y", Kind: KindInput, Name: "y"},
			{ID: "sum", Kind: KindOp, Op: OpAdd, Args: []string{"x", "x"}},
		},
		OutputNode:        "sum",
		DeclaredOutputPDS: "1",
	}
	patch := Patch{Ops: []PatchOp{
		{Kind: PatchRewireEdge, NodeID: "sum", Args: []string{"x", "y"}},
	}}

	out, err := ApplyPatch(h, patch)
	if err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}
	n, _ := out.NodeByID("sum")
	if len(n.Args) != 2 || n.Args[1] != "y" {
		t.Errorf("expected rewired args [x y], got %v", n.Args)
	}
}
