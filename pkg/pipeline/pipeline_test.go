package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/hirforge/hircompile/pkg/hir"
)

// simpleReturnHIR mirrors pkg/admissibility's fixture: safe_div(sub(close, open), open).
func simpleReturnHIR() hir.HIR {
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
	}
}

// Scenario 1 (spec §8): simple return.
func TestScenarioSimpleReturn(t *testing.T) {
	inputs := map[string][]float64{
		"open":  {100, 110},
		"close": {101, 121},
	}
	res, err := CompileAndRun(context.Background(), simpleReturnHIR(), []string{"open", "close"}, inputs)
	if err != nil {
		t.Fatalf("CompileAndRun failed: %v", err)
	}
	want := []float64{0.01, 0.1}
	for i, w := range want {
		if math.Abs(res.Series[i]-w) > 1e-9 {
			t.Errorf("series[%d] = %v, want %v", i, res.Series[i], w)
		}
	}
	if res.Receipt.NaNRate != 0 || res.Receipt.InfRate != 0 {
		t.Errorf("expected zero nan/inf rate, got %+v", res.Receipt)
	}
}

// Scenario 2 (spec §8): safe_div guard against near-zero denominators.
func TestScenarioSafeDivGuard(t *testing.T) {
	inputs := map[string][]float64{
		"open":  {0.0, 1e-15},
		"close": {1, 1},
	}
	res, err := CompileAndRun(context.Background(), simpleReturnHIR(), []string{"open", "close"}, inputs)
	if err != nil {
		t.Fatalf("CompileAndRun failed: %v", err)
	}
	for i, v := range res.Series {
		if v != 0.0 {
			t.Errorf("series[%d] = %v, want 0.0 (safe_div guard)", i, v)
		}
	}
	if res.Receipt.NaNRate != 0 || res.Receipt.InfRate != 0 {
		t.Errorf("expected no NaN/Inf from the safe_div guard, got %+v", res.Receipt)
	}
}

// Scenario 3 (spec §8): dimensional mismatch on add(a, b).
func TestScenarioDimensionalMismatch(t *testing.T) {
	h := hir.HIR{
		Version: "0.1.0",
		Inputs: map[string]hir.InputSpec{
			"a": {DType: "f64", PDS: "USD"},
			"b": {DType: "f64", PDS: "m"},
		},
		Nodes: []hir.Node{
			{ID: "n_a", Kind: hir.KindInput, Name: "a"},
			{ID: "n_b", Kind: hir.KindInput, Name: "b"},
			{ID: "n_out", Kind: hir.KindOp, Op: hir.OpAdd, Args: []string{"n_a", "n_b"}},
		},
		OutputNode:        "n_out",
		DeclaredOutputPDS: "USD",
	}

	_, err := CompileAndRun(context.Background(), h, []string{"a", "b"}, nil)
	if err == nil {
		t.Fatal("expected admissibility failure for mixed-dimension add")
	}
}

// Scenario 4 (spec §8): a three-node cycle.
func TestScenarioCycle(t *testing.T) {
	h := hir.HIR{
		Version: "0.1.0",
		Inputs:  map[string]hir.InputSpec{},
		Nodes: []hir.Node{
			{ID: "c", Kind: hir.KindConst, Value: 1, HasValue: true},
			{ID: "x", Kind: hir.KindOp, Op: hir.OpAdd, Args: []string{"y", "c"}},
			{ID: "y", Kind: hir.KindOp, Op: hir.OpAdd, Args: []string{"x", "c"}},
		},
		OutputNode:        "x",
		DeclaredOutputPDS: "1",
	}

	_, err := CompileAndRun(context.Background(), h, nil, nil)
	if err == nil {
		t.Fatal("expected E_CYCLE admissibility failure")
	}
}

// Scenario 5 (spec §8): log is whitelisted (admissible) but not lowerable.
func TestScenarioUnsupportedOpAtEmission(t *testing.T) {
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

	res, err := CompileAndRun(context.Background(), h, []string{"x"}, map[string][]float64{"x": {1, 2}})
	if !res.Admissibility.OK {
		t.Fatalf("expected log HIR to pass admissibility, got errors: %+v", res.Admissibility.Errors)
	}
	if err == nil {
		t.Fatal("expected emission to fail with E_UNSUPPORTED_OP")
	}
}
