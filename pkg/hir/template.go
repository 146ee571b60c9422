package hir

// SimpleReturnTemplate returns the canonical "(close - open) / open" HIR
// graph used throughout spec §8's worked examples, tagged with name in its
// metadata.
//
// Grounded on original_source/src/discos/hir/alphahir.py's
// alphahir_template_simple_return — the one graph shape the original
// ships as a ready-made fixture for its CLI's "alphahir new" subcommand.
func SimpleReturnTemplate(name string) HIR {
	return HIR{
		Version: "0.1.0",
		Inputs: map[string]InputSpec{
			"open":  {DType: "f64", PDS: "USD"},
			"close": {DType: "f64", PDS: "USD"},
		},
		Nodes: []Node{
			{ID: "n_open", Kind: KindInput, Name: "open"},
			{ID: "n_close", Kind: KindInput, Name: "close"},
			{ID: "n_num", Kind: KindOp, Op: OpSub, Args: []string{"n_close", "n_open"}},
			{ID: "n_out", Kind: KindOp, Op: OpSafeDiv, Args: []string{"n_num", "n_open"}},
		},
		OutputNode:        "n_out",
		DeclaredOutputPDS: "1",
		Metadata:          map[string]any{"name": name},
	}
}
