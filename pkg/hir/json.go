package hir

import (
	"encoding/json"
	"fmt"
)

type inputSpecJSON struct {
	DType string `json:"dtype"`
	PDS   string `json:"pds"`
}

type nodeJSON struct {
	ID    string   `json:"id"`
	Kind  string   `json:"kind"`
	Name  string   `json:"name,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Op    string   `json:"op,omitempty"`
	Args  []string `json:"args,omitempty"`
}

type hirJSON struct {
	Version           string                   `json:"version"`
	Inputs            map[string]inputSpecJSON `json:"inputs"`
	Nodes             []nodeJSON               `json:"nodes"`
	OutputNode        string                   `json:"output_node"`
	DeclaredOutputPDS string                   `json:"declared_output_pds"`
	Metadata          map[string]any           `json:"metadata,omitempty"`
}

// MarshalJSON renders h in the wire shape of spec §6, omitting absent
// optional fields rather than emitting them as null.
func (h HIR) MarshalJSON() ([]byte, error) {
	w := hirJSON{
		Version:           h.Version,
		Inputs:            make(map[string]inputSpecJSON, len(h.Inputs)),
		Nodes:             make([]nodeJSON, 0, len(h.Nodes)),
		OutputNode:        h.OutputNode,
		DeclaredOutputPDS: h.DeclaredOutputPDS,
		Metadata:          h.Metadata,
	}
	for name, spec := range h.Inputs {
		w.Inputs[name] = inputSpecJSON{DType: spec.DType, PDS: spec.PDS}
	}
	for _, n := range h.Nodes {
		nj := nodeJSON{ID: n.ID, Kind: string(n.Kind)}
		switch n.Kind {
		case KindInput:
			nj.Name = n.Name
		case KindConst:
			v := n.Value
			nj.Value = &v
		case KindOp:
			nj.Op = string(n.Op)
			nj.Args = n.Args
		}
		w.Nodes = append(w.Nodes, nj)
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire shape of spec §6 into a typed HIR. It does
// not validate admissibility — callers should run the Admissibility Checker
// on the result before acting on it.
func (h *HIR) UnmarshalJSON(data []byte) error {
	var w hirJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("hir: malformed JSON: %w", err)
	}

	out := HIR{
		Version:           w.Version,
		Inputs:            make(map[string]InputSpec, len(w.Inputs)),
		Nodes:             make([]Node, 0, len(w.Nodes)),
		OutputNode:        w.OutputNode,
		DeclaredOutputPDS: w.DeclaredOutputPDS,
		Metadata:          w.Metadata,
	}
	for name, spec := range w.Inputs {
		out.Inputs[name] = InputSpec{DType: spec.DType, PDS: spec.PDS}
	}
	for _, nj := range w.Nodes {
		n := Node{ID: nj.ID, Kind: NodeKind(nj.Kind), Name: nj.Name, Op: Op(nj.Op), Args: nj.Args}
		if nj.Value != nil {
			n.Value = *nj.Value
			n.HasValue = true
		}
		out.Nodes = append(out.Nodes, n)
	}
	*h = out
	return nil
}
