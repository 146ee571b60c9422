// Package hir provides the typed representation of a Hypothesis IR: a
// directed acyclic graph of pure numeric operations with a declared output
// node and declared output dimension (spec §3). Node kinds are modeled as a
// tagged variant (input/const/op), not an inheritance hierarchy, per spec §9.
//
// Grounded on original_source/src/discos/hir/alphahir.py for field shape and
// on the teacher's pkg/manifest.Bundle for the content-addressed-value idiom.
package hir

// NodeKind tags which variant a Node is.
type NodeKind string

const (
	KindInput NodeKind = "input"
	KindConst NodeKind = "const"
	KindOp    NodeKind = "op"
)

// Op is an operator symbol drawn from the closed whitelist of spec §3.
type Op string

const (
	OpAdd     Op = "add"
	OpSub     Op = "sub"
	OpMul     Op = "mul"
	OpSafeDiv Op = "safe_div"
	OpNeg     Op = "neg"
	OpAbs     Op = "abs"
	OpClip    Op = "clip"
	OpLog     Op = "log"
	OpExp     Op = "exp"
)

// AllowedOps is the closed operator whitelist (spec §3).
var AllowedOps = map[Op]bool{
	OpAdd: true, OpSub: true, OpMul: true, OpSafeDiv: true,
	OpNeg: true, OpAbs: true, OpClip: true, OpLog: true, OpExp: true,
}

// OpArity gives the fixed argument count for each allowed operator.
var OpArity = map[Op]int{
	OpNeg: 1, OpAbs: 1, OpLog: 1, OpExp: 1,
	OpAdd: 2, OpSub: 2, OpMul: 2, OpSafeDiv: 2,
	OpClip: 3,
}

// PureLowerableOps is the subset of AllowedOps the WAT Emitter can lower in
// the pure (import-free) profile (spec §4.4) — log/exp are admissible but
// unlowerable here (spec §9 Open Question).
var PureLowerableOps = map[Op]bool{
	OpAdd: true, OpSub: true, OpMul: true, OpSafeDiv: true,
	OpNeg: true, OpAbs: true, OpClip: true,
}

// Node is a single DAG node: an input reference, a constant, or an operator
// application. Exactly one of the kind-specific fields is meaningful,
// selected by Kind.
type Node struct {
	ID string

	// input
	Name string

	// const
	Value    float64
	HasValue bool

	// op
	Op   Op
	Args []string

	Kind NodeKind
}

// InputSpec declares an input column's dtype and physical dimension.
type InputSpec struct {
	DType string // only "f64" is supported
	PDS   string
}

// HIR is an immutable directed acyclic graph of nodes plus a declared
// output. Patches never mutate a HIR in place — see Patch/ApplyPatch — they
// produce a new HIR with a new digest.
type HIR struct {
	Version           string
	Inputs            map[string]InputSpec
	Nodes             []Node
	OutputNode        string
	DeclaredOutputPDS string
	Metadata          map[string]any
}

// NodeByID returns the last node in Nodes with the given id, matching the
// admissibility checker's duplicate-id tolerant lookup semantics.
func (h HIR) NodeByID(id string) (Node, bool) {
	for i := len(h.Nodes) - 1; i >= 0; i-- {
		if h.Nodes[i].ID == id {
			return h.Nodes[i], true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy of h, used as the basis for patch application so
// the original HIR value is never mutated.
func (h HIR) Clone() HIR {
	out := HIR{
		Version:           h.Version,
		OutputNode:        h.OutputNode,
		DeclaredOutputPDS: h.DeclaredOutputPDS,
	}
	if h.Inputs != nil {
		out.Inputs = make(map[string]InputSpec, len(h.Inputs))
		for k, v := range h.Inputs {
			out.Inputs[k] = v
		}
	}
	if h.Nodes != nil {
		out.Nodes = make([]Node, len(h.Nodes))
		for i, n := range h.Nodes {
			cp := n
			if n.Args != nil {
				cp.Args = append([]string(nil), n.Args...)
			}
			out.Nodes[i] = cp
		}
	}
	if h.Metadata != nil {
		out.Metadata = deepCopyValue(h.Metadata).(map[string]any)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopyValue(val)
		}
		return out
	default:
		return v
	}
}

// CanonicalValue renders the HIR as the map[string]any shape described by
// spec §6, suitable for canonicalize.Canonical. Node fields that do not
// belong to a node's kind are omitted, and absent metadata is rendered as an
// empty map; nothing is emitted as null.
func (h HIR) CanonicalValue() map[string]any {
	inputs := make(map[string]any, len(h.Inputs))
	for name, spec := range h.Inputs {
		inputs[name] = map[string]any{
			"dtype": spec.DType,
			"pds":   spec.PDS,
		}
	}

	nodes := make([]any, 0, len(h.Nodes))
	for _, n := range h.Nodes {
		nodes = append(nodes, n.canonicalValue())
	}

	out := map[string]any{
		"version":             h.Version,
		"inputs":              inputs,
		"nodes":               nodes,
		"output_node":         h.OutputNode,
		"declared_output_pds": h.DeclaredOutputPDS,
	}
	if len(h.Metadata) > 0 {
		out["metadata"] = h.Metadata
	} else {
		out["metadata"] = map[string]any{}
	}
	return out
}

func (n Node) canonicalValue() map[string]any {
	m := map[string]any{
		"id":   n.ID,
		"kind": string(n.Kind),
	}
	switch n.Kind {
	case KindInput:
		m["name"] = n.Name
	case KindConst:
		m["value"] = n.Value
	case KindOp:
		m["op"] = string(n.Op)
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			args[i] = a
		}
		m["args"] = args
	}
	return m
}
