package hir

import "github.com/hirforge/hircompile/pkg/herr"

// PatchOpKind is the closed set of patch operations a Patch may contain,
// grounded on original_source/src/discos/hir/patch.py's PatchOp literal.
type PatchOpKind string

const (
	PatchAddNode     PatchOpKind = "ADD_NODE"
	PatchRemoveNode  PatchOpKind = "REMOVE_NODE"
	PatchUpdateNode  PatchOpKind = "UPDATE_NODE"
	PatchRewireEdge  PatchOpKind = "REWIRE_EDGE"
	PatchSetMetadata PatchOpKind = "SET_METADATA"
)

// PatchOp is a single patch operation. Only the fields relevant to Kind are
// read; the zero value of the others is ignored.
type PatchOp struct {
	Kind PatchOpKind

	Node   Node           // ADD_NODE
	NodeID string         // REMOVE_NODE, UPDATE_NODE, REWIRE_EDGE
	Fields NodeFields     // UPDATE_NODE
	Args   []string       // REWIRE_EDGE
	Meta   map[string]any // SET_METADATA
}

// NodeFields carries the subset of Node fields an UPDATE_NODE op may
// overwrite; a nil pointer field means "leave as is".
type NodeFields struct {
	Name     *string
	Value    *float64
	Op       *Op
	Args     []string
	ArgsSet  bool
}

// Patch is an ordered list of PatchOp to apply to a HIR.
type Patch struct {
	Ops []PatchOp
}

// ApplyPatch returns a new HIR with p's operations applied in order to h.
// h is never mutated — the result is built from h.Clone(). An invalid
// operation (missing target node, unknown kind) aborts with a structured
// herr.Error and the original h is left untouched by the caller, since
// nothing was assigned back.
//
// Grounded on original_source/src/discos/hir/patch.py's apply_patch, adapted
// from dict surgery to typed slice/map surgery over the HIR value model.
func ApplyPatch(h HIR, p Patch) (HIR, error) {
	out := h.Clone()

	for _, op := range p.Ops {
		switch op.Kind {
		case PatchSetMetadata:
			if out.Metadata == nil {
				out.Metadata = make(map[string]any, len(op.Meta))
			}
			for k, v := range op.Meta {
				out.Metadata[k] = v
			}

		case PatchAddNode:
			out.Nodes = append(out.Nodes, op.Node)

		case PatchRemoveNode:
			filtered := out.Nodes[:0:0]
			for _, n := range out.Nodes {
				if n.ID != op.NodeID {
					filtered = append(filtered, n)
				}
			}
			out.Nodes = filtered

		case PatchUpdateNode:
			idx, ok := indexByID(out.Nodes, op.NodeID)
			if !ok {
				return HIR{}, herr.New(herr.CodePatchMissingNode, "UPDATE_NODE: missing node "+op.NodeID, nil)
			}
			applyFields(&out.Nodes[idx], op.Fields)

		case PatchRewireEdge:
			idx, ok := indexByID(out.Nodes, op.NodeID)
			if !ok {
				return HIR{}, herr.New(herr.CodePatchMissingNode, "REWIRE_EDGE: missing node "+op.NodeID, nil)
			}
			out.Nodes[idx].Args = append([]string(nil), op.Args...)

		default:
			return HIR{}, herr.New(herr.CodePatchUnknownOp, "unknown patch op: "+string(op.Kind), nil)
		}
	}

	return out, nil
}

func indexByID(nodes []Node, id string) (int, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

func applyFields(n *Node, f NodeFields) {
	if f.Name != nil {
		n.Name = *f.Name
	}
	if f.Value != nil {
		n.Value = *f.Value
		n.HasValue = true
	}
	if f.Op != nil {
		n.Op = *f.Op
	}
	if f.ArgsSet {
		n.Args = append([]string(nil), f.Args...)
	}
}
