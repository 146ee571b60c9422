package canary

import (
	"fmt"
	"math"

	"github.com/hirforge/hircompile/pkg/hir"
)

// runReference evaluates h directly over n elements, node by node, in
// topological order. It is the fallback engine when the wazero-compiled
// module cannot be run; unlike the original Python runner's fallback (which
// only handled the two-input simple_return template), this evaluates any
// admissible HIR graph, since the fallback must cover whatever module
// failed to load, not one fixed shape.
func runReference(h hir.HIR, inputs map[string][]float64, inputOrder []string, n int) ([]float64, error) {
	byID := make(map[string]hir.Node, len(h.Nodes))
	var declOrder []string
	for _, node := range h.Nodes {
		if _, ok := byID[node.ID]; !ok {
			declOrder = append(declOrder, node.ID)
		}
		byID[node.ID] = node
	}

	topo, err := topoSort(h.Nodes, byID, declOrder)
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	values := make(map[string]float64, len(declOrder))

	for i := 0; i < n; i++ {
		for _, nid := range topo {
			node := byID[nid]
			switch node.Kind {
			case hir.KindInput:
				values[nid] = inputs[node.Name][i]
			case hir.KindConst:
				values[nid] = node.Value
			case hir.KindOp:
				v, err := evalOp(node, values)
				if err != nil {
					return nil, err
				}
				values[nid] = v
			}
		}
		out[i] = values[h.OutputNode]
	}
	return out, nil
}

func topoSort(nodes []hir.Node, byID map[string]hir.Node, declOrder []string) ([]string, error) {
	indeg := make(map[string]int, len(declOrder))
	succ := make(map[string][]string, len(declOrder))
	for _, id := range declOrder {
		indeg[id] = 0
	}
	for _, n := range nodes {
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
		return nil, fmt.Errorf("reference interpreter: HIR graph is not acyclic")
	}
	return topo, nil
}

func evalOp(n hir.Node, values map[string]float64) (float64, error) {
	arg := func(i int) float64 { return values[n.Args[i]] }

	switch n.Op {
	case hir.OpAdd:
		return arg(0) + arg(1), nil
	case hir.OpSub:
		return arg(0) - arg(1), nil
	case hir.OpMul:
		return arg(0) * arg(1), nil
	case hir.OpSafeDiv:
		a, b := arg(0), arg(1)
		if math.Abs(b) < 1e-12 {
			return 0, nil
		}
		return a / b, nil
	case hir.OpNeg:
		return -arg(0), nil
	case hir.OpAbs:
		return math.Abs(arg(0)), nil
	case hir.OpClip:
		x, lo, hi := arg(0), arg(1), arg(2)
		return math.Min(math.Max(x, lo), hi), nil
	case hir.OpLog:
		return math.Log(arg(0)), nil
	case hir.OpExp:
		return math.Exp(arg(0)), nil
	default:
		return 0, fmt.Errorf("reference interpreter: unsupported op %q", n.Op)
	}
}
