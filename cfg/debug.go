package cfg

import (
	"fmt"
	"sort"
	"strings"
)

// DOTString renders the graph as a Graphviz DOT digraph, returned as a
// string a caller can write anywhere rather than unconditionally printing
// to stdout. This is a debug aid, not a serialization format the core
// commits to.
func (g *Graph) DOTString() string {
	var b strings.Builder
	b.WriteString("digraph cfg {\n")

	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	for _, n := range nodes {
		b.WriteString(fmt.Sprintf("  n%d [label=%q];\n", n.ID, nodeLabel(n)))
	}
	for _, n := range nodes {
		succs := make([]*Node, len(n.Successors))
		copy(succs, n.Successors)
		sort.Slice(succs, func(i, j int) bool { return succs[i].ID < succs[j].ID })
		for _, s := range succs {
			b.WriteString(fmt.Sprintf("  n%d -> n%d;\n", n.ID, s.ID))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func nodeLabel(n *Node) string {
	switch n.Kind {
	case EntryNode:
		return "entry"
	case ExitNode:
		return "exit"
	default:
		if len(n.Instructions) == 0 {
			return fmt.Sprintf("block %d", n.ID)
		}
		return n.Instructions[0].Label
	}
}

// IsReducible reports whether the graph is reducible: every back edge's
// target must dominate its source for all retreating edges found by the
// forward DFS, i.e. removing every back edge leaves a DAG. Callers that want
// to merge natural loops into single-entry regions need this to know the
// merge is well-defined.
func (g *Graph) IsReducible() bool {
	g.ComputeDominators()

	for _, u := range g.nodesOrder {
		for _, v := range u.Successors {
			if v.ForwardIndex != -1 && v.ForwardIndex <= u.ForwardIndex {
				// retreating edge: must be a back edge (v dominates u).
				if !u.DominatedBy(v) {
					return false
				}
			}
		}
	}
	return true
}
