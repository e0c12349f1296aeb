// Package cfg builds and analyses control-flow graphs over a linear
// instruction stream: two-pass construction (cfg/builder.go), forward/
// backward topological orderings (cfg/order.go), dominator analysis
// (cfg/dominance.go) and natural-loop identification (cfg/loops.go).
//
// Nodes are addressed by integer id and owned by the Graph arena;
// predecessor/successor links never cross graph boundaries, so there are no
// ownership cycles to manage.
package cfg

import (
	"errors"
	"fmt"

	"github.com/txpull/flowcore/instr"
)

// ErrUnknownBranchTarget is returned by Build when a branch instruction's
// target label is not present anywhere in the instruction stream.
var ErrUnknownBranchTarget = errors.New("cfg: unknown branch target")

// ErrOrderingRequired documents the contract that dominator analysis
// requires the forward ordering. This package always computes it lazily, so
// this sentinel is never returned in practice; it exists so tests can assert
// the lazy-computation choice was honored.
var ErrOrderingRequired = errors.New("cfg: forward ordering not computed")

// NodeKind discriminates the three kinds of node a Graph holds.
type NodeKind int

const (
	EntryNode NodeKind = iota
	ExitNode
	BasicBlock
)

func (k NodeKind) String() string {
	switch k {
	case EntryNode:
		return "Entry"
	case ExitNode:
		return "Exit"
	default:
		return "BasicBlock"
	}
}

// Node is one vertex of a Graph. Predecessor/successor sets are stored both
// as a membership map (O(1) dedup on edge insertion) and an insertion-
// ordered slice (deterministic iteration); tests should still sort by id,
// since insertion order alone is not part of the contract.
type Node struct {
	ID   uint32
	Kind NodeKind

	Instructions []instr.Instruction

	Predecessors []*Node
	Successors   []*Node
	predSeen     map[uint32]bool
	succSeen     map[uint32]bool

	// ForwardIndex/BackwardIndex hold this node's position in the forward
	// (Entry-rooted) and backward (Exit-rooted) reverse-post-order
	// numberings. -1 means not yet computed, or unreachable.
	ForwardIndex  int32
	BackwardIndex int32

	// ImmediateDominator is nil until dominator analysis runs, and nil again
	// for Entry once analysis completes (Entry has no dominator).
	ImmediateDominator *Node
	// Children holds this node's dominator-tree children.
	Children []*Node
	// DominanceFrontier holds this node's dominance frontier set.
	DominanceFrontier []*Node
}

func newNode(id uint32, kind NodeKind) *Node {
	return &Node{
		ID:            id,
		Kind:          kind,
		ForwardIndex:  -1,
		BackwardIndex: -1,
		predSeen:      make(map[uint32]bool),
		succSeen:      make(map[uint32]bool),
	}
}

// Dominators returns the chain {n, idom(n), idom(idom(n)), ...} ending at
// Entry, recomputed on demand from the ImmediateDominator chain rather than
// cached. A node whose dominator chain has not been computed
// (ImmediateDominator == nil and n is not Entry) has only itself as a
// dominator.
func (n *Node) Dominators() []*Node {
	chain := []*Node{n}
	for cur := n.ImmediateDominator; cur != nil; cur = cur.ImmediateDominator {
		chain = append(chain, cur)
	}
	return chain
}

// DominatedBy reports whether d appears in n's dominator chain, i.e. d
// dominates n (d may equal n).
func (n *Node) DominatedBy(d *Node) bool {
	for _, anc := range n.Dominators() {
		if anc == d {
			return true
		}
	}
	return false
}

// Edge is a value type identifying a directed control-flow edge. It is used
// only to describe back-edge sets; the graph itself stores edges as
// predecessor/successor pointers on Node.
type Edge struct {
	Source *Node
	Target *Node
}

// Loop is one natural loop, identified by its back edge's header. Multiple
// back edges into the same header produce distinct Loop values; merging
// bodies across them is left to callers.
type Loop struct {
	Header *Node
	Body   map[uint32]*Node
}

// Contains reports whether n is part of the loop body.
func (l *Loop) Contains(n *Node) bool {
	_, ok := l.Body[n.ID]
	return ok
}

// Graph is a built control-flow graph: an arena of Nodes reachable through
// Entry/Exit, plus whatever analyses have run so far.
type Graph struct {
	Entry *Node
	Exit  *Node

	nodes      map[uint32]*Node
	nodesOrder []*Node // insertion order == id order: 0, 1, 2, 3, ...

	forwardOrder  []*Node
	backwardOrder []*Node

	Loops []*Loop
}

// Nodes returns every node in the graph, ordered by id (deterministic).
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodesOrder))
	copy(out, g.nodesOrder)
	return out
}

// Node looks up a node by id.
func (g *Graph) Node(id uint32) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) newNode(kind NodeKind) *Node {
	id := uint32(len(g.nodesOrder))
	n := newNode(id, kind)
	g.nodes[id] = n
	g.nodesOrder = append(g.nodesOrder, n)
	return n
}

// addEdge inserts a directed edge with set semantics: repeated insertion of
// the same (from, to) pair is a no-op.
func (g *Graph) addEdge(from, to *Node) {
	if !from.succSeen[to.ID] {
		from.succSeen[to.ID] = true
		from.Successors = append(from.Successors, to)
	}
	if !to.predSeen[from.ID] {
		to.predSeen[from.ID] = true
		to.Predecessors = append(to.Predecessors, from)
	}
}

func unknownTarget(label string) error {
	return fmt.Errorf("%w: %q", ErrUnknownBranchTarget, label)
}
