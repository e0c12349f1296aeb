package cfg

import "go.uber.org/zap"

// BackEdges returns every edge (u, v) in the graph where v dominates u.
// This includes self-loops (v == u), since a node trivially dominates
// itself.
func (g *Graph) BackEdges() []Edge {
	g.ComputeDominators()

	var edges []Edge
	for _, u := range g.nodesOrder {
		for _, v := range u.Successors {
			if u.DominatedBy(v) {
				edges = append(edges, Edge{Source: u, Target: v})
			}
		}
	}
	return edges
}

// IdentifyLoops populates g.Loops with one Loop per back edge. Natural-loop
// bodies are computed independently per back edge; multiple back edges into
// the same header yield distinct Loop values.
func (g *Graph) IdentifyLoops() {
	edges := g.BackEdges()

	loops := make([]*Loop, 0, len(edges))
	for _, e := range edges {
		loops = append(loops, naturalLoop(e.Source, e.Target))
	}

	g.Loops = loops

	zap.L().Debug("cfg: identified loops", zap.Int("count", len(loops)))
}

// naturalLoop computes the natural loop of back edge (s -> h): start with
// body = {h}, push s, and repeatedly pop a node, insert it, and push its
// predecessors, until the stack is empty.
func naturalLoop(s, h *Node) *Loop {
	body := map[uint32]*Node{h.ID: h}
	stack := []*Node{s}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := body[n.ID]; ok {
			continue
		}
		body[n.ID] = n

		for _, p := range n.Predecessors {
			if _, ok := body[p.ID]; !ok {
				stack = append(stack, p)
			}
		}
	}

	return &Loop{Header: h, Body: body}
}
