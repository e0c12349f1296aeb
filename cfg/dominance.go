package cfg

import "go.uber.org/zap"

// ComputeDominators runs the iterative Cooper-Harvey-Kennedy algorithm. It
// lazily computes the forward ordering if not already present.
func (g *Graph) ComputeDominators() {
	order := g.ForwardOrder()
	if len(order) == 0 {
		return
	}

	// Sentinel: Entry is its own idom for the duration of the algorithm.
	g.Entry.ImmediateDominator = g.Entry

	changed := true
	for changed {
		changed = false

		for _, n := range order {
			if n == g.Entry {
				continue
			}

			var newIdom *Node
			for _, p := range n.Predecessors {
				if p.ImmediateDominator == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(p, newIdom)
			}

			if newIdom == nil {
				continue
			}

			if n.ImmediateDominator != newIdom {
				n.ImmediateDominator = newIdom
				changed = true
			}
		}
	}

	g.Entry.ImmediateDominator = nil

	zap.L().Debug("cfg: computed dominators", zap.Int("reachable_nodes", len(order)))
}

// intersect walks the two nodes' immediate-dominator chains, advancing
// whichever has the higher forward index, until they meet at their nearest
// common dominator.
func intersect(a, b *Node) *Node {
	for a.ForwardIndex != b.ForwardIndex {
		for a.ForwardIndex > b.ForwardIndex {
			a = a.ImmediateDominator
		}
		for b.ForwardIndex > a.ForwardIndex {
			b = b.ImmediateDominator
		}
	}
	return a
}

// ComputeDominatorTree populates each node's Children slice from its
// ImmediateDominator. It is idempotent: repeated calls rebuild Children from
// scratch rather than accumulating duplicates.
func (g *Graph) ComputeDominatorTree() {
	g.ComputeDominators()

	for _, n := range g.nodesOrder {
		n.Children = nil
	}

	for _, n := range g.ForwardOrder() {
		if n == g.Entry {
			continue
		}
		idom := n.ImmediateDominator
		if idom == nil {
			continue
		}
		idom.Children = append(idom.Children, n)
	}
}

// ComputeDominanceFrontiers computes the dominance frontier of every node
// using the Cytron et al. algorithm. It clears existing frontier sets first,
// so it is safe to re-run after graph analysis state changes. It calls
// ComputeDominators itself; ComputeDominators is idempotent, so this is
// cheap if dominators are already current.
func (g *Graph) ComputeDominanceFrontiers() {
	g.ComputeDominators()

	for _, n := range g.nodesOrder {
		n.DominanceFrontier = nil
	}

	frontierSeen := make(map[uint32]map[uint32]bool)

	for _, n := range g.ForwardOrder() {
		if len(n.Predecessors) < 2 {
			continue
		}
		idom := n.ImmediateDominator

		for _, p := range n.Predecessors {
			runner := p
			for runner != idom {
				if frontierSeen[runner.ID] == nil {
					frontierSeen[runner.ID] = make(map[uint32]bool)
				}
				if !frontierSeen[runner.ID][n.ID] {
					frontierSeen[runner.ID][n.ID] = true
					runner.DominanceFrontier = append(runner.DominanceFrontier, n)
				}
				if runner.ImmediateDominator == nil {
					break
				}
				runner = runner.ImmediateDominator
			}
		}
	}
}
