package cfg

import (
	"go.uber.org/zap"

	"github.com/txpull/flowcore/instr"
)

// Build constructs a Graph from a method body: an ordered sequence of
// instructions, each carrying a label unique within the body. Construction
// is two-pass: leader identification, then node connection. It fails with
// ErrUnknownBranchTarget if any branch targets a label absent from body; no
// partial graph is returned in that case.
func Build(body []instr.Instruction) (*Graph, error) {
	g := &Graph{nodes: make(map[uint32]*Node)}
	g.Entry = g.newNode(EntryNode)
	g.Exit = g.newNode(ExitNode)

	if len(body) == 0 {
		return g, nil
	}

	byLabel, order, err := identifyLeaders(body)
	if err != nil {
		return nil, err
	}

	leaderNodes := make(map[string]*Node, len(order))
	for _, label := range order {
		leaderNodes[label] = g.newNode(BasicBlock)
	}

	if err := connect(g, body, byLabel, leaderNodes); err != nil {
		return nil, err
	}

	zap.L().Debug("cfg: built graph",
		zap.Int("instructions", len(body)),
		zap.Int("blocks", len(leaderNodes)),
	)

	return g, nil
}

// identifyLeaders runs pass 1: it returns, for every instruction label,
// whether that label starts a basic block, and the leader labels in
// first-seen order (the order node ids are assigned in).
func identifyLeaders(body []instr.Instruction) (byLabel map[string]bool, order []string, err error) {
	labels := make(map[string]bool, len(body))
	for _, i := range body {
		labels[i.Label] = true
	}

	byLabel = make(map[string]bool)
	order = []string{}

	markLeader := func(label string) {
		if !byLabel[label] {
			byLabel[label] = true
			order = append(order, label)
		}
	}

	nextIsLeader := true
	for _, i := range body {
		if nextIsLeader || i.IsLeaderKind() {
			markLeader(i.Label)
		}

		nextIsLeader = false
		if i.IsBranch() {
			if !labels[i.Target] {
				return nil, nil, unknownTarget(i.Target)
			}
			markLeader(i.Target)
			nextIsLeader = true
		} else if i.Kind == instr.Return {
			nextIsLeader = true
		}
	}

	return byLabel, order, nil
}

// connect runs pass 2: it walks the body again, attaching each instruction
// to its enclosing basic block and wiring fall-through and branch edges
// (including Entry->first-block and every exit point->Exit).
func connect(g *Graph, body []instr.Instruction, byLabel map[string]bool, leaderNodes map[string]*Node) error {
	current := g.Entry
	connectWithPrevious := true

	for _, i := range body {
		if byLabel[i.Label] {
			previous := current
			current = leaderNodes[i.Label]
			if connectWithPrevious {
				g.addEdge(previous, current)
			}
			connectWithPrevious = true
		}

		current.Instructions = append(current.Instructions, i)

		if i.IsBranch() {
			target, ok := leaderNodes[i.Target]
			if !ok {
				return unknownTarget(i.Target)
			}
			g.addEdge(current, target)
			connectWithPrevious = i.HasFallthrough()
		}

		// Every Return gets an Exit edge, including a Return inside a finally
		// block: enclosing protected regions are not modelled.
		if i.Kind == instr.Return {
			g.addEdge(current, g.Exit)
		}
	}

	g.addEdge(current, g.Exit)

	return nil
}
