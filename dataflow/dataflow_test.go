package dataflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txpull/flowcore/cfg"
	"github.com/txpull/flowcore/dataflow"
	"github.com/txpull/flowcore/instr"
)

// defSet is a reaching-definitions lattice value: the set of definition
// sites known to reach a program point, keyed by block label.
type defSet map[string]bool

func union(a, b defSet) defSet {
	out := make(defSet, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

func equalSets(a, b defSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func blockLabel(n *cfg.Node) string {
	if len(n.Instructions) == 0 {
		return ""
	}
	return n.Instructions[0].Label
}

// reachingDefs treats every basic block as defining one value named after
// its own label, and never killing anything. It exists purely to exercise
// the forward fixed-point engine's merge/flow contract.
type reachingDefs struct{}

func (reachingDefs) InitialValue(n *cfg.Node) defSet { return defSet{} }
func (reachingDefs) DefaultValue(n *cfg.Node) defSet { return defSet{} }
func (reachingDefs) Merge(a, b defSet) defSet        { return union(a, b) }
func (reachingDefs) Compare(a, b defSet) bool        { return equalSets(a, b) }

func (reachingDefs) Flow(n *cfg.Node, in defSet) defSet {
	label := blockLabel(n)
	if label == "" {
		return in
	}
	out := make(defSet, len(in)+1)
	for k := range in {
		out[k] = true
	}
	out[label] = true
	return out
}

func buildDiamond(t *testing.T) (*cfg.Graph, map[string]*cfg.Node) {
	t.Helper()
	body := []instr.Instruction{
		{Label: "a", Kind: instr.ConditionalBranch, Target: "c"},
		{Label: "b", Kind: instr.Assignment},
		{Label: "c", Kind: instr.Assignment},
	}
	g, err := cfg.Build(body)
	require.NoError(t, err)

	byLabel := make(map[string]*cfg.Node)
	for _, n := range g.Nodes() {
		if len(n.Instructions) > 0 {
			byLabel[n.Instructions[0].Label] = n
		}
	}
	return g, byLabel
}

func TestForward_ReachingDefinitions(t *testing.T) {
	g, byLabel := buildDiamond(t)

	results := dataflow.Forward[defSet](g, reachingDefs{})

	c := byLabel["c"]
	want := defSet{"a": true, "b": true}
	assert.True(t, equalSets(want, results[c.ID].Input), "expected %v, got %v", want, results[c.ID].Input)
}

func TestForward_RepeatedRunsAgree(t *testing.T) {
	g, _ := buildDiamond(t)

	first := dataflow.Forward[defSet](g, reachingDefs{})
	second := dataflow.Forward[defSet](g, reachingDefs{})

	for id, r := range first {
		assert.True(t, equalSets(r.Output, second[id].Output))
	}
}

func TestForward_EntryOutputIsInitialValue(t *testing.T) {
	g, _ := buildDiamond(t)
	results := dataflow.Forward[defSet](g, reachingDefs{})
	assert.Empty(t, results[g.Entry.ID].Output)
}

// liveness is a backward lattice: the set of block labels live on exit from
// a node, propagated from successors.
type liveness struct{}

func (liveness) InitialValue(n *cfg.Node) defSet { return defSet{} }
func (liveness) DefaultValue(n *cfg.Node) defSet { return defSet{} }
func (liveness) Merge(a, b defSet) defSet        { return union(a, b) }
func (liveness) Compare(a, b defSet) bool        { return equalSets(a, b) }

func (liveness) Flow(n *cfg.Node, in defSet) defSet {
	label := blockLabel(n)
	if label == "" {
		return in
	}
	out := make(defSet, len(in)+1)
	for k := range in {
		out[k] = true
	}
	out[label] = true
	return out
}

func TestBackward_PropagatesFromExit(t *testing.T) {
	g, byLabel := buildDiamond(t)

	results := dataflow.Backward[defSet](g, liveness{})

	a := byLabel["a"]
	assert.True(t, results[a.ID].Output["b"])
	assert.True(t, results[a.ID].Output["c"])
}

func TestBackward_NonTerminatingLoopDoesNotPanic(t *testing.T) {
	// "loop" branches unconditionally to itself and never reaches Exit, so
	// it is absent from BackwardOrder; "a" still has it as a Successor.
	body := []instr.Instruction{
		{Label: "a", Kind: instr.ConditionalBranch, Target: "end"},
		{Label: "loop", Kind: instr.UnconditionalBranch, Target: "loop"},
		{Label: "end", Kind: instr.Return},
	}
	g, err := cfg.Build(body)
	require.NoError(t, err)

	byLabel := make(map[string]*cfg.Node)
	for _, n := range g.Nodes() {
		if len(n.Instructions) > 0 {
			byLabel[n.Instructions[0].Label] = n
		}
	}
	loop := byLabel["loop"]
	require.NotNil(t, loop)

	assert.NotPanics(t, func() {
		results := dataflow.Backward[defSet](g, liveness{})
		assert.Empty(t, results[loop.ID].Input)
	})
}

func TestForward_UnreachablePredecessorDoesNotPanic(t *testing.T) {
	body := []instr.Instruction{
		{Label: "a", Kind: instr.UnconditionalBranch, Target: "c"},
		{Label: "b", Kind: instr.Assignment},
		{Label: "c", Kind: instr.Assignment},
	}
	g, err := cfg.Build(body)
	require.NoError(t, err)

	byLabel := make(map[string]*cfg.Node)
	for _, n := range g.Nodes() {
		if len(n.Instructions) > 0 {
			byLabel[n.Instructions[0].Label] = n
		}
	}
	b := byLabel["b"]
	require.NotNil(t, b)

	assert.NotPanics(t, func() {
		results := dataflow.Forward[defSet](g, reachingDefs{})
		assert.Empty(t, results[b.ID].Output)
	})
}

func TestBackward_RepeatedRunsAgree(t *testing.T) {
	g, _ := buildDiamond(t)

	first := dataflow.Backward[defSet](g, liveness{})
	second := dataflow.Backward[defSet](g, liveness{})

	for id, r := range first {
		assert.True(t, equalSets(r.Input, second[id].Input))
	}
}

// monotoneCounter is a lattice over non-negative ints with max as merge: a
// minimal vehicle for asserting that Forward's output only grows (never
// shrinks) across the nodes of a confluence, which is what the monotonicity
// testable property in spec.md requires of Merge/Flow.
type monotoneCounter struct{}

func (monotoneCounter) InitialValue(n *cfg.Node) int { return 0 }
func (monotoneCounter) DefaultValue(n *cfg.Node) int { return 0 }
func (monotoneCounter) Merge(a, b int) int {
	if a > b {
		return a
	}
	return b
}
func (monotoneCounter) Flow(n *cfg.Node, in int) int { return in + 1 }
func (monotoneCounter) Compare(a, b int) bool        { return a == b }

func TestForward_MonotonicMerge(t *testing.T) {
	g, byLabel := buildDiamond(t)

	results := dataflow.Forward[int](g, monotoneCounter{})

	a, b, c := byLabel["a"], byLabel["b"], byLabel["c"]
	// c merges a's and b's outputs with max, so its input can only be >=
	// either predecessor's output, never less.
	assert.GreaterOrEqual(t, results[c.ID].Input, results[a.ID].Output)
	assert.GreaterOrEqual(t, results[c.ID].Input, results[b.ID].Output)
}
