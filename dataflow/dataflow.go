// Package dataflow is a generic fixed-point dataflow engine: forward and
// backward analyses parameterised by a caller-supplied lattice, wired by
// dependency injection rather than an inheritance hierarchy of virtual
// hooks.
package dataflow

import (
	"go.uber.org/zap"

	"github.com/txpull/flowcore/cfg"
)

// Lattice is the contract a caller implements to run an analysis. Merge must
// be commutative and associative and produce a result >= each operand in the
// lattice order; Flow must be monotonic. Neither property is checked at
// runtime; a non-monotonic Flow/Merge causes the engine to diverge.
type Lattice[T any] interface {
	// InitialValue is the boundary value applied at Entry (forward) or Exit
	// (backward).
	InitialValue(n *cfg.Node) T
	// DefaultValue seeds every non-boundary node before the first iteration.
	DefaultValue(n *cfg.Node) T
	// Merge joins (meets) two lattice points at a control-flow confluence.
	Merge(a, b T) T
	// Flow is the transfer function for node n given its merged input.
	Flow(n *cfg.Node, in T) T
	// Compare reports whether a and b are equal, for fixed-point detection.
	Compare(a, b T) bool
}

// Result holds the input and output lattice values computed for one node.
type Result[T any] struct {
	Input  T
	Output T
}

// Results indexes Result[T] by node id.
type Results[T any] map[uint32]*Result[T]

// Forward runs the forward fixed-point iteration: boundary value at Entry,
// default elsewhere, then repeated passes in forward order merging
// predecessor outputs until no node's output changes.
func Forward[T any](g *cfg.Graph, lattice Lattice[T]) Results[T] {
	order := g.ForwardOrder()
	nodes := g.Nodes()
	results := make(Results[T], len(nodes))

	// Seed every node in the graph, not just the ones in forward order: a
	// node's Predecessors/Successors can include neighbors outside the
	// reachable-from-Entry set (e.g. an unreachable block feeding back into
	// reachable code), and mergeField looks those up by id.
	for _, n := range nodes {
		if n == g.Entry {
			results[n.ID] = &Result[T]{Output: lattice.InitialValue(n)}
		} else {
			results[n.ID] = &Result[T]{Output: lattice.DefaultValue(n)}
		}
	}

	iterations := 0
	changed := true
	for changed {
		changed = false
		iterations++

		for _, n := range order {
			if n == g.Entry {
				continue
			}

			in := mergeAll(n.Predecessors, results, lattice)
			results[n.ID].Input = in

			newOutput := lattice.Flow(n, in)
			if !lattice.Compare(newOutput, results[n.ID].Output) {
				results[n.ID].Output = newOutput
				changed = true
			}
		}
	}

	zap.L().Debug("dataflow: forward analysis converged", zap.Int("iterations", iterations), zap.Int("nodes", len(order)))

	return results
}

// Backward runs the symmetric backward fixed-point iteration: boundary value
// at Exit, default elsewhere, merging successor inputs in backward order.
func Backward[T any](g *cfg.Graph, lattice Lattice[T]) Results[T] {
	order := g.BackwardOrder()
	nodes := g.Nodes()
	results := make(Results[T], len(nodes))

	// Seed every node in the graph, not just the ones in backward order: a
	// node that never reaches Exit (e.g. the body of a non-terminating loop)
	// is absent from BackwardOrder but can still be a Successor of a node
	// that does reach Exit.
	for _, n := range nodes {
		if n == g.Exit {
			results[n.ID] = &Result[T]{Input: lattice.InitialValue(n)}
		} else {
			results[n.ID] = &Result[T]{Input: lattice.DefaultValue(n)}
		}
	}

	iterations := 0
	changed := true
	for changed {
		changed = false
		iterations++

		for _, n := range order {
			if n == g.Exit {
				continue
			}

			out := mergeField(n.Successors, results, lattice, func(r *Result[T]) T { return r.Input })
			results[n.ID].Output = out

			newInput := lattice.Flow(n, out)
			if !lattice.Compare(newInput, results[n.ID].Input) {
				results[n.ID].Input = newInput
				changed = true
			}
		}
	}

	zap.L().Debug("dataflow: backward analysis converged", zap.Int("iterations", iterations), zap.Int("nodes", len(order)))

	return results
}

// mergeAll merges the Output value of every node in ns. With zero nodes the
// result is the caller's responsibility to never request: every
// Entry-reachable non-Entry node is guaranteed at least one predecessor by
// construction, so mergeAll panics in the zero case to surface a bug in the
// caller rather than silently returning a zero value.
func mergeAll[T any](ns []*cfg.Node, results Results[T], lattice Lattice[T]) T {
	return mergeField(ns, results, lattice, func(r *Result[T]) T { return r.Output })
}

// mergeField merges field(results[n.ID]) across every node in ns. Forward
// merges predecessors' Output; Backward merges successors' Input; both share
// this one fixed-point join loop.
func mergeField[T any](ns []*cfg.Node, results Results[T], lattice Lattice[T], field func(*Result[T]) T) T {
	if len(ns) == 0 {
		panic("dataflow: merge requested over zero nodes")
	}

	acc := field(results[ns[0].ID])
	for _, n := range ns[1:] {
		acc = lattice.Merge(acc, field(results[n.ID]))
	}
	return acc
}
