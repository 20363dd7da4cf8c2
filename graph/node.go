// Package graph implements the QVM graph model (component C1):
// immutable node/graph value types, the guard expression AST, and the
// canonical wire codec (spec §6.1). It performs only structural
// validation — value-range and well-formedness — and leaves every
// richer invariant to the verifier, so the same Graph value can
// describe both admissible and inadmissible programs.
package graph

import (
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/ids"
)

// GuardKind names the shape of a Guard node in the predicate AST.
type GuardKind string

const (
	GuardTrue  GuardKind = "true"
	GuardFalse GuardKind = "false"
	GuardEq    GuardKind = "eq"
	GuardAnd   GuardKind = "and"
)

// Guard is a node in the bounded Boolean guard grammar of spec §3.4:
//
//	pred ::= true | false | ev == 0 | ev == 1 | pred AND pred | (pred)
//
// Parenthesization is structural (nesting), not a distinct node kind.
type Guard struct {
	Kind     GuardKind
	Event    ids.EVID
	Value    int
	Children []*Guard
}

// True returns the always-true guard.
func True() *Guard { return &Guard{Kind: GuardTrue} }

// False returns the always-false guard.
func False() *Guard { return &Guard{Kind: GuardFalse} }

// Eq returns a guard satisfied when event equals value (0 or 1).
func Eq(event ids.EVID, value int) *Guard {
	return &Guard{Kind: GuardEq, Event: event, Value: value}
}

// And returns a guard satisfied when every child is.
func And(children ...*Guard) *Guard {
	return &Guard{Kind: GuardAnd, Children: children}
}

// Eval evaluates g against a set of already-produced classical event
// outcomes. A guard referencing an event not yet in outcomes evaluates
// to false rather than panicking; the verifier's guard-soundness stage
// (I5) is what rules that situation out before execution ever reaches
// Eval.
func (g *Guard) Eval(outcomes map[ids.EVID]int) bool {
	if g == nil {
		return true
	}
	switch g.Kind {
	case GuardTrue:
		return true
	case GuardFalse:
		return false
	case GuardEq:
		v, ok := outcomes[g.Event]
		return ok && v == g.Value
	case GuardAnd:
		for _, c := range g.Children {
			if !c.Eval(outcomes) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Events returns every EV identifier g references, recursively.
func (g *Guard) Events() []ids.EVID {
	if g == nil {
		return nil
	}
	var out []ids.EVID
	var walk func(*Guard)
	walk = func(n *Guard) {
		if n == nil {
			return
		}
		if n.Kind == GuardEq {
			out = append(out, n.Event)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(g)
	return out
}

// Node is one instruction in the graph: an opcode applied to a set of
// virtual-qubit handles, optionally producing classical events,
// optionally guarded by an already-produced outcome.
type Node struct {
	ID       ids.NodeID
	Op       cap.Opcode
	VQs      []ids.VQID
	Produces []ids.EVID
	Args     map[string]any
	Caps     cap.Capability
	Deps     []ids.NodeID
	Guard    *Guard
}

// Graph is an immutable ordered bag of nodes plus a version string
// (spec §3.2). Construct one with Builder; Graph itself exposes only
// read-only accessors.
type Graph struct {
	version  string
	nodes    []Node
	metadata map[string]any
	byID     map[ids.NodeID]int
}

// Version returns the graph's format version string (e.g. "0.1").
func (g *Graph) Version() string { return g.version }

// Nodes returns the graph's nodes in declaration order. The returned
// slice is the graph's own backing array; callers must not mutate it.
func (g *Graph) Nodes() []Node { return g.nodes }

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// NodeByID returns the node with the given id, if present.
func (g *Graph) NodeByID(id ids.NodeID) (Node, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Metadata returns the graph's opaque metadata map (ignored by the
// core; passed through for front-end tooling).
func (g *Graph) Metadata() map[string]any { return g.metadata }
