package verify

import (
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

// checkGuardScope runs stage 4 (I5): a node's guard may only reference
// classical events produced by one of its transitive dependencies.
// Referencing an event that is unknown, or that the node cannot
// actually have observed by the time it runs, is a scope violation
// regardless of whether the guard happens to be satisfiable.
func checkGuardScope(g *graph.Graph, anc *ancestry) error {
	producer := map[ids.EVID]ids.NodeID{}
	for _, n := range g.Nodes() {
		for _, ev := range n.Produces {
			producer[ev] = n.ID
		}
	}

	for _, n := range g.Nodes() {
		for _, ev := range n.Guard.Events() {
			src, ok := producer[ev]
			if !ok {
				return fail(StageGuards, KindGuardOutOfScope, n.ID, string(ev),
					"guard on %q references unproduced event %q", n.ID, ev)
			}
			if !anc.isAncestor(src, n.ID) {
				return fail(StageGuards, KindGuardOutOfScope, n.ID, string(ev),
					"guard on %q references event %q produced at %q, which is not a dependency",
					n.ID, ev, src)
			}
		}
	}
	return nil
}
