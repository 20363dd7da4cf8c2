package verify

import (
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"

	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

// buildDepGraph lifts a qvm graph's deps relation into an lvlath
// directed core.Graph, one vertex per node id, one edge dep->node per
// dependency, so stage 2 can reuse lvlath's cycle detection and
// topological sort instead of hand-rolling Kahn's algorithm.
func buildDepGraph(g *graph.Graph) (*core.Graph, error) {
	dg := core.NewGraph(core.WithDirected(true))
	for _, n := range g.Nodes() {
		if err := dg.AddVertex(string(n.ID)); err != nil {
			return nil, fail(StageStructural, KindMalformed, n.ID, "", "duplicate node id: %v", err)
		}
	}
	for _, n := range g.Nodes() {
		for _, dep := range n.Deps {
			if _, ok := g.NodeByID(dep); !ok {
				return nil, fail(StageStructural, KindDangling, n.ID, string(dep), "dep targets unknown node")
			}
			if _, err := dg.AddEdge(string(dep), string(n.ID), 0); err != nil {
				return nil, fail(StageStructural, KindMalformed, n.ID, string(dep), "bad dependency edge: %v", err)
			}
		}
	}
	return dg, nil
}

// TopologicalOrder exposes stage 2's sort for callers that already hold
// a Certificate and just need the dispatch order back (the engine,
// after Certify has already run every check once).
func TopologicalOrder(g *graph.Graph) ([]ids.NodeID, error) {
	return topologicalOrder(g)
}

// topologicalOrder runs stage 2: cycle detection first (so a cyclic
// graph is reported as Cyclic naming a participating node, rather than
// as a generic sort failure), then the Kahn-style topological sort.
func topologicalOrder(g *graph.Graph) ([]ids.NodeID, error) {
	dg, err := buildDepGraph(g)
	if err != nil {
		return nil, err
	}

	if hasCycle, cycles, cerr := dfs.DetectCycles(dg); cerr != nil {
		return nil, fail(StageTopology, KindCyclic, "", "", "cycle detection failed: %v", cerr)
	} else if hasCycle {
		return nil, fail(StageTopology, KindCyclic, ids.NodeID(cycles[0][0]), "",
			"cycle detected: %v", cycles[0])
	}

	order, err := dfs.TopologicalSort(dg)
	if err != nil {
		return nil, fail(StageTopology, KindCyclic, "", "", "topological sort failed: %v", err)
	}

	out := make([]ids.NodeID, len(order))
	for i, id := range order {
		out[i] = ids.NodeID(id)
	}
	return out, nil
}
