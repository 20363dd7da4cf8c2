package verify

import (
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

// checkFirewallIntent runs stage 6 (I8): TELEPORT_CNOT is the sole
// opcode allowed to bridge two tenants' qubits, and it may only do so
// through a channel that is actually open at that point in the graph
// and declared with the capability that lets it touch the channel at
// all, not just perform the teleport protocol.
func checkFirewallIntent(g *graph.Graph, order []ids.NodeID, anc *ancestry) error {
	pos := make(map[ids.NodeID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}

	// openAt/closeAt record, per channel, the touches that open and
	// close it, so a teleport node's "is my channel live here" check
	// can be answered by nearest-ancestor lookup.
	opens := map[ids.CHID][]ids.NodeID{}
	closes := map[ids.CHID][]ids.NodeID{}
	for _, n := range g.Nodes() {
		shape := Shape(n.Op)
		chID, ok := ChanID(n)
		if !ok {
			continue
		}
		if shape.OpensChan {
			opens[chID] = append(opens[chID], n.ID)
		}
		if shape.ClosesChan {
			closes[chID] = append(closes[chID], n.ID)
		}
	}

	for _, n := range g.Nodes() {
		if !Shape(n.Op).UsesChan {
			continue
		}
		chID, ok := ChanID(n)
		if !ok {
			return fail(StageFirewall, KindFirewallIntent, n.ID, "",
				"op %q requires an open channel but names none in args", n.Op)
		}
		if !n.Caps.Has(cap.CapLink) {
			return fail(StageFirewall, KindFirewallIntent, n.ID, string(chID),
				"op %q touches channel %q without declaring %s", n.Op, chID, cap.CapLink)
		}

		opener := nearestAncestor(n.ID, opens[chID], pos, anc)
		if opener == "" {
			return fail(StageFirewall, KindFirewallIntent, n.ID, string(chID),
				"channel %q is not open at %q", chID, n.ID)
		}
		if closer := nearestAncestor(n.ID, closes[chID], pos, anc); closer != "" && pos[closer] > pos[opener] {
			return fail(StageFirewall, KindFirewallIntent, n.ID, string(chID),
				"channel %q was already closed at %q before %q", chID, closer, n.ID)
		}
	}
	return nil
}

// nearestAncestor returns whichever id in candidates is an ancestor of
// target and closest to it in topological position, or "" if none is.
func nearestAncestor(target ids.NodeID, candidates []ids.NodeID, pos map[ids.NodeID]int, anc *ancestry) ids.NodeID {
	var best ids.NodeID
	for _, c := range candidates {
		if !anc.isAncestor(c, target) {
			continue
		}
		if best == "" || pos[c] > pos[best] {
			best = c
		}
	}
	return best
}
