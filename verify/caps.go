package verify

import (
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/graph"
)

// checkCapabilityCoverage runs stage 5 (I4): the union of every node's
// declared capabilities must be covered by the token's caps, and each
// node's own declared caps must cover what its opcode actually
// requires — the latter is defense-in-depth against a node that
// under-declares relative to its opcode, which would otherwise let a
// narrowly-scoped token slip past the union check above.
func checkCapabilityCoverage(g *graph.Graph, tokenCaps cap.Capability) error {
	var union cap.Capability
	for _, n := range g.Nodes() {
		required, known := cap.RequiredCaps(n.Op)
		if !known {
			return fail(StageCapability, KindCapabilityCoverage, n.ID, "",
				"unknown opcode %q", n.Op)
		}
		if !n.Caps.Covers(required) {
			return fail(StageCapability, KindUnderDeclared, n.ID, "",
				"node declares %s but op %q requires %s (missing %s)",
				n.Caps, n.Op, required, n.Caps.Missing(required))
		}
		union |= n.Caps
	}
	if !tokenCaps.Covers(union) {
		return fail(StageCapability, KindCapabilityCoverage, "", "",
			"token grants %s but graph requires %s (missing %s)",
			tokenCaps, union, tokenCaps.Missing(union))
	}
	return nil
}
