package verify

import (
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

// touch records one node's use of a handle (a VQ or a CH), in the
// order stage 2 placed it.
type touch struct {
	node  ids.NodeID
	pos   int
	role  handleRole
	guard *graph.Guard
}

type handleRole int

const (
	roleProduce handleRole = iota
	rolePass
	roleTerminal
)

// ancestry answers "is a an ancestor of b" over the dependency DAG,
// precomputed once per Certify call so linearity and guard-scope
// checks (stage 4) can share it.
type ancestry struct {
	ancestors map[ids.NodeID]map[ids.NodeID]bool
}

func buildAncestry(g *graph.Graph) *ancestry {
	memo := make(map[ids.NodeID]map[ids.NodeID]bool, g.Len())
	var compute func(id ids.NodeID) map[ids.NodeID]bool
	compute = func(id ids.NodeID) map[ids.NodeID]bool {
		if set, ok := memo[id]; ok {
			return set
		}
		set := map[ids.NodeID]bool{}
		memo[id] = set // break cycles defensively; stage 2 has already ruled them out
		n, ok := g.NodeByID(id)
		if !ok {
			return set
		}
		for _, dep := range n.Deps {
			set[dep] = true
			for a := range compute(dep) {
				set[a] = true
			}
		}
		return set
	}
	for _, n := range g.Nodes() {
		compute(n.ID)
	}
	return &ancestry{ancestors: memo}
}

func (a *ancestry) isAncestor(anc, of ids.NodeID) bool {
	return a.ancestors[of][anc]
}

// checkLinearity runs stage 3 (I2, I3): every VQ and CH identifier
// must be produced exactly once and either consumed along every
// reachable path or left live only behind mutually exclusive,
// unreached guarded branches.
func checkLinearity(g *graph.Graph, order []ids.NodeID, anc *ancestry) error {
	vqTouches := map[ids.VQID][]touch{}
	chTouches := map[ids.CHID][]touch{}

	for pos, id := range order {
		n, _ := g.NodeByID(id)
		shape := Shape(n.Op)

		role := rolePass
		switch {
		case shape.ProducesVQ:
			role = roleProduce
		case shape.ConsumesVQ:
			role = roleTerminal
		}
		for _, vq := range n.VQs {
			vqTouches[vq] = append(vqTouches[vq], touch{node: n.ID, pos: pos, role: role, guard: n.Guard})
		}

		if chID, ok := ChanID(n); ok {
			chRole := rolePass
			switch {
			case shape.OpensChan:
				chRole = roleProduce
			case shape.ClosesChan:
				chRole = roleTerminal
			}
			chTouches[chID] = append(chTouches[chID], touch{node: n.ID, pos: pos, role: chRole, guard: n.Guard})
		}
	}

	for vq, ts := range vqTouches {
		if err := checkHandleLinearity(string(vq), ts, anc); err != nil {
			return err
		}
	}
	for ch, ts := range chTouches {
		if err := checkHandleLinearity(string(ch), ts, anc); err != nil {
			return err
		}
	}
	return nil
}

// checkHandleLinearity validates one handle's touch sequence: exactly
// one producer, every non-producer touch has a legal, not-already-
// consumed predecessor among its ancestors, and every touch left
// unconsumed at the end is either terminal or a guarded sibling of a
// terminal consumer (a legitimate unexercised branch).
func checkHandleLinearity(handle string, ts []touch, anc *ancestry) error {
	var producer *touch
	for i := range ts {
		if ts[i].role == roleProduce {
			if producer != nil {
				return fail(StageLinearity, KindReDefinition, ts[i].node, handle,
					"handle %q produced more than once (first at %q)", handle, producer.node)
			}
			p := ts[i]
			producer = &p
		}
	}
	if producer == nil {
		return fail(StageLinearity, KindDangling, ts[0].node, handle,
			"handle %q used without a producing node", handle)
	}

	// consumedBy[i] is true once some later touch names ts[i] as its
	// predecessor; a touch no one consumes is a leaf at graph end.
	consumedBy := make([]bool, len(ts))
	// siblings groups touches by the index of their shared predecessor,
	// so branch points with more than one child can be checked for
	// guard exclusivity below.
	siblings := map[int][]int{}
	for i, t := range ts {
		if t.role == roleProduce {
			continue
		}
		// Find the predecessor touch: the ancestor touch with the
		// greatest topological position (the nearest one on t's path).
		predIdx := -1
		for j := range ts {
			if j == i {
				continue
			}
			if ts[j].pos >= t.pos {
				continue
			}
			if !anc.isAncestor(ts[j].node, t.node) {
				continue
			}
			if predIdx == -1 || ts[j].pos > ts[predIdx].pos {
				predIdx = j
			}
		}
		if predIdx == -1 {
			return fail(StageLinearity, KindDangling, t.node, handle,
				"handle %q used at %q with no reachable producer", handle, t.node)
		}
		pred := ts[predIdx]
		if pred.role == roleTerminal {
			return fail(StageLinearity, KindUseAfterFree, t.node, handle,
				"handle %q reused at %q after being consumed at %q", handle, t.node, pred.node)
		}
		consumedBy[predIdx] = true
		siblings[predIdx] = append(siblings[predIdx], i)
	}

	for predIdx, children := range siblings {
		if len(children) < 2 {
			continue
		}
		if err := checkSiblingExclusivity(handle, ts[predIdx].node, ts, children); err != nil {
			return err
		}
	}

	for i, t := range ts {
		if consumedBy[i] {
			continue
		}
		if t.role == roleTerminal {
			continue // consumed here, nothing downstream needed
		}
		return fail(StageLinearity, KindLeaked, t.node, handle,
			"handle %q still live at graph end (last touched at %q, never consumed)", handle, t.node)
	}
	return nil
}

// checkSiblingExclusivity requires that when more than one touch
// shares the same immediate predecessor (an unordered branch on the
// same handle), every pair is provably mutually exclusive by guard —
// otherwise both could fire for the same logical handle at once.
func checkSiblingExclusivity(handle string, branchPoint ids.NodeID, ts []touch, children []int) error {
	for a := 0; a < len(children); a++ {
		for b := a + 1; b < len(children); b++ {
			ta, tb := ts[children[a]], ts[children[b]]
			if !mutuallyExclusive(ta.guard, tb.guard) {
				return fail(StageLinearity, KindReDefinition, tb.node, handle,
					"handle %q has concurrent, non-exclusive uses at %q and %q off branch point %q",
					handle, ta.node, tb.node, branchPoint)
			}
		}
	}
	return nil
}

// mutuallyExclusive reports whether g1 and g2 can be proven never to
// hold simultaneously: either one is unconditionally false, or they
// constrain a common event to different values.
func mutuallyExclusive(g1, g2 *graph.Guard) bool {
	if isFalse(g1) || isFalse(g2) {
		return true
	}
	e1 := flattenEq(g1)
	e2 := flattenEq(g2)
	for ev, v1 := range e1 {
		if v2, ok := e2[ev]; ok && v1 != v2 {
			return true
		}
	}
	return false
}

func isFalse(g *graph.Guard) bool {
	return g != nil && g.Kind == graph.GuardFalse
}

// flattenEq collects the event==value constraints a (possibly nested)
// AND-of-Eq guard implies. Guards outside that shape contribute nothing.
func flattenEq(g *graph.Guard) map[ids.EVID]int {
	out := map[ids.EVID]int{}
	var walk func(*graph.Guard)
	walk = func(n *graph.Guard) {
		if n == nil {
			return
		}
		switch n.Kind {
		case graph.GuardEq:
			out[n.Event] = n.Value
		case graph.GuardAnd:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(g)
	return out
}
