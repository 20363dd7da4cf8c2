package verify

import (
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

// computeRevSegments runs stage 7 (I7): for each VQ, walk its touches
// in topological order and carve out the maximal runs of reversible
// (non-irreversible-op) touches between the VQ's allocation or one
// irreversible op and the next irreversible op; the allocating node
// itself is not part of a run. By the time this stage runs, linearity
// has already guaranteed
// every VQ ends at an irreversible op, so every such run is bounded on
// both sides within the VQ's own touch sequence. Each run must nest
// inside a BEGIN_REV/END_REV checkpoint bracket.
func computeRevSegments(g *graph.Graph, order []ids.NodeID, anc *ancestry) ([]RevSegment, error) {
	pos := make(map[ids.NodeID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}

	var begins, ends []ids.NodeID
	touchesByVQ := map[ids.VQID][]ids.NodeID{}
	for _, id := range order {
		n, _ := g.NodeByID(id)
		switch n.Op {
		case cap.OpBeginREV:
			begins = append(begins, id)
		case cap.OpEndREV:
			ends = append(ends, id)
		}
		for _, vq := range n.VQs {
			touchesByVQ[vq] = append(touchesByVQ[vq], id)
		}
	}

	var segments []RevSegment
	for vq, nodeIDs := range touchesByVQ {
		var runStart ids.NodeID
		var runEnd ids.NodeID
		flush := func() error {
			if runStart == "" {
				return nil
			}
			if !hasCheckpoint(runStart, runEnd, begins, ends, pos, anc) {
				return fail(StageREV, KindREVCheckpointMissing, runStart, string(vq),
					"reversible segment %q..%q on %q is not bracketed by BEGIN_REV/END_REV",
					runStart, runEnd, vq)
			}
			segments = append(segments, RevSegment{VQ: string(vq), Start: runStart, End: runEnd})
			runStart, runEnd = "", ""
			return nil
		}

		for _, id := range nodeIDs {
			n, _ := g.NodeByID(id)
			if shape := Shape(n.Op); shape.Irreversible || shape.ProducesVQ {
				if err := flush(); err != nil {
					return nil, err
				}
				continue
			}
			if runStart == "" {
				runStart = id
			}
			runEnd = id
		}
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return segments, nil
}

// hasCheckpoint reports whether some BEGIN_REV is an ancestor of start
// and some END_REV is a descendant of end, bracketing the segment.
func hasCheckpoint(start, end ids.NodeID, begins, ends []ids.NodeID, pos map[ids.NodeID]int, anc *ancestry) bool {
	begun := false
	for _, b := range begins {
		if b == start || anc.isAncestor(b, start) {
			begun = true
			break
		}
	}
	if !begun {
		return false
	}
	for _, e := range ends {
		if e == end || anc.isAncestor(end, e) {
			return true
		}
	}
	return false
}
