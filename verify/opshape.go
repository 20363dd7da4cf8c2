package verify

import (
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

// OpShape classifies how an opcode treats the handles named in its
// node, for linearity checking (C3) and dispatch (C7). It mirrors the
// in/out columns of spec §6.2.
type OpShape struct {
	ProducesVQ    bool // node.VQs are newly introduced
	PassThroughVQ bool // node.VQs stay live under the same identifier
	ConsumesVQ    bool // node.VQs are terminally consumed
	ProducesEV    bool // node.Produces names new classical event ids
	OpensChan     bool // Args["chan"] names a channel this node creates
	ClosesChan    bool // Args["chan"] names a channel this node terminates
	UsesChan      bool // Args["chan"] names a channel this node requires live but does not close
	Irreversible  bool // ends a REV segment (I7)
}

// Shape returns the handle-treatment rules for op. Callers should have
// already confirmed op is known via cap.RequiredCaps.
func Shape(op cap.Opcode) OpShape {
	switch op {
	case cap.OpAllocLQ:
		return OpShape{ProducesVQ: true}
	case cap.OpFreeLQ:
		return OpShape{ConsumesVQ: true, Irreversible: true}
	case cap.OpReset:
		return OpShape{PassThroughVQ: true, Irreversible: true}
	case cap.OpApplyH, cap.OpApplyS, cap.OpApplyX, cap.OpApplyY, cap.OpApplyZ, cap.OpApplyT, cap.OpApplyRZ:
		return OpShape{PassThroughVQ: true}
	case cap.OpApplyCNOT, cap.OpApplyCZ, cap.OpApplySWAP:
		return OpShape{PassThroughVQ: true}
	case cap.OpMeasureZ, cap.OpMeasureX, cap.OpMeasureBell:
		return OpShape{ConsumesVQ: true, ProducesEV: true, Irreversible: true}
	case cap.OpOpenChan:
		return OpShape{OpensChan: true}
	case cap.OpCloseChan:
		return OpShape{ClosesChan: true, Irreversible: true}
	case cap.OpTeleportCNOT:
		return OpShape{PassThroughVQ: true, UsesChan: true}
	case cap.OpInjectTState:
		return OpShape{PassThroughVQ: true}
	case cap.OpFenceEpoch, cap.OpBeginREV, cap.OpEndREV:
		return OpShape{}
	default:
		return OpShape{}
	}
}

// ChanID returns the channel id a node's args name, if any.
func ChanID(n graph.Node) (ids.CHID, bool) {
	v, ok := n.Args["chan"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return ids.CHID(s), true
}
