package qubit

import (
	"sync"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/ids"
	"github.com/qvmkernel/qvmcore/resource"
)

// LogicalQubit is one simulated logical qubit's live state.
type LogicalQubit struct {
	VQ         ids.VQID
	Basis      Basis
	Profile    Profile
	ErrorCount uint64
	bitmap     []byte // physical reset-state bitmap, drawn from resource.TemplateCache
}

// Simulator holds every logical qubit live within one job, plus the
// deterministic draw streams (one per VQ, so draws for one qubit never
// perturb another's sequence) that back measurement and error
// injection. A Simulator is scoped to a single job; the engine creates
// one per dispatched job and discards it at UNLOAD.
type Simulator struct {
	mu        sync.Mutex
	jobSeed   []byte
	qubits    map[ids.VQID]*LogicalQubit
	streams   map[ids.VQID]*Stream
	templates *resource.TemplateCache
}

// NewSimulator returns a Simulator for one job, seeded from jobSeed
// (the engine derives this deterministically per spec.md §4.6) and
// drawing reset-state templates from templates. templates may be nil,
// in which case each Alloc/Reset pays for its own zero-fill.
func NewSimulator(jobSeed []byte, templates *resource.TemplateCache) *Simulator {
	return &Simulator{
		jobSeed:   jobSeed,
		qubits:    make(map[ids.VQID]*LogicalQubit),
		streams:   make(map[ids.VQID]*Stream),
		templates: templates,
	}
}

func (s *Simulator) streamFor(vq ids.VQID) *Stream {
	if st, ok := s.streams[vq]; ok {
		return st
	}
	st := NewStream(s.jobSeed, string(vq))
	s.streams[vq] = st
	return st
}

func (s *Simulator) zeroedBitmap(p Profile) []byte {
	n := p.BitmapBytes()
	if n == 0 {
		return nil
	}
	if s.templates != nil {
		return s.templates.Zeroed(uint64(p.PhysicalPerLogical), n)
	}
	return make([]byte, n)
}

// Alloc introduces a new logical qubit in the |0> state, costed against
// profile's physical qubit budget (the resource pool is charged by the
// caller; the simulator only tracks the state).
func (s *Simulator) Alloc(vq ids.VQID, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.qubits[vq]; ok {
		return ErrAlreadyAllocated
	}
	s.qubits[vq] = &LogicalQubit{
		VQ:      vq,
		Basis:   BasisZero,
		Profile: profile,
		bitmap:  s.zeroedBitmap(profile),
	}
	return nil
}

// Free retires a logical qubit. Its handle may not be reused within
// this Simulator.
func (s *Simulator) Free(vq ids.VQID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.qubits[vq]; !ok {
		return ErrUnknownVQ
	}
	delete(s.qubits, vq)
	delete(s.streams, vq)
	return nil
}

// Reset returns a live logical qubit to |0> and clears its accumulated
// error count, as a physical reset pulse would.
func (s *Simulator) Reset(vq ids.VQID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.qubits[vq]
	if !ok {
		return ErrUnknownVQ
	}
	q.Basis = BasisZero
	q.ErrorCount = 0
	q.bitmap = s.zeroedBitmap(q.Profile)
	return nil
}

// Snapshot returns a copy of vq's current state, for telemetry/audit.
func (s *Simulator) Snapshot(vq ids.VQID) (LogicalQubit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.qubits[vq]
	if !ok {
		return LogicalQubit{}, false
	}
	cp := *q
	cp.bitmap = nil
	return cp, true
}

// maybeInjectError draws from vq's stream against its profile's
// physical error rate and, on a hit, both bumps the error counter and
// collapses the basis tag to Mixed (a 5-tag model can't represent
// "slightly wrong |0>", so an error just means "no longer trust the
// sharp tag").
func maybeInjectError(q *LogicalQubit, st *Stream) {
	if q.Profile.PhysicalErrorRate <= 0 {
		return
	}
	if st.Float64() < q.Profile.PhysicalErrorRate {
		q.ErrorCount++
		q.Basis = BasisMixed
	}
}

// singleQubitTransition maps a Clifford/T/RZ gate to the resulting
// basis tag from each starting tag. Entries absent from a gate's table
// fall back to Mixed, which is the correct answer for every transition
// this coarse a model can't represent precisely (S applied to a
// non-|0>/|1> state, anything already Mixed). T and RZ have no table
// at all, so they always yield Mixed.
var singleQubitTransition = map[cap.Opcode]map[Basis]Basis{
	cap.OpApplyX: {
		BasisZero:  BasisOne,
		BasisOne:   BasisZero,
		BasisPlus:  BasisPlus,
		BasisMinus: BasisMinus,
	},
	cap.OpApplyZ: {
		BasisZero:  BasisZero,
		BasisOne:   BasisOne,
		BasisPlus:  BasisMinus,
		BasisMinus: BasisPlus,
	},
	cap.OpApplyY: {
		BasisZero:  BasisOne,
		BasisOne:   BasisZero,
		BasisPlus:  BasisMinus,
		BasisMinus: BasisPlus,
	},
	cap.OpApplyH: {
		BasisZero:  BasisPlus,
		BasisOne:   BasisMinus,
		BasisPlus:  BasisZero,
		BasisMinus: BasisOne,
	},
	cap.OpApplyS: {
		BasisZero: BasisZero,
		BasisOne:  BasisOne,
	},
}

// applySingle runs a one-qubit gate against q, returning the new basis.
func applySingle(op cap.Opcode, q *LogicalQubit) Basis {
	table, ok := singleQubitTransition[op]
	if !ok {
		return BasisMixed // APPLY_T, APPLY_RZ: provably outside the 5-tag group
	}
	next, ok := table[q.Basis]
	if !ok {
		return BasisMixed
	}
	return next
}

// Apply runs op against vqs, drawing errors and (for measurement ops)
// classical outcomes from each operand's deterministic stream. produces
// names the event handles the caller expects back, in order, matching
// the node's Produces list; the returned map is keyed by those handles.
func (s *Simulator) Apply(op cap.Opcode, vqs []ids.VQID, produces []ids.EVID, args map[string]any) (map[ids.EVID]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch op {
	case cap.OpApplyH, cap.OpApplyS, cap.OpApplyX, cap.OpApplyY, cap.OpApplyZ, cap.OpApplyT, cap.OpApplyRZ:
		if len(vqs) != 1 {
			return nil, ErrWrongOperandCount
		}
		q, ok := s.qubits[vqs[0]]
		if !ok {
			return nil, ErrUnknownVQ
		}
		q.Basis = applySingle(op, q)
		maybeInjectError(q, s.streamFor(vqs[0]))
		return nil, nil

	case cap.OpApplyCNOT, cap.OpApplyCZ, cap.OpApplySWAP, cap.OpTeleportCNOT:
		if len(vqs) != 2 {
			return nil, ErrWrongOperandCount
		}
		ctrl, ok := s.qubits[vqs[0]]
		if !ok {
			return nil, ErrUnknownVQ
		}
		tgt, ok := s.qubits[vqs[1]]
		if !ok {
			return nil, ErrUnknownVQ
		}
		if op == cap.OpApplySWAP {
			ctrl.Basis, tgt.Basis = tgt.Basis, ctrl.Basis
		} else {
			// A genuinely entangling gate: this model tracks only
			// per-qubit marginals, and an entangled marginal is mixed.
			// firewall.Entangle is what records the joint relationship.
			ctrl.Basis = BasisMixed
			tgt.Basis = BasisMixed
		}
		maybeInjectError(ctrl, s.streamFor(vqs[0]))
		maybeInjectError(tgt, s.streamFor(vqs[1]))
		return nil, nil

	case cap.OpInjectTState:
		if len(vqs) != 1 {
			return nil, ErrWrongOperandCount
		}
		q, ok := s.qubits[vqs[0]]
		if !ok {
			return nil, ErrUnknownVQ
		}
		q.Basis = BasisMixed
		return nil, nil

	case cap.OpMeasureZ, cap.OpMeasureX:
		if len(vqs) != 1 || len(produces) != 1 {
			return nil, ErrWrongOperandCount
		}
		q, ok := s.qubits[vqs[0]]
		if !ok {
			return nil, ErrUnknownVQ
		}
		outcome := measureSingle(op, q, s.streamFor(vqs[0]))
		return map[ids.EVID]int{produces[0]: outcome}, nil

	case cap.OpMeasureBell:
		if len(vqs) != 2 || len(produces) != 2 {
			return nil, ErrWrongOperandCount
		}
		qa, ok := s.qubits[vqs[0]]
		if !ok {
			return nil, ErrUnknownVQ
		}
		qb, ok := s.qubits[vqs[1]]
		if !ok {
			return nil, ErrUnknownVQ
		}
		// Correlated outcome: both bits drawn from the same draw so a
		// repeated measurement under the same job seed reproduces the
		// same pair, mirroring genuine Bell-pair correlation without a
		// joint-state representation.
		st := s.streamFor(vqs[0])
		bit := st.Bit()
		qa.Basis, qb.Basis = BasisMixed, BasisMixed
		return map[ids.EVID]int{produces[0]: bit, produces[1]: bit}, nil

	default:
		return nil, ErrUnsupportedOp
	}
}

// measureSingle draws a deterministic outcome from q's stream,
// collapsing toward the basis the gate is actually diagonal in. A
// sharp-tag qubit measured in its own basis is deterministic (e.g. |0>
// measured in Z always reads 0); anything else is an honest 50/50 draw.
func measureSingle(op cap.Opcode, q *LogicalQubit, st *Stream) int {
	switch {
	case op == cap.OpMeasureZ && q.Basis == BasisZero:
		return 0
	case op == cap.OpMeasureZ && q.Basis == BasisOne:
		return 1
	case op == cap.OpMeasureX && q.Basis == BasisPlus:
		return 0
	case op == cap.OpMeasureX && q.Basis == BasisMinus:
		return 1
	default:
		return st.Bit()
	}
}
