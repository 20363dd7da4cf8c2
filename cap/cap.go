// Package cap implements the capability token contract and mediator
// (component C2): HMAC-signed, attenuable, revocable, rate-limited
// tokens that gate every opcode a graph node may carry.
package cap

import "strings"

// Capability is a bitset of the privileges a token can carry.
type Capability uint16

const (
	CapAlloc Capability = 1 << iota
	CapCompute
	CapMeasure
	CapLink
	CapTeleport
	CapMagic
	CapAdmin
)

var capNames = []struct {
	bit  Capability
	name string
}{
	{CapAlloc, "CAP_ALLOC"},
	{CapCompute, "CAP_COMPUTE"},
	{CapMeasure, "CAP_MEASURE"},
	{CapLink, "CAP_LINK"},
	{CapTeleport, "CAP_TELEPORT"},
	{CapMagic, "CAP_MAGIC"},
	{CapAdmin, "CAP_ADMIN"},
}

// Covers reports whether c grants every capability set in required.
func (c Capability) Covers(required Capability) bool {
	return c&required == required
}

// Has reports whether c includes a single capability bit.
func (c Capability) Has(bit Capability) bool {
	return c&bit != 0
}

// Missing returns the capabilities required but not present in c.
func (c Capability) Missing(required Capability) Capability {
	return required &^ c
}

func (c Capability) String() string {
	if c == 0 {
		return "(none)"
	}
	return strings.Join(c.Names(), "|")
}

// Opcode names a graph node's operation. The set is fixed by the
// opcode catalogue; RequiredCaps below is authoritative for what each
// one costs.
type Opcode string

const (
	OpAllocLQ       Opcode = "ALLOC_LQ"
	OpFreeLQ        Opcode = "FREE_LQ"
	OpReset         Opcode = "RESET"
	OpApplyH        Opcode = "APPLY_H"
	OpApplyS        Opcode = "APPLY_S"
	OpApplyX        Opcode = "APPLY_X"
	OpApplyY        Opcode = "APPLY_Y"
	OpApplyZ        Opcode = "APPLY_Z"
	OpApplyT        Opcode = "APPLY_T"
	OpApplyRZ       Opcode = "APPLY_RZ"
	OpApplyCNOT     Opcode = "APPLY_CNOT"
	OpApplyCZ       Opcode = "APPLY_CZ"
	OpApplySWAP     Opcode = "APPLY_SWAP"
	OpMeasureZ      Opcode = "MEASURE_Z"
	OpMeasureX      Opcode = "MEASURE_X"
	OpMeasureBell   Opcode = "MEASURE_BELL"
	OpOpenChan      Opcode = "OPEN_CHAN"
	OpCloseChan     Opcode = "CLOSE_CHAN"
	OpTeleportCNOT  Opcode = "TELEPORT_CNOT"
	OpInjectTState  Opcode = "INJECT_T_STATE"
	OpFenceEpoch    Opcode = "FENCE_EPOCH"
	OpBeginREV      Opcode = "BEGIN_REV"
	OpEndREV        Opcode = "END_REV"
)

// requiredCaps is the opcode catalogue of spec §6.2, reproduced in
// full: every opcode the graph model can emit must have an entry here,
// even when it requires no capability at all.
var requiredCaps = map[Opcode]Capability{
	OpAllocLQ:      CapAlloc,
	OpFreeLQ:       CapAlloc,
	OpReset:        CapAlloc,
	OpApplyH:       CapCompute,
	OpApplyS:       CapCompute,
	OpApplyX:       CapCompute,
	OpApplyY:       CapCompute,
	OpApplyZ:       CapCompute,
	OpApplyT:       CapCompute,
	OpApplyRZ:      CapCompute,
	OpApplyCNOT:    CapCompute,
	OpApplyCZ:      CapCompute,
	OpApplySWAP:    CapCompute,
	OpMeasureZ:     CapMeasure,
	OpMeasureX:     CapMeasure,
	OpMeasureBell:  CapMeasure,
	OpOpenChan:     CapLink,
	OpCloseChan:    CapLink,
	OpTeleportCNOT: CapTeleport,
	OpInjectTState: CapMagic,
	OpFenceEpoch:   0,
	OpBeginREV:     0,
	OpEndREV:       0,
}

// RequiredCaps returns the capabilities an opcode demands and whether
// the opcode is known at all.
func RequiredCaps(op Opcode) (Capability, bool) {
	c, ok := requiredCaps[op]
	return c, ok
}

// ParseCapability maps a single capability kind name (e.g. "CAP_ALLOC")
// to its bit. Used by the graph wire codec to decode a node's declared
// caps list.
func ParseCapability(name string) (Capability, bool) {
	for _, e := range capNames {
		if e.name == name {
			return e.bit, true
		}
	}
	return 0, false
}

// Names returns the capability kind names set in c, in catalogue order.
func (c Capability) Names() []string {
	var names []string
	for _, e := range capNames {
		if c.Has(e.bit) {
			names = append(names, e.name)
		}
	}
	return names
}
