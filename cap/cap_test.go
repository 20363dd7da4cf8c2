package cap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityCoversAndMissing(t *testing.T) {
	have := CapAlloc | CapCompute
	assert.True(t, have.Covers(CapAlloc))
	assert.True(t, have.Covers(CapAlloc|CapCompute))
	assert.False(t, have.Covers(CapMeasure))
	assert.Equal(t, CapMeasure, have.Missing(CapAlloc|CapMeasure))
}

func TestRequiredCapsCatalogueIsComplete(t *testing.T) {
	opcodes := []Opcode{
		OpAllocLQ, OpFreeLQ, OpReset,
		OpApplyH, OpApplyS, OpApplyX, OpApplyY, OpApplyZ, OpApplyT, OpApplyRZ,
		OpApplyCNOT, OpApplyCZ, OpApplySWAP,
		OpMeasureZ, OpMeasureX, OpMeasureBell,
		OpOpenChan, OpCloseChan,
		OpTeleportCNOT, OpInjectTState,
		OpFenceEpoch, OpBeginREV, OpEndREV,
	}
	for _, op := range opcodes {
		_, ok := RequiredCaps(op)
		assert.True(t, ok, "opcode %s missing from required-caps catalogue", op)
	}

	caps, _ := RequiredCaps(OpMeasureBell)
	assert.Equal(t, CapMeasure, caps)

	caps, _ = RequiredCaps(OpFenceEpoch)
	assert.Equal(t, Capability(0), caps)
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "(none)", Capability(0).String())
	assert.Equal(t, "CAP_ALLOC|CAP_COMPUTE", (CapAlloc | CapCompute).String())
}
