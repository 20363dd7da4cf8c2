package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/ids"
)

func bellGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewBuilder("0.1").
		Node(NewNode("n0", cap.OpAllocLQ).VQs().Produces().Caps(cap.CapAlloc).
			Args(map[string]any{"n": 2}).Build()).
		Node(NewNode("n1", cap.OpApplyH).VQs("q0").Deps("n0").Caps(cap.CapCompute).Build()).
		Node(NewNode("n2", cap.OpApplyCNOT).VQs("q0", "q1").Deps("n1").Caps(cap.CapCompute).Build()).
		Node(NewNode("n3", cap.OpMeasureZ).VQs("q0").Produces("m0").Deps("n2").Caps(cap.CapMeasure).Build()).
		Node(NewNode("n4", cap.OpMeasureZ).VQs("q1").Produces("m1").Deps("n2").Caps(cap.CapMeasure).Build()).
		Node(NewNode("n5", cap.OpFreeLQ).VQs("q0", "q1").Deps("n3", "n4").Caps(cap.CapAlloc).Build()).
		Build()
	require.NoError(t, err)
	return g
}

func TestBuilderBuildsGraph(t *testing.T) {
	g := bellGraph(t)
	assert.Equal(t, "0.1", g.Version())
	assert.Equal(t, 6, g.Len())

	n, ok := g.NodeByID("n2")
	require.True(t, ok)
	assert.Equal(t, cap.OpApplyCNOT, n.Op)
	assert.Equal(t, []ids.VQID{"q0", "q1"}, n.VQs)
}

func TestBuilderRejectsDuplicateID(t *testing.T) {
	_, err := NewBuilder("0.1").
		Node(NewNode("n0", cap.OpAllocLQ).Build()).
		Node(NewNode("n0", cap.OpFreeLQ).Build()).
		Build()
	assert.Error(t, err)
}

func TestBuilderRejectsUnknownOpcode(t *testing.T) {
	_, err := NewBuilder("0.1").
		Node(NewNode("n0", cap.Opcode("NOT_AN_OPCODE")).Build()).
		Build()
	assert.Error(t, err)
}

func TestGuardEval(t *testing.T) {
	g := And(Eq("m0", 1), Eq("m1", 0))
	assert.True(t, g.Eval(map[ids.EVID]int{"m0": 1, "m1": 0}))
	assert.False(t, g.Eval(map[ids.EVID]int{"m0": 0, "m1": 0}))
	assert.False(t, g.Eval(map[ids.EVID]int{"m0": 1}))

	assert.True(t, True().Eval(nil))
	assert.False(t, False().Eval(nil))
	assert.True(t, (*Guard)(nil).Eval(nil))
}

func TestGuardEvents(t *testing.T) {
	g := And(Eq("m0", 1), And(Eq("m1", 0)))
	assert.ElementsMatch(t, []ids.EVID{"m0", "m1"}, g.Events())
}
