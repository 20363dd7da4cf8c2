package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/graph"
	"github.com/qvmkernel/qvmcore/ids"
)

func testTenant() ids.TenantID {
	return ids.TenantFromBytes([]byte("tenant-a"))
}

func testMediator(t *testing.T) *cap.Mediator {
	t.Helper()
	return cap.NewMediator(make([]byte, 32))
}

// validGraph builds a small but complete Bell-pair program bracketed
// by a REV checkpoint, admissible under every stage.
func validGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("begin", cap.OpBeginREV).Build()).
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0", "q1").Deps("begin").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("h", cap.OpApplyH).VQs("q0").Deps("alloc").Caps(cap.CapCompute).Build()).
		Node(graph.NewNode("cnot", cap.OpApplyCNOT).VQs("q0", "q1").Deps("h").Caps(cap.CapCompute).Build()).
		Node(graph.NewNode("end", cap.OpEndREV).Deps("cnot").Build()).
		Node(graph.NewNode("m0", cap.OpMeasureZ).VQs("q0").Produces("ev0").Deps("end").Caps(cap.CapMeasure).Build()).
		Node(graph.NewNode("m1", cap.OpMeasureZ).VQs("q1").Produces("ev1").Deps("end").Caps(cap.CapMeasure).Build()).
		Build()
	require.NoError(t, err)
	return g
}

func issueToken(t *testing.T, med *cap.Mediator, caps cap.Capability) *cap.Token {
	t.Helper()
	tok, err := med.Issue(testTenant(), caps, time.Hour, 1000)
	require.NoError(t, err)
	return tok
}

func TestCertifyAcceptsValidGraph(t *testing.T) {
	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapCompute|cap.CapMeasure)
	v := NewVerifier(med)

	cert, err := v.Certify(validGraph(t), tok)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, cert.TokenID)
	assert.False(t, cert.GraphHash.IsZero())
	require.Len(t, cert.RevSegments, 2)
}

func TestCertifyCachesByGraphAndToken(t *testing.T) {
	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapCompute|cap.CapMeasure)
	v := NewVerifier(med)

	g := validGraph(t)
	first, err := v.Certify(g, tok)
	require.NoError(t, err)
	second, err := v.Certify(g, tok)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCertifyRejectsCycle(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("a", cap.OpApplyH).VQs("q0").Deps("b").Caps(cap.CapCompute).Build()).
		Node(graph.NewNode("b", cap.OpApplyH).VQs("q0").Deps("a").Caps(cap.CapCompute).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapCompute)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageTopology, verr.Stage)
	assert.Equal(t, KindCyclic, verr.Kind)
}

func TestCertifyRejectsDanglingVQ(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("h", cap.OpApplyH).VQs("q0").Caps(cap.CapCompute).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapCompute)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageLinearity, verr.Stage)
	assert.Equal(t, KindDangling, verr.Kind)
}

func TestCertifyRejectsUseAfterFree(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("free", cap.OpFreeLQ).VQs("q0").Deps("alloc").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("h", cap.OpApplyH).VQs("q0").Deps("free").Caps(cap.CapCompute).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapCompute)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageLinearity, verr.Stage)
	assert.Equal(t, KindUseAfterFree, verr.Kind)
}

func TestCertifyRejectsLeakedVQ(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("h", cap.OpApplyH).VQs("q0").Deps("alloc").Caps(cap.CapCompute).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapCompute)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageLinearity, verr.Stage)
	assert.Equal(t, KindLeaked, verr.Kind)
}

func TestCertifyAllowsMutuallyExclusiveBranches(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0").Produces().Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("m", cap.OpMeasureZ).VQs("q0").Produces("ev0").Deps("alloc").Caps(cap.CapMeasure).Build()).
		Node(graph.NewNode("alloc2", cap.OpAllocLQ).VQs("q1").Deps("m").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("free-if-0", cap.OpFreeLQ).VQs("q1").Deps("alloc2").
			Guard(graph.Eq("ev0", 0)).Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("free-if-1", cap.OpFreeLQ).VQs("q1").Deps("alloc2").
			Guard(graph.Eq("ev0", 1)).Caps(cap.CapAlloc).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapMeasure)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	assert.NoError(t, err)
}

func TestCertifyRejectsConcurrentUnguardedConsumers(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("free1", cap.OpFreeLQ).VQs("q0").Deps("alloc").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("free2", cap.OpFreeLQ).VQs("q0").Deps("alloc").Caps(cap.CapAlloc).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageLinearity, verr.Stage)
	assert.Equal(t, KindReDefinition, verr.Kind)
}

func TestCertifyRejectsGuardOutOfScope(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("free", cap.OpFreeLQ).VQs("q0").Deps("alloc").
			Guard(graph.Eq("ghost", 1)).Caps(cap.CapAlloc).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageGuards, verr.Stage)
	assert.Equal(t, KindGuardOutOfScope, verr.Kind)
}

func TestCertifyRejectsInsufficientTokenCapability(t *testing.T) {
	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapCompute) // missing CapMeasure
	v := NewVerifier(med)

	_, err := v.Certify(validGraph(t), tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageCapability, verr.Stage)
	assert.Equal(t, KindCapabilityCoverage, verr.Kind)
}

func TestCertifyRejectsUnderDeclaredNodeCapability(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("h", cap.OpApplyH).VQs("q0").Deps("alloc").Caps(0).Build()).
		Node(graph.NewNode("free", cap.OpFreeLQ).VQs("q0").Deps("h").Caps(cap.CapAlloc).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapCompute)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageCapability, verr.Stage)
	assert.Equal(t, KindUnderDeclared, verr.Kind)
}

func TestCertifyRejectsTeleportOnClosedChannel(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0", "q1").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("open", cap.OpOpenChan).Deps("alloc").
			Args(map[string]any{"chan": "c0"}).Caps(cap.CapLink).Build()).
		Node(graph.NewNode("close", cap.OpCloseChan).Deps("open").
			Args(map[string]any{"chan": "c0"}).Caps(cap.CapLink).Build()).
		Node(graph.NewNode("teleport", cap.OpTeleportCNOT).VQs("q0", "q1").Deps("close").
			Args(map[string]any{"chan": "c0"}).Caps(cap.CapTeleport|cap.CapLink).Build()).
		Node(graph.NewNode("free", cap.OpFreeLQ).VQs("q0", "q1").Deps("teleport").Caps(cap.CapAlloc).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapLink|cap.CapTeleport)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageLinearity, verr.Stage)
	assert.Equal(t, KindUseAfterFree, verr.Kind)
}

func TestCertifyRejectsMissingREVCheckpoint(t *testing.T) {
	g, err := graph.NewBuilder("0.1").
		Node(graph.NewNode("alloc", cap.OpAllocLQ).VQs("q0").Caps(cap.CapAlloc).Build()).
		Node(graph.NewNode("h", cap.OpApplyH).VQs("q0").Deps("alloc").Caps(cap.CapCompute).Build()).
		Node(graph.NewNode("m", cap.OpMeasureZ).VQs("q0").Produces("ev0").Deps("h").Caps(cap.CapMeasure).Build()).
		Build()
	require.NoError(t, err)

	med := testMediator(t)
	tok := issueToken(t, med, cap.CapAlloc|cap.CapCompute|cap.CapMeasure)
	v := NewVerifier(med)

	_, err = v.Certify(g, tok)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StageREV, verr.Stage)
	assert.Equal(t, KindREVCheckpointMissing, verr.Kind)
}
