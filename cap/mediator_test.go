package cap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvmkernel/qvmcore/ids"
)

func testKey() []byte {
	return make([]byte, 32)
}

func TestIssueAndVerify(t *testing.T) {
	m := NewMediator(testKey())
	tenant := ids.TenantFromBytes([]byte("tenant-a"))

	tok, err := m.Issue(tenant, CapAlloc|CapCompute, time.Minute, 5)
	require.NoError(t, err)
	require.NoError(t, m.Verify(tok))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	m := NewMediator(testKey())
	tenant := ids.TenantFromBytes([]byte("tenant-a"))
	tok, err := m.Issue(tenant, CapAlloc, time.Minute, 1)
	require.NoError(t, err)

	tok.Caps = CapAdmin
	assert.ErrorIs(t, m.Verify(tok), ErrBadSignature)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewMediator(testKey())
	tenant := ids.TenantFromBytes([]byte("tenant-a"))
	tok, err := m.Issue(tenant, CapAlloc, -time.Minute, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Verify(tok), ErrExpired)
}

func TestCheckIncrementsUsesAndExhausts(t *testing.T) {
	m := NewMediator(testKey())
	tenant := ids.TenantFromBytes([]byte("tenant-a"))
	tok, err := m.Issue(tenant, CapAlloc, time.Minute, 2)
	require.NoError(t, err)

	require.NoError(t, m.Check(tok, OpAllocLQ))
	require.NoError(t, m.Check(tok, OpFreeLQ))
	assert.ErrorIs(t, m.Check(tok, OpAllocLQ), ErrExhausted)
}

func TestCheckRejectsMissingCapability(t *testing.T) {
	m := NewMediator(testKey())
	tenant := ids.TenantFromBytes([]byte("tenant-a"))
	tok, err := m.Issue(tenant, CapAlloc, time.Minute, 5)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Check(tok, OpMeasureZ), ErrMissingCapability)
}

func TestAttenuateNarrowsAndChains(t *testing.T) {
	m := NewMediator(testKey())
	tenant := ids.TenantFromBytes([]byte("tenant-a"))
	root, err := m.Issue(tenant, CapAlloc|CapCompute|CapMeasure, time.Hour, 10)
	require.NoError(t, err)

	child, err := m.Attenuate(root, CapCompute, time.Minute, 3)
	require.NoError(t, err)
	assert.Equal(t, root.ID, child.ParentID)
	require.NoError(t, m.Verify(child))

	_, err = m.Attenuate(root, CapAdmin, time.Minute, 1)
	assert.ErrorIs(t, err, ErrMissingCapability)
}

func TestRevokeIsTransitive(t *testing.T) {
	m := NewMediator(testKey())
	tenant := ids.TenantFromBytes([]byte("tenant-a"))
	root, err := m.Issue(tenant, CapAlloc, time.Hour, 10)
	require.NoError(t, err)
	child, err := m.Attenuate(root, CapAlloc, time.Minute, 3)
	require.NoError(t, err)

	m.Revoke(root.ID)

	assert.ErrorIs(t, m.Verify(root), ErrRevoked)
	assert.ErrorIs(t, m.Verify(child), ErrRevoked)
}

func TestCheckInvokesOnAccessDenied(t *testing.T) {
	m := NewMediator(testKey())
	tenant := ids.TenantFromBytes([]byte("tenant-a"))
	tok, err := m.Issue(tenant, CapAlloc, time.Minute, 5)
	require.NoError(t, err)

	var deniedOp Opcode
	var deniedReason error
	m.OnAccessDenied = func(_ ids.TenantID, _ string, op Opcode, reason error) {
		deniedOp = op
		deniedReason = reason
	}

	err = m.Check(tok, OpMeasureZ)
	assert.ErrorIs(t, err, ErrMissingCapability)
	assert.Equal(t, OpMeasureZ, deniedOp)
	assert.ErrorIs(t, deniedReason, ErrMissingCapability)
}
