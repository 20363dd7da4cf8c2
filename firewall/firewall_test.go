package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvmkernel/qvmcore/ids"
)

func TestMayEntangleSameTenant(t *testing.T) {
	f := New()
	tenA := ids.TenantFromBytes([]byte("a"))
	f.RegisterOwner("q0", tenA)
	f.RegisterOwner("q1", tenA)

	assert.NoError(t, f.MayEntangle("q0", "q1", ""))
}

func TestMayEntangleCrossTenantRequiresChannel(t *testing.T) {
	f := New()
	tenA := ids.TenantFromBytes([]byte("a"))
	tenB := ids.TenantFromBytes([]byte("b"))
	f.RegisterOwner("q0", tenA)
	f.RegisterOwner("q1", tenB)

	err := f.MayEntangle("q0", "q1", "c0")
	assert.ErrorIs(t, err, ErrChannelNotOpen)

	require.NoError(t, f.OpenChannel("c0", tenA, tenB))
	assert.NoError(t, f.MayEntangle("q0", "q1", "c0"))
}

func TestMayEntangleRejectsWrongChannel(t *testing.T) {
	f := New()
	tenA := ids.TenantFromBytes([]byte("a"))
	tenB := ids.TenantFromBytes([]byte("b"))
	tenC := ids.TenantFromBytes([]byte("c"))
	f.RegisterOwner("q0", tenA)
	f.RegisterOwner("q1", tenB)
	require.NoError(t, f.OpenChannel("c0", tenA, tenC))

	err := f.MayEntangle("q0", "q1", "c0")
	assert.ErrorIs(t, err, ErrCrossTenantDenied)
}

func TestEntangleAndForget(t *testing.T) {
	f := New()
	tenA := ids.TenantFromBytes([]byte("a"))
	f.RegisterOwner("q0", tenA)
	f.RegisterOwner("q1", tenA)

	require.NoError(t, f.Entangle("q0", "q1"))
	assert.True(t, f.IsEntangled("q0", "q1"))

	f.Forget("q0")
	_, ok := f.OwnerOf("q0")
	assert.False(t, ok)
	assert.False(t, f.IsEntangled("q0", "q1"))
}

func TestCloseChannelThenReopen(t *testing.T) {
	f := New()
	tenA := ids.TenantFromBytes([]byte("a"))
	tenB := ids.TenantFromBytes([]byte("b"))
	require.NoError(t, f.OpenChannel("c0", tenA, tenB))
	require.NoError(t, f.CloseChannel("c0"))
	assert.ErrorIs(t, f.CloseChannel("c0"), ErrChannelNotOpen)
	require.NoError(t, f.OpenChannel("c0", tenA, tenB))
}

func TestMayEntangleUnknownVQ(t *testing.T) {
	f := New()
	err := f.MayEntangle("ghost", "q1", "")
	assert.ErrorIs(t, err, ErrUnknownVQ)
}
