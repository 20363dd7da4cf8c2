package qubit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/ids"
)

func testProfile() Profile {
	return Profile{CodeFamily: "surface", Distance: 3, PhysicalPerLogical: 17, PhysicalErrorRate: 0}
}

func TestAllocStartsAtZero(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	require.NoError(t, s.Alloc("q0", testProfile()))

	snap, ok := s.Snapshot("q0")
	require.True(t, ok)
	assert.Equal(t, BasisZero, snap.Basis)
}

func TestAllocRejectsDuplicate(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	require.NoError(t, s.Alloc("q0", testProfile()))
	assert.ErrorIs(t, s.Alloc("q0", testProfile()), ErrAlreadyAllocated)
}

func TestApplyXFlipsZeroAndOne(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	require.NoError(t, s.Alloc("q0", testProfile()))

	_, err := s.Apply(cap.OpApplyX, []ids.VQID{"q0"}, nil, nil)
	require.NoError(t, err)
	snap, _ := s.Snapshot("q0")
	assert.Equal(t, BasisOne, snap.Basis)

	_, err = s.Apply(cap.OpApplyX, []ids.VQID{"q0"}, nil, nil)
	require.NoError(t, err)
	snap, _ = s.Snapshot("q0")
	assert.Equal(t, BasisZero, snap.Basis)
}

func TestApplyHThenHIsIdentity(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	require.NoError(t, s.Alloc("q0", testProfile()))

	_, err := s.Apply(cap.OpApplyH, []ids.VQID{"q0"}, nil, nil)
	require.NoError(t, err)
	snap, _ := s.Snapshot("q0")
	assert.Equal(t, BasisPlus, snap.Basis)

	_, err = s.Apply(cap.OpApplyH, []ids.VQID{"q0"}, nil, nil)
	require.NoError(t, err)
	snap, _ = s.Snapshot("q0")
	assert.Equal(t, BasisZero, snap.Basis)
}

func TestApplyTCollapsesToMixed(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	require.NoError(t, s.Alloc("q0", testProfile()))

	_, err := s.Apply(cap.OpApplyT, []ids.VQID{"q0"}, nil, nil)
	require.NoError(t, err)
	snap, _ := s.Snapshot("q0")
	assert.Equal(t, BasisMixed, snap.Basis)
}

func TestMeasureZOnZeroIsDeterministic(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	require.NoError(t, s.Alloc("q0", testProfile()))

	events, err := s.Apply(cap.OpMeasureZ, []ids.VQID{"q0"}, []ids.EVID{"e0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, events["e0"])
}

func TestMeasureBellIsCorrelated(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	require.NoError(t, s.Alloc("q0", testProfile()))
	require.NoError(t, s.Alloc("q1", testProfile()))

	events, err := s.Apply(cap.OpMeasureBell, []ids.VQID{"q0", "q1"}, []ids.EVID{"e0", "e1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, events["e0"], events["e1"])
}

func TestApplyUnknownVQ(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	_, err := s.Apply(cap.OpApplyX, []ids.VQID{"ghost"}, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownVQ)
}

func TestResetClearsErrorAndBasis(t *testing.T) {
	s := NewSimulator([]byte("seed"), nil)
	p := testProfile()
	p.PhysicalErrorRate = 1 // force an error on every gate
	require.NoError(t, s.Alloc("q0", p))

	_, err := s.Apply(cap.OpApplyX, []ids.VQID{"q0"}, nil, nil)
	require.NoError(t, err)
	snap, _ := s.Snapshot("q0")
	assert.NotZero(t, snap.ErrorCount)

	require.NoError(t, s.Reset("q0"))
	snap, _ = s.Snapshot("q0")
	assert.Zero(t, snap.ErrorCount)
	assert.Equal(t, BasisZero, snap.Basis)
}

func TestStreamIsDeterministicForSameSeed(t *testing.T) {
	a := NewStream([]byte("seed"), "q0")
	b := NewStream([]byte("seed"), "q0")
	for i := 0; i < 8; i++ {
		assert.Equal(t, a.Bit(), b.Bit())
	}
}

func TestStreamDiffersByDomain(t *testing.T) {
	a := NewStream([]byte("seed"), "q0")
	b := NewStream([]byte("seed"), "q1")
	same := true
	for i := 0; i < 16; i++ {
		if a.Bit() != b.Bit() {
			same = false
		}
	}
	assert.False(t, same, "independent domains should not draw identical bit sequences")
}
