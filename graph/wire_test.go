package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/ids"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := bellGraph(t)

	data, err := Encode(g)
	require.NoError(t, err)

	g2, err := Decode(data, true)
	require.NoError(t, err)

	assert.Equal(t, g.Version(), g2.Version())
	assert.Equal(t, g.Len(), g2.Len())

	n, ok := g2.NodeByID("n2")
	require.True(t, ok)
	assert.Equal(t, cap.OpApplyCNOT, n.Op)
	assert.Equal(t, cap.CapCompute, n.Caps)
}

func TestDecodeStrictRejectsUnknownFields(t *testing.T) {
	data := []byte(`{"version":"0.1","nodes":[],"bogus_field":true}`)
	_, err := Decode(data, true)
	assert.Error(t, err)

	_, err = Decode(data, false)
	assert.NoError(t, err)
}

func TestDecodeGuard(t *testing.T) {
	data := []byte(`{
		"version": "0.1",
		"nodes": [
			{"id":"n0","op":"ALLOC_LQ","caps":["CAP_ALLOC"]},
			{"id":"n1","op":"MEASURE_Z","vqs":["q0"],"produces":["m0"],"deps":["n0"],"caps":["CAP_MEASURE"]},
			{"id":"n2","op":"APPLY_H","vqs":["q1"],"deps":["n1"],"caps":["CAP_COMPUTE"],
			 "guard":{"kind":"eq","event":"m0","value":1}}
		]
	}`)
	g, err := Decode(data, true)
	require.NoError(t, err)

	n, ok := g.NodeByID("n2")
	require.True(t, ok)
	require.NotNil(t, n.Guard)
	assert.Equal(t, GuardEq, n.Guard.Kind)
	assert.True(t, n.Guard.Eval(map[ids.EVID]int{"m0": 1}))
}
