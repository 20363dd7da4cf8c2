package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantIDRoundTrip(t *testing.T) {
	in := "0x" + "11223344556677889900112233445566778899aa"[:40]
	tid, err := ParseTenantID(in)
	require.NoError(t, err)
	assert.Equal(t, in, tid.String())
	assert.False(t, tid.IsZero())
}

func TestTenantIDZero(t *testing.T) {
	var tid TenantID
	assert.True(t, tid.IsZero())
}

func TestParseTenantIDBadLength(t *testing.T) {
	_, err := ParseTenantID("0xabcd")
	assert.Error(t, err)
}

func TestParseTenantIDBadPrefix(t *testing.T) {
	_, err := ParseTenantID("zz" + "0011223344556677889900112233445566778899")
	assert.Error(t, err)
}

func TestHash32RoundTrip(t *testing.T) {
	var h Hash32
	for i := range h {
		h[i] = byte(i)
	}
	parsed, err := ParseHash32(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestTenantFromBytesTruncates(t *testing.T) {
	long := make([]byte, 40)
	for i := range long {
		long[i] = byte(i)
	}
	tid := TenantFromBytes(long)
	assert.Equal(t, long[20:], tid[:])
}

func TestTenantFromBytesPads(t *testing.T) {
	short := []byte{1, 2, 3}
	tid := TenantFromBytes(short)
	assert.Equal(t, []byte{1, 2, 3}, tid[17:])
	for _, b := range tid[:17] {
		assert.Equal(t, byte(0), b)
	}
}

func TestBytesToHash32(t *testing.T) {
	h := BytesToHash32([]byte("short"))
	assert.False(t, h.IsZero())
	assert.Len(t, h.Bytes(), 32)
}
