package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qvmkernel/qvmcore/ids"
)

func tenant(b byte) ids.TenantID {
	return ids.TenantFromBytes([]byte{b})
}

func TestAppendStampsIndexAndRoot(t *testing.T) {
	l := NewLog()
	r0 := l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted, Timestamp: time.Unix(0, 0)})
	assert.Equal(t, uint64(0), r0.Index)
	assert.False(t, r0.Root.IsZero())

	r1 := l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted, Timestamp: time.Unix(1, 0)})
	assert.Equal(t, uint64(1), r1.Index)
	assert.NotEqual(t, r0.Root, r1.Root)
}

func TestRootAtReproducesHistoricalRoot(t *testing.T) {
	l := NewLog()
	r0 := l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted})
	l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted})

	got, ok := l.RootAt(0)
	require.True(t, ok)
	assert.Equal(t, r0.Root, got)
}

func TestRootAtOutOfRange(t *testing.T) {
	l := NewLog()
	_, ok := l.RootAt(5)
	assert.False(t, ok)
}

func TestByTenantFiltersAndCaches(t *testing.T) {
	l := NewLog()
	l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted, Detail: "a"})
	l.Append(Record{Tenant: tenant(2), Kind: KindOperationExecuted, Detail: "b"})
	l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted, Detail: "c"})

	recs := l.ByTenant(tenant(1))
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Detail)
	assert.Equal(t, "c", recs[1].Detail)

	// cached result must reflect a later append for the same tenant
	l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted, Detail: "d"})
	recs = l.ByTenant(tenant(1))
	require.Len(t, recs, 3)
}

func TestByKind(t *testing.T) {
	l := NewLog()
	l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted})
	l.Append(Record{Tenant: tenant(1), Kind: KindAccessDenied})

	denied := l.ByKind(KindAccessDenied)
	require.Len(t, denied, 1)
}

func TestWaitWakesOnAppend(t *testing.T) {
	l := NewLog()
	stop := make(chan struct{})
	woken := make(chan bool, 1)

	go func() {
		woken <- l.Wait(0, stop)
	}()

	time.Sleep(10 * time.Millisecond)
	l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted})

	select {
	case ok := <-woken:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not wake up after Append")
	}
}

func TestWaitReturnsFalseOnStop(t *testing.T) {
	l := NewLog()
	l.Append(Record{Tenant: tenant(1), Kind: KindOperationExecuted})
	stop := make(chan struct{})
	close(stop)

	assert.False(t, l.Wait(5, stop))
}
