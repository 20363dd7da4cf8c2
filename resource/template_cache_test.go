package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateCacheZeroedIsZeroedAndIndependent(t *testing.T) {
	tc := NewTemplateCache(0)

	buf := tc.Zeroed(10, 32)
	assert.Len(t, buf, 32)
	for _, b := range buf {
		assert.Zero(t, b)
	}

	buf[0] = 0xff
	other := tc.Zeroed(10, 32)
	assert.Zero(t, other[0], "mutating one returned buffer must not affect the next")
}

func TestTemplateCacheDistinguishesProfiles(t *testing.T) {
	tc := NewTemplateCache(0)

	a := tc.Zeroed(10, 32)
	b := tc.Zeroed(20, 32)
	assert.Len(t, a, 32)
	assert.Len(t, b, 32)
}

func TestTemplateCacheForget(t *testing.T) {
	tc := NewTemplateCache(0)
	_ = tc.Zeroed(10, 16)
	tc.Forget(10, 16)
	// Forgetting just evicts; a subsequent call still succeeds.
	buf := tc.Zeroed(10, 16)
	assert.Len(t, buf, 16)
}
