package resource

import (
	"encoding/binary"
	"fmt"

	"github.com/qianbin/directcache"
)

// defaultTemplateCacheCapacity bounds the off-heap cache directcache
// manages for us; a handful of QEC profiles each need one zeroed
// template, so this is generous rather than tight.
const defaultTemplateCacheCapacity = 8 << 20 // 8MiB

// TemplateCache hands out zeroed physical-qubit bitmap templates keyed
// by QEC profile, so ALLOC_LQ and RESET don't pay a fresh make+zero on
// every call for profiles the pool has already seen. directcache stores
// the templates off the Go heap, which keeps a busy pool's GC pressure
// flat regardless of how many distinct profiles pass through it.
type TemplateCache struct {
	cache *directcache.Cache
}

// NewTemplateCache returns a TemplateCache backed by a directcache
// instance of the given byte capacity. A capacity of 0 uses a sane
// default.
func NewTemplateCache(capacityBytes int) *TemplateCache {
	if capacityBytes <= 0 {
		capacityBytes = defaultTemplateCacheCapacity
	}
	return &TemplateCache{cache: directcache.New(capacityBytes)}
}

// templateKey identifies a zeroed template by the profile's physical
// qubit cost and the bitmap size in bytes it backs.
func templateKey(physicalPerLogical uint64, bitmapBytes int) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], physicalPerLogical)
	binary.BigEndian.PutUint64(key[8:], uint64(bitmapBytes))
	return key
}

// Zeroed returns a fresh, independently-owned zeroed buffer of
// bitmapBytes length for the given profile cost. The first caller for
// a (profile, size) pair pays for the zero-fill and seeds the cache;
// later callers get a copy out of the cached template instead.
func (t *TemplateCache) Zeroed(physicalPerLogical uint64, bitmapBytes int) []byte {
	if bitmapBytes <= 0 {
		return nil
	}
	key := templateKey(physicalPerLogical, bitmapBytes)

	if cached, ok := t.cache.Get(key, nil); ok && len(cached) == bitmapBytes {
		out := make([]byte, bitmapBytes)
		copy(out, cached)
		return out
	}

	tmpl := make([]byte, bitmapBytes)
	t.cache.Set(key, tmpl)
	out := make([]byte, bitmapBytes)
	return out
}

// Forget evicts a profile's cached template, used when a profile is
// retired so stale entries don't sit on the off-heap budget forever.
func (t *TemplateCache) Forget(physicalPerLogical uint64, bitmapBytes int) {
	t.cache.Delete(templateKey(physicalPerLogical, bitmapBytes))
}

// String reports the cache's current footprint, for diagnostics.
func (t *TemplateCache) String() string {
	return fmt.Sprintf("resource.TemplateCache{len=%d}", t.cache.Len())
}
