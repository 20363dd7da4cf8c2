package cap

import (
	"encoding/binary"
	"time"

	"github.com/qvmkernel/qvmcore/ids"
)

// Token is the capability credential a caller presents with every
// operation: tenant-scoped, capability-scoped, time-boxed, and
// use-counted, signed with an HMAC binding every other field.
type Token struct {
	ID        string
	Tenant    ids.TenantID
	Caps      Capability
	IssuedAt  time.Time
	ExpiresAt time.Time
	MaxUses   uint64
	ParentID  string
	Signature []byte
}

// canonicalBytes serializes every field but Signature, in field order,
// for MAC computation. Timestamps are truncated to whole seconds so
// signing is reproducible across marshal/unmarshal round trips.
func canonicalBytes(t *Token) []byte {
	buf := make([]byte, 0, 64+len(t.ID)+len(t.ParentID))
	buf = append(buf, []byte(t.ID)...)
	buf = append(buf, 0)
	buf = append(buf, t.Tenant.Bytes()...)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(t.Caps))
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint64(tmp[:], uint64(t.IssuedAt.Unix()))
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint64(tmp[:], uint64(t.ExpiresAt.Unix()))
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint64(tmp[:], t.MaxUses)
	buf = append(buf, tmp[:]...)
	buf = append(buf, []byte(t.ParentID)...)
	return buf
}
