// Package audit implements the Merkle-accumulating append-only audit
// log (component C8): every admission decision and executed operation
// is appended as a leaf, the running root lets a caller prove a
// specific record was present at a specific index, and an optional
// sidecar/secondary-index pair gives the in-memory log real durability
// and query reach without changing its core contract.
package audit

import (
	"encoding/binary"
	"time"

	"github.com/qvmkernel/qvmcore/ids"
)

// Kind names the category of an audited event.
type Kind string

const (
	KindOperationExecuted Kind = "OperationExecuted"
	KindAccessDenied      Kind = "AccessDenied"
	KindJobLoaded         Kind = "JobLoaded"
	KindJobCompleted      Kind = "JobCompleted"
	KindJobFailed         Kind = "JobFailed"
	KindJobCancelled      Kind = "JobCancelled"
	KindUnloadError       Kind = "UnloadError"
)

// Record is one audit leaf. Index and Root are filled in by Append;
// every other field is supplied by the caller.
type Record struct {
	Index     uint64
	Root      ids.Hash32
	Tenant    ids.TenantID
	JobID     string
	Kind      Kind
	NodeID    ids.NodeID
	Detail    string
	Timestamp time.Time
}

// canonicalBytes serializes the caller-supplied fields of a record (not
// Index/Root, which only exist once it's appended) in a fixed field
// order, for leaf hashing.
func canonicalBytes(r Record) []byte {
	buf := make([]byte, 0, 96+len(r.JobID)+len(r.Detail))
	buf = append(buf, r.Tenant.Bytes()...)
	buf = append(buf, []byte(r.JobID)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(r.Kind)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(r.NodeID)...)
	buf = append(buf, 0)
	buf = append(buf, []byte(r.Detail)...)
	buf = append(buf, 0)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(r.Timestamp.UnixNano()))
	buf = append(buf, tmp[:]...)
	return buf
}
