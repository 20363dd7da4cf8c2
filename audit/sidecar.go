package audit

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/ethereum/go-ethereum/log"
	"github.com/qvmkernel/qvmcore/ids"
)

// sidecarLeafVersion is the version byte spec.md §6.4 requires on every
// persisted leaf record.
const sidecarLeafVersion = 1

// Sidecar durably persists the log's leaves to an on-disk LevelDB
// instance, snappy-compressed, keyed by big-endian leaf index. It is
// the optional extension point spec.md §6.4 calls out ("persistent
// state layout: none... an optional sidecar may serialize the audit
// log's leaves to an append-only file"); the in-memory Log remains
// authoritative, the sidecar is write-behind and best-effort.
type Sidecar struct {
	db *leveldb.DB
}

// OpenSidecar opens (creating if absent) a LevelDB sidecar at path.
func OpenSidecar(path string) (*Sidecar, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("audit: open sidecar: %w", err)
	}
	return &Sidecar{db: db}, nil
}

func sidecarKey(index uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], index)
	return key[:]
}

// encodeLeaf renders rec as version byte | length-prefixed canonical
// record | 32-byte root | big-endian uint64 index.
func encodeLeaf(rec Record) []byte {
	body := canonicalBytes(rec)
	rootAndIndex := make([]byte, 0, 1+4+len(body)+ids.Hash32Length+8)
	rootAndIndex = append(rootAndIndex, sidecarLeafVersion)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	rootAndIndex = append(rootAndIndex, lenBuf[:]...)
	rootAndIndex = append(rootAndIndex, body...)
	rootAndIndex = append(rootAndIndex, rec.Root.Bytes()...)
	var idxBuf [8]byte
	binary.BigEndian.PutUint64(idxBuf[:], rec.Index)
	rootAndIndex = append(rootAndIndex, idxBuf[:]...)
	return rootAndIndex
}

// Write persists rec. Failures are logged, not returned: the sidecar is
// an optional durability extension, never a reason to fail the audit
// append that already succeeded in memory.
func (s *Sidecar) Write(rec Record) {
	encoded := snappy.Encode(nil, encodeLeaf(rec))
	if err := s.db.Put(sidecarKey(rec.Index), encoded, nil); err != nil {
		log.Error("audit sidecar write failed", "index", rec.Index, "err", err)
	}
}

// Close releases the sidecar's LevelDB handle.
func (s *Sidecar) Close() error {
	return s.db.Close()
}
