package audit

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ethereum/go-ethereum/log"
)

// SecondaryIndex mirrors every leaf into a SQLite table, giving the
// audit log queries the in-memory index doesn't bother with (by node
// id, by time range, arbitrary ad-hoc SQL for an operator) without
// turning the hot Append path into a SQL transaction.
type SecondaryIndex struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS leaves (
	idx       INTEGER PRIMARY KEY,
	tenant    TEXT NOT NULL,
	job_id    TEXT NOT NULL,
	kind      TEXT NOT NULL,
	node_id   TEXT NOT NULL,
	detail    TEXT NOT NULL,
	ts_unix   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS leaves_tenant ON leaves(tenant);
CREATE INDEX IF NOT EXISTS leaves_kind ON leaves(kind);
CREATE INDEX IF NOT EXISTS leaves_ts ON leaves(ts_unix);
`

// OpenSecondaryIndex opens (creating if absent) a SQLite secondary
// index at path.
func OpenSecondaryIndex(path string) (*SecondaryIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open secondary index: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create leaves table: %w", err)
	}
	return &SecondaryIndex{db: db}, nil
}

// Insert mirrors rec into the leaves table. Failures are logged, not
// returned, for the same reason Sidecar.Write doesn't return one.
func (s *SecondaryIndex) Insert(rec Record) {
	_, err := s.db.Exec(
		`INSERT INTO leaves(idx, tenant, job_id, kind, node_id, detail, ts_unix) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Index, rec.Tenant.String(), rec.JobID, string(rec.Kind), string(rec.NodeID), rec.Detail, rec.Timestamp.Unix(),
	)
	if err != nil {
		log.Error("audit secondary index insert failed", "index", rec.Index, "err", err)
	}
}

// QueryByTimeRange returns leaf indices with ts_unix in [fromUnix, toUnix].
func (s *SecondaryIndex) QueryByTimeRange(fromUnix, toUnix int64) ([]uint64, error) {
	rows, err := s.db.Query(`SELECT idx FROM leaves WHERE ts_unix BETWEEN ? AND ? ORDER BY idx`, fromUnix, toUnix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var idx uint64
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// QueryByNodeID returns leaf indices recorded against nodeID.
func (s *SecondaryIndex) QueryByNodeID(nodeID string) ([]uint64, error) {
	rows, err := s.db.Query(`SELECT idx FROM leaves WHERE node_id = ? ORDER BY idx`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var idx uint64
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// Close releases the secondary index's database handle.
func (s *SecondaryIndex) Close() error {
	return s.db.Close()
}
