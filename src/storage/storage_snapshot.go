package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/0xb10c/feebuckets/src/types"
)

// SnapshotQueryByTime selects the snapshots of one kind taken in a time
// range. Nil bounds are open.
type SnapshotQueryByTime struct {
	Kind           types.SnapshotKind
	TakenAtOrAfter *time.Time
	TakenBefore    *time.Time
}

func (q SnapshotQueryByTime) Where() string {
	clause := "(kind = ?)"
	if q.TakenAtOrAfter != nil {
		clause += " AND (taken_at >= ?)"
	}
	if q.TakenBefore != nil {
		clause += " AND (taken_at < ?)"
	}
	return clause
}

func (q SnapshotQueryByTime) Args() []interface{} {
	args := []interface{}{string(q.Kind)}
	if q.TakenAtOrAfter != nil {
		args = append(args, q.TakenAtOrAfter.Unix())
	}
	if q.TakenBefore != nil {
		args = append(args, q.TakenBefore.Unix())
	}
	return args
}

func (q SnapshotQueryByTime) Order() string {
	return "taken_at ASC, id ASC"
}

func (q SnapshotQueryByTime) Limit() int {
	return 0
}

// SnapshotIterator helps fetching snapshots row-by-row
type SnapshotIterator struct {
	rows *sql.Rows
	err  error
}

// Next returns the next snapshot, or nil at the end or on error. Check Err
// afterwards.
func (i *SnapshotIterator) Next() *types.StoredSnapshot {
	if i.err != nil || !i.rows.Next() {
		return nil
	}

	var kind string
	var takenAt int64
	var bestHash []byte
	var counts string
	var snapshot types.StoredSnapshot
	err := i.rows.Scan(
		&snapshot.DBID,
		&kind,
		&takenAt,
		&bestHash,
		&snapshot.BestHeight,
		&snapshot.TxCount,
		&counts,
	)
	if err != nil {
		i.err = errors.Wrap(err, "error reading snapshot row")
		return nil
	}
	if len(bestHash) != len(snapshot.BestHash) {
		i.err = errors.Errorf("snapshot %d: invalid best_hash length %d", snapshot.DBID, len(bestHash))
		return nil
	}
	if err := json.Unmarshal([]byte(counts), &snapshot.Counts); err != nil {
		i.err = errors.Wrapf(err, "snapshot %d: invalid counts", snapshot.DBID)
		return nil
	}

	snapshot.Kind = types.SnapshotKind(kind)
	snapshot.TakenAt = time.Unix(takenAt, 0).UTC()
	snapshot.BestHash = types.NewHashFromBytes(bestHash)
	return &snapshot
}

// Err returns the first error encountered while iterating.
func (i *SnapshotIterator) Err() error {
	if i.err != nil {
		return i.err
	}
	return i.rows.Err()
}

// Close underlying cursor
func (i *SnapshotIterator) Close() error {
	return i.rows.Close()
}

// Collect returns remaining snapshots as list and closes cursor
func (i *SnapshotIterator) Collect() (res []types.StoredSnapshot, err error) {
	defer i.Close()
	for s := i.Next(); s != nil; s = i.Next() {
		res = append(res, *s)
	}
	return res, i.Err()
}

// InsertSnapshot stores s and returns its database id.
func (s *Storage) InsertSnapshot(snapshot *types.Snapshot) (int64, error) {
	const insertSnapshot string = `
	INSERT INTO "snapshot"
		(kind, taken_at, best_hash, best_height, tx_count, counts)
	VALUES
		(?, ?, ?, ?, ?, ?)
	`

	counts := snapshot.Counts
	if counts == nil {
		counts = []uint64{}
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	res, err := s.db.Exec(
		insertSnapshot,
		string(snapshot.Kind),
		snapshot.TakenAt.UTC().Unix(),
		snapshot.BestHash[:],
		snapshot.BestHeight,
		snapshot.TxCount,
		string(countsJSON),
	)
	if err != nil {
		return 0, errors.Errorf("could not insert a snapshot into table `snapshot`: %s", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	log.Debugf("stored %s snapshot %d at height %d", snapshot.Kind, id, snapshot.BestHeight)
	return id, nil
}

// QuerySnapshots runs q against the snapshot table.
func (s *Storage) QuerySnapshots(q Query) (*SnapshotIterator, error) {
	rows, err := s.db.Query(formatQuery(
		[]string{"id", "kind", "taken_at", "best_hash", "best_height", "tx_count", "counts"},
		"snapshot",
		q,
	), q.Args()...)
	if err != nil {
		return nil, errors.Wrapf(err, "error in snapshot query %v", q)
	}
	return &SnapshotIterator{rows: rows}, nil
}

// LatestSnapshot returns the most recent snapshot of kind, or nil if there is
// none.
func (s *Storage) LatestSnapshot(kind types.SnapshotKind) (*types.StoredSnapshot, error) {
	iter, err := s.QuerySnapshots(StaticQuery{
		where: "kind = ?",
		args:  []interface{}{string(kind)},
		order: "taken_at DESC, id DESC",
		limit: 1,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	snapshot := iter.Next()
	return snapshot, iter.Err()
}

// SnapshotsBetween returns the snapshots of kind taken in [start, end).
func (s *Storage) SnapshotsBetween(kind types.SnapshotKind, start, end time.Time) ([]types.StoredSnapshot, error) {
	iter, err := s.QuerySnapshots(SnapshotQueryByTime{
		Kind:           kind,
		TakenAtOrAfter: &start,
		TakenBefore:    &end,
	})
	if err != nil {
		return nil, err
	}
	return iter.Collect()
}

// SnapshotCount returns the number of stored snapshots of kind.
func (s *Storage) SnapshotCount(kind types.SnapshotKind) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM "snapshot" WHERE kind = ?`, string(kind)).Scan(&count)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}
