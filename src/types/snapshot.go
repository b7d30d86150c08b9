package types

import "time"

// SnapshotKind distinguishes the histogram a snapshot was taken from.
type SnapshotKind string

const (
	// SnapshotBlocks is a histogram over the sliding window of recent blocks.
	SnapshotBlocks SnapshotKind = "blocks"
	// SnapshotMempool is the live mempool histogram.
	SnapshotMempool SnapshotKind = "mempool"
)

// Snapshot is a histogram at a point in time.
type Snapshot struct {
	Kind       SnapshotKind `json:"kind"`
	TakenAt    time.Time    `json:"takenAt"`
	BestHash   Hash32       `json:"bestHash"`
	BestHeight int32        `json:"bestHeight"`
	TxCount    int          `json:"txCount"`
	Counts     []uint64     `json:"counts"`
}

type StoredSnapshot struct {
	DBID int64
	Snapshot
}
