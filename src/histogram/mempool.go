package histogram

import (
	"github.com/0xb10c/feebuckets/src/buckets"
	"github.com/0xb10c/feebuckets/src/types"
)

// MinFeeRate is the fee rate in sat/vbyte at or below which mempool
// transactions are not tracked.
const MinFeeRate = 1.0

// Mempool is a histogram of mempool fee rates that is updated one
// transaction at a time. It remembers the bucket every transaction was
// counted in, so a removal always undoes exactly one addition.
//
// Mempool does not evict anything on its own. Callers remove transactions
// once they are confirmed or replaced.
type Mempool struct {
	boundaries *buckets.Boundaries
	counts     []uint64
	members    map[types.Hash32]int
}

func NewMempool(boundaries *buckets.Boundaries) *Mempool {
	return &Mempool{
		boundaries: boundaries,
		counts:     boundaries.NewHistogram(),
		members:    map[types.Hash32]int{},
	}
}

// Add counts txid in the bucket of rate. It returns false without changing
// anything if rate is at most MinFeeRate or txid is already tracked.
func (m *Mempool) Add(txid types.Hash32, rate float64) bool {
	if !(rate > MinFeeRate) {
		return false
	}
	if _, ok := m.members[txid]; ok {
		return false
	}
	i := m.boundaries.Classify(rate)
	m.counts[i]++
	m.members[txid] = i
	return true
}

// Remove undoes the addition of txid. It returns false if txid is not
// tracked.
func (m *Mempool) Remove(txid types.Hash32) bool {
	i, ok := m.members[txid]
	if !ok {
		return false
	}
	m.counts[i]--
	delete(m.members, txid)
	return true
}

// Clear drops all transactions.
func (m *Mempool) Clear() {
	for i := range m.counts {
		m.counts[i] = 0
	}
	m.members = map[types.Hash32]int{}
}

// Contains reports whether txid is tracked.
func (m *Mempool) Contains(txid types.Hash32) bool {
	_, ok := m.members[txid]
	return ok
}

// Len returns the number of tracked transactions.
func (m *Mempool) Len() int {
	return len(m.members)
}

// Counts returns a copy of the histogram.
func (m *Mempool) Counts() []uint64 {
	res := make([]uint64, len(m.counts))
	copy(res, m.counts)
	return res
}

// Boundaries returns the bucket boundaries of the histogram.
func (m *Mempool) Boundaries() *buckets.Boundaries {
	return m.boundaries
}
