package daemon

import (
	"sync"

	"github.com/decred/dcrd/lru"

	"github.com/0xb10c/feebuckets/src/buckets"
	"github.com/0xb10c/feebuckets/src/feerate"
	"github.com/0xb10c/feebuckets/src/histogram"
	"github.com/0xb10c/feebuckets/src/types"
)

// DefaultConfirmedCacheSize is the number of recently confirmed txids
// remembered to ignore late announcements.
const DefaultConfirmedCacheSize = 100000

// MempoolTracker keeps the mempool histogram up to date from getrawmempool
// entries, raw transactions and confirmed blocks. It is safe for concurrent
// use.
type MempoolTracker struct {
	mu        sync.Mutex
	histogram *histogram.Mempool
	// outputs of raw mempool transactions, so children in the mempool can
	// be resolved
	outputs       feerate.OutputTable
	confirmed     lru.Cache
	confirmedSize uint
}

func NewMempoolTracker(boundaries *buckets.Boundaries, confirmedCacheSize uint) *MempoolTracker {
	return &MempoolTracker{
		histogram:     histogram.NewMempool(boundaries),
		outputs:       feerate.OutputTable{},
		confirmed:     lru.NewCache(confirmedCacheSize),
		confirmedSize: confirmedCacheSize,
	}
}

// AddEntry adds a single getrawmempool entry, which carries its fee.
// Recently confirmed transactions are ignored.
func (t *MempoolTracker) AddEntry(e types.MempoolEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.confirmed.Contains(e.TxID) {
		return false
	}
	return t.addEntry(e)
}

func (t *MempoolTracker) addEntry(e types.MempoolEntry) bool {
	rate, ok := e.FeeRate()
	if !ok {
		return false
	}
	return t.histogram.Add(e.TxID, rate)
}

// AddTransaction resolves the fee of a raw mempool transaction against the
// confirmed transactions in blocks and the mempool transactions seen before,
// and adds it. Unresolvable transactions are skipped without error, a
// *feerate.NegativeFeeError is returned.
func (t *MempoolTracker) AddTransaction(tx types.Transaction, blocks feerate.OutputLookup) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.confirmed.Contains(tx.TxID) {
		return false, nil
	}
	t.outputs.Put(&tx)

	rate, err := feerate.Rate(&tx, blocks, t.outputs)
	if err != nil {
		if feerate.IsUnresolvable(err) {
			return false, nil
		}
		return false, err
	}
	return t.histogram.Add(tx.TxID, rate), nil
}

// ConfirmBlock removes the transactions of block from the mempool and
// returns how many were counted.
func (t *MempoolTracker) ConfirmBlock(block *types.Block) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for _, txid := range block.TxIDs() {
		if t.histogram.Remove(txid) {
			removed++
		}
		delete(t.outputs, txid)
		t.confirmed.Add(txid)
	}
	return removed
}

// Reconfirm forgets all confirmations and confirms the transactions of
// blocks instead. It is used after the block window was reloaded, when
// earlier blocks may no longer be part of the chain.
func (t *MempoolTracker) Reconfirm(blocks []*types.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.confirmed = lru.NewCache(t.confirmedSize)
	for _, block := range blocks {
		for _, txid := range block.TxIDs() {
			t.histogram.Remove(txid)
			delete(t.outputs, txid)
			t.confirmed.Add(txid)
		}
	}
}

// Resync replaces the histogram with one built from a full getrawmempool
// result. The node's mempool is authoritative: entries are counted even if
// they were confirmed in a block that has since been disconnected. Raw
// transactions no longer in the mempool are forgotten.
func (t *MempoolTracker) Resync(entries []types.MempoolEntry) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.histogram.Clear()
	current := make(map[types.Hash32]struct{}, len(entries))
	for _, e := range entries {
		current[e.TxID] = struct{}{}
	}
	for txid := range t.outputs {
		if _, ok := current[txid]; !ok {
			delete(t.outputs, txid)
		}
	}

	added := 0
	for _, e := range entries {
		t.confirmed.Delete(e.TxID)
		if t.addEntry(e) {
			added++
		}
	}
	return added
}

// Counts returns a copy of the histogram.
func (t *MempoolTracker) Counts() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.histogram.Counts()
}

// Len returns the number of counted transactions.
func (t *MempoolTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.histogram.Len()
}

func (t *MempoolTracker) Contains(txid types.Hash32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.histogram.Contains(txid)
}
