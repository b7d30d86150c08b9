// Package histogram maintains fee-rate histograms over a sliding window of
// recent blocks and over the mempool.
//
// None of the types in this package are safe for concurrent use. Callers
// sharing an instance between goroutines must serialize access to it.
package histogram

import (
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/pkg/errors"

	"github.com/0xb10c/feebuckets/src/buckets"
	"github.com/0xb10c/feebuckets/src/feerate"
	"github.com/0xb10c/feebuckets/src/types"
)

// DefaultWindowSize is the number of recent blocks a BlockWindow considers.
const DefaultWindowSize = 10

var (
	// ErrInvalidWindowSize is returned for a window that cannot hold a block.
	ErrInvalidWindowSize = errors.New("window size must be positive")

	// ErrHistogramUnavailable signals that the window is not full yet. It is
	// a transient state, not a failure.
	ErrHistogramUnavailable = errors.New("block window histogram not available yet")
)

// BlockWindow holds the most recent blocks and, once it holds exactly `size`
// of them, a histogram of the fee rates of all their transactions.
type BlockWindow struct {
	size       int
	boundaries *buckets.Boundaries

	// oldest block at the front
	blocks *circularbuffer.Queue

	histogram []uint64
	txSet     *feerate.TransactionSet
	counted   int
}

// NewBlockWindow returns an empty window for `size` blocks.
func NewBlockWindow(size int, boundaries *buckets.Boundaries) (*BlockWindow, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidWindowSize, "got %d", size)
	}
	if boundaries == nil {
		return nil, errors.New("boundaries must not be nil")
	}
	return &BlockWindow{
		size:       size,
		boundaries: boundaries,
		blocks:     circularbuffer.New(size),
	}, nil
}

// Add inserts block as the most recent one, evicting the oldest block if the
// window is at capacity. If the window is full afterwards the histogram is
// rebuilt from scratch.
//
// A *feerate.IntegrityError means the histogram was rebuilt without the
// transactions that have a negative fee.
func (w *BlockWindow) Add(block types.Block) error {
	if w.blocks.Full() {
		w.blocks.Dequeue()
	}
	w.blocks.Enqueue(&block)

	if !w.Full() {
		return nil
	}
	return w.rebuild()
}

func (w *BlockWindow) rebuild() error {
	txs := map[types.Hash32]types.Transaction{}
	// Oldest to newest, so that if a txid shows up in more than one block the
	// copy from the most recently added block is kept.
	for _, v := range w.blocks.Values() {
		block := v.(*types.Block)
		for _, tx := range block.Transactions {
			txs[tx.TxID] = tx
		}
	}

	txSet := feerate.NewTransactionSet(txs)
	rates, err := txSet.FeeRates()
	if err != nil && !feerate.IsIntegrityError(err) {
		return err
	}

	histogram := w.boundaries.NewHistogram()
	for _, rate := range rates {
		histogram[w.boundaries.Classify(rate)]++
	}

	w.histogram = histogram
	w.txSet = txSet
	w.counted = len(rates)
	return err
}

// Histogram returns a copy of the last computed histogram. The second return
// value is false while the window holds fewer than `size` blocks.
func (w *BlockWindow) Histogram() ([]uint64, bool) {
	if w.histogram == nil {
		return nil, false
	}
	res := make([]uint64, len(w.histogram))
	copy(res, w.histogram)
	return res, true
}

// Boundaries returns the bucket boundaries of the histogram.
func (w *BlockWindow) Boundaries() *buckets.Boundaries {
	return w.boundaries
}

// Size returns the capacity of the window.
func (w *BlockWindow) Size() int {
	return w.size
}

// Len returns the number of blocks currently held.
func (w *BlockWindow) Len() int {
	return w.blocks.Size()
}

// Full reports whether the window holds `size` blocks.
func (w *BlockWindow) Full() bool {
	return w.blocks.Size() == w.size
}

// Blocks returns the blocks in the window, most recent first.
func (w *BlockWindow) Blocks() []*types.Block {
	values := w.blocks.Values()
	res := make([]*types.Block, len(values))
	for i, v := range values {
		res[len(values)-1-i] = v.(*types.Block)
	}
	return res
}

// Tip returns the most recently added block.
func (w *BlockWindow) Tip() (*types.Block, bool) {
	blocks := w.Blocks()
	if len(blocks) == 0 {
		return nil, false
	}
	return blocks[0], true
}

// TransactionSet returns the closed transaction set of the last rebuild, or
// nil if the histogram is not available.
func (w *BlockWindow) TransactionSet() *feerate.TransactionSet {
	return w.txSet
}

// CountedTransactions returns the number of transactions in the histogram.
func (w *BlockWindow) CountedTransactions() int {
	return w.counted
}

// LastActiveBlockTime returns the header time of the most recent block that
// contains more than its coinbase.
func (w *BlockWindow) LastActiveBlockTime() (time.Time, bool) {
	for _, block := range w.Blocks() {
		if len(block.Transactions) > 1 {
			return block.Time, true
		}
	}
	return time.Time{}, false
}
