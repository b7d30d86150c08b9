// Package daemon keeps the block window and mempool histograms current from
// a Bitcoin node and stores snapshots of them.
package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xb10c/feebuckets/src/buckets"
	"github.com/0xb10c/feebuckets/src/config"
	"github.com/0xb10c/feebuckets/src/feerate"
	"github.com/0xb10c/feebuckets/src/histogram"
	"github.com/0xb10c/feebuckets/src/types"
)

var log = logrus.WithField("module", "daemon")

// Source provides recent blocks and the mempool of a node.
type Source interface {
	RecentBlocks(ctx context.Context, n int) ([]types.Block, error)
	MempoolEntries() ([]types.MempoolEntry, error)
}

// Feed announces new transactions and blocks.
type Feed interface {
	Transactions() <-chan types.Transaction
	Blocks() <-chan types.Block
}

// SnapshotStore persists histogram snapshots.
type SnapshotStore interface {
	InsertSnapshot(snapshot *types.Snapshot) (int64, error)
}

type Daemon struct {
	source           Source
	feed             Feed
	store            SnapshotStore
	boundaries       *buckets.Boundaries
	windowSize       int
	snapshotInterval time.Duration

	windowMu sync.Mutex
	window   *histogram.BlockWindow

	mempool *MempoolTracker
}

// New sets up a daemon. store may be nil, in which case no snapshots are
// written.
func New(opts *config.Options, source Source, feed Feed, store SnapshotStore) (*Daemon, error) {
	boundaries, err := opts.Boundaries()
	if err != nil {
		return nil, err
	}
	window, err := histogram.NewBlockWindow(opts.WindowSize, boundaries)
	if err != nil {
		return nil, err
	}
	if opts.SnapshotInterval <= 0 {
		return nil, errors.Errorf("snapshot interval must be positive, got %s", opts.SnapshotInterval)
	}

	return &Daemon{
		source:           source,
		feed:             feed,
		store:            store,
		boundaries:       boundaries,
		windowSize:       opts.WindowSize,
		snapshotInterval: opts.SnapshotInterval,
		window:           window,
		mempool:          NewMempoolTracker(boundaries, DefaultConfirmedCacheSize),
	}, nil
}

// Run loads the window and the mempool and then follows the feed until ctx
// is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.bootstrap(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(d.snapshotInterval)
	defer ticker.Stop()

	txs, blocks := d.feed.Transactions(), d.feed.Blocks()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case tx, ok := <-txs:
			if !ok {
				return errors.New("transaction feed closed")
			}
			d.handleTransaction(tx)
		case block, ok := <-blocks:
			if !ok {
				return errors.New("block feed closed")
			}
			if err := d.handleBlock(ctx, block); err != nil {
				log.Errorf("could not handle block %s: %s", block.Hash, err)
			}
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Daemon) bootstrap(ctx context.Context) error {
	if err := d.reloadWindow(ctx); err != nil {
		return err
	}
	if err := d.Resync(); err != nil {
		return err
	}
	d.storeSnapshots(time.Now())
	return nil
}

func logIntegrityError(err error) {
	e, ok := errors.Cause(err).(*feerate.IntegrityError)
	if !ok {
		log.Error(err)
		return
	}
	for _, txid := range e.TxIDs() {
		log.WithField("txid", txid).Error("transaction with outputs exceeding inputs")
	}
}

// reloadWindow replaces the window with the most recent blocks of the
// source.
func (d *Daemon) reloadWindow(ctx context.Context) error {
	blocks, err := d.source.RecentBlocks(ctx, d.windowSize)
	if err != nil {
		return errors.Wrap(err, "could not load recent blocks")
	}

	window, err := histogram.NewBlockWindow(d.windowSize, d.boundaries)
	if err != nil {
		return err
	}
	for _, block := range blocks {
		if err := window.Add(block); err != nil {
			if !feerate.IsIntegrityError(err) {
				return err
			}
			logIntegrityError(err)
		}
	}

	d.windowMu.Lock()
	d.window = window
	d.windowMu.Unlock()
	d.mempool.Reconfirm(window.Blocks())

	if tip, ok := window.Tip(); ok {
		log.Infof("loaded %d blocks up to %s (height %d)", window.Len(), tip.Hash, tip.Height)
	}
	if !window.Full() {
		log.Warnf("only %d of %d blocks available, block histogram not ready", window.Len(), d.windowSize)
	}
	return nil
}

// Resync rebuilds the mempool histogram from the node's mempool.
func (d *Daemon) Resync() error {
	entries, err := d.source.MempoolEntries()
	if err != nil {
		return errors.Wrap(err, "could not load mempool")
	}
	added := d.mempool.Resync(entries)
	log.Debugf("resynced mempool: %d of %d entries counted", added, len(entries))
	return nil
}

func (d *Daemon) handleTransaction(tx types.Transaction) {
	d.windowMu.Lock()
	confirmed := d.window.TransactionSet()
	d.windowMu.Unlock()

	if _, err := d.mempool.AddTransaction(tx, confirmed); err != nil {
		log.WithField("txid", tx.TxID).Errorf("could not add mempool transaction: %s", err)
	}
}

// addBlock appends block to the window. It returns false if block does not
// extend the current tip, in which case nothing was changed.
func (d *Daemon) addBlock(block *types.Block) (bool, error) {
	d.windowMu.Lock()
	defer d.windowMu.Unlock()

	tip, ok := d.window.Tip()
	if ok {
		if block.Hash == tip.Hash {
			return true, nil
		}
		if block.Parent != tip.Hash {
			return false, nil
		}
		if block.Height < 0 {
			block.Height = tip.Height + 1
		}
	}
	return true, d.window.Add(*block)
}

func (d *Daemon) handleBlock(ctx context.Context, block types.Block) error {
	extended, err := d.addBlock(&block)
	if err != nil {
		if !feerate.IsIntegrityError(err) {
			return err
		}
		logIntegrityError(err)
	}

	if !extended {
		log.Warnf("block %s does not extend the tip, reloading", block.Hash)
		if err := d.reloadWindow(ctx); err != nil {
			return err
		}
		if err := d.Resync(); err != nil {
			return err
		}
	} else {
		removed := d.mempool.ConfirmBlock(&block)
		log.Infof("block %s at height %d: %d transactions, %d left the mempool histogram",
			block.Hash, block.Height, len(block.Transactions), removed)
	}

	d.storeSnapshots(time.Now())
	return nil
}

func (d *Daemon) tick() {
	if err := d.Resync(); err != nil {
		log.Error(err)
	}
	d.storeSnapshot(d.mempoolSnapshot(time.Now()))
}

// BlockHistogram returns a copy of the block window histogram, or
// histogram.ErrHistogramUnavailable while the window is not full.
func (d *Daemon) BlockHistogram() ([]uint64, error) {
	d.windowMu.Lock()
	defer d.windowMu.Unlock()
	counts, ok := d.window.Histogram()
	if !ok {
		return nil, histogram.ErrHistogramUnavailable
	}
	return counts, nil
}

// MempoolHistogram returns a copy of the mempool histogram.
func (d *Daemon) MempoolHistogram() []uint64 {
	return d.mempool.Counts()
}

func (d *Daemon) blockSnapshot(now time.Time) (*types.Snapshot, bool) {
	d.windowMu.Lock()
	defer d.windowMu.Unlock()

	counts, ok := d.window.Histogram()
	if !ok {
		return nil, false
	}
	tip, _ := d.window.Tip()
	return &types.Snapshot{
		Kind:       types.SnapshotBlocks,
		TakenAt:    now,
		BestHash:   tip.Hash,
		BestHeight: tip.Height,
		TxCount:    d.window.CountedTransactions(),
		Counts:     counts,
	}, true
}

func (d *Daemon) mempoolSnapshot(now time.Time) *types.Snapshot {
	snapshot := &types.Snapshot{
		Kind:       types.SnapshotMempool,
		TakenAt:    now,
		BestHeight: -1,
		TxCount:    d.mempool.Len(),
		Counts:     d.mempool.Counts(),
	}

	d.windowMu.Lock()
	if tip, ok := d.window.Tip(); ok {
		snapshot.BestHash = tip.Hash
		snapshot.BestHeight = tip.Height
	}
	d.windowMu.Unlock()
	return snapshot
}

func (d *Daemon) storeSnapshots(now time.Time) {
	if snapshot, ok := d.blockSnapshot(now); ok {
		d.storeSnapshot(snapshot)
	}
	d.storeSnapshot(d.mempoolSnapshot(now))
}

func (d *Daemon) storeSnapshot(snapshot *types.Snapshot) {
	if d.store == nil {
		return
	}
	if _, err := d.store.InsertSnapshot(snapshot); err != nil {
		log.Errorf("could not store %s snapshot: %s", snapshot.Kind, err)
	}
}
