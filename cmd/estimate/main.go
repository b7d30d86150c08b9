// Command estimate prints the normalized model input vectors for the current
// state of the chain, one per confirmation target.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xb10c/feebuckets/src/bitcoinrpcclient"
	"github.com/0xb10c/feebuckets/src/config"
	"github.com/0xb10c/feebuckets/src/features"
	"github.com/0xb10c/feebuckets/src/feerate"
	"github.com/0xb10c/feebuckets/src/histogram"
)

var log = logrus.WithField("module", "estimate")

func main() {
	opts, err := config.Parse(os.Args[1:])
	if err != nil {
		if config.IsHelp(err) {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %s\n", err)
		os.Exit(1)
	}
	if err := config.InitLog(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanups, like shutting the
// RPC client down, always happen.
func run(opts *config.Options) error {
	targets := features.BlockTargets
	if opts.BlockTarget != 0 {
		targets = features.Targets(opts.BlockTarget)
	}

	describe, err := features.LoadFieldsDescribe(filepath.Join(opts.ModelDir, features.FieldsDescribeFile))
	if err != nil {
		return err
	}

	rpcClient, err := bitcoinrpcclient.NewBitcoinRPCClient(opts.RPCAddress, opts.CookiePath)
	if err != nil {
		return errors.Wrap(err, "could not setup RPC client")
	}
	defer rpcClient.Shutdown()

	boundaries, err := opts.Boundaries()
	if err != nil {
		return err
	}
	window, err := histogram.NewBlockWindow(opts.WindowSize, boundaries)
	if err != nil {
		return err
	}

	blocks, err := rpcClient.RecentBlocks(context.Background(), opts.WindowSize)
	if err != nil {
		return errors.Wrap(err, "could not load recent blocks")
	}
	for _, block := range blocks {
		if err := window.Add(block); err != nil {
			if !feerate.IsIntegrityError(err) {
				return err
			}
			log.Error(err)
		}
	}

	counts, ok := window.Histogram()
	if !ok {
		return errors.Wrapf(histogram.ErrHistogramUnavailable, "got %d of %d blocks", window.Len(), opts.WindowSize)
	}
	lastActive, ok := window.LastActiveBlockTime()
	if !ok {
		tip, _ := window.Tip()
		lastActive = tip.Time
	}

	inputs, err := features.NewInputs(time.Now(), lastActive, counts, boundaries.FeatureNames("b"))
	if err != nil {
		return err
	}
	log.WithField("transactions", window.CountedTransactions()).Infof("histogram %v", counts)

	for _, target := range targets {
		x, err := describe.Normalize(inputs, target)
		if err != nil {
			return errors.Wrapf(err, "could not build input for block target %d", target)
		}
		log.WithField("target", target).Infof("%v", x)
	}
	return nil
}
