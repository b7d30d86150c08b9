package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/0xb10c/feebuckets/src/bitcoinrpcclient"
	"github.com/0xb10c/feebuckets/src/config"
	"github.com/0xb10c/feebuckets/src/daemon"
	"github.com/0xb10c/feebuckets/src/storage"
	"github.com/0xb10c/feebuckets/src/zmqsubscriber"
)

var log = logrus.WithField("module", "main")

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

	log.Info("Starting feebuckets daemon")

	store, err := storage.NewStorage(opts.DBPath)
	if err != nil {
		log.Fatalf("could not initialize storage: %s", err)
	}

	rpcClient, err := bitcoinrpcclient.NewBitcoinRPCClient(opts.RPCAddress, opts.CookiePath)
	if err != nil {
		log.Fatalf("could not setup RPC client: %s", err)
	}

	zmqSub, err := zmqsubscriber.NewZMQSubscriber(opts.ZMQAddress)
	if err != nil {
		log.Fatalf("could not setup ZMQ subscriber: %s", err)
	}

	d, err := daemon.New(opts, rpcClient, zmqSub, store)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		s := <-c
		log.Infof("Received signal %s, shutting down", s)
		cancel()
	}()

	errRun := d.Run(ctx)
	if errRun != nil {
		log.Errorf("Error during operation, shutting down: %s", errRun)
	}
	cancel()

	var errClose error
	if err := zmqSub.Quit(); err != nil {
		errClose = err
	}
	rpcClient.Shutdown()
	if err := store.Close(); err != nil {
		errClose = err
	}
	if errClose != nil {
		log.Errorf("Error during shutdown: %s", errClose)
	}

	if errRun != nil || errClose != nil {
		os.Exit(1)
	}

	os.Exit(0)
}
