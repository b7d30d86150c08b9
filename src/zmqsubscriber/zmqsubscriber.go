package zmqsubscriber

import (
	"bytes"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xb10c/feebuckets/src/types"
)

var log = logrus.WithField("module", "zmq")

const (
	TopicRawTx    = "rawtx"
	TopicRawBlock = "rawblock"

	// receiveTimeout bounds how long Quit waits for the receive loop.
	receiveTimeout = 500 * time.Millisecond
)

// ZMQSubscriber receives raw transactions and raw blocks from bitcoind's
// ZMQ interface and publishes them decoded on channels. Blocks have a height
// of -1, the ZMQ message does not carry it.
type ZMQSubscriber struct {
	Address string
	Topics  []string

	socket         *zmq4.Socket
	incomingTx     chan types.Transaction
	incomingBlocks chan types.Block
	quit           chan struct{}
	done           chan struct{}
}

func parseTransaction(firstSeen time.Time, msg [][]byte) (types.Transaction, error) {
	if len(msg) != 2 {
		return types.Transaction{}, errors.Errorf("unknown message format: len(msg)=%d", len(msg))
	}
	var msgTx wire.MsgTx
	if err := msgTx.Deserialize(bytes.NewReader(msg[0])); err != nil {
		return types.Transaction{}, errors.Wrap(err, "could not decode rawtx")
	}
	return types.NewTransactionFromWire(&msgTx, firstSeen), nil
}

func parseBlock(firstSeen time.Time, msg [][]byte) (types.Block, error) {
	if len(msg) != 2 {
		return types.Block{}, errors.Errorf("unknown message format: len(msg)=%d", len(msg))
	}
	var msgBlock wire.MsgBlock
	if err := msgBlock.Deserialize(bytes.NewReader(msg[0])); err != nil {
		return types.Block{}, errors.Wrap(err, "could not decode rawblock")
	}
	return types.NewBlockFromWire(&msgBlock, -1, firstSeen), nil
}

// NewZMQSubscriber connects to a ZMQ publisher, e.g. "tcp://127.0.0.1:28332".
func NewZMQSubscriber(address string) (*ZMQSubscriber, error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	topics := []string{TopicRawTx, TopicRawBlock}
	for _, topic := range topics {
		if err := socket.SetSubscribe(topic); err != nil {
			socket.Close()
			return nil, errors.WithStack(err)
		}
	}

	if err := socket.SetRcvtimeo(receiveTimeout); err != nil {
		socket.Close()
		return nil, errors.WithStack(err)
	}

	if err := socket.Connect(address); err != nil {
		socket.Close()
		return nil, errors.Wrapf(err, "could not connect ZMQ subscriber to '%s'", address)
	}

	z := &ZMQSubscriber{
		Address:        address,
		Topics:         topics,
		socket:         socket,
		incomingTx:     make(chan types.Transaction),
		incomingBlocks: make(chan types.Block),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	go z.receive()

	return z, nil
}

func (z *ZMQSubscriber) receive() {
	defer close(z.done)
	defer close(z.incomingTx)
	defer close(z.incomingBlocks)

	for {
		msg, err := z.socket.RecvMessageBytes(0)
		select {
		case <-z.quit:
			return
		default:
		}
		if err != nil {
			if zmq4.AsErrno(err) != zmq4.Errno(syscall.EAGAIN) {
				log.Errorf("could not receive ZMQ message: %s", err)
			}
			continue
		}
		if len(msg) == 0 {
			continue
		}

		t := time.Now()
		topic, payload := string(msg[0]), msg[1:]
		log.Debugf("%s: %d parts", topic, len(payload))
		switch topic {
		case TopicRawTx:
			tx, err := parseTransaction(t, payload)
			if err != nil {
				log.Warnf("dropping %s message: %s", topic, err)
				continue
			}
			select {
			case z.incomingTx <- tx:
			case <-z.quit:
				return
			}
		case TopicRawBlock:
			block, err := parseBlock(t, payload)
			if err != nil {
				log.Warnf("dropping %s message: %s", topic, err)
				continue
			}
			select {
			case z.incomingBlocks <- block:
			case <-z.quit:
				return
			}
		default:
			log.Warnf("unknown topic %v", topic)
		}
	}
}

// Transactions returns the channel of decoded mempool transactions. It is
// closed after Quit.
func (z *ZMQSubscriber) Transactions() <-chan types.Transaction {
	return z.incomingTx
}

// Blocks returns the channel of decoded blocks. It is closed after Quit.
func (z *ZMQSubscriber) Blocks() <-chan types.Block {
	return z.incomingBlocks
}

// Quit stops the receive loop and closes the socket.
func (z *ZMQSubscriber) Quit() error {
	close(z.quit)
	<-z.done
	return z.socket.Close()
}
