package types

import (
	"time"

	"github.com/btcsuite/btcd/wire"
)

type Block struct {
	Hash         Hash32        `json:"hash"`
	Parent       Hash32        `json:"parent"`
	Time         time.Time     `json:"time"`
	FirstSeen    time.Time     `json:"firstSeen"`
	Height       int32         `json:"height"`
	Transactions []Transaction `json:"transactions"`
}

// TxIDs returns the ids of the contained transactions in block order.
func (b *Block) TxIDs() []Hash32 {
	res := make([]Hash32, len(b.Transactions))
	for i := range b.Transactions {
		res[i] = b.Transactions[i].TxID
	}
	return res
}

// NewBlockFromWire converts a deserialized wire block. The height is not part
// of the block message and must be supplied by the caller; use -1 if unknown.
func NewBlockFromWire(msgBlock *wire.MsgBlock, height int32, firstSeen time.Time) Block {
	blockHash := msgBlock.BlockHash()
	block := Block{
		Hash:         NewHashFromChainhash(&blockHash),
		Parent:       NewHashFromChainhash(&msgBlock.Header.PrevBlock),
		Time:         msgBlock.Header.Timestamp,
		FirstSeen:    firstSeen,
		Height:       height,
		Transactions: make([]Transaction, len(msgBlock.Transactions)),
	}
	for i, msgTx := range msgBlock.Transactions {
		block.Transactions[i] = NewTransactionFromWire(msgTx, firstSeen)
	}
	return block
}
