package types

import (
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// OutPoint references a previous transaction output.
type OutPoint struct {
	TxID  Hash32 `json:"txid"`
	Index uint32 `json:"vout"`
}

// TxIn is a transaction input spending a previous output.
type TxIn struct {
	PreviousOutPoint OutPoint `json:"prevout"`
}

// TxOut is a transaction output carrying a value in satoshi.
type TxOut struct {
	Value btcutil.Amount `json:"value"`
}

// Transaction represents a Bitcoin transaction reduced to the data needed
// for fee computation.
type Transaction struct {
	TxID      Hash32    `json:"txid"`
	FirstSeen time.Time `json:"firstSeen"`
	Inputs    []TxIn    `json:"inputs"`
	Outputs   []TxOut   `json:"outputs"`
	Weight    int       `json:"weight"`
}

// VSize returns the virtual size (weight / 4) used for fee rates.
// Unlike the policy vsize this is not rounded up.
func (tx *Transaction) VSize() float64 {
	return float64(tx.Weight) / blockchain.WitnessScaleFactor
}

// OutputSum returns the sum of all output values.
func (tx *Transaction) OutputSum() (sum btcutil.Amount) {
	for _, out := range tx.Outputs {
		sum += out.Value
	}
	return
}

// IsCoinbase reports whether the transaction has the single null input of a
// coinbase.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 &&
		tx.Inputs[0].PreviousOutPoint.TxID.IsZero() &&
		tx.Inputs[0].PreviousOutPoint.Index == wire.MaxPrevOutIndex
}

// NewTransactionFromWire converts a deserialized wire transaction.
func NewTransactionFromWire(msgTx *wire.MsgTx, firstSeen time.Time) Transaction {
	txHash := msgTx.TxHash()
	tx := Transaction{
		TxID:      NewHashFromChainhash(&txHash),
		FirstSeen: firstSeen,
		Inputs:    make([]TxIn, len(msgTx.TxIn)),
		Outputs:   make([]TxOut, len(msgTx.TxOut)),
		Weight:    int(blockchain.GetTransactionWeight(btcutil.NewTx(msgTx))),
	}
	for i, in := range msgTx.TxIn {
		tx.Inputs[i] = TxIn{PreviousOutPoint: OutPoint{
			TxID:  NewHashFromChainhash(&in.PreviousOutPoint.Hash),
			Index: in.PreviousOutPoint.Index,
		}}
	}
	for i, out := range msgTx.TxOut {
		tx.Outputs[i] = TxOut{Value: btcutil.Amount(out.Value)}
	}
	return tx
}

// MempoolEntry is a mempool transaction as reported by `getrawmempool`,
// where the node already knows the fee.
type MempoolEntry struct {
	TxID      Hash32         `json:"txid"`
	FirstSeen time.Time      `json:"firstSeen"`
	Fee       btcutil.Amount `json:"fee"`
	Weight    int            `json:"weight"`
}

// FeeRate returns the fee rate in sat/vbyte. The second return value is false
// for entries without a weight.
func (e *MempoolEntry) FeeRate() (float64, bool) {
	if e.Weight <= 0 {
		return 0, false
	}
	return float64(e.Fee) / (float64(e.Weight) / blockchain.WitnessScaleFactor), true
}
