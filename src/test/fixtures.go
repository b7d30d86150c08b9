package test

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/0xb10c/feebuckets/src/types"
)

// GenerateHash32 returns the hash of a provided preimage.
func GenerateHash32(seed string) types.Hash32 {
	return sha256.Sum256([]byte(seed))
}

// GetTime returns a fixed point in time shifted by `seconds`.
func GetTime(seconds int) time.Time {
	return time.Unix(1600000000+int64(seconds), 0).UTC()
}

// Spend references output `index` of the transaction generated from `seed`.
func Spend(seed string, index uint32) types.TxIn {
	return types.TxIn{PreviousOutPoint: types.OutPoint{
		TxID:  GenerateHash32(seed),
		Index: index,
	}}
}

// NewTx returns a transaction with id GenerateHash32(seed), the given inputs
// and one output per value.
func NewTx(seed string, weight int, inputs []types.TxIn, values ...btcutil.Amount) types.Transaction {
	outputs := make([]types.TxOut, len(values))
	for i, v := range values {
		outputs[i] = types.TxOut{Value: v}
	}
	return types.Transaction{
		TxID:    GenerateHash32(seed),
		Inputs:  inputs,
		Outputs: outputs,
		Weight:  weight,
	}
}

// NewCoinbase returns a coinbase transaction paying `value`.
func NewCoinbase(seed string, value btcutil.Amount) types.Transaction {
	return NewTx(seed, 400, []types.TxIn{{PreviousOutPoint: types.OutPoint{
		Index: wire.MaxPrevOutIndex,
	}}}, value)
}

// NewBlock returns a block with hash GenerateHash32(seed).
func NewBlock(seed string, parent types.Hash32, height int32, txs ...types.Transaction) types.Block {
	return types.Block{
		Hash:         GenerateHash32(seed),
		Parent:       parent,
		Height:       height,
		Time:         GetTime(int(height) * 600),
		FirstSeen:    GetTime(int(height) * 600),
		Transactions: txs,
	}
}

// TestChain is a chain of blocks where every block spends the outputs of the
// previous one. Each block has a coinbase and one payment with a known fee
// rate.
type TestChain struct {
	Blocks []types.Block
	// FeeRates maps the txid of each payment to its fee rate in sat/vbyte.
	FeeRates map[types.Hash32]float64
}

// NewTestChain builds `n` blocks. The payment in block i pays
// rates[i % len(rates)] sat/vbyte at 1000 vbytes. The first payment spends
// the coinbase of the first block, every later one spends the change of the
// previous payment, so each payment is resolvable only if its parent is in the
// same closed transaction set.
func NewTestChain(n int, rates []btcutil.Amount) *TestChain {
	const vsize = 1000
	chain := &TestChain{FeeRates: map[types.Hash32]float64{}}

	var parent types.Hash32
	prevSeed := ""
	prevValue := btcutil.Amount(0)
	for i := 0; i < n; i++ {
		coinbase := NewCoinbase(fmt.Sprintf("coinbase-%d", i), 50*btcutil.SatoshiPerBitcoin)
		txs := []types.Transaction{coinbase}

		inSeed, inValue := prevSeed, prevValue
		if i == 0 {
			inSeed, inValue = fmt.Sprintf("coinbase-%d", i), coinbase.Outputs[0].Value
		}
		rate := rates[i%len(rates)]
		fee := rate * vsize
		paySeed := fmt.Sprintf("pay-%d", i)
		pay := NewTx(paySeed, vsize*4, []types.TxIn{Spend(inSeed, 0)}, inValue-fee)
		txs = append(txs, pay)
		chain.FeeRates[pay.TxID] = float64(rate)

		block := NewBlock(fmt.Sprintf("block-%d", i), parent, int32(i), txs...)
		chain.Blocks = append(chain.Blocks, block)
		parent = block.Hash
		prevSeed, prevValue = paySeed, inValue-fee
	}
	return chain
}
