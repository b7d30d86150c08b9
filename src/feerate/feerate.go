// Package feerate computes transaction fees and fee rates against a closed
// set of known transactions.
package feerate

import (
	"bytes"
	"sort"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/0xb10c/feebuckets/src/types"
)

// OutputValues are the output values of a transaction by output index.
type OutputValues []btcutil.Amount

// TransactionSet is a closed set of transactions. Previous outputs are only
// looked up within the set.
type TransactionSet struct {
	txs          map[types.Hash32]*types.Transaction
	outputValues map[types.Hash32]OutputValues
}

// NewTransactionSet builds the set and its output-value table. The map is not
// retained but the transactions are referenced, so callers must not modify
// them afterwards.
func NewTransactionSet(txs map[types.Hash32]types.Transaction) *TransactionSet {
	s := &TransactionSet{
		txs:          make(map[types.Hash32]*types.Transaction, len(txs)),
		outputValues: make(map[types.Hash32]OutputValues, len(txs)),
	}
	for txid := range txs {
		tx := txs[txid]
		s.add(txid, &tx)
	}
	return s
}

func (s *TransactionSet) add(txid types.Hash32, tx *types.Transaction) {
	s.txs[txid] = tx
	s.outputValues[txid] = valuesOf(tx)
}

func valuesOf(tx *types.Transaction) OutputValues {
	values := make(OutputValues, len(tx.Outputs))
	for i, out := range tx.Outputs {
		values[i] = out.Value
	}
	return values
}

// Len returns the number of transactions in the set.
func (s *TransactionSet) Len() int {
	return len(s.txs)
}

// OutputValues returns the output values of txid. A nil set contains
// nothing.
func (s *TransactionSet) OutputValues(txid types.Hash32) (OutputValues, bool) {
	if s == nil {
		return nil, false
	}
	values, ok := s.outputValues[txid]
	return values, ok
}

// OutputLookup resolves the output values of previous transactions.
type OutputLookup interface {
	OutputValues(txid types.Hash32) (OutputValues, bool)
}

// OutputTable is a mutable OutputLookup.
type OutputTable map[types.Hash32]OutputValues

func (t OutputTable) OutputValues(txid types.Hash32) (OutputValues, bool) {
	values, ok := t[txid]
	return values, ok
}

// Put records the output values of tx.
func (t OutputTable) Put(tx *types.Transaction) {
	t[tx.TxID] = valuesOf(tx)
}

func lookupOutput(out types.OutPoint, lookups []OutputLookup) (btcutil.Amount, bool) {
	for _, l := range lookups {
		if l == nil {
			continue
		}
		values, ok := l.OutputValues(out.TxID)
		if !ok {
			continue
		}
		if int64(out.Index) >= int64(len(values)) {
			return 0, false
		}
		return values[out.Index], true
	}
	return 0, false
}

// Fee returns the fee of tx. Spent outputs are looked up in lookups, in
// order, and the first one knowing the previous transaction decides. It fails
// with ErrUnresolvable if a spent output is unknown and with a
// *NegativeFeeError if the outputs exceed the inputs. A transaction without
// inputs is unresolvable.
func Fee(tx *types.Transaction, lookups ...OutputLookup) (btcutil.Amount, error) {
	if len(tx.Inputs) == 0 {
		return 0, ErrUnresolvable
	}
	sumOutputs := tx.OutputSum()
	var sumInputs btcutil.Amount
	for _, in := range tx.Inputs {
		value, ok := lookupOutput(in.PreviousOutPoint, lookups)
		if !ok {
			return 0, ErrUnresolvable
		}
		sumInputs += value
	}
	if sumOutputs > sumInputs {
		return 0, &NegativeFeeError{TxID: tx.TxID, Inputs: sumInputs, Outputs: sumOutputs}
	}
	return sumInputs - sumOutputs, nil
}

// Rate returns the fee rate of tx in sat/vbyte; see Fee. A transaction
// without weight is unresolvable.
func Rate(tx *types.Transaction, lookups ...OutputLookup) (float64, error) {
	if tx.Weight <= 0 {
		return 0, ErrUnresolvable
	}
	fee, err := Fee(tx, lookups...)
	if err != nil {
		return 0, err
	}
	return float64(fee) / tx.VSize(), nil
}

// AbsoluteFee returns the fee of tx, which does not have to be part of the
// set; see Fee.
func (s *TransactionSet) AbsoluteFee(tx *types.Transaction) (btcutil.Amount, error) {
	return Fee(tx, s)
}

// TxFeeRate returns the fee rate of tx in sat/vbyte; see Rate.
func (s *TransactionSet) TxFeeRate(tx *types.Transaction) (float64, error) {
	return Rate(tx, s)
}

// FeeRate returns the fee rate of the transaction txid in sat/vbyte.
func (s *TransactionSet) FeeRate(txid types.Hash32) (float64, error) {
	tx, ok := s.txs[txid]
	if !ok {
		return 0, ErrUnresolvable
	}
	return s.TxFeeRate(tx)
}

// FeeRates returns the fee rates of all resolvable transactions in the set,
// in no particular order. Unresolvable transactions are skipped. Transactions
// with a negative fee are skipped as well and reported in a *IntegrityError
// next to the rates of the others.
func (s *TransactionSet) FeeRates() ([]float64, error) {
	rates := make([]float64, 0, len(s.txs))
	var faults []*NegativeFeeError
	for _, tx := range s.txs {
		rate, err := s.TxFeeRate(tx)
		switch e := err.(type) {
		case nil:
			rates = append(rates, rate)
		case *NegativeFeeError:
			faults = append(faults, e)
		}
	}
	if len(faults) > 0 {
		sort.Slice(faults, func(i, j int) bool {
			return bytes.Compare(faults[i].TxID[:], faults[j].TxID[:]) < 0
		})
		return rates, &IntegrityError{Faults: faults}
	}
	return rates, nil
}
