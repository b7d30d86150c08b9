package feerate

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xb10c/feebuckets/src/test"
	"github.com/0xb10c/feebuckets/src/types"
)

func txMap(txs ...types.Transaction) map[types.Hash32]types.Transaction {
	res := map[types.Hash32]types.Transaction{}
	for _, tx := range txs {
		res[tx.TxID] = tx
	}
	return res
}

func TestTransactionSet_FeeRate(t *testing.T) {
	parent := test.NewTx("parent", 800, nil, 10000, 5000)
	// spends both outputs, pays 15000 - 14000 = 1000 sat at 250 vbyte
	child := test.NewTx("child", 1000, []types.TxIn{
		test.Spend("parent", 0),
		test.Spend("parent", 1),
	}, 14000)

	s := NewTransactionSet(txMap(parent, child))
	require.Equal(t, 2, s.Len())

	rate, err := s.FeeRate(child.TxID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rate)

	fee, err := s.AbsoluteFee(&child)
	require.NoError(t, err)
	assert.Equal(t, btcutil.Amount(1000), fee)

	// the parent spends nothing we know
	_, err = s.FeeRate(parent.TxID)
	assert.True(t, IsUnresolvable(err), err)

	_, err = s.FeeRate(test.GenerateHash32("unknown"))
	assert.True(t, IsUnresolvable(err), err)
}

func TestTransactionSet_FeeRateFractionalVSize(t *testing.T) {
	parent := test.NewTx("parent", 800, nil, 1000)
	child := test.NewTx("child", 561, []types.TxIn{test.Spend("parent", 0)}, 720)

	rate, err := NewTransactionSet(txMap(parent, child)).FeeRate(child.TxID)
	require.NoError(t, err)
	assert.InDelta(t, 280/140.25, rate, 1e-12)
}

func TestTransactionSet_OutputIndexOutOfRange(t *testing.T) {
	parent := test.NewTx("parent", 800, nil, 1000)
	child := test.NewTx("child", 400, []types.TxIn{test.Spend("parent", 1)}, 500)

	_, err := NewTransactionSet(txMap(parent, child)).FeeRate(child.TxID)
	assert.True(t, IsUnresolvable(err), err)
}

func TestTransactionSet_ZeroWeight(t *testing.T) {
	parent := test.NewTx("parent", 800, nil, 1000)
	child := test.NewTx("child", 0, []types.TxIn{test.Spend("parent", 0)}, 500)

	_, err := NewTransactionSet(txMap(parent, child)).FeeRate(child.TxID)
	assert.True(t, IsUnresolvable(err), err)
}

func TestTransactionSet_NegativeFee(t *testing.T) {
	parent := test.NewTx("parent", 800, nil, 1000)
	child := test.NewTx("child", 400, []types.TxIn{test.Spend("parent", 0)}, 1500)

	s := NewTransactionSet(txMap(parent, child))
	_, err := s.FeeRate(child.TxID)
	require.Error(t, err)
	require.True(t, IsNegativeFee(err), err)
	assert.False(t, IsUnresolvable(err))

	negErr := err.(*NegativeFeeError)
	assert.Equal(t, child.TxID, negErr.TxID)
	assert.Equal(t, btcutil.Amount(1000), negErr.Inputs)
	assert.Equal(t, btcutil.Amount(1500), negErr.Outputs)
}

func TestTransactionSet_ZeroFee(t *testing.T) {
	parent := test.NewTx("parent", 800, nil, 1000)
	child := test.NewTx("child", 400, []types.TxIn{test.Spend("parent", 0)}, 1000)

	rate, err := NewTransactionSet(txMap(parent, child)).FeeRate(child.TxID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)
}

func TestTransactionSet_FeeRates(t *testing.T) {
	coinbase := test.NewCoinbase("coinbase", 5000)
	a := test.NewTx("a", 400, []types.TxIn{test.Spend("coinbase", 0)}, 4000, 500)
	b := test.NewTx("b", 400, []types.TxIn{test.Spend("a", 0)}, 3800)
	c := test.NewTx("c", 400, []types.TxIn{test.Spend("a", 1)}, 600)
	orphan := test.NewTx("orphan", 400, []types.TxIn{test.Spend("missing", 0)}, 10)

	rates, err := NewTransactionSet(txMap(coinbase, a, b, c, orphan)).FeeRates()
	require.Error(t, err)
	require.True(t, IsIntegrityError(err))
	assert.Equal(t, []types.Hash32{c.TxID}, err.(*IntegrityError).TxIDs())

	// coinbase and orphan are unresolvable, c has a negative fee
	assert.ElementsMatch(t, []float64{5, 2}, rates)
}

func TestTransactionSet_FeeRatesNoFaults(t *testing.T) {
	chain := test.NewTestChain(3, []btcutil.Amount{2, 20, 200})
	txs := map[types.Hash32]types.Transaction{}
	for _, b := range chain.Blocks {
		for _, tx := range b.Transactions {
			txs[tx.TxID] = tx
		}
	}

	rates, err := NewTransactionSet(txs).FeeRates()
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{2, 20, 200}, rates)
}

func TestTransactionSet_NoInputs(t *testing.T) {
	tx := test.NewTx("no-inputs", 400, nil, 1000)
	_, err := NewTransactionSet(txMap(tx)).FeeRate(tx.TxID)
	assert.True(t, IsUnresolvable(err), err)
}

func TestFee_Lookups(t *testing.T) {
	confirmed := test.NewTx("confirmed", 800, nil, 10000)
	unconfirmed := test.NewTx("unconfirmed", 800, []types.TxIn{test.Spend("confirmed", 0)}, 9000)
	child := test.NewTx("child", 400, []types.TxIn{
		test.Spend("confirmed", 0),
		test.Spend("unconfirmed", 0),
	}, 18000)

	set := NewTransactionSet(txMap(confirmed))
	table := OutputTable{}
	table.Put(&unconfirmed)

	_, err := Fee(&child, set)
	assert.True(t, IsUnresolvable(err), err)

	fee, err := Fee(&child, set, table)
	require.NoError(t, err)
	assert.Equal(t, btcutil.Amount(1000), fee)

	rate, err := Rate(&child, table, set)
	require.NoError(t, err)
	assert.Equal(t, 10.0, rate)

	// the first lookup knowing a transaction decides
	shadow := OutputTable{confirmed.TxID: OutputValues{}}
	_, err = Fee(&child, shadow, set, table)
	assert.True(t, IsUnresolvable(err), err)

	var nilSet *TransactionSet
	_, err = Fee(&child, nilSet, table)
	assert.True(t, IsUnresolvable(err), err)
	_, err = Fee(&unconfirmed, nilSet, set)
	assert.NoError(t, err)
}
