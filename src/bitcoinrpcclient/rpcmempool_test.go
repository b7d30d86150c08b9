package bitcoinrpcclient

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xb10c/feebuckets/src/test"
	"github.com/0xb10c/feebuckets/src/types"
)

func TestRawMempoolToEntries(t *testing.T) {
	const txidStr = "b1fea52486ce0c62bb442b530a3f0132b826c74e473d1f2c220bfa78111c5082"
	item := GetRawMempoolVerboseResult{Weight: 561, Time: 1600000000}
	item.Fees.Base = 0.00000281

	entries, err := RawMempoolToEntries(map[string]GetRawMempoolVerboseResult{txidStr: item})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, txidStr, e.TxID.String())
	assert.Equal(t, btcutil.Amount(281), e.Fee)
	assert.Equal(t, 561, e.Weight)
	assert.Equal(t, time.Unix(1600000000, 0).UTC(), e.FirstSeen)

	rate, ok := e.FeeRate()
	require.True(t, ok)
	assert.InDelta(t, 281/140.25, rate, 1e-9)

	_, err = RawMempoolToEntries(map[string]GetRawMempoolVerboseResult{"zz": item})
	assert.Error(t, err)
}

func TestBitcoinRPCClient_MempoolEntries(t *testing.T) {
	test.SkipIfShort(t)

	nTransactions := 32

	env, err := test.NewTestEnv()
	require.NoError(t, err)
	defer env.Quit()

	rpcClient, err := NewBitcoinRPCClient(env.RPCAddress(), "")
	require.NoError(t, err)
	defer rpcClient.Shutdown()

	// coinbase outputs need 100 confirmations
	_, err = env.GenerateBlocks(101)
	require.NoError(t, err)

	entries, err := rpcClient.MempoolEntries()
	require.NoError(t, err)
	require.Len(t, entries, 0)

	addressSendTo, err := env.GetNewAddress()
	require.NoError(t, err)

	start := time.Now().Add(-time.Second)

	generatedTxIDs := map[types.Hash32]struct{}{}
	for i := 0; i < nTransactions; i++ {
		txid, err := env.SendSimpleTransaction(addressSendTo)
		require.NoError(t, err)
		generatedTxIDs[types.NewHashFromChainhash(txid)] = struct{}{}
	}

	end := time.Now().Add(time.Second)
	require.Len(t, generatedTxIDs, nTransactions)

	entries, err = rpcClient.MempoolEntries()
	require.NoError(t, err)
	require.Len(t, entries, nTransactions)

	for _, e := range entries {
		assert.True(t, e.FirstSeen.After(start))
		assert.True(t, e.FirstSeen.Before(end))
		assert.Greater(t, int(e.Fee), 100)
		assert.Less(t, int(e.Fee), 1000)
		assert.Greater(t, e.Weight, 100)
		assert.Less(t, e.Weight, 1000)
		assert.Contains(t, generatedTxIDs, e.TxID)
	}

	_, err = env.GenerateBlocks(1)
	require.NoError(t, err)

	entries, err = rpcClient.MempoolEntries()
	require.NoError(t, err)
	require.Len(t, entries, 0)
}
