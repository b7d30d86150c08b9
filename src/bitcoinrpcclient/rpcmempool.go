package bitcoinrpcclient

import (
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pkg/errors"

	"github.com/0xb10c/feebuckets/src/types"
)

// GetRawMempoolVerboseResult implements the current version of `getrawmempool`.
// https://bitcoin.org/en/developer-reference#getrawmempool
// The version provided by btcsuite uses a deprecated format.
type GetRawMempoolVerboseResult struct {
	Weight            int32    `json:"weight"`
	Time              int64    `json:"time"`
	Height            int64    `json:"height"`
	Depends           []string `json:"depends"`
	Bip125Replaceable bool     `json:"bip125-replaceable"`
	Fees              struct {
		Base float64 `json:"base"`
	} `json:"fees"`
}

// GetRawMempoolVerbose returns the transactions in the mempool
func (rpcClient *BitcoinRPCClient) GetRawMempoolVerbose() (map[string]GetRawMempoolVerboseResult, error) {
	jsonArgVerbose, err := json.Marshal(true)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rawResult, err := rpcClient.RawRequest("getrawmempool", []json.RawMessage{jsonArgVerbose})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var mempoolItems map[string]GetRawMempoolVerboseResult
	err = json.Unmarshal(rawResult, &mempoolItems)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return mempoolItems, nil
}

// RawMempoolToEntries converts the result of GetRawMempoolVerbose to a list
// of types.MempoolEntry
func RawMempoolToEntries(
	rpcMempool map[string]GetRawMempoolVerboseResult,
) (res []types.MempoolEntry, err error) {
	for txHashStr, txInfo := range rpcMempool {
		txid, err := types.NewHashFromStr(txHashStr)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding tx hash %s", txHashStr)
		}

		fee, err := btcutil.NewAmount(txInfo.Fees.Base)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid fee of %s", txHashStr)
		}

		res = append(res, types.MempoolEntry{
			TxID:      txid,
			FirstSeen: time.Unix(txInfo.Time, 0).UTC(),
			Fee:       fee,
			Weight:    int(txInfo.Weight),
		})
	}

	return res, nil
}

// MempoolEntries fetches and converts the verbose mempool.
func (rpcClient *BitcoinRPCClient) MempoolEntries() ([]types.MempoolEntry, error) {
	rpcMempool, err := rpcClient.GetRawMempoolVerbose()
	if err != nil {
		return nil, err
	}
	return RawMempoolToEntries(rpcMempool)
}
