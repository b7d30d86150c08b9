package feerate

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pkg/errors"

	"github.com/0xb10c/feebuckets/src/types"
)

// ErrUnresolvable is returned when a transaction, or an output one of its
// inputs spends, is not part of the transaction set.
var ErrUnresolvable = errors.New("transaction not resolvable in transaction set")

// NegativeFeeError is returned when the outputs of a transaction exceed the
// previous outputs it spends. This is a data-integrity fault.
type NegativeFeeError struct {
	TxID    types.Hash32
	Inputs  btcutil.Amount
	Outputs btcutil.Amount
}

func (e *NegativeFeeError) Error() string {
	return fmt.Sprintf(
		"transaction %s spends %d sat but creates %d sat", e.TxID, e.Inputs, e.Outputs,
	)
}

// IntegrityError collects the negative-fee transactions found while
// computing the fee rates of a whole transaction set.
type IntegrityError struct {
	Faults []*NegativeFeeError
}

func (e *IntegrityError) Error() string {
	if len(e.Faults) == 1 {
		return e.Faults[0].Error()
	}
	return fmt.Sprintf("%d transactions with negative fee, first: %s", len(e.Faults), e.Faults[0])
}

// TxIDs returns the ids of the offending transactions.
func (e *IntegrityError) TxIDs() []types.Hash32 {
	res := make([]types.Hash32, len(e.Faults))
	for i, f := range e.Faults {
		res[i] = f.TxID
	}
	return res
}

func IsUnresolvable(err error) bool {
	return errors.Cause(err) == ErrUnresolvable
}

func IsNegativeFee(err error) bool {
	_, ok := errors.Cause(err).(*NegativeFeeError)
	return ok
}

func IsIntegrityError(err error) bool {
	_, ok := errors.Cause(err).(*IntegrityError)
	return ok
}
