package types

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Hash32 is a 32 byte / 256 bit hash.
// This hash is used for block header hashes and transaction IDs. The bytes are
// kept in internal (wire) order, the same order chainhash.Hash uses.
type Hash32 [32]byte

// String returns the hash in the byte-reversed hex form used by the RPC
// interface and block explorers.
func (h Hash32) String() string {
	return chainhash.Hash(h).String()
}

// NewHashFromBytes returns a new Hash32 from a 32-length byte slice.
// Panics on length mismatch.
func NewHashFromBytes(bytes []byte) (res Hash32) {
	if len(bytes) != 32 {
		// for ergonomics, we do not return an error here
		panic(fmt.Errorf("invalid hash length"))
	}
	copy(res[:], bytes)
	return
}

// NewHashFromChainhash converts a btcd hash without changing the byte order.
func NewHashFromChainhash(h *chainhash.Hash) Hash32 {
	return Hash32(*h)
}

// NewHashFromStr parses a hash in RPC (byte-reversed) hex form.
func NewHashFromStr(s string) (Hash32, error) {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return Hash32{}, err
	}
	return NewHashFromChainhash(h), nil
}

// Chainhash returns the hash as a btcd chainhash.Hash for RPC calls.
func (h Hash32) Chainhash() *chainhash.Hash {
	ch := chainhash.Hash(h)
	return &ch
}

// IsZero reports whether all bytes are zero, as in a coinbase input's
// previous outpoint.
func (h Hash32) IsZero() bool {
	return h == Hash32{}
}

// Reversed returns a Hash with the byte sequence in reverse order.
//
// Some RPC results carry hashes in display order while ZMQ and the wire
// protocol use internal order. This method helps converting between both
// representations.
//
// More info: https://bitcoin.stackexchange.com/a/32767/3811
func (h Hash32) Reversed() (res Hash32) {
	for i := range h {
		res[31-i] = h[i]
	}
	return
}
