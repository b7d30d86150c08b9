package histogram

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xb10c/feebuckets/src/buckets"
	"github.com/0xb10c/feebuckets/src/test"
)

func newTestMempool() *Mempool {
	return NewMempool(buckets.MustBuildBoundaries(50, 500))
}

func TestMempool_AddRemove(t *testing.T) {
	m := newTestMempool()
	txid := test.GenerateHash32("tx")

	require.True(t, m.Add(txid, 2.0))
	assert.True(t, m.Contains(txid))
	assert.Equal(t, 1, m.Len())

	counts := m.Counts()
	assert.Equal(t, uint64(1), counts[m.Boundaries().Classify(2.0)])
	assert.Equal(t, uint64(1), sum(counts))

	require.True(t, m.Remove(txid))
	assert.False(t, m.Contains(txid))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, uint64(0), sum(m.Counts()))

	assert.False(t, m.Remove(txid), "second removal is a no-op")
}

func TestMempool_AddRemoveRestoresState(t *testing.T) {
	m := newTestMempool()
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		m.Add(test.GenerateHash32(fmt.Sprintf("tx-%d", i)), 1+r.Float64()*600)
	}

	for i := 0; i < 50; i++ {
		before := m.Counts()
		beforeLen := m.Len()

		txid := test.GenerateHash32(fmt.Sprintf("new-%d", i))
		require.True(t, m.Add(txid, 1+r.Float64()*600))
		require.True(t, m.Remove(txid))

		assert.Equal(t, before, m.Counts())
		assert.Equal(t, beforeLen, m.Len())
		assert.False(t, m.Contains(txid))
	}
}

func TestMempool_AddIdempotent(t *testing.T) {
	m := newTestMempool()
	txid := test.GenerateHash32("tx")

	require.True(t, m.Add(txid, 10))
	before := m.Counts()

	assert.False(t, m.Add(txid, 10))
	assert.False(t, m.Add(txid, 300), "a changed rate does not recount")
	assert.Equal(t, before, m.Counts())
	assert.Equal(t, 1, m.Len())

	// removal uses the bucket recorded at add time
	require.True(t, m.Remove(txid))
	assert.Equal(t, uint64(0), sum(m.Counts()))
}

func TestMempool_IgnoresLowFeeRates(t *testing.T) {
	m := newTestMempool()
	for i, rate := range []float64{-1, 0, 0.5, 1.0} {
		txid := test.GenerateHash32(fmt.Sprintf("tx-%d", i))
		assert.False(t, m.Add(txid, rate))
		assert.False(t, m.Contains(txid))
	}
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, uint64(0), sum(m.Counts()))

	assert.True(t, m.Add(test.GenerateHash32("above"), 1.0001))
}

func TestMempool_SumEqualsMembers(t *testing.T) {
	m := newTestMempool()
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		txid := test.GenerateHash32(fmt.Sprintf("tx-%d", r.Intn(200)))
		if r.Intn(3) == 0 {
			m.Remove(txid)
		} else {
			m.Add(txid, r.Float64()*800)
		}
		require.Equal(t, uint64(m.Len()), sum(m.Counts()))
	}
}

func TestMempool_Clear(t *testing.T) {
	m := newTestMempool()
	for i := 0; i < 10; i++ {
		m.Add(test.GenerateHash32(fmt.Sprintf("tx-%d", i)), float64(2+i*50))
	}
	require.Equal(t, 10, m.Len())

	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, m.Boundaries().NewHistogram(), m.Counts())
	assert.False(t, m.Remove(test.GenerateHash32("tx-0")))

	assert.True(t, m.Add(test.GenerateHash32("tx-0"), 3))
}
