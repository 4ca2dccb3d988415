package leveldb

import (
	"context"
	"fmt"
	"testing"

	"github.com/G2Lab/PrecisionChain/models/faults"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

func newTestLedger(t *testing.T, inlineThreshold int) *Ledger {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedger(db, inlineThreshold)
}

func TestInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 0)

	for i := 0; i < 5; i++ {
		_, err := l.Insert(ctx, "chrom_1", []string{fmt.Sprint(100 + i%2), "A", "G"}, []byte(fmt.Sprintf(`{"n":%d}`, i)))
		require.Nil(t, err)
	}
	// same prefix, different stream
	_, err := l.Insert(ctx, "chrom_10", []string{"100"}, []byte(`{"n":99}`))
	require.Nil(t, err)

	all, err := ledger.QueryAll(ctx, l, "chrom_1", "", 2)
	require.Nil(t, err)
	require.Len(t, all.Records, 5)
	for i, r := range all.Records {
		assert.Equal(t, int64(i), r.Sequence)
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(r.Data.Json))
		if i > 0 {
			assert.Greater(t, r.Timestamp, all.Records[i-1].Timestamp)
		}
	}

	byKey, err := ledger.QueryAll(ctx, l, "chrom_1", "100", 2)
	require.Nil(t, err)
	require.Len(t, byKey.Records, 3)
	assert.Equal(t, []int64{0, 2, 4}, []int64{byKey.Records[0].Sequence, byKey.Records[1].Sequence, byKey.Records[2].Sequence})

	page, err := l.Query(ctx, "chrom_1", ledger.Filter{Key: "101", Start: 1}, 10)
	require.Nil(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, int64(3), page.Records[0].Sequence)
}

func TestStreams(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 0)

	result, err := l.Query(ctx, "chrom_2", ledger.Filter{}, 10)
	require.Nil(t, err)
	assert.Equal(t, ledger.StreamNotFound, result.Outcome)

	require.Nil(t, l.CreateStream(ctx, "chrom_2"))
	result, err = l.Query(ctx, "chrom_2", ledger.Filter{}, 10)
	require.Nil(t, err)
	assert.Equal(t, ledger.Empty, result.Outcome)

	_, err = l.Insert(ctx, "chrom_2", []string{"samples"}, []byte(`{}`))
	require.Nil(t, err)
	// creating again keeps existing records
	require.Nil(t, l.CreateStream(ctx, "chrom_2"))
	result, err = l.Query(ctx, "chrom_2", ledger.Filter{}, 10)
	require.Nil(t, err)
	assert.Len(t, result.Records, 1)
}

func TestOffRecordPayloads(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, 8)

	value := []byte(`{"samples":["A","B","C"]}`)
	ack, err := l.Insert(ctx, "chrom_1", []string{"samples"}, value)
	require.Nil(t, err)

	result, err := l.Query(ctx, "chrom_1", ledger.Filter{Key: "samples"}, 10)
	require.Nil(t, err)
	require.Len(t, result.Records, 1)
	assert.Empty(t, result.Records[0].Data.Json)
	assert.Equal(t, ack.TxId, result.Records[0].Data.TxId)

	payload, err := ledger.Payload(ctx, l, result.Records[0])
	require.Nil(t, err)
	assert.Equal(t, value, payload)

	_, err = l.Resolve(ctx, "nope")
	assert.True(t, faults.IsErrNotFound(err))
}
