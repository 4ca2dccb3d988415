package variantsService

import (
	"context"
	"testing"

	"github.com/G2Lab/PrecisionChain/repositories/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishBatchWritesInOrder(t *testing.T) {
	ctx := context.Background()
	_, pub, m := newTestServices(2, 0)

	encoded := encodeOrFail(t, batchOf("b1", "12", []string{"A", "B", "C"},
		row(100, "A", "G", "0|1", "0|1", "0|1"),
		row(200, "C", "T", "./.", "0|0", "0|0"),
		row(300, "C", "T", "0|0", "0|0", "0|0"),
	))
	next, updates, _ := Aggregate(NewSnapshot(), encoded, 3)

	report, err := pub.PublishBatch(ctx, encoded, updates)
	require.Nil(t, err)
	assert.Equal(t, PublishReport{
		UniverseRecords: 2,
		ClassRecords:    2,
		NoCallRecords:   1,
		ManifestRecords: 2,
	}, report)

	res, err := ledger.QueryAll(ctx, m, "chrom_12", "", 100)
	require.Nil(t, err)
	require.Len(t, res.Records, 7)
	assert.Equal(t, []string{"samples"}, res.Records[0].Keys)
	assert.Equal(t, []string{"samples"}, res.Records[1].Keys)
	assert.Equal(t, []string{"100", "A", "G", "1|0"}, res.Records[2].Keys)
	assert.JSONEq(t, `{"batch":"b1","chunk":1,"samples":["C"],"count":3,"total":3,"frequency":1}`, string(res.Records[3].Data.Json))
	assert.Equal(t, []string{"200", "C", "T", "./."}, res.Records[4].Keys)
	assert.Equal(t, []string{"positions"}, res.Records[6].Keys)

	written, err := pub.PublishBuckets(ctx, "12", next)
	require.Nil(t, err)
	assert.Equal(t, 8, written)

	buckets, err := ledger.QueryAll(ctx, m, "MAF_chrom_12", "0.5-1", 100)
	require.Nil(t, err)
	require.Len(t, buckets.Records, 1)
	assert.JSONEq(t, `{"range":"0.5-1","frequencies":{"100:A:G:1|0":1}}`, string(buckets.Records[0].Data.Json))
}
