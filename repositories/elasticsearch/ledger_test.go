package elasticsearch

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/G2Lab/PrecisionChain/models/faults"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponse = `{
	"took": 3,
	"hits": {
		"total": {"value": 2, "relation": "eq"},
		"hits": [
			{
				"_index": "ledger-chrom_1",
				"_id": "a",
				"_source": {
					"stream": "chrom_1",
					"keys": ["samples"],
					"payload": "{\"batch\":\"b1\",\"chunk\":0,\"samples\":[\"A\",\"B\"]}",
					"txid": "a",
					"timestamp": 1690000000000000001,
					"sequence": 1690000000000000001
				}
			},
			{
				"_index": "ledger-chrom_1",
				"_id": "b",
				"_source": {
					"stream": "chrom_1",
					"keys": ["100", "A", "G", "1|0"],
					"payload": "{\"batch\":\"b1\",\"samples\":[\"A\"]}",
					"txid": "b",
					"timestamp": 2,
					"sequence": 2
				}
			}
		]
	}
}`

func TestDecodeHits(t *testing.T) {
	var result map[string]interface{}
	decoder := json.NewDecoder(strings.NewReader(searchResponse))
	decoder.UseNumber()
	require.Nil(t, decoder.Decode(&result))

	records, err := decodeHits(result)
	require.Nil(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"samples"}, records[0].Keys)
	assert.JSONEq(t, `{"batch":"b1","chunk":0,"samples":["A","B"]}`, string(records[0].Data.Json))
	assert.Equal(t, int64(1690000000000000001), records[0].Timestamp)
	assert.Equal(t, []string{"100", "A", "G", "1|0"}, records[1].Keys)
	assert.Equal(t, int64(2), records[1].Sequence)
}

func TestDecodeHitsRejectsMalformedResponses(t *testing.T) {
	_, err := decodeHits(map[string]interface{}{"took": 1})
	assert.True(t, faults.IsErrMalformed(err))

	_, err = decodeHits(map[string]interface{}{
		"hits": map[string]interface{}{
			"hits": []interface{}{
				map[string]interface{}{"_source": map[string]interface{}{"keys": 12}},
			},
		},
	})
	assert.True(t, faults.IsErrMalformed(err))
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "ledger-maf_chrom_x", indexName("MAF_chrom_X"))
	assert.Equal(t, "ledger-chrom_1", indexName("chrom_1"))
}

func TestTimestampsStrictlyIncrease(t *testing.T) {
	l := NewLedger(nil, nil)
	previous := l.nextTimestamp()
	for i := 0; i < 100; i++ {
		next := l.nextTimestamp()
		assert.Greater(t, next, previous)
		previous = next
	}
}
