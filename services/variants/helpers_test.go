package variantsService

import (
	"context"
	"testing"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"
	"github.com/G2Lab/PrecisionChain/utils"

	"github.com/stretchr/testify/require"
)

func newTestServices(recordChunkSize int, inlineThreshold int) (*VariantService, *Publisher, *ledger.Memory) {
	cfg := &models.Config{}
	// small pages so every read goes through paging
	cfg.Ledger.PageSize = 3
	cfg.Ledger.RecordChunkSize = recordChunkSize
	cfg.Ledger.ManifestChunkSize = 2

	m := ledger.NewMemory(inlineThreshold)
	return NewVariantService(cfg, m), NewPublisher(cfg, m), m
}

// ingest runs a batch through the whole write path
func ingest(t *testing.T, vs *VariantService, pub *Publisher, batch models.VariantBatch) Snapshot {
	ctx := context.Background()

	encoded, err := Encode(batch)
	require.Nil(t, err)

	state, err := vs.LoadState(ctx, batch.Chromosome)
	require.Nil(t, err)

	universe := utils.UniqueSortedStrings(append(append([]string{}, state.Universe...), batch.SampleIds...))
	next, updates, report := Aggregate(state.Snapshot, encoded, len(universe))
	require.False(t, report.ReplaySuspected)

	_, err = pub.PublishBatch(ctx, encoded, updates)
	require.Nil(t, err)
	_, err = pub.PublishBuckets(ctx, batch.Chromosome, next)
	require.Nil(t, err)

	return next
}

func row(position int64, ref string, alt string, calls ...string) models.VariantRow {
	return models.VariantRow{
		Key:   models.VariantKey{Position: position, Ref: ref, Alt: alt},
		Calls: calls,
	}
}

func batchOf(id string, chrom string, samples []string, rows ...models.VariantRow) models.VariantBatch {
	return models.VariantBatch{Id: id, Chromosome: chrom, SampleIds: samples, Rows: rows}
}
