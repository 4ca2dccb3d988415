package variantsService

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/models/faults"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructDerivesHomozygousReference(t *testing.T) {
	ctx := context.Background()
	vs, pub, _ := newTestServices(1000, 0)

	ingest(t, vs, pub, batchOf("b1", "1", []string{"A", "B", "C", "D"},
		row(100, "A", "G", "0|1", "1|1", "0|0", "0|0"),
	))

	rec, err := vs.Reconstruct(ctx, Request{Chromosome: "1", Positions: []int64{100}})
	require.Nil(t, err)
	require.Len(t, rec.Positions, 1)

	p := rec.Positions[0]
	assert.Equal(t, map[constants.Genotype][]string{
		"1|0": {"A"},
		"1|1": {"B"},
		"0|0": {"C", "D"},
	}, p.Classes)
	assert.Equal(t, []string{"A", "B", "C", "D"}, rec.Universe)
	assert.Empty(t, p.NoCalls)
	assert.Equal(t, models.Aggregate{Count: 1, Total: 4, Frequency: 0.25}, p.Aggregates["1|1"])

	t.Run("the partition covers the universe exactly once", func(t *testing.T) {
		seen := map[string]int{}
		for _, members := range p.Classes {
			for _, s := range members {
				seen[s]++
			}
		}
		for _, s := range p.NoCalls {
			seen[s]++
		}
		assert.Len(t, seen, len(rec.Universe))
		for s, n := range seen {
			assert.Equal(t, 1, n, s)
		}
	})
}

func TestReconstructUnionsBatchesAndChunks(t *testing.T) {
	ctx := context.Background()
	// two samples per record and everything stored off-record
	vs, pub, _ := newTestServices(2, 8)

	ingest(t, vs, pub, batchOf("b1", "1", []string{"s1", "s2", "s3", "s4", "s5"},
		row(100, "A", "G", "0|1", "0|1", "0|1", "0|1", "./."),
		row(200, "T", "C", "0|0", "0|0", "0|0", "0|0", "0|0"),
	))
	ingest(t, vs, pub, batchOf("b2", "1", []string{"s6", "s7"},
		row(100, "A", "G", "1|0", "0|0"),
	))

	rec, err := vs.Reconstruct(ctx, Request{Chromosome: "1"})
	require.Nil(t, err)
	assert.Len(t, rec.Universe, 7)
	require.Len(t, rec.Positions, 2)

	// every sample of b1 was homozygous reference at 200; b2 never called it
	assert.Equal(t, int64(200), rec.Positions[1].Key.Position)
	assert.Equal(t, map[constants.Genotype][]string{
		gt.HomozygousReference: {"s1", "s2", "s3", "s4", "s5", "s6", "s7"},
	}, rec.Positions[1].Classes)

	p := rec.Positions[0]
	assert.Equal(t, []string{"s1", "s2", "s3", "s4", "s6"}, p.Classes["1|0"])
	assert.Equal(t, []string{"s7"}, p.Classes[gt.HomozygousReference])
	assert.Equal(t, []string{"s5"}, p.NoCalls)
	// the latest aggregate folds both batches
	assert.Equal(t, models.Aggregate{Count: 5, Total: 6, Frequency: 5.0 / 6.0}, p.Aggregates["1|0"])
}

func TestReconstructAllReferencePosition(t *testing.T) {
	ctx := context.Background()
	vs, pub, _ := newTestServices(1000, 0)

	ingest(t, vs, pub, batchOf("b1", "2", []string{"A", "B", "C", "D"},
		row(100, "A", "G", "0|1", "1|1", "0|0", "0|0"),
		row(200, "T", "C", "0|0", "0|0", "0|0", "0|0"),
	))

	rec, err := vs.Reconstruct(ctx, Request{Chromosome: "2", Positions: []int64{200}})
	require.Nil(t, err)
	require.Len(t, rec.Positions, 1)

	p := rec.Positions[0]
	assert.Equal(t, models.VariantKey{Position: 200, Ref: "T", Alt: "C"}, p.Key)
	assert.Equal(t, []string{"A", "B", "C", "D"}, p.Classes[gt.HomozygousReference])
	assert.Empty(t, p.NoCalls)
	assert.Empty(t, p.Aggregates)

	t.Run("other requested positions keep manifest-only positions out", func(t *testing.T) {
		rec, err := vs.Reconstruct(ctx, Request{Chromosome: "2", Positions: []int64{100}})
		require.Nil(t, err)
		require.Len(t, rec.Positions, 1)
		assert.Equal(t, int64(100), rec.Positions[0].Key.Position)
	})

	t.Run("the genotype matrix keeps the reference marker", func(t *testing.T) {
		matrix, _, err := vs.GenotypeMatrix(ctx, "2", []int64{100, 200}, nil)
		require.Nil(t, err)
		assert.Equal(t, []models.VariantKey{
			{Position: 100, Ref: "A", Alt: "G"},
			{Position: 200, Ref: "T", Alt: "C"},
		}, matrix.Markers)
		assert.Equal(t, [][]int{{1, 0}, {2, 0}, {0, 0}, {0, 0}}, matrix.Codes)
	})
}

func TestReconstructFiltersGenotypes(t *testing.T) {
	ctx := context.Background()
	vs, pub, _ := newTestServices(1000, 0)

	ingest(t, vs, pub, batchOf("b1", "X", []string{"A", "B", "C"},
		row(100, "A", "G", "0|1", "1|1", "0|0"),
	))

	rec, err := vs.Reconstruct(ctx, Request{Chromosome: "chrX", Genotypes: []constants.Genotype{"0|1"}})
	require.Nil(t, err)
	require.Len(t, rec.Positions, 1)
	assert.Equal(t, map[constants.Genotype][]string{"1|0": {"A"}}, rec.Positions[0].Classes)

	_, err = vs.Reconstruct(ctx, Request{Chromosome: "X", Genotypes: []constants.Genotype{"het"}})
	assert.True(t, errors.Is(err, faults.ErrInvalidGenotype))
}

func TestReconstructIsIdempotent(t *testing.T) {
	ctx := context.Background()
	vs, pub, _ := newTestServices(2, 0)

	ingest(t, vs, pub, batchOf("b1", "3", []string{"A", "B", "C"},
		row(100, "A", "G,T", "0|2", "1|1", "./."),
		row(150, "G", "C", "0|1", "0|1", "0|0"),
	))

	req := Request{Chromosome: "3", Positions: []int64{150, 100}}
	first, err := vs.Reconstruct(ctx, req)
	require.Nil(t, err)
	second, err := vs.Reconstruct(ctx, req)
	require.Nil(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(100), first.Positions[0].Key.Position)
	assert.Equal(t, int64(150), first.Positions[1].Key.Position)
}

func TestReconstructWithoutUniverse(t *testing.T) {
	ctx := context.Background()
	vs, _, m := newTestServices(1000, 0)

	_, err := vs.Reconstruct(ctx, Request{Chromosome: "4"})
	assert.True(t, errors.Is(err, faults.ErrUnknownSampleUniverse))

	_, err = m.Insert(ctx, "chrom_4", []string{"100", "A", "G", "1|0"}, []byte(`{"batch":"b1","samples":["A"]}`))
	require.Nil(t, err)

	_, err = vs.Reconstruct(ctx, Request{Chromosome: "4"})
	assert.True(t, errors.Is(err, faults.ErrUnknownSampleUniverse))
}

func TestReconstructLastWriteWins(t *testing.T) {
	ctx := context.Background()
	vs, _, m := newTestServices(1000, 0)

	insert := func(keys []string, value string) {
		_, err := m.Insert(ctx, "chrom_5", keys, []byte(value))
		require.Nil(t, err)
	}
	het := []string{"100", "A", "G", "1|0"}

	insert([]string{"samples"}, `{"batch":"b1","chunk":0,"samples":["A","B","C"]}`)
	insert(het, `{"batch":"b1","chunk":0,"samples":["A"],"count":1,"total":3,"frequency":0.3333}`)
	// a rewrite of the same record supersedes it
	insert(het, `{"batch":"b1","chunk":0,"samples":["B"],"count":1,"total":3,"frequency":0.3333}`)

	rec, err := vs.Reconstruct(ctx, Request{Chromosome: "5"})
	require.Nil(t, err)
	assert.Empty(t, rec.Warnings)
	assert.Equal(t, []string{"B"}, rec.Positions[0].Classes["1|0"])
	assert.Equal(t, []string{"A", "C"}, rec.Positions[0].Classes["0|0"])

	t.Run("identical timestamps with different payloads are flagged", func(t *testing.T) {
		m.Now = func() int64 { return 1000 }
		insert(het, `{"batch":"b2","chunk":0,"samples":["C"],"count":2,"total":3,"frequency":0.6667}`)
		insert(het, `{"batch":"b2","chunk":0,"samples":["A"],"count":2,"total":3,"frequency":0.6667}`)

		rec, err := vs.Reconstruct(ctx, Request{Chromosome: "5"})
		require.Nil(t, err)
		require.Len(t, rec.Warnings, 1)
		assert.Equal(t, het, rec.Warnings[0].Keys)
		// the later record in ledger order is kept
		assert.Equal(t, []string{"A", "B"}, rec.Positions[0].Classes["1|0"])
	})
}

func TestReconstructRejectsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	vs, _, m := newTestServices(1000, 0)

	_, err := m.Insert(ctx, "chrom_6", []string{"samples"}, []byte(`{"batch":"b1","samples":"A"}`))
	require.Nil(t, err)

	_, err = vs.Reconstruct(ctx, Request{Chromosome: "6"})
	assert.True(t, faults.IsErrMalformed(err))
}

func TestMafRangeReadsOverlappingBuckets(t *testing.T) {
	ctx := context.Background()
	vs, pub, _ := newTestServices(1000, 0)

	samples := make([]string, 100)
	for i := range samples {
		samples[i] = fmt.Sprintf("s%03d", i)
	}
	hets := func(position int64, n int) models.VariantRow {
		calls := make([]string, len(samples))
		for i := range calls {
			calls[i] = "0|0"
			if i < n {
				calls[i] = "0|1"
			}
		}
		return row(position, "A", "G", calls...)
	}

	ingest(t, vs, pub, batchOf("b1", "7", samples,
		hets(10, 4),  // 0.04
		hets(20, 5),  // 0.05
		hets(30, 6),  // 0.06
		hets(40, 3),  // 0.03
		hets(50, 10), // 0.1
	))

	res, err := vs.MafRange(ctx, "7", 0.04, 0.06)
	require.Nil(t, err)

	assert.Equal(t, []string{"0-0.05", "0.05-0.1"}, res.Buckets)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, int64(10), res.Entries[0].Key.Position)
	assert.Equal(t, 0.04, res.Entries[0].Frequency)
	assert.Equal(t, int64(20), res.Entries[1].Key.Position)
	assert.Equal(t, constants.Genotype("1|0"), res.Entries[1].Key.Genotype)

	t.Run("only the latest bucket publication is read", func(t *testing.T) {
		more := make([]string, 100)
		for i := range more {
			more[i] = fmt.Sprintf("t%03d", i)
		}
		calls := make([]string, 100)
		for i := range calls {
			calls[i] = "0|0"
		}
		// position 10 drops to 4/200
		ingest(t, vs, pub, batchOf("b2", "7", more, row(10, "A", "G", calls...)))

		res, err := vs.MafRange(ctx, "7", 0.04, 0.06)
		require.Nil(t, err)
		require.Len(t, res.Entries, 1)
		assert.Equal(t, int64(20), res.Entries[0].Key.Position)
	})

	t.Run("invalid ranges and streams", func(t *testing.T) {
		_, err := vs.MafRange(ctx, "7", 0.2, 0.1)
		assert.True(t, errors.Is(err, faults.ErrInvalidMafRange))

		_, err = vs.MafRange(ctx, "8", 0, 1)
		assert.True(t, faults.IsErrNotFound(err))
	})
}

func TestLoadStateMatchesIncrementalFold(t *testing.T) {
	ctx := context.Background()
	vs, pub, _ := newTestServices(2, 0)

	ingest(t, vs, pub, batchOf("b1", "9", []string{"A", "B", "C"},
		row(100, "A", "G", "0|1", "./.", "1|1"),
	))
	folded := ingest(t, vs, pub, batchOf("b2", "9", []string{"D", "E"},
		row(100, "A", "G", "0|0", "0|1"),
		row(120, "C", "T", "0|1", "0|0"),
	))

	state, err := vs.LoadState(ctx, "9")
	require.Nil(t, err)
	assert.Equal(t, folded, state.Snapshot)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, state.Universe)
	assert.Contains(t, state.Batches, "b1")
	assert.Contains(t, state.Batches, "b2")

	empty, err := vs.LoadState(ctx, "10")
	require.Nil(t, err)
	assert.Empty(t, empty.Snapshot.Counts)
	assert.Empty(t, empty.Universe)
}

func TestGenotypeMatrix(t *testing.T) {
	ctx := context.Background()
	vs, pub, _ := newTestServices(1000, 0)

	ingest(t, vs, pub, batchOf("b1", "11", []string{"A", "B", "C"},
		row(100, "A", "G", "0|1", "1|1", "0|0"),
		row(200, "A", "G", "./.", "1|1", "0|0"),
		row(300, "A", "G,T", "2|0", "0|0", "2|2"),
	))

	matrix, _, err := vs.GenotypeMatrix(ctx, "11", nil, []string{"A", "C"})
	require.Nil(t, err)

	// position 200 is dropped because A has no call there
	assert.Equal(t, []models.VariantKey{
		{Position: 100, Ref: "A", Alt: "G"},
		{Position: 300, Ref: "A", Alt: "G,T"},
	}, matrix.Markers)
	assert.Equal(t, [][]int{{1, 3}, {0, 4}}, matrix.Codes)

	t.Run("a selection without the no-call keeps the marker", func(t *testing.T) {
		matrix, _, err := vs.GenotypeMatrix(ctx, "11", []int64{200}, []string{"B", "C"})
		require.Nil(t, err)
		assert.Equal(t, [][]int{{2}, {0}}, matrix.Codes)
	})

	t.Run("unknown samples are rejected", func(t *testing.T) {
		_, _, err := vs.GenotypeMatrix(ctx, "11", nil, []string{"Z"})
		assert.True(t, errors.Is(err, faults.ErrUnknownSample))
	})
}
