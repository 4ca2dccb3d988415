package variantsService

import (
	"errors"
	"testing"

	"github.com/G2Lab/PrecisionChain/models/constants"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/models/faults"

	. "github.com/ahmetb/go-linq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePartition(t *testing.T) {
	samples := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	batch := batchOf("b1", "1", samples,
		row(200, "C", "T", "0|0", "0|0", "0|0", "0|0", "0|0", "0|0"),
		row(100, "A", "G", "0/1", "1|0", "1/1", "0|0", "./.", "x/y"),
	)

	encoded, err := Encode(batch)
	require.Nil(t, err)
	require.Len(t, encoded.Positions, 2)

	t.Run("positions come out ordered", func(t *testing.T) {
		assert.Equal(t, int64(100), encoded.Positions[0].Key.Position)
		assert.Equal(t, int64(200), encoded.Positions[1].Key.Position)
	})

	t.Run("every sample lands in exactly one class, the implicit reference or the no-calls", func(t *testing.T) {
		for _, position := range encoded.Positions {
			seen := map[string]int{}
			for g, members := range position.Classes {
				assert.NotEmpty(t, members, string(g))
				assert.NotEqual(t, gt.HomozygousReference, g)
				for _, s := range members {
					seen[s]++
				}
			}
			for _, s := range position.NoCalls {
				seen[s]++
			}

			homRef := 0
			for _, s := range samples {
				assert.LessOrEqual(t, seen[s], 1, s)
				if seen[s] == 0 {
					homRef++
				}
			}
			assert.Equal(t, position.Called, len(samples)-len(position.NoCalls))

			nonRef := From(position.Classes).SelectT(func(kv KeyValue) int {
				return len(kv.Value.([]string))
			}).SumInts()
			assert.Equal(t, int64(position.Called-homRef), nonRef)
		}
	})

	t.Run("heterozygous calls share one class regardless of order", func(t *testing.T) {
		p := encoded.Positions[0]
		assert.Equal(t, []string{"s1", "s2"}, p.Classes["1|0"])
		assert.Equal(t, []string{"s3"}, p.Classes["1|1"])
		assert.Equal(t, []string{"s5", "s6"}, p.NoCalls)
		assert.Equal(t, 4, p.Called)
	})

	t.Run("all reference row stores nothing", func(t *testing.T) {
		p := encoded.Positions[1]
		assert.Empty(t, p.Classes)
		assert.Equal(t, 6, p.Called)
	})

	t.Run("skip summary separates missing from malformed", func(t *testing.T) {
		assert.Equal(t, 1, encoded.Skipped.Missing)
		assert.Equal(t, 1, encoded.Skipped.Malformed)
		assert.Equal(t, 2, encoded.Skipped.ByPosition["100:A:G"])
	})
}

func TestEncodeMultiallelic(t *testing.T) {
	batch := batchOf("b1", "chr2", []string{"s1", "s2", "s3", "s4", "s5"},
		row(500, "A", "G,T", "0|2", "2|1", "1|1", "0|0", "2|3"),
	)

	encoded, err := Encode(batch)
	require.Nil(t, err)
	assert.Equal(t, "2", encoded.Chromosome)

	p := encoded.Positions[0]
	assert.Equal(t, map[constants.Genotype][]string{
		"2|0": {"s1"},
		"2|1": {"s2"},
		"1|1": {"s3"},
	}, p.Classes)
	// allele 3 does not exist at a two-alt site
	assert.Equal(t, []string{"s5"}, p.NoCalls)

	for g := range p.Classes {
		assert.Contains(t, gt.Enumerate(2), g)
	}
}

func TestEncodeRejectsInvalidBatches(t *testing.T) {
	_, err := Encode(batchOf("b", "1", []string{"s1", "s1"}, row(1, "A", "G", "0|1", "0|1")))
	assert.True(t, errors.Is(err, faults.ErrDuplicateSample))

	_, err = Encode(batchOf("b", "1", []string{"s1", "s2"}, row(1, "A", "G", "0|1")))
	assert.True(t, errors.Is(err, faults.ErrCallCountMismatch))

	_, err = Encode(batchOf("b", "25", []string{"s1"}, row(1, "A", "G", "0|1")))
	assert.True(t, errors.Is(err, faults.ErrInvalidChromosome))

	_, err = Encode(batchOf("b", "1", nil))
	assert.True(t, errors.Is(err, faults.ErrEmptyBatch))

	_, err = Encode(batchOf("b", "1", []string{"s1"}, row(1, "A", "G", "0|1"), row(1, "A", "G", "1|1")))
	assert.True(t, faults.IsErrInvalid(err))
}
