package variantsService

import (
	"fmt"
	"sort"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants"
	cs "github.com/G2Lab/PrecisionChain/models/constants/call-status"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/models/faults"
)

// Encode partitions each row's calls into non-reference genotype classes.
//
// Homozygous reference samples are left implicit. Missing and malformed
// calls are tagged as no-calls: they are kept out of the partition and out
// of the position's called total, and counted in the batch's skip summary.
func Encode(batch models.VariantBatch) (models.EncodedBatch, error) {
	if !chromosome.IsValidHumanChromosome(batch.Chromosome) {
		return models.EncodedBatch{}, fmt.Errorf("%w: %q", faults.ErrInvalidChromosome, batch.Chromosome)
	}
	if len(batch.SampleIds) == 0 {
		return models.EncodedBatch{}, fmt.Errorf("%w: batch %s", faults.ErrEmptyBatch, batch.Id)
	}

	seen := make(map[string]struct{}, len(batch.SampleIds))
	for _, s := range batch.SampleIds {
		if _, dup := seen[s]; dup || s == "" {
			return models.EncodedBatch{}, fmt.Errorf("%w: %q in batch %s", faults.ErrDuplicateSample, s, batch.Id)
		}
		seen[s] = struct{}{}
	}

	encoded := models.EncodedBatch{
		Id:         batch.Id,
		Chromosome: chromosome.Normalize(batch.Chromosome),
		SampleIds:  append([]string(nil), batch.SampleIds...),
		Positions:  make([]models.EncodedPosition, 0, len(batch.Rows)),
	}

	rows := make(map[models.VariantKey]struct{}, len(batch.Rows))
	for _, row := range batch.Rows {
		if err := row.Key.Validate(); err != nil {
			return models.EncodedBatch{}, err
		}
		if _, dup := rows[row.Key]; dup {
			return models.EncodedBatch{}, fmt.Errorf("%w: %s appears twice in batch %s", faults.ErrInvalidVariant, row.Key, batch.Id)
		}
		rows[row.Key] = struct{}{}

		if len(row.Calls) != len(batch.SampleIds) {
			return models.EncodedBatch{}, fmt.Errorf("%w: %s has %d calls for %d samples",
				faults.ErrCallCountMismatch, row.Key, len(row.Calls), len(batch.SampleIds))
		}

		encoded.Positions = append(encoded.Positions, encodeRow(row, batch.SampleIds, &encoded.Skipped))
	}

	sort.Slice(encoded.Positions, func(i, j int) bool {
		return encoded.Positions[i].Key.Less(encoded.Positions[j].Key)
	})

	return encoded, nil
}

func encodeRow(row models.VariantRow, sampleIds []string, skipped *models.SkipSummary) models.EncodedPosition {
	altCount := row.Key.AltCount()

	position := models.EncodedPosition{
		Key:     row.Key,
		Classes: map[constants.Genotype][]string{},
		NoCalls: []string{},
	}

	for i, call := range row.Calls {
		class, status := gt.Parse(call, altCount)
		if status != cs.Called {
			position.NoCalls = append(position.NoCalls, sampleIds[i])
			skipped.Add(row.Key, status)
			continue
		}

		position.Called++
		if class == gt.HomozygousReference {
			continue
		}
		position.Classes[class] = append(position.Classes[class], sampleIds[i])
	}

	return position
}
