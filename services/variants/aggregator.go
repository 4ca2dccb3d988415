package variantsService

import (
	"sort"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants"
)

type (
	// Snapshot is the folded state of one chromosome: the called-sample
	// total per position and the sample count per genotype class.
	Snapshot struct {
		Totals map[models.VariantKey]int
		Counts map[models.AggregateKey]int
	}

	AggregateUpdate struct {
		Key       models.AggregateKey
		Added     int
		Aggregate models.Aggregate
	}

	AggregateReport struct {
		Positions    int
		Updates      int
		UniverseSize int
		// a total exceeding the universe means samples were counted twice
		ReplaySuspected bool
		Overflowing     []models.VariantKey
	}
)

func NewSnapshot() Snapshot {
	return Snapshot{
		Totals: map[models.VariantKey]int{},
		Counts: map[models.AggregateKey]int{},
	}
}

func (s Snapshot) Clone() Snapshot {
	clone := Snapshot{
		Totals: make(map[models.VariantKey]int, len(s.Totals)),
		Counts: make(map[models.AggregateKey]int, len(s.Counts)),
	}
	for k, v := range s.Totals {
		clone.Totals[k] = v
	}
	for k, v := range s.Counts {
		clone.Counts[k] = v
	}
	return clone
}

func (s Snapshot) Aggregate(key models.AggregateKey) models.Aggregate {
	return models.NewAggregate(s.Counts[key], s.Totals[key.VariantKey])
}

// Keys lists every class in the snapshot ordered by position then genotype.
func (s Snapshot) Keys() []models.AggregateKey {
	keys := make([]models.AggregateKey, 0, len(s.Counts))
	for k := range s.Counts {
		keys = append(keys, k)
	}
	sortAggregateKeys(keys)
	return keys
}

// Aggregate folds an encoded batch into prior and returns the new snapshot,
// the refreshed aggregate of every class at every touched position and a
// report. prior is left untouched.
//
// Totals are kept per position, so classes the batch did not observe are
// refolded with the grown total and an unchanged count. The result does not
// depend on how disjoint sample sets are split into batches.
func Aggregate(prior Snapshot, batch models.EncodedBatch, universeSize int) (Snapshot, []AggregateUpdate, AggregateReport) {
	next := prior.Clone()
	report := AggregateReport{UniverseSize: universeSize}

	priorClasses := map[models.VariantKey][]constants.Genotype{}
	for k := range prior.Counts {
		priorClasses[k.VariantKey] = append(priorClasses[k.VariantKey], k.Genotype)
	}

	updates := make([]AggregateUpdate, 0)
	for _, position := range batch.Positions {
		report.Positions++
		next.Totals[position.Key] += position.Called
		total := next.Totals[position.Key]

		if total > universeSize {
			report.ReplaySuspected = true
			report.Overflowing = append(report.Overflowing, position.Key)
		}

		classes := map[constants.Genotype]struct{}{}
		for _, g := range priorClasses[position.Key] {
			classes[g] = struct{}{}
		}
		for g := range position.Classes {
			classes[g] = struct{}{}
		}

		for g := range classes {
			key := models.AggregateKey{VariantKey: position.Key, Genotype: g}
			added := len(position.Classes[g])
			next.Counts[key] += added

			updates = append(updates, AggregateUpdate{
				Key:       key,
				Added:     added,
				Aggregate: models.NewAggregate(next.Counts[key], total),
			})
		}
	}

	sort.Slice(updates, func(i, j int) bool {
		return aggregateKeyLess(updates[i].Key, updates[j].Key)
	})
	report.Updates = len(updates)

	return next, updates, report
}

func aggregateKeyLess(a models.AggregateKey, b models.AggregateKey) bool {
	if a.VariantKey != b.VariantKey {
		return a.VariantKey.Less(b.VariantKey)
	}
	return a.Genotype < b.Genotype
}

func sortAggregateKeys(keys []models.AggregateKey) {
	sort.Slice(keys, func(i, j int) bool {
		return aggregateKeyLess(keys[i], keys[j])
	})
}
