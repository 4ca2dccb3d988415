package variantsService

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	mafBucket "github.com/G2Lab/PrecisionChain/models/constants/maf-bucket"
	"github.com/G2Lab/PrecisionChain/models/faults"
	"github.com/G2Lab/PrecisionChain/models/indexes"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"
)

type (
	MafEntry struct {
		Key       models.AggregateKey `json:"key"`
		Frequency float64             `json:"frequency"`
	}

	MafResult struct {
		Chromosome string           `json:"chromosome"`
		Lower      float64          `json:"lower"`
		Upper      float64          `json:"upper"`
		Buckets    []string         `json:"buckets"`
		Entries    []MafEntry       `json:"entries"`
		Warnings   []models.Warning `json:"warnings"`
	}
)

// Buckets rebuilds all eight MAF buckets from the full snapshot. Every
// bucket is present, even when empty, so each publish replaces them all.
func Buckets(s Snapshot) []indexes.BucketRecord {
	records := make([]indexes.BucketRecord, len(mafBucket.All))
	byRange := make(map[string]*indexes.BucketRecord, len(mafBucket.All))
	for i, b := range mafBucket.All {
		records[i] = indexes.BucketRecord{
			Range:       b.Key(),
			Frequencies: map[string]float64{},
		}
		byRange[b.Key()] = &records[i]
	}

	for _, key := range s.Keys() {
		frequency := s.Aggregate(key).Frequency
		if b, ok := mafBucket.ForFrequency(frequency); ok {
			byRange[b.Key()].Frequencies[key.String()] = frequency
		}
	}

	return records
}

// MafRange returns every class whose latest published frequency f satisfies
// lo <= f < hi, reading only the buckets that intersect [lo, hi).
func (vs *VariantService) MafRange(ctx context.Context, chrom string, lo float64, hi float64) (MafResult, error) {
	if !chromosome.IsValidHumanChromosome(chrom) {
		return MafResult{}, fmt.Errorf("%w: %q", faults.ErrInvalidChromosome, chrom)
	}
	if lo < 0 || lo > 1 || hi <= lo {
		return MafResult{}, fmt.Errorf("%w: [%v, %v)", faults.ErrInvalidMafRange, lo, hi)
	}

	stream := chromosome.MafStream(chrom)
	result := MafResult{
		Chromosome: chromosome.Normalize(chrom),
		Lower:      lo,
		Upper:      hi,
		Buckets:    []string{},
		Entries:    []MafEntry{},
	}

	for _, b := range mafBucket.Overlapping(lo, hi) {
		res, err := ledger.QueryAll(ctx, vs.Ledger, stream, b.Key(), vs.pageSize())
		if err != nil {
			return MafResult{}, fmt.Errorf("reading %s bucket %s: %w", stream, b.Key(), err)
		}
		if res.Outcome == ledger.StreamNotFound {
			return MafResult{}, fmt.Errorf("%w: %s", faults.ErrStreamNotFound, stream)
		}
		result.Buckets = append(result.Buckets, b.Key())

		latest, found := latestRecord(res.Records)
		if !found {
			continue
		}

		payload, err := ledger.Payload(ctx, vs.Ledger, latest)
		if err != nil {
			return MafResult{}, fmt.Errorf("%s bucket %s: %w", stream, b.Key(), err)
		}
		var bucket indexes.BucketRecord
		if err := json.Unmarshal(payload, &bucket); err != nil {
			return MafResult{}, fmt.Errorf("%w: %s bucket %s: %v", faults.ErrMalformedRecord, stream, b.Key(), err)
		}

		for composite, frequency := range bucket.Frequencies {
			if frequency < lo || frequency >= hi {
				continue
			}
			key, err := models.ParseAggregateKey(composite)
			if err != nil {
				result.Warnings = append(result.Warnings, models.Warning{
					Stream:  stream,
					Keys:    []string{b.Key(), composite},
					Message: err.Error(),
				})
				continue
			}
			result.Entries = append(result.Entries, MafEntry{Key: key, Frequency: frequency})
		}
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		return aggregateKeyLess(result.Entries[i].Key, result.Entries[j].Key)
	})

	return result, nil
}

// latestRecord picks the highest timestamp, later ledger order on ties.
func latestRecord(records []ledger.Record) (ledger.Record, bool) {
	if len(records) == 0 {
		return ledger.Record{}, false
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.Timestamp >= latest.Timestamp {
			latest = r
		}
	}
	return latest, true
}
