package variantsService

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/models/indexes"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"
	"github.com/G2Lab/PrecisionChain/utils"
)

type (
	// Publisher writes a folded batch to the ledger.
	Publisher struct {
		Ledger            ledger.Adapter
		RecordChunkSize   int
		ManifestChunkSize int
	}

	PublishReport struct {
		UniverseRecords int `json:"universeRecords"`
		ClassRecords    int `json:"classRecords"`
		NoCallRecords   int `json:"noCallRecords"`
		ManifestRecords int `json:"manifestRecords"`
		BucketRecords   int `json:"bucketRecords"`
	}
)

func NewPublisher(cfg *models.Config, l ledger.Adapter) *Publisher {
	return &Publisher{
		Ledger:            l,
		RecordChunkSize:   cfg.Ledger.RecordChunkSize,
		ManifestChunkSize: cfg.Ledger.ManifestChunkSize,
	}
}

// PublishBatch appends, in order, the batch's sample universe records, a
// class record for every refreshed aggregate, the no-call records and the
// position manifest.
func (p *Publisher) PublishBatch(ctx context.Context, batch models.EncodedBatch, updates []AggregateUpdate) (PublishReport, error) {
	stream := chromosome.VariantStream(batch.Chromosome)
	report := PublishReport{}

	if err := ledger.EnsureStream(ctx, p.Ledger, stream); err != nil {
		return report, fmt.Errorf("creating %s: %w", stream, err)
	}

	for chunk, samples := range utils.Chunk(batch.SampleIds, p.RecordChunkSize) {
		record := indexes.UniverseRecord{Batch: batch.Id, Chunk: chunk, Samples: samples}
		if err := p.insert(ctx, stream, []string{indexes.UniverseKey}, record); err != nil {
			return report, err
		}
		report.UniverseRecords++
	}

	observed := map[models.AggregateKey][]string{}
	for _, position := range batch.Positions {
		for g, samples := range position.Classes {
			observed[models.AggregateKey{VariantKey: position.Key, Genotype: g}] = samples
		}
	}

	for _, u := range updates {
		keys := recordKeys(u.Key.VariantKey, string(u.Key.Genotype))
		for chunk, samples := range utils.Chunk(nonNil(observed[u.Key]), p.RecordChunkSize) {
			record := indexes.ClassRecord{
				Batch:     batch.Id,
				Chunk:     chunk,
				Samples:   samples,
				Count:     u.Aggregate.Count,
				Total:     u.Aggregate.Total,
				Frequency: u.Aggregate.Frequency,
			}
			if err := p.insert(ctx, stream, keys, record); err != nil {
				return report, err
			}
			report.ClassRecords++
		}
	}

	manifest := make([]indexes.ManifestEntry, 0, len(batch.Positions))
	for _, position := range batch.Positions {
		manifest = append(manifest, indexes.ManifestEntry{
			Position: position.Key.Position,
			Ref:      position.Key.Ref,
			Alt:      position.Key.Alt,
			Called:   position.Called,
		})

		if len(position.NoCalls) == 0 {
			continue
		}
		keys := recordKeys(position.Key, string(gt.NoCall))
		for chunk, samples := range utils.Chunk(position.NoCalls, p.RecordChunkSize) {
			record := indexes.NoCallRecord{Batch: batch.Id, Chunk: chunk, Samples: samples}
			if err := p.insert(ctx, stream, keys, record); err != nil {
				return report, err
			}
			report.NoCallRecords++
		}
	}

	for chunk, entries := range utils.Chunk(manifest, p.ManifestChunkSize) {
		record := indexes.ManifestRecord{Batch: batch.Id, Chunk: chunk, Positions: entries}
		if err := p.insert(ctx, stream, []string{indexes.ManifestKey}, record); err != nil {
			return report, err
		}
		report.ManifestRecords++
	}

	return report, nil
}

// PublishBuckets rewrites the eight MAF buckets of a chromosome.
func (p *Publisher) PublishBuckets(ctx context.Context, chrom string, s Snapshot) (int, error) {
	stream := chromosome.MafStream(chrom)
	if err := ledger.EnsureStream(ctx, p.Ledger, stream); err != nil {
		return 0, fmt.Errorf("creating %s: %w", stream, err)
	}

	written := 0
	for _, bucket := range Buckets(s) {
		if err := p.insert(ctx, stream, []string{bucket.Range}, bucket); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (p *Publisher) insert(ctx context.Context, stream string, keys []string, record interface{}) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding %s %v: %w", stream, keys, err)
	}
	if _, err := p.Ledger.Insert(ctx, stream, keys, value); err != nil {
		return fmt.Errorf("publishing %s %v: %w", stream, keys, err)
	}
	return nil
}

func recordKeys(k models.VariantKey, class string) []string {
	return []string{strconv.FormatInt(k.Position, 10), k.Ref, k.Alt, class}
}

func nonNil(samples []string) []string {
	if samples == nil {
		return []string{}
	}
	return samples
}
