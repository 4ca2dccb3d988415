package variantsService

import (
	"context"
	"fmt"
	"sort"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/models/faults"
)

type (
	// Request selects what to rebuild. Nil Positions or Genotypes mean all.
	Request struct {
		Chromosome string
		Positions  []int64
		Genotypes  []constants.Genotype
	}

	PositionResult struct {
		Key models.VariantKey `json:"key"`
		// requested classes, homozygous reference included
		Classes map[constants.Genotype][]string `json:"classes"`
		NoCalls []string                        `json:"noCalls"`
		// latest published aggregate of each stored class
		Aggregates map[constants.Genotype]models.Aggregate `json:"aggregates"`
	}

	Reconstruction struct {
		Chromosome string           `json:"chromosome"`
		Universe   []string         `json:"universe"`
		Positions  []PositionResult `json:"positions"`
		Warnings   []models.Warning `json:"warnings"`
	}

	// ChromosomeState is what the write path needs to fold the next batch.
	ChromosomeState struct {
		Snapshot Snapshot
		Universe []string
		Batches  map[string]struct{}
		Warnings []models.Warning
	}
)

// Reconstruct rebuilds the genotype partition of the requested positions.
// Homozygous reference samples are derived as the sample universe minus
// every stored class and every no-call at the position.
func (vs *VariantService) Reconstruct(ctx context.Context, req Request) (Reconstruction, error) {
	if !chromosome.IsValidHumanChromosome(req.Chromosome) {
		return Reconstruction{}, fmt.Errorf("%w: %q", faults.ErrInvalidChromosome, req.Chromosome)
	}

	var wanted map[constants.Genotype]struct{}
	if req.Genotypes != nil {
		wanted = map[constants.Genotype]struct{}{}
		for _, g := range req.Genotypes {
			canonical, err := gt.Normalize(string(g))
			if err != nil {
				return Reconstruction{}, err
			}
			wanted[canonical] = struct{}{}
		}
	}

	view, err := vs.loadView(ctx, req.Chromosome, req.Positions)
	if err != nil {
		return Reconstruction{}, err
	}
	if !view.exists {
		return Reconstruction{}, fmt.Errorf("%w: stream %s does not exist", faults.ErrUnknownSampleUniverse, view.stream)
	}
	if !view.universeSeen {
		return Reconstruction{}, fmt.Errorf("%w: %s", faults.ErrUnknownSampleUniverse, view.stream)
	}

	byPosition := map[models.VariantKey][]models.AggregateKey{}
	for k := range view.classes {
		byPosition[k.VariantKey] = append(byPosition[k.VariantKey], k)
	}
	for k := range view.noCalls {
		if _, ok := byPosition[k]; !ok {
			byPosition[k] = nil
		}
	}
	// positions called homozygous reference everywhere only appear in manifests
	requested := map[int64]struct{}{}
	for _, p := range req.Positions {
		requested[p] = struct{}{}
	}
	for k := range view.manifested {
		if _, ok := requested[k.Position]; req.Positions != nil && !ok {
			continue
		}
		if _, ok := byPosition[k]; !ok {
			byPosition[k] = nil
		}
	}

	variants := make([]models.VariantKey, 0, len(byPosition))
	for k := range byPosition {
		variants = append(variants, k)
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].Less(variants[j]) })

	result := Reconstruction{
		Chromosome: chromosome.Normalize(req.Chromosome),
		Universe:   view.sortedUniverse(),
		Positions:  make([]PositionResult, 0, len(variants)),
		Warnings:   view.warnings,
	}

	include := func(g constants.Genotype) bool {
		if wanted == nil {
			return true
		}
		_, ok := wanted[g]
		return ok
	}

	for _, variant := range variants {
		position := PositionResult{
			Key:        variant,
			Classes:    map[constants.Genotype][]string{},
			NoCalls:    sortedSet(view.noCalls[variant]),
			Aggregates: map[constants.Genotype]models.Aggregate{},
		}

		excluded := map[string]struct{}{}
		for s := range view.noCalls[variant] {
			excluded[s] = struct{}{}
		}

		for _, key := range byPosition[variant] {
			state := view.classes[key]
			for s := range state.samples {
				if _, dup := excluded[s]; dup {
					result.Warnings = append(result.Warnings, models.Warning{
						Stream:  view.stream,
						Keys:    []string{key.String()},
						Message: fmt.Sprintf("sample %s appears in more than one class or is also a no-call", s),
					})
				}
				excluded[s] = struct{}{}
			}

			position.Aggregates[key.Genotype] = state.aggregate
			if include(key.Genotype) {
				position.Classes[key.Genotype] = sortedSet(state.samples)
			}
		}

		if include(gt.HomozygousReference) {
			homRef := make([]string, 0)
			for _, s := range result.Universe {
				if _, ok := excluded[s]; !ok {
					homRef = append(homRef, s)
				}
			}
			position.Classes[gt.HomozygousReference] = homRef
		}

		result.Positions = append(result.Positions, position)
	}

	return result, nil
}

// LoadState recomputes a chromosome's aggregate snapshot from raw records:
// counts are the sizes of the unioned class sample sets and totals come
// from the position manifests, falling back to the latest published total
// for positions no manifest covers. A missing stream yields an empty state.
func (vs *VariantService) LoadState(ctx context.Context, chrom string) (ChromosomeState, error) {
	view, err := vs.loadView(ctx, chrom, nil)
	if err != nil {
		return ChromosomeState{}, err
	}

	snapshot := NewSnapshot()
	for k, state := range view.classes {
		snapshot.Counts[k] = len(state.samples)

		if _, manifested := view.manifested[k.VariantKey]; !manifested {
			if state.aggregate.Total > snapshot.Totals[k.VariantKey] {
				snapshot.Totals[k.VariantKey] = state.aggregate.Total
			}
		}
	}
	for k, total := range view.manifested {
		snapshot.Totals[k] = total
	}

	return ChromosomeState{
		Snapshot: snapshot,
		Universe: view.sortedUniverse(),
		Batches:  view.batches,
		Warnings: view.warnings,
	}, nil
}

// GenotypeMatrix builds the samples x markers code matrix over the given
// positions (nil for all). Markers where any selected sample has no call
// are dropped. Nil samples selects the whole universe.
func (vs *VariantService) GenotypeMatrix(ctx context.Context, chrom string, positions []int64, samples []string) (models.GenotypeMatrix, []models.Warning, error) {
	rec, err := vs.Reconstruct(ctx, Request{Chromosome: chrom, Positions: positions})
	if err != nil {
		return models.GenotypeMatrix{}, nil, err
	}

	universe := map[string]struct{}{}
	for _, s := range rec.Universe {
		universe[s] = struct{}{}
	}
	if samples == nil {
		samples = rec.Universe
	}
	for _, s := range samples {
		if _, ok := universe[s]; !ok {
			return models.GenotypeMatrix{}, nil, fmt.Errorf("%w: %s on chromosome %s", faults.ErrUnknownSample, s, rec.Chromosome)
		}
	}

	matrix := models.GenotypeMatrix{
		Samples: append([]string(nil), samples...),
		Markers: make([]models.VariantKey, 0, len(rec.Positions)),
		Codes:   make([][]int, len(samples)),
	}
	for i := range matrix.Codes {
		matrix.Codes[i] = make([]int, 0, len(rec.Positions))
	}

	for _, position := range rec.Positions {
		classOf := map[string]constants.Genotype{}
		for g, members := range position.Classes {
			for _, s := range members {
				classOf[s] = g
			}
		}

		column := make([]int, len(samples))
		complete := true
		for i, s := range samples {
			g, ok := classOf[s]
			if !ok {
				complete = false
				break
			}
			code, err := gt.Code(g)
			if err != nil {
				return models.GenotypeMatrix{}, nil, err
			}
			column[i] = code
		}
		if !complete {
			continue
		}

		matrix.Markers = append(matrix.Markers, position.Key)
		for i := range samples {
			matrix.Codes[i] = append(matrix.Codes[i], column[i])
		}
	}

	return matrix, rec.Warnings, nil
}
