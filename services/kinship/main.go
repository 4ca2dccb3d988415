package kinship

import (
	"context"
	"fmt"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/models/faults"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

type (
	Estimator struct {
		MinMarkers  int
		BlockSize   int
		Concurrency int
	}

	// Pair is the classification of two samples. Relationship is the
	// reported label; MostLikely is the argmax of Likelihoods and differs
	// from it only for pairs past the unrelated mean.
	Pair struct {
		A            string                             `json:"a"`
		B            string                             `json:"b"`
		AGMR         float64                            `json:"agmr"`
		HGMR         float64                            `json:"hgmr"`
		Relationship constants.Relationship             `json:"relationship"`
		MostLikely   constants.Relationship             `json:"mostLikely"`
		Likelihoods  map[constants.Relationship]float64 `json:"likelihoods"`
	}

	Result struct {
		Samples []string      `json:"samples"`
		Markers int           `json:"markers"`
		AGMR    *mat.SymDense `json:"-"`
		HGMR    *mat.SymDense `json:"-"`
		Pairs   []Pair        `json:"pairs"`
	}

	// a rectangle of the pairwise matrix, rows [rowStart,rowEnd) x cols [colStart,colEnd)
	block struct {
		rowStart, rowEnd int
		colStart, colEnd int
	}

	cell struct {
		i, j       int
		agmr, hgmr float64
	}
)

func NewEstimator(cfg *models.Config) *Estimator {
	e := &Estimator{
		MinMarkers:  cfg.Kinship.MinMarkers,
		BlockSize:   cfg.Kinship.BlockSize,
		Concurrency: cfg.Kinship.Concurrency,
	}
	if e.MinMarkers <= 0 {
		e.MinMarkers = 10
	}
	if e.BlockSize <= 0 {
		e.BlockSize = 64
	}
	if e.Concurrency <= 0 {
		e.Concurrency = 1
	}
	return e
}

// Estimate computes the AGMR and HGMR matrices of a genotype matrix and
// classifies every sample pair.
func (e *Estimator) Estimate(ctx context.Context, matrix models.GenotypeMatrix) (Result, error) {
	if len(matrix.Samples) != len(matrix.Codes) {
		return Result{}, fmt.Errorf("%w: %d samples for %d code rows", faults.ErrCallCountMismatch, len(matrix.Samples), len(matrix.Codes))
	}

	agmr, hgmr, err := e.Matrices(ctx, matrix.Codes)
	if err != nil {
		return Result{}, err
	}

	n := len(matrix.Samples)
	result := Result{
		Samples: matrix.Samples,
		Markers: len(matrix.Codes[0]),
		AGMR:    agmr,
		HGMR:    hgmr,
		Pairs:   make([]Pair, 0, n*(n-1)/2),
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, h := agmr.At(i, j), hgmr.At(i, j)
			relationship, likelihoods := Classify(a, h)
			result.Pairs = append(result.Pairs, Pair{
				A:            matrix.Samples[i],
				B:            matrix.Samples[j],
				AGMR:         a,
				HGMR:         h,
				Relationship: relationship,
				MostLikely:   MostLikely(likelihoods),
				Likelihoods:  likelihoods,
			})
		}
	}

	return result, nil
}

// Matrices computes AGMR and HGMR for every pair of rows. Row blocks are
// processed concurrently; each block fills its own cells and the matrices
// are assembled once every block is done.
func (e *Estimator) Matrices(ctx context.Context, codes [][]int) (*mat.SymDense, *mat.SymDense, error) {
	n := len(codes)
	if n == 0 {
		return nil, nil, faults.ErrNoSamples
	}

	markers := len(codes[0])
	for i, row := range codes {
		if len(row) != markers {
			return nil, nil, fmt.Errorf("%w: row %d has %d markers, expected %d", faults.ErrCallCountMismatch, i, len(row), markers)
		}
	}
	if markers < e.MinMarkers {
		return nil, nil, fmt.Errorf("%w: %d markers, need %d", faults.ErrInsufficientMarkers, markers, e.MinMarkers)
	}

	blocks := e.blocks(n)
	cells := make([][]cell, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Concurrency)
	for b := range blocks {
		b := b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cells[b] = computeBlock(codes, blocks[b])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	agmr := mat.NewSymDense(n, nil)
	hgmr := mat.NewSymDense(n, nil)
	for _, blockCells := range cells {
		for _, c := range blockCells {
			agmr.SetSym(c.i, c.j, c.agmr)
			hgmr.SetSym(c.i, c.j, c.hgmr)
		}
	}

	return agmr, hgmr, nil
}

// blocks tiles the upper triangle of an n x n matrix.
func (e *Estimator) blocks(n int) []block {
	blocks := make([]block, 0)
	for r := 0; r < n; r += e.BlockSize {
		for c := r; c < n; c += e.BlockSize {
			blocks = append(blocks, block{
				rowStart: r, rowEnd: min(r+e.BlockSize, n),
				colStart: c, colEnd: min(c+e.BlockSize, n),
			})
		}
	}
	return blocks
}

func computeBlock(codes [][]int, b block) []cell {
	cells := make([]cell, 0, (b.rowEnd-b.rowStart)*(b.colEnd-b.colStart))
	for i := b.rowStart; i < b.rowEnd; i++ {
		for j := b.colStart; j < b.colEnd; j++ {
			if j <= i {
				continue
			}
			agmr, hgmr := PairRates(codes[i], codes[j])
			cells = append(cells, cell{i: i, j: j, agmr: agmr, hgmr: hgmr})
		}
	}
	return cells
}

// PairRates returns the all-genotype mismatch rate over every marker and
// the homozygous mismatch rate over markers where both samples are
// homozygous (0 when there are none).
func PairRates(a []int, b []int) (float64, float64) {
	mismatches, homozygous, homozygousMismatches := 0, 0, 0
	for k := range a {
		differ := a[k] != b[k]
		if differ {
			mismatches++
		}
		if gt.IsHomozygousCode(a[k]) && gt.IsHomozygousCode(b[k]) {
			homozygous++
			if differ {
				homozygousMismatches++
			}
		}
	}

	agmr := 0.0
	if len(a) > 0 {
		agmr = float64(mismatches) / float64(len(a))
	}
	hgmr := 0.0
	if homozygous > 0 {
		hgmr = float64(homozygousMismatches) / float64(homozygous)
	}
	return agmr, hgmr
}

func min(a int, b int) int {
	if a < b {
		return a
	}
	return b
}
