package kinship

import (
	"fmt"
	"net/http"

	"github.com/G2Lab/PrecisionChain/models/dtos"
	"github.com/G2Lab/PrecisionChain/mvc"

	"github.com/labstack/echo"
)

// GetKinship infers the relationship of every pair of the selected samples
// from their genotypes at the selected positions.
func GetKinship(c echo.Context) error {
	gc, ctx, chrom, positions := mvc.RetrieveCommonElements(c)

	matrix, warnings, err := gc.VariantService.GenotypeMatrix(ctx, chrom, positions, gc.SampleIds)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}

	result, err := gc.KinshipEstimator.Estimate(ctx, matrix)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}

	pairs := make([]dtos.KinshipPairDataModel, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		pairs = append(pairs, dtos.KinshipPairDataModel{
			A:            p.A,
			B:            p.B,
			AGMR:         p.AGMR,
			HGMR:         p.HGMR,
			Relationship: p.Relationship,
			MostLikely:   p.MostLikely,
			Likelihoods:  p.Likelihoods,
		})
	}

	return c.JSON(http.StatusOK, dtos.KinshipResponseDTO{
		VariantReponse: dtos.VariantReponse{
			Status:  http.StatusOK,
			Message: fmt.Sprintf("%d pairs over %d markers", len(pairs), result.Markers),
		},
		Chromosome: chrom,
		Samples:    result.Samples,
		Markers:    result.Markers,
		Pairs:      pairs,
		Warnings:   warnings,
	})
}
