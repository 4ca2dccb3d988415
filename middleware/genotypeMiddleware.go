package middleware

import (
	"fmt"
	"net/http"

	"github.com/G2Lab/PrecisionChain/contexts"
	"github.com/G2Lab/PrecisionChain/models/constants"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/utils"

	"github.com/labstack/echo"
)

// ValidatePotentialGenotypesQueryParameter canonicalizes the optional
// `genotypes` filter, so `0|1` selects the `1|0` class.
func ValidatePotentialGenotypesQueryParameter(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.PrecisionChainContext)

		genotypesQP := utils.SplitCommaSeparated(c.QueryParam("genotypes"))
		if len(genotypesQP) == 0 {
			return next(gc)
		}

		genotypes := make([]constants.Genotype, 0, len(genotypesQP))
		for _, g := range genotypesQP {
			canonical, err := gt.Normalize(g)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid genotype query %s", g))
			}
			genotypes = append(genotypes, canonical)
		}

		gc.Genotypes = genotypes
		return next(gc)
	}
}
