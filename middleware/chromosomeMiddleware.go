package middleware

import (
	"fmt"
	"net/http"

	"github.com/G2Lab/PrecisionChain/contexts"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"

	"github.com/labstack/echo"
)

/*
	Echo middleware to ensure a valid `chromosome` HTTP query parameter was provided
*/
func MandateChromosomeAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.PrecisionChainContext)

		chromQP := c.QueryParam("chromosome")
		if len(chromQP) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Missing 'chromosome' query parameter for querying!")
		}

		if !chromosome.IsValidHumanChromosome(chromQP) {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid 'chromosome' %s! Expected one of 1-22, X, Y or MT", chromQP))
		}

		gc.Chromosome = chromosome.Normalize(chromQP)
		return next(gc)
	}
}
