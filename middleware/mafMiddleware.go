package middleware

import (
	"fmt"
	"net/http"

	"github.com/G2Lab/PrecisionChain/contexts"
	mafBucket "github.com/G2Lab/PrecisionChain/models/constants/maf-bucket"

	"github.com/labstack/echo"
)

/*
	Echo middleware to ensure a valid `range` HTTP query parameter of the
	form `lo-hi` was provided for allele frequency queries
*/
func MandateMafRangeAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.PrecisionChainContext)

		rangeQP := c.QueryParam("range")
		if len(rangeQP) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Missing 'range' query parameter for querying!")
		}

		lo, hi, err := mafBucket.ParseRange(rangeQP)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid 'range' %s: %v", rangeQP, err))
		}

		gc.MafLower = lo
		gc.MafUpper = hi
		return next(gc)
	}
}
