package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/G2Lab/PrecisionChain/contexts"
	"github.com/G2Lab/PrecisionChain/utils"

	"github.com/labstack/echo"
)

/*
	Echo middleware to prepare the context for an optionally provided `positions`
	HTTP query parameter (comma separated, 1-based)
*/
func ValidateOptionalPositionsAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.PrecisionChainContext)

		positionsQP := utils.SplitCommaSeparated(c.QueryParam("positions"))
		if len(positionsQP) == 0 {
			return next(gc)
		}

		positions := make([]int64, 0, len(positionsQP))
		for _, p := range positionsQP {
			position, err := strconv.ParseInt(p, 10, 64)
			if err != nil || position <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid position %s! Positions must be integers greater than 0", p))
			}
			positions = append(positions, position)
		}

		gc.Positions = positions
		return next(gc)
	}
}
