package middleware

import (
	"github.com/G2Lab/PrecisionChain/contexts"
	"github.com/G2Lab/PrecisionChain/utils"

	"github.com/labstack/echo"
)

/*
Echo middleware to prepare the context for an optionally provided pluralized `id` (spelled `ids`) HTTP query parameter
*/
func CalibrateOptionalSampleIdsPluralAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.PrecisionChainContext)

		sampleIds := utils.SplitCommaSeparated(c.QueryParam("ids"))
		if len(sampleIds) == 0 {
			// whole universe
			return next(gc)
		}

		// keep the requested order, drop repeats
		seen := map[string]bool{}
		for _, id := range sampleIds {
			if !seen[id] {
				seen[id] = true
				gc.SampleIds = append(gc.SampleIds, id)
			}
		}
		return next(gc)
	}
}
