package mvc

import (
	"context"
	"errors"
	"net/http"

	"github.com/G2Lab/PrecisionChain/contexts"
	errorsDtos "github.com/G2Lab/PrecisionChain/models/dtos/errors"
	"github.com/G2Lab/PrecisionChain/models/faults"

	"github.com/labstack/echo"
	"github.com/labstack/gommon/log"
)

// RetrieveCommonElements returns the query parameters prepared by the
// chromosome, position, genotype and sample middleware.
func RetrieveCommonElements(c echo.Context) (*contexts.PrecisionChainContext, context.Context, string, []int64) {
	gc := c.(*contexts.PrecisionChainContext)
	return gc, c.Request().Context(), gc.Chromosome, gc.Positions
}

// RespondWithError maps a fault class onto an HTTP status.
func RespondWithError(c echo.Context, err error) error {
	switch {
	case faults.IsErrInvalid(err):
		return c.JSON(http.StatusBadRequest, errorsDtos.CreateSimpleBadRequest(err.Error()))
	case faults.IsErrNotFound(err):
		return c.JSON(http.StatusNotFound, errorsDtos.CreateSimpleNotFound(err.Error()))
	case faults.IsErrTransient(err):
		return c.JSON(http.StatusServiceUnavailable, errorsDtos.CreateSimpleServiceUnavailable(err.Error()))
	case faults.IsErrMalformed(err):
		return c.JSON(http.StatusBadGateway, errorsDtos.CreateSimpleBadGateway(err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusServiceUnavailable, errorsDtos.CreateSimpleServiceUnavailable(err.Error()))
	default:
		log.Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		return c.JSON(http.StatusInternalServerError, errorsDtos.CreateSimpleInternalServerError(err.Error()))
	}
}
