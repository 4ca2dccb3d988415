package contexts

import (
	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"
	"github.com/G2Lab/PrecisionChain/services"
	"github.com/G2Lab/PrecisionChain/services/kinship"
	variantsService "github.com/G2Lab/PrecisionChain/services/variants"

	"github.com/labstack/echo"
)

type (
	// "Helper" Context to pass into routes that need the ledger, the
	// services and the query parameters prepared by middleware
	PrecisionChainContext struct {
		echo.Context
		Config                *models.Config
		Ledger                ledger.Adapter
		IngestionService      *services.IngestionService
		ReconciliationService *services.ReconciliationService
		VariantService        *variantsService.VariantService
		KinshipEstimator      *kinship.Estimator

		Chromosome string
		// nil selects every position
		Positions []int64
		// nil selects every genotype class
		Genotypes []constants.Genotype
		// nil selects the whole sample universe
		SampleIds []string
		MafLower  float64
		MafUpper  float64
	}
)
