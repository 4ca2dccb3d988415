package main

import (
	"fmt"
	"os"

	"github.com/G2Lab/PrecisionChain/contexts"
	gam "github.com/G2Lab/PrecisionChain/middleware"
	"github.com/G2Lab/PrecisionChain/models"
	ledgerBackend "github.com/G2Lab/PrecisionChain/models/constants/ledger-backend"
	"github.com/G2Lab/PrecisionChain/models/faults"
	esRepo "github.com/G2Lab/PrecisionChain/repositories/elasticsearch"
	"github.com/G2Lab/PrecisionChain/repositories/ledger"
	levelRepo "github.com/G2Lab/PrecisionChain/repositories/leveldb"
	"github.com/G2Lab/PrecisionChain/repositories/multichain"
	kinshipMvc "github.com/G2Lab/PrecisionChain/mvc/kinship"
	serviceInfoMvc "github.com/G2Lab/PrecisionChain/mvc/service-info"
	variantsMvc "github.com/G2Lab/PrecisionChain/mvc/variants"
	"github.com/G2Lab/PrecisionChain/services"
	"github.com/G2Lab/PrecisionChain/services/kinship"
	variantsService "github.com/G2Lab/PrecisionChain/services/variants"
	"github.com/G2Lab/PrecisionChain/utils"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	fmt.Printf("Using : \n"+

		"\tDebug : %t \n\n"+

		"\tVCF Directory Path : %s \n"+
		"\tFile Processing Concurrency Level : %d\n\n"+

		"\tLedger Backend : %s\n"+
		"\tLedger Page Size : %d\n"+
		"\tRecord Chunk Size : %d\n"+
		"\tManifest Chunk Size : %d\n"+
		"\tMultiChain Url : %s (chain %s)\n"+
		"\tElasticsearch Url : %s \n"+
		"\tElasticsearch Username : %s\n"+
		"\tLevelDB Path : %s\n\n"+

		"\tKinship Minimum Markers : %d\n"+
		"\tKinship Block Size : %d\n"+
		"\tKinship Concurrency : %d\n\n"+

		"\tReconciliation Enabled : %t (at %s UTC)\n\n"+

		"Running on Port : %s\n",

		cfg.Debug,
		cfg.Api.VcfPath,
		cfg.Api.FileProcessingConcurrencyLevel,
		cfg.Ledger.Backend,
		cfg.Ledger.PageSize,
		cfg.Ledger.RecordChunkSize,
		cfg.Ledger.ManifestChunkSize,
		cfg.MultiChain.Url, cfg.MultiChain.Chain,
		cfg.Elasticsearch.Url, cfg.Elasticsearch.Username,
		cfg.LevelDb.Path,
		cfg.Kinship.MinMarkers,
		cfg.Kinship.BlockSize,
		cfg.Kinship.Concurrency,
		cfg.Reconciliation.Enabled, cfg.Reconciliation.At,
		cfg.Api.Port)
	// --

	if cfg.Debug {
		log.SetLevel(log.DEBUG)
	} else {
		log.SetLevel(log.INFO)
	}

	// Service Connections:
	// -- Ledger
	l, err := createLedger(&cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	e := newServer(&cfg, l)

	// Run
	e.Logger.Fatal(e.Start(":" + cfg.Api.Port))
}

func createLedger(cfg *models.Config) (ledger.Adapter, error) {
	if !ledgerBackend.IsKnownLedgerBackend(cfg.Ledger.Backend) {
		return nil, fmt.Errorf("%w: %q", faults.ErrUnknownLedgerBackend, cfg.Ledger.Backend)
	}

	switch ledgerBackend.CastToLedgerBackend(cfg.Ledger.Backend) {
	case ledgerBackend.MultiChain:
		return multichain.NewLedger(multichain.NewClient(cfg)), nil
	case ledgerBackend.Elasticsearch:
		es, err := utils.CreateEsConnection(cfg)
		if err != nil {
			return nil, err
		}
		return esRepo.NewLedger(cfg, es), nil
	case ledgerBackend.LevelDb:
		db, err := utils.CreateLevelDbConnection(cfg)
		if err != nil {
			return nil, err
		}
		return levelRepo.NewLedger(db, cfg.Ledger.InlineThreshold), nil
	default:
		return ledger.NewMemory(cfg.Ledger.InlineThreshold), nil
	}
}

func newServer(cfg *models.Config, l ledger.Adapter) *echo.Echo {
	// Instantiate Server
	e := echo.New()

	// Service Singletons
	vs := variantsService.NewVariantService(cfg, l)
	iz := services.NewIngestionService(cfg, vs, variantsService.NewPublisher(cfg, l))
	rs := services.NewReconciliationService(cfg, iz)
	ke := kinship.NewEstimator(cfg)

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET},
	}))
	if cfg.Debug {
		e.Use(middleware.Logger())
	}

	// -- Override handlers with the custom context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.PrecisionChainContext{
				Context:               c,
				Config:                cfg,
				Ledger:                l,
				IngestionService:      iz,
				ReconciliationService: rs,
				VariantService:        vs,
				KinshipEstimator:      ke,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", serviceInfoMvc.GetRoot)

	// -- Service Info
	e.GET("/service-info", serviceInfoMvc.GetServiceInfo)

	// -- Variants
	e.GET("/variants/overview", variantsMvc.GetVariantsOverview)
	e.GET("/variants/genotypes", variantsMvc.GetGenotypeClasses)

	e.GET("/variants/get/by/position", variantsMvc.VariantsGetByPosition,
		// middleware
		gam.MandateChromosomeAttribute,
		gam.ValidateOptionalPositionsAttribute,
		gam.ValidatePotentialGenotypesQueryParameter)
	e.GET("/variants/get/by/maf", variantsMvc.VariantsGetByMaf,
		// middleware
		gam.MandateChromosomeAttribute,
		gam.MandateMafRangeAttribute)
	e.GET("/variants/get/by/sampleId", variantsMvc.VariantsGetBySampleId,
		// middleware
		gam.MandateChromosomeAttribute,
		gam.ValidateOptionalPositionsAttribute,
		gam.CalibrateOptionalSampleIdsPluralAttribute)

	e.GET("/variants/maf/reconcile", variantsMvc.VariantsReconcileMaf,
		// middleware
		gam.MandateChromosomeAttribute)

	e.GET("/variants/ingestion/run", variantsMvc.VariantsIngest)
	e.GET("/variants/ingestion/requests", variantsMvc.GetAllVariantIngestionRequests)

	// -- Kinship
	e.GET("/kinship", kinshipMvc.GetKinship,
		// middleware
		gam.MandateChromosomeAttribute,
		gam.ValidateOptionalPositionsAttribute,
		gam.CalibrateOptionalSampleIdsPluralAttribute)

	return e
}
