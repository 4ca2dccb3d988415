package variants

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/G2Lab/PrecisionChain/contexts"
	"github.com/G2Lab/PrecisionChain/models/constants"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
	"github.com/G2Lab/PrecisionChain/models/constants/zygosity"
	"github.com/G2Lab/PrecisionChain/models/dtos"
	errorsDtos "github.com/G2Lab/PrecisionChain/models/dtos/errors"
	"github.com/G2Lab/PrecisionChain/models/ingest"
	"github.com/G2Lab/PrecisionChain/mvc"
	variantsService "github.com/G2Lab/PrecisionChain/services/variants"
	"github.com/G2Lab/PrecisionChain/utils"

	"github.com/labstack/echo"
	"github.com/labstack/gommon/log"
)

func GetVariantsOverview(c echo.Context) error {
	gc := c.(*contexts.PrecisionChainContext)

	overview := gc.VariantService.GetVariantsOverview(c.Request().Context(), chromosome.ValidListOfHumanChromosomes())
	return c.JSON(http.StatusOK, overview)
}

func VariantsGetByPosition(c echo.Context) error {
	gc, ctx, chrom, positions := mvc.RetrieveCommonElements(c)

	rec, err := gc.VariantService.Reconstruct(ctx, variantsService.Request{
		Chromosome: chrom,
		Positions:  positions,
		Genotypes:  gc.Genotypes,
	})
	if err != nil {
		return mvc.RespondWithError(c, err)
	}

	results := make([]dtos.VariantPositionDataModel, 0, len(rec.Positions))
	for _, p := range rec.Positions {
		zygosities := make(map[constants.Genotype]string, len(p.Classes))
		for g := range p.Classes {
			zygosities[g] = zygosity.ZygosityToString(zygosity.Of(g))
		}

		results = append(results, dtos.VariantPositionDataModel{
			Position:   p.Key.Position,
			Ref:        p.Key.Ref,
			Alt:        p.Key.Alt,
			Genotypes:  p.Classes,
			NoCalls:    p.NoCalls,
			Aggregates: p.Aggregates,
			Zygosity:   zygosities,
		})
	}

	return c.JSON(http.StatusOK, dtos.VariantsByPositionResponseDTO{
		VariantReponse: dtos.VariantReponse{
			Status:  http.StatusOK,
			Message: fmt.Sprintf("%d positions found", len(results)),
		},
		Chromosome: rec.Chromosome,
		Universe:   len(rec.Universe),
		Results:    results,
		Warnings:   rec.Warnings,
	})
}

func VariantsGetByMaf(c echo.Context) error {
	gc, ctx, chrom, _ := mvc.RetrieveCommonElements(c)

	result, err := gc.VariantService.MafRange(ctx, chrom, gc.MafLower, gc.MafUpper)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}

	results := make([]dtos.VariantMafDataModel, 0, len(result.Entries))
	for _, e := range result.Entries {
		results = append(results, dtos.VariantMafDataModel{
			Position:  e.Key.Position,
			Ref:       e.Key.Ref,
			Alt:       e.Key.Alt,
			Genotype:  e.Key.Genotype,
			Frequency: e.Frequency,
		})
	}

	return c.JSON(http.StatusOK, dtos.VariantsByMafResponseDTO{
		VariantReponse: dtos.VariantReponse{
			Status:  http.StatusOK,
			Message: fmt.Sprintf("%d genotype classes found", len(results)),
		},
		Chromosome: result.Chromosome,
		Lower:      result.Lower,
		Upper:      result.Upper,
		Buckets:    result.Buckets,
		Results:    results,
		Warnings:   result.Warnings,
	})
}

func VariantsGetBySampleId(c echo.Context) error {
	gc, ctx, chrom, positions := mvc.RetrieveCommonElements(c)

	matrix, warnings, err := gc.VariantService.GenotypeMatrix(ctx, chrom, positions, gc.SampleIds)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}

	return c.JSON(http.StatusOK, dtos.GenotypeMatrixResponseDTO{
		VariantReponse: dtos.VariantReponse{
			Status:  http.StatusOK,
			Message: fmt.Sprintf("%d samples x %d markers", len(matrix.Samples), len(matrix.Markers)),
		},
		Chromosome: chrom,
		Matrix:     matrix,
		Warnings:   warnings,
	})
}

func VariantsReconcileMaf(c echo.Context) error {
	gc, ctx, chrom, _ := mvc.RetrieveCommonElements(c)

	summary, err := gc.IngestionService.Reconcile(ctx, chrom)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func VariantsIngest(c echo.Context) error {
	gc := c.(*contexts.PrecisionChainContext)
	vcfPath := gc.Config.Api.VcfPath
	ingestionService := gc.IngestionService

	fileNames := utils.SplitCommaSeparated(c.QueryParam("fileNames"))
	if len(fileNames) == 0 {
		return c.JSON(http.StatusBadRequest, errorsDtos.CreateSimpleBadRequest("Missing 'fileNames' query parameter!"))
	}

	// gather the vcf files available for ingestion
	vcfFiles := []string{}
	err := filepath.Walk(vcfPath, func(absoluteFileName string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relativePathFileName, relErr := filepath.Rel(vcfPath, absoluteFileName)
		if relErr != nil {
			return relErr
		}
		if strings.HasSuffix(relativePathFileName, ".vcf") || strings.HasSuffix(relativePathFileName, ".vcf.gz") {
			vcfFiles = append(vcfFiles, filepath.ToSlash(relativePathFileName))
		}
		return nil
	})
	if err != nil {
		log.Errorf("listing %s: %v", vcfPath, err)
		return c.JSON(http.StatusInternalServerError, errorsDtos.CreateSimpleInternalServerError("unable to list the vcf directory"))
	}

	for _, fileName := range fileNames {
		if !utils.StringInSlice(fileName, vcfFiles) {
			return c.JSON(http.StatusBadRequest, errorsDtos.CreateSimpleBadRequest("file "+fileName+" not found! Aborted --"))
		}
	}

	responseDtos := []ingest.IngestResponseDTO{}
	for _, fileName := range fileNames {
		// check if there is an already existing ingestion request state
		if ingestionService.FilenameAlreadyRunning(fileName) {
			responseDtos = append(responseDtos, ingest.IngestResponseDTO{
				Filename: fileName,
				State:    ingest.Error,
				Message:  "File already being ingested..",
			})
			continue
		}

		request := ingestionService.QueueVcf(fileName)
		responseDtos = append(responseDtos, ingest.IngestResponseDTO{
			Id:       request.Id,
			Filename: request.Filename,
			State:    request.State,
			Message:  "Successfully queued..",
		})
	}

	return c.JSON(http.StatusOK, responseDtos)
}

func GetAllVariantIngestionRequests(c echo.Context) error {
	ingestionService := c.(*contexts.PrecisionChainContext).IngestionService
	return c.JSON(http.StatusOK, ingestionService.GetRequests())
}

// GetGenotypeClasses lists the classes a position with the given number
// of alternate alleles can be stored under.
func GetGenotypeClasses(c echo.Context) error {
	alts := utils.SplitCommaSeparated(c.QueryParam("alt"))
	if len(alts) == 0 {
		return c.JSON(http.StatusBadRequest, errorsDtos.CreateSimpleBadRequest("Missing 'alt' query parameter!"))
	}
	return c.JSON(http.StatusOK, gt.Enumerate(len(alts)))
}
