package dtos

import (
	"time"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants"
)

type GeneralErrorResponseDto struct {
	Code      int            `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Errors    []GeneralError `json:"errors"`
}
type GeneralError struct {
	Message string `json:"message"`
}

type VariantReponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// VariantsByPositionResponseDTO carries, per position, the samples of every
// requested genotype class.
type VariantsByPositionResponseDTO struct {
	VariantReponse
	Chromosome string                     `json:"chromosome"`
	Universe   int                        `json:"universeSize"`
	Results    []VariantPositionDataModel `json:"results"`
	Warnings   []models.Warning           `json:"warnings"`
}
type VariantPositionDataModel struct {
	Position   int64                                   `json:"position"`
	Ref        string                                  `json:"ref"`
	Alt        string                                  `json:"alt"`
	Genotypes  map[constants.Genotype][]string         `json:"genotypes"`
	NoCalls    []string                                `json:"noCalls"`
	Aggregates map[constants.Genotype]models.Aggregate `json:"aggregates"`
	Zygosity   map[constants.Genotype]string           `json:"zygosity"`
}

type VariantsByMafResponseDTO struct {
	VariantReponse
	Chromosome string                `json:"chromosome"`
	Lower      float64               `json:"lower"`
	Upper      float64               `json:"upper"`
	Buckets    []string              `json:"buckets"`
	Results    []VariantMafDataModel `json:"results"`
	Warnings   []models.Warning      `json:"warnings"`
}
type VariantMafDataModel struct {
	Position  int64              `json:"position"`
	Ref       string             `json:"ref"`
	Alt       string             `json:"alt"`
	Genotype  constants.Genotype `json:"genotype"`
	Frequency float64            `json:"frequency"`
}

type GenotypeMatrixResponseDTO struct {
	VariantReponse
	Chromosome string                `json:"chromosome"`
	Matrix     models.GenotypeMatrix `json:"matrix"`
	Warnings   []models.Warning      `json:"warnings"`
}

type KinshipResponseDTO struct {
	VariantReponse
	Chromosome string                 `json:"chromosome"`
	Samples    []string               `json:"samples"`
	Markers    int                    `json:"markers"`
	Pairs      []KinshipPairDataModel `json:"pairs"`
	Warnings   []models.Warning       `json:"warnings"`
}
type KinshipPairDataModel struct {
	A            string                             `json:"a"`
	B            string                             `json:"b"`
	AGMR         float64                            `json:"agmr"`
	HGMR         float64                            `json:"hgmr"`
	Relationship constants.Relationship             `json:"relationship"`
	MostLikely   constants.Relationship             `json:"mostLikely"`
	Likelihoods  map[constants.Relationship]float64 `json:"likelihoods"`
}
