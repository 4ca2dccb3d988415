package zygosity

import (
	"github.com/G2Lab/PrecisionChain/models/constants"
	gt "github.com/G2Lab/PrecisionChain/models/constants/genotype"
)

const (
	Unknown constants.Zygosity = iota
	Heterozygous
	HomozygousReference
	HomozygousAlternate
	// no call at the position
	Missing
)

// Of classifies a canonical genotype class.
func Of(g constants.Genotype) constants.Zygosity {
	if g == gt.NoCall {
		return Missing
	}

	a, b, err := gt.Alleles(g)
	switch {
	case err != nil:
		return Unknown
	case a != b:
		return Heterozygous
	case a == 0:
		return HomozygousReference
	default:
		return HomozygousAlternate
	}
}

func ZygosityToString(zyg constants.Zygosity) string {
	switch zyg {
	case Heterozygous:
		return "HETEROZYGOUS"
	case HomozygousReference:
		return "HOMOZYGOUS_REFERENCE"
	case HomozygousAlternate:
		return "HOMOZYGOUS_ALTERNATE"
	case Missing:
		return "MISSING"
	default:
		return "UNKNOWN"
	}
}
