package chromosome

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	variantStreamPrefix = "chrom_"
	mafStreamPrefix     = "MAF_chrom_"
)

func ValidListOfHumanChromosomes() []string {
	var humChroms []string
	for i := 1; i < 23; i++ {
		humChroms = append(humChroms, fmt.Sprint(i))
	}
	humChroms = append(humChroms, "X")
	humChroms = append(humChroms, "Y")
	humChroms = append(humChroms, "MT")
	return humChroms
}

func IsValidHumanChromosome(text string) bool {
	normalized := Normalize(text)

	// autosomes 1-22
	if chromNumber, err := strconv.Atoi(normalized); err == nil {
		return chromNumber > 0 && chromNumber < 23
	}

	switch normalized {
	case "X", "Y", "MT":
		return true
	}

	return false
}

// Normalize strips a leading "chr" and upper-cases sex/mitochondrial names,
// so "chr1", "1" and "chrX"/"x" address the same streams.
func Normalize(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 3 && strings.EqualFold(trimmed[:3], "chr") {
		trimmed = trimmed[3:]
	}
	upper := strings.ToUpper(trimmed)
	if upper == "M" {
		return "MT"
	}
	return upper
}

// VariantStream names the stream holding genotype class records,
// no-call records, sample universe records and position manifests.
func VariantStream(chrom string) string {
	return variantStreamPrefix + Normalize(chrom)
}

// MafStream names the stream holding the eight published MAF buckets.
func MafStream(chrom string) string {
	return mafStreamPrefix + Normalize(chrom)
}
