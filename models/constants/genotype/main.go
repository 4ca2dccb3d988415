package genotype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/G2Lab/PrecisionChain/models/constants"
	cs "github.com/G2Lab/PrecisionChain/models/constants/call-status"
	"github.com/G2Lab/PrecisionChain/models/faults"
)

const (
	// implicit class, never written to the ledger
	HomozygousReference constants.Genotype = "0|0"

	// tag for missing or malformed calls; distinct from HomozygousReference
	NoCall constants.Genotype = "./."

	separator = "|"
)

// Canonical orders a diploid call larger allele first ("1|0", never "0|1").
func Canonical(a int, b int) constants.Genotype {
	if b > a {
		a, b = b, a
	}
	return constants.Genotype(fmt.Sprintf("%d%s%d", a, separator, b))
}

// Enumerate lists every unordered allele pair over {0..altCount},
// homozygous reference excluded, in a stable order (1|0, 1|1, 2|0, 2|1, 2|2, ...).
func Enumerate(altCount int) []constants.Genotype {
	classes := make([]constants.Genotype, 0, (altCount+1)*(altCount+2)/2-1)
	for hi := 1; hi <= altCount; hi++ {
		for lo := 0; lo <= hi; lo++ {
			classes = append(classes, Canonical(hi, lo))
		}
	}
	return classes
}

// Parse reads a raw VCF-style call ("0/1", "1|0", "2", "./.") against a
// position with altCount alternate alleles.
//
// Phasing is not retained. Haploid calls "k" are read as "k|k".
func Parse(raw string, altCount int) (constants.Genotype, constants.CallStatus) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "." {
		return NoCall, cs.Missing
	}

	parts := strings.Split(strings.ReplaceAll(trimmed, "/", separator), separator)
	if len(parts) > 2 {
		return NoCall, cs.Malformed
	}

	alleles := make([]int, 0, 2)
	missing := false
	for _, p := range parts {
		if p == "." {
			missing = true
			continue
		}
		allele, err := strconv.Atoi(p)
		if err != nil || allele < 0 || allele > altCount {
			return NoCall, cs.Malformed
		}
		alleles = append(alleles, allele)
	}
	if missing {
		return NoCall, cs.Missing
	}

	if len(alleles) == 1 {
		return Canonical(alleles[0], alleles[0]), cs.Called
	}
	return Canonical(alleles[0], alleles[1]), cs.Called
}

// Normalize canonicalizes a genotype given as a query input. Unlike Parse it
// has no position context, so any non-negative allele index is accepted.
func Normalize(raw string) (constants.Genotype, error) {
	trimmed := strings.TrimSpace(raw)
	if constants.Genotype(trimmed) == NoCall {
		return NoCall, nil
	}

	a, b, err := Alleles(constants.Genotype(strings.ReplaceAll(trimmed, "/", separator)))
	if err != nil {
		return "", err
	}
	return Canonical(a, b), nil
}

// Alleles splits a diploid genotype into its two allele indexes.
func Alleles(g constants.Genotype) (int, int, error) {
	parts := strings.Split(string(g), separator)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", faults.ErrInvalidGenotype, g)
	}

	a, aErr := strconv.Atoi(parts[0])
	b, bErr := strconv.Atoi(parts[1])
	if aErr != nil || bErr != nil || a < 0 || b < 0 {
		return 0, 0, fmt.Errorf("%w: %q", faults.ErrInvalidGenotype, g)
	}
	return a, b, nil
}

// Code maps a genotype to the integer used by the kinship estimator:
// homozygous a|a is 2a and heterozygous a|b (a > b) is 2*(a(a-1)/2+b)+1.
// For biallelic sites this is 0, 1, 2; homozygous codes are always even.
func Code(g constants.Genotype) (int, error) {
	a, b, err := Alleles(g)
	if err != nil {
		return 0, err
	}
	if b > a {
		a, b = b, a
	}
	if a == b {
		return 2 * a, nil
	}
	return 2*(a*(a-1)/2+b) + 1, nil
}

func IsHomozygousCode(code int) bool {
	return code%2 == 0
}
