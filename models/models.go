package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/G2Lab/PrecisionChain/models/constants"
	cs "github.com/G2Lab/PrecisionChain/models/constants/call-status"
	"github.com/G2Lab/PrecisionChain/models/faults"
)

// VariantKey identifies a variant position within a chromosome stream.
// Alt may hold a comma separated list of alternate alleles.
type VariantKey struct {
	Position int64  `json:"position"`
	Ref      string `json:"ref"`
	Alt      string `json:"alt"`
}

func (k VariantKey) String() string {
	return fmt.Sprintf("%d:%s:%s", k.Position, k.Ref, k.Alt)
}

func (k VariantKey) AltCount() int {
	return len(strings.Split(k.Alt, ","))
}

func (k VariantKey) Less(other VariantKey) bool {
	if k.Position != other.Position {
		return k.Position < other.Position
	}
	if k.Ref != other.Ref {
		return k.Ref < other.Ref
	}
	return k.Alt < other.Alt
}

func (k VariantKey) Validate() error {
	if k.Position <= 0 {
		return fmt.Errorf("%w: %d", faults.ErrInvalidPosition, k.Position)
	}
	if k.Ref == "" || k.Alt == "" || strings.Contains(k.Ref, ":") {
		return fmt.Errorf("%w: %s", faults.ErrInvalidVariant, k)
	}
	for _, a := range strings.Split(k.Alt, ",") {
		if a == "" {
			return fmt.Errorf("%w: %s", faults.ErrInvalidVariant, k)
		}
	}
	return nil
}

// AggregateKey identifies a genotype class at a variant position.
type AggregateKey struct {
	VariantKey
	Genotype constants.Genotype `json:"genotype"`
}

// String renders the composite "position:ref:alt:genotype" key used in
// MAF bucket entries.
func (k AggregateKey) String() string {
	return fmt.Sprintf("%s:%s", k.VariantKey, k.Genotype)
}

// ParseAggregateKey decomposes a composite key. The alt field may itself
// contain ':' so it is rebuilt from everything between ref and genotype.
func ParseAggregateKey(text string) (AggregateKey, error) {
	parts := strings.Split(text, ":")
	if len(parts) < 4 {
		return AggregateKey{}, fmt.Errorf("%w: composite key %q", faults.ErrMalformedRecord, text)
	}

	position, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return AggregateKey{}, fmt.Errorf("%w: composite key %q", faults.ErrMalformedRecord, text)
	}

	return AggregateKey{
		VariantKey: VariantKey{
			Position: position,
			Ref:      parts[1],
			Alt:      strings.Join(parts[2:len(parts)-1], ":"),
		},
		Genotype: constants.Genotype(parts[len(parts)-1]),
	}, nil
}

// Aggregate is the running allele frequency of one genotype class.
type Aggregate struct {
	Count     int     `json:"count"`
	Total     int     `json:"total"`
	Frequency float64 `json:"frequency"`
}

func NewAggregate(count int, total int) Aggregate {
	a := Aggregate{Count: count, Total: total}
	if total > 0 {
		a.Frequency = float64(count) / float64(total)
	}
	return a
}

// -- write path

// VariantRow holds one position's raw calls, aligned with the
// batch's SampleIds.
type VariantRow struct {
	Key   VariantKey `json:"key"`
	Calls []string   `json:"calls"`
}

// VariantBatch is one ingestion unit: a disjoint set of samples
// called at some positions of a single chromosome.
type VariantBatch struct {
	Id         string       `json:"id"`
	Chromosome string       `json:"chromosome"`
	SampleIds  []string     `json:"sampleIds"`
	Rows       []VariantRow `json:"rows"`
}

type EncodedPosition struct {
	Key     VariantKey                      `json:"key"`
	Classes map[constants.Genotype][]string `json:"classes"`
	NoCalls []string                        `json:"noCalls"`
	// samples with a usable call, including homozygous reference
	Called int `json:"called"`
}

type EncodedBatch struct {
	Id         string            `json:"id"`
	Chromosome string            `json:"chromosome"`
	SampleIds  []string          `json:"sampleIds"`
	Positions  []EncodedPosition `json:"positions"`
	Skipped    SkipSummary       `json:"skipped"`
}

// SkipSummary counts calls excluded from the partition.
type SkipSummary struct {
	Missing    int            `json:"missing"`
	Malformed  int            `json:"malformed"`
	ByPosition map[string]int `json:"byPosition"`
}

func (s *SkipSummary) Add(key VariantKey, status constants.CallStatus) {
	switch status {
	case cs.Missing:
		s.Missing++
	case cs.Malformed:
		s.Malformed++
	default:
		return
	}
	if s.ByPosition == nil {
		s.ByPosition = map[string]int{}
	}
	s.ByPosition[key.String()]++
}

func (s SkipSummary) Total() int {
	return s.Missing + s.Malformed
}

// -- read path

// Warning flags a data integrity issue found while reading the ledger;
// it never aborts the read.
type Warning struct {
	Stream  string   `json:"stream"`
	Keys    []string `json:"keys"`
	Message string   `json:"message"`
}

// GenotypeMatrix is the samples x markers matrix of genotype codes
// fed to the kinship estimator.
type GenotypeMatrix struct {
	Samples []string     `json:"samples"`
	Markers []VariantKey `json:"markers"`
	Codes   [][]int      `json:"codes"`
}
