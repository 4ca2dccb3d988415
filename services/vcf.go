package services

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/G2Lab/PrecisionChain/models"
	"github.com/G2Lab/PrecisionChain/models/constants/chromosome"
	"github.com/G2Lab/PrecisionChain/models/faults"

	"github.com/brentp/vcfgo"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

const vcfBufferSize = 4096 * 8

// OpenVcf reads a plain or gzipped VCF file into one batch per chromosome.
func OpenVcf(vcfFile string) ([]models.VariantBatch, error) {
	fraw, err := os.Open(vcfFile)
	if err != nil {
		return nil, err
	}
	defer fraw.Close()

	var f io.Reader
	gz, err := gzip.NewReader(fraw)
	if err == nil {
		defer gz.Close()
		f = gz
	} else {
		// not gzipped; start over from the top of the file
		if _, err := fraw.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		f = fraw
	}

	return ReadVcf(bufio.NewReaderSize(f, vcfBufferSize), vcfFile)
}

// ReadVcf splits a VCF stream into per-chromosome batches. Batch ids are
// derived from the source name so that loading the same file twice yields
// the same ids.
func ReadVcf(r io.Reader, source string) ([]models.VariantBatch, error) {
	rdr, err := vcfgo.NewReader(r, true)
	if err != nil {
		if rdr == nil {
			return nil, fmt.Errorf("%w: %s: %v", faults.ErrInvalidVariant, source, err)
		}
		log.Warnf("%s has invalid header features, continuing: %v", source, err)
		rdr.Clear()
	}

	sampleIds := rdr.Header.SampleNames
	if len(sampleIds) == 0 {
		return nil, fmt.Errorf("%w: %s has no sample columns", faults.ErrNoSamples, source)
	}

	byChromosome := map[string]*models.VariantBatch{}
	order := []string{}
	skippedContigs := map[string]int{}

	for i := 0; ; i++ {
		variant := rdr.Read()
		if variant == nil {
			break
		}
		if err := variant.Header.ParseSamples(variant); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", faults.ErrInvalidVariant, variant.Chrom(), variant.Pos, err)
		}

		chrom := chromosome.Normalize(variant.Chrom())
		if !chromosome.IsValidHumanChromosome(chrom) {
			skippedContigs[chrom]++
			continue
		}

		batch, ok := byChromosome[chrom]
		if !ok {
			batch = &models.VariantBatch{
				Id:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(source+"#"+chrom)).String(),
				Chromosome: chrom,
				SampleIds:  sampleIds,
			}
			byChromosome[chrom] = batch
			order = append(order, chrom)
		}

		calls := make([]string, len(sampleIds))
		for s := range calls {
			if s < len(variant.Samples) && variant.Samples[s] != nil {
				calls[s] = gtString(variant.Samples[s])
			} else {
				calls[s] = "./."
			}
		}

		batch.Rows = append(batch.Rows, models.VariantRow{
			Key: models.VariantKey{
				Position: int64(variant.Pos),
				Ref:      variant.Ref(),
				Alt:      strings.Join(variant.Alt(), ","),
			},
			Calls: calls,
		})

		if i > 0 && i%10000 == 0 {
			log.Debugf("%s: read %d variants, last %s:%d", source, i, variant.Chrom(), variant.Pos)
		}
	}
	if err := rdr.Error(); err != nil {
		log.Warnf("%s: invalid features were skipped: %v", source, err)
	}

	for contig, n := range skippedContigs {
		log.Infof("%s: skipped %d variants on contig %s", source, n, contig)
	}

	batches := make([]models.VariantBatch, 0, len(order))
	for _, chrom := range order {
		batches = append(batches, *byChromosome[chrom])
	}
	return batches, nil
}

// gtString renders vcfgo's allele indices back into a call; -1 is a
// missing allele.
func gtString(sample *vcfgo.SampleGenotype) string {
	if len(sample.GT) == 0 {
		return "./."
	}

	separator := "/"
	if sample.Phased {
		separator = "|"
	}

	alleles := make([]string, len(sample.GT))
	for i, a := range sample.GT {
		if a < 0 {
			alleles[i] = "."
		} else {
			alleles[i] = strconv.Itoa(a)
		}
	}
	return strings.Join(alleles, separator)
}
